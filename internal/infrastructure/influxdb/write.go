package influxdb

import (
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// Measurement names.
const (
	measurementForce = "force_sample"
	measurementTest  = "test_sample"
)

// WriteForceSample buffers one raw telemetry point tagged with the
// reporting microcontroller role.
func (c *Client) WriteForceSample(role string, dragForce, downForce, windSpeed float64) {
	point := influxdb2.NewPoint(
		measurementForce,
		map[string]string{"role": role},
		map[string]any{
			"drag_force": dragForce,
			"down_force": downForce,
			"wind_speed": windSpeed,
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

// WriteTestSample buffers one persisted test sample, tagged by model and
// user so dashboards can slice runs the same way the SQL store does.
func (c *Client) WriteTestSample(modelID, userID int64, dragForce, downForce, windSpeed float64) {
	point := influxdb2.NewPoint(
		measurementTest,
		map[string]string{
			"model_id": strconv.FormatInt(modelID, 10),
			"user_id":  strconv.FormatInt(userID, 10),
		},
		map[string]any{
			"drag_force": dragForce,
			"down_force": downForce,
			"wind_speed": windSpeed,
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}
