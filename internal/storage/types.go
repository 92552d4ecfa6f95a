package storage

import "time"

// User is an operator account. Accounts are created and verified by the
// account service; the hub only reads them to resolve authenticated
// identities.
type User struct {
	ID          int64
	Name        string
	Surname     string
	PhoneNumber string
	Age         int
	Email       string
	IsVerified  bool
}

// CarModel is a test article in the catalogue.
type CarModel struct {
	ID           int64  `json:"model_id"`
	Manufacturer string `json:"manufacturer"`
	CarName      string `json:"car_name"`
	CarType      string `json:"car_type"`
}

// TestSample is one recorded measurement. Samples are created only by the
// persistence loop and never mutated afterwards.
type TestSample struct {
	ID        int64     `json:"id"`
	DragForce float64   `json:"drag_force"`
	DownForce float64   `json:"down_force"`
	WindSpeed float64   `json:"wind_speed"`
	ModelID   int64     `json:"model_id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
