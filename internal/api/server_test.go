package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/aerolab/tunnelcore/internal/auth"
	"github.com/aerolab/tunnelcore/internal/firmware"
	"github.com/aerolab/tunnelcore/internal/hub"
	"github.com/aerolab/tunnelcore/internal/infrastructure/config"
	"github.com/aerolab/tunnelcore/internal/infrastructure/database"
	"github.com/aerolab/tunnelcore/internal/infrastructure/logging"
	"github.com/aerolab/tunnelcore/internal/state"
	"github.com/aerolab/tunnelcore/internal/storage"
	_ "github.com/aerolab/tunnelcore/migrations"
)

const testSecret = "api-test-secret-key-at-least-32-chars"

type testEnv struct {
	server *Server
	http   *httptest.Server
	store  *state.Store
	db     *database.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{Path: ":memory:", BusyTimeout: 1})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	users := storage.NewSQLiteUserRepository(db.DB)
	models := storage.NewSQLiteModelRepository(db.DB)
	tests := storage.NewSQLiteTestRepository(db.DB)

	store := state.New()
	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")

	srv, err := New(Deps{
		Config:   config.APIConfig{},
		WS:       config.WebSocketConfig{MaxMessageSize: 65536},
		Logger:   logger,
		Registry: hub.NewRegistry(),
		Store:    store,
		Verifier: auth.NewVerifier(testSecret, users),
		Firmware: firmware.NewNegotiator(config.FirmwareConfig{
			Roles: map[string]config.FirmwareRoleConfig{
				hub.RoleForce: {ExpectedVersion: "1.2.0", OTAURL: "https://ota.aerolab.test/force_micro.bin"},
				hub.RoleFan:   {ExpectedVersion: "2.0.0", OTAURL: "https://ota.aerolab.test/fan_micro.bin"},
			},
		}),
		Models:        models,
		Tests:         tests,
		RecencyWindow: 10 * time.Second,
		Version:       "test",
	})
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	srv.ctx = ctx

	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)

	return &testEnv{server: srv, http: ts, store: store, db: db}
}

func (e *testEnv) seedUser(t *testing.T, email string) int64 {
	t.Helper()
	res, err := e.db.DB.Exec(
		`INSERT INTO users (name, surname, phone_number, age, email, is_verified)
		 VALUES ('Test', 'Operator', '000', 30, ?, 1)`, email)
	if err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func (e *testEnv) seedModel(t *testing.T, manufacturer, name, carType string) int64 {
	t.Helper()
	res, err := e.db.DB.Exec(
		`INSERT INTO car_models (manufacturer, car_name, car_type) VALUES (?, ?, ?)`,
		manufacturer, name, carType)
	if err != nil {
		t.Fatalf("seeding model: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func signToken(t *testing.T, email string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func (e *testEnv) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.http.URL+path, nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/api/v1/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["version"] != "test" {
		t.Errorf("version field = %v", body["version"])
	}
}

func TestSettingsEndpointRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/api/v1/settings", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want 401", resp.StatusCode)
	}

	resp = env.get(t, "/api/v1/settings", "not-a-token")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status with bad token = %d, want 401", resp.StatusCode)
	}
}

func TestSettingsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "operator@aerolab.test")

	wind := 18.5
	if _, err := env.store.Apply(state.Update{WindSpeed: &wind}); err != nil {
		t.Fatalf("seeding state: %v", err)
	}

	resp := env.get(t, "/api/v1/settings", signToken(t, "operator@aerolab.test"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	snap := decode[state.Snapshot](t, resp)
	if snap.WindSpeed != 18.5 {
		t.Errorf("wind_speed = %v, want 18.5", snap.WindSpeed)
	}
}

func TestModelEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "operator@aerolab.test")
	token := signToken(t, "operator@aerolab.test")
	id := env.seedModel(t, "Porsche", "GT3", "race")

	resp := env.get(t, "/api/v1/models", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	models := decode[[]storage.CarModel](t, resp)
	if len(models) != 1 || models[0].CarName != "GT3" {
		t.Errorf("models = %+v", models)
	}

	resp = env.get(t, fmt.Sprintf("/api/v1/models/%d", id), token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	model := decode[storage.CarModel](t, resp)
	if model.Manufacturer != "Porsche" {
		t.Errorf("manufacturer = %q", model.Manufacturer)
	}

	resp = env.get(t, "/api/v1/models/9999", token)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing model status = %d, want 404", resp.StatusCode)
	}

	resp = env.get(t, "/api/v1/models/abc", token)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", resp.StatusCode)
	}
}

func TestModelTestsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	userID := env.seedUser(t, "operator@aerolab.test")
	token := signToken(t, "operator@aerolab.test")
	modelID := env.seedModel(t, "Audi", "R8", "road")

	samples := storage.NewSQLiteTestRepository(env.db.DB)
	for i := 0; i < 3; i++ {
		err := samples.Append(context.Background(), storage.TestSample{
			DragForce: float64(i) + 1,
			DownForce: float64(i) + 2,
			WindSpeed: 10,
			ModelID:   modelID,
			UserID:    userID,
		})
		if err != nil {
			t.Fatalf("appending sample: %v", err)
		}
	}

	resp := env.get(t, fmt.Sprintf("/api/v1/models/%d/tests?limit=2", modelID), token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	got := decode[[]storage.TestSample](t, resp)
	if len(got) != 2 {
		t.Errorf("samples = %d, want 2", len(got))
	}

	resp = env.get(t, fmt.Sprintf("/api/v1/models/%d/tests?limit=-1", modelID), token)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative limit status = %d, want 400", resp.StatusCode)
	}

	resp = env.get(t, "/api/v1/models/9999/tests", token)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing model status = %d, want 404", resp.StatusCode)
	}
}

func wsURL(httpURL, path string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + path
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("setting read deadline: %v", err)
	}
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading websocket message: %v", err)
	}
	return msg
}

func TestClientWebSocketFlow(t *testing.T) {
	env := newTestEnv(t)
	userID := env.seedUser(t, "operator@aerolab.test")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(env.http.URL, "/ws/client"), nil)
	if err != nil {
		t.Fatalf("dialling client socket: %v", err)
	}
	defer conn.Close()

	err = conn.WriteJSON(map[string]string{
		"type":  "verificationToken",
		"token": signToken(t, "operator@aerolab.test"),
	})
	if err != nil {
		t.Fatalf("sending token: %v", err)
	}

	msg := readMessage(t, conn)
	if msg["type"] != hub.TypeAuthSuccess {
		t.Fatalf("first message type = %v, want %s", msg["type"], hub.TypeAuthSuccess)
	}
	if int64(msg["user_id"].(float64)) != userID {
		t.Errorf("user_id = %v, want %d", msg["user_id"], userID)
	}

	msg = readMessage(t, conn)
	if msg["type"] != hub.TypeSettings {
		t.Fatalf("second message type = %v, want %s", msg["type"], hub.TypeSettings)
	}

	// A settings change comes straight back as a broadcast.
	err = conn.WriteJSON(map[string]any{
		"type":       "updateSettings",
		"wind_speed": 25.0,
	})
	if err != nil {
		t.Fatalf("sending update: %v", err)
	}
	msg = readMessage(t, conn)
	if msg["type"] != hub.TypeSettings {
		t.Fatalf("message type = %v, want %s", msg["type"], hub.TypeSettings)
	}
	if msg["wind_speed"].(float64) != 25.0 {
		t.Errorf("wind_speed = %v, want 25", msg["wind_speed"])
	}
}

func TestClientWebSocketRejectsBadToken(t *testing.T) {
	env := newTestEnv(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(env.http.URL, "/ws/client"), nil)
	if err != nil {
		t.Fatalf("dialling client socket: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "verificationToken", "token": "garbage"}); err != nil {
		t.Fatalf("sending token: %v", err)
	}

	msg := readMessage(t, conn)
	if msg["type"] != hub.TypeError {
		t.Fatalf("message type = %v, want error", msg["type"])
	}
	if msg["message"] != "Invalid token. Please log in again." {
		t.Errorf("message = %v", msg["message"])
	}
}

func TestDeviceWebSocketFirmwareHandshake(t *testing.T) {
	env := newTestEnv(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(env.http.URL, "/ws/microcontroller"), nil)
	if err != nil {
		t.Fatalf("dialling device socket: %v", err)
	}
	defer conn.Close()

	err = conn.WriteJSON(map[string]string{
		"type":             "version_info",
		"role":             hub.RoleForce,
		"firmware_version": "1.0.0",
	})
	if err != nil {
		t.Fatalf("sending handshake: %v", err)
	}

	msg := readMessage(t, conn)
	if msg["type"] != hub.TypeUpdateMicro {
		t.Fatalf("message type = %v, want %s", msg["type"], hub.TypeUpdateMicro)
	}
	if msg["ota_url"] != "https://ota.aerolab.test/force_micro.bin" {
		t.Errorf("ota_url = %v", msg["ota_url"])
	}
}

func TestDeviceTelemetryReachesClient(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "operator@aerolab.test")

	client, _, err := websocket.DefaultDialer.Dial(wsURL(env.http.URL, "/ws/client"), nil)
	if err != nil {
		t.Fatalf("dialling client socket: %v", err)
	}
	defer client.Close()

	err = client.WriteJSON(map[string]string{
		"type":  "verificationToken",
		"token": signToken(t, "operator@aerolab.test"),
	})
	if err != nil {
		t.Fatalf("sending token: %v", err)
	}
	readMessage(t, client) // authenticationSuccess
	readMessage(t, client) // initial settings

	device, _, err := websocket.DefaultDialer.Dial(wsURL(env.http.URL, "/ws/microcontroller"), nil)
	if err != nil {
		t.Fatalf("dialling device socket: %v", err)
	}
	defer device.Close()

	err = device.WriteJSON(map[string]string{
		"type":             "version_info",
		"role":             hub.RoleForce,
		"firmware_version": "1.2.0",
	})
	if err != nil {
		t.Fatalf("sending handshake: %v", err)
	}

	msg := readMessage(t, client)
	if msg["type"] != hub.TypeMicrocontrollerStatus {
		t.Fatalf("message type = %v, want %s", msg["type"], hub.TypeMicrocontrollerStatus)
	}
	if msg["connected"] != true || msg["role"] != hub.RoleForce {
		t.Errorf("status = %v", msg)
	}

	err = device.WriteJSON(map[string]any{
		"type":       "force_data",
		"drag_force": 4.5,
		"down_force": 9.0,
	})
	if err != nil {
		t.Fatalf("sending telemetry: %v", err)
	}

	msg = readMessage(t, client)
	if msg["type"] != hub.TypeSettings {
		t.Fatalf("message type = %v, want %s", msg["type"], hub.TypeSettings)
	}
	if msg["drag_force"].(float64) != 4.5 || msg["down_force"].(float64) != 9.0 {
		t.Errorf("forces = %v / %v", msg["drag_force"], msg["down_force"])
	}
}
