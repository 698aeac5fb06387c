package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/wfunc/roomboard/monitor"
	"github.com/wfunc/roomboard/network"
	"github.com/wfunc/roomboard/projection"
	"github.com/wfunc/roomboard/room"
	"github.com/wfunc/roomboard/services"
	"github.com/wfunc/roomboard/source"
	"github.com/wfunc/roomboard/state"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	server     *DashboardServer
	registry   *room.Registry
	projection *projection.Projection
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	registry := room.NewRegistry([]room.Center{
		{ID: "vp", Name: "Vortex Plateau", Tag: "VP", Scenarios: []room.Scenario{
			{Name: "Le Pacte", Status: state.StatusOpen},
			{Name: "Les oubliés", Status: state.StatusClosed, Reason: "Problème technique"},
		}},
		{ID: "ftk", Name: "Find The Key", Tag: "FTK", Scenarios: []room.Scenario{
			{Name: "Le Trésor", Status: state.StatusMaintenance},
		}},
	})
	mem := source.NewMemorySource()
	stopFeed := source.Feed(registry, mem)
	proj := projection.New(mem)
	proj.Start()
	t.Cleanup(func() {
		proj.Close()
		stopFeed()
	})

	mon := monitor.NewMonitor("test")
	control := services.NewControlService(registry, nil, mon)
	s := NewDashboardServer("127.0.0.1:0", 0, control, proj, mon, nil)
	return &testEnv{server: s, registry: registry, projection: proj}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleCenters(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/centers", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var snapshot room.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snapshot.Centers) != 2 || snapshot.Centers[1].Scenarios[0].Status != state.StatusMaintenance {
		t.Errorf("Unexpected snapshot: %+v", snapshot)
	}
}

func TestHandleTransition(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/centers/VP/scenarios/0/close", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got, _ := env.registry.Snapshot().Scenario(0, 0); got.Status != state.StatusClosed {
		t.Errorf("Expected Le Pacte to be Closed, got %s", got.Status)
	}

	// The projection follows the control model through the feed.
	rooms := env.projection.View()["vp"].Rooms
	if len(rooms) != 2 || rooms[0].Status != state.StatusClosed || rooms[0].Label != "Fermé" {
		t.Errorf("Expected projection to show Le Pacte as Fermé, got %+v", rooms)
	}
}

func TestHandleTransition_Errors(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		path string
		code int
	}{
		{"/api/centers/nowhere/scenarios/0/close", http.StatusNotFound},
		{"/api/centers/vp/scenarios/9/close", http.StatusNotFound},
		{"/api/centers/vp/scenarios/abc/close", http.StatusNotFound},
		{"/api/centers/vp/scenarios/0/explode", http.StatusBadRequest},
	}
	for _, tc := range cases {
		if rec := env.do(t, http.MethodPost, tc.path, ""); rec.Code != tc.code {
			t.Errorf("POST %s: expected %d, got %d", tc.path, tc.code, rec.Code)
		}
	}
}

func TestHandleSetField(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/centers/ftk/scenarios/0/fields/expectedReopen", `{"value":"2025-10-04T16:00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got, _ := env.registry.Snapshot().Scenario(1, 0)
	if got.ExpectedReopen != "2025-10-04T16:00" {
		t.Errorf("Expected expectedReopen to be set, got %q", got.ExpectedReopen)
	}

	// Empty string clears.
	if rec := env.do(t, http.MethodPut, "/api/centers/ftk/scenarios/0/fields/expectedReopen", `{"value":""}`); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 when clearing, got %d", rec.Code)
	}
	got, _ = env.registry.Snapshot().Scenario(1, 0)
	if got.ExpectedReopen != "" {
		t.Errorf("Expected expectedReopen to be cleared, got %q", got.ExpectedReopen)
	}

	if rec := env.do(t, http.MethodPut, "/api/centers/ftk/scenarios/0/fields/difficulty", `{"value":"x"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown field, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, "/api/centers/ftk/scenarios/0/fields/reason", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a missing value, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, "/api/centers/ftk/scenarios/3/fields/reason", `{"value":"x"}`); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a missing scenario, got %d", rec.Code)
	}
}

func TestHandleAttentionAndOpenRooms(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/attention", "")
	var attention struct {
		Items []services.AttentionEntry `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &attention); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(attention.Items) != 2 || attention.Items[0].Name != "Les oubliés" || attention.Items[1].Name != "Le Trésor" {
		t.Errorf("Unexpected attention list: %+v", attention.Items)
	}

	rec = env.do(t, http.MethodGet, "/api/centers/vp/open", "")
	var open struct {
		Rooms []room.OpenRoom `json:"rooms"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &open); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(open.Rooms) != 1 || open.Rooms[0].Name != "Le Pacte" || open.Rooms[0].Index != 0 {
		t.Errorf("Unexpected open rooms: %+v", open.Rooms)
	}

	if rec := env.do(t, http.MethodGet, "/api/centers/nowhere/open", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestHandleProjectionAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/projection", "")
	var body struct {
		Centers projection.View `json:"centers"`
		Order   []string        `json:"order"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Centers) != 2 || len(body.Order) != 2 || body.Order[0] != "ftk" {
		t.Errorf("Unexpected projection: %+v", body)
	}

	rec = env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "test_online_viewers") {
		t.Errorf("Expected metrics output, got %d", rec.Code)
	}
}

func TestWebSocket_PushesProjection(t *testing.T) {
	env := newTestEnv(t)
	env.server.wire()
	t.Cleanup(func() { env.server.Shutdown(context.Background()) })

	ts := httptest.NewServer(env.server.Router())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	readView := func() projection.View {
		t.Helper()
		for {
			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, data, err := conn.ReadMessage()
			if err != nil {
				t.Fatalf("ReadMessage failed: %v", err)
			}
			packet, err := network.DecodePacket(data)
			if err != nil {
				t.Fatalf("DecodePacket failed: %v", err)
			}
			if packet.MsgID != network.MsgTypeProjection {
				continue
			}
			var view projection.View
			if err := json.Unmarshal(packet.Data, &view); err != nil {
				t.Fatalf("decode view: %v", err)
			}
			return view
		}
	}

	if view := readView(); len(view) != 2 {
		t.Fatalf("Expected the initial view with 2 centers, got %d", len(view))
	}

	filter, _ := json.Marshal(network.FilterRequest{Center: "ftk"})
	if err := conn.WriteMessage(websocket.BinaryMessage, network.EncodePacket(network.MsgTypeFilter, filter)); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	if view := readView(); len(view) != 1 || view["ftk"].Name != "Find The Key" {
		t.Fatalf("Expected the filtered view, got %+v", view)
	}

	if rec := env.do(t, http.MethodPost, "/api/centers/ftk/scenarios/0/reopen", ""); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	view := readView()
	if rooms := view["ftk"].Rooms; len(rooms) != 1 || rooms[0].Status != state.StatusOpen {
		t.Errorf("Expected Le Trésor to be pushed as Open, got %+v", view)
	}
}
