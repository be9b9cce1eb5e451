package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"raid-server/internal/engine"
	"raid-server/internal/version"
	"raid-server/pkg/api"
	"raid-server/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// startServer поднимает сервис без механик (кулдаун в час) и HTTP поверх него.
func startServer(t *testing.T) (*engine.GameService, *httptest.Server) {
	t.Helper()

	cfg := engine.NewConfig()
	cfg.Seed = 5
	cfg.Cooldown = time.Hour
	svc := engine.NewService(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = svc.Run(ctx) }()

	ts := httptest.NewServer(New(svc, "0").Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return svc, ts
}

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body
}

func TestServer_HealthAndVersion(t *testing.T) {
	_, ts := startServer(t)

	code, body := get(t, ts.URL+"/health")
	if code != http.StatusOK || string(body) != "ok" {
		t.Errorf("Health = %d %q", code, body)
	}

	code, body = get(t, ts.URL+"/version")
	if code != http.StatusOK {
		t.Fatalf("Version status = %d", code)
	}
	var info version.VersionInfo
	if err := json.Unmarshal(body, &info); err != nil {
		t.Fatalf("Version is not JSON: %v", err)
	}
}

func TestDebug_UnknownSession(t *testing.T) {
	_, ts := startServer(t)

	for _, path := range []string{"/debug/mechanics?session=nope", "/debug/players?session=nope"} {
		if code, _ := get(t, ts.URL+path); code != http.StatusNotFound {
			t.Errorf("%s: status %d, want 404", path, code)
		}
	}

	code, body := get(t, ts.URL+"/debug/sessions")
	if code != http.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("Empty sessions = %d %q", code, body)
	}

	if code, _ := get(t, ts.URL+"/debug/cancel?session=nope"); code != http.StatusMethodNotAllowed {
		t.Errorf("GET cancel status %d, want 405", code)
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(api.ServerMessage) bool) api.ServerMessage {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	for {
		var msg api.ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func TestWebSocket_JoinAndLeave(t *testing.T) {
	svc, ts := startServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	initCmd := api.ClientCommand{
		Token:   "p1",
		Action:  "INIT",
		Payload: json.RawMessage(`{"name":"Tank","session":"raid-ws"}`),
	}
	if err := conn.WriteJSON(initCmd); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	msg := readUntil(t, conn, func(m api.ServerMessage) bool { return m.Type == api.MsgState })
	if msg.MyPlayerID != "p1" || msg.SessionID != "raid-ws" {
		t.Fatalf("Unexpected state header: %+v", msg)
	}
	if len(msg.Players) != 1 || msg.Players[0].Name != "Tank" {
		t.Fatalf("Expected Tank in state, got %+v", msg.Players)
	}

	// Ход вправо или влево, смотря где заспавнились
	dx := 1
	if msg.Players[0].Pos.X == msg.Grid.Width-1 {
		dx = -1
	}
	startX := msg.Players[0].Pos.X
	move := api.ClientCommand{Action: "MOVE", Payload: json.RawMessage(`{"dx":` + itoa(dx) + `,"dy":0}`)}
	if err := conn.WriteJSON(move); err != nil {
		t.Fatalf("WriteJSON move: %v", err)
	}
	readUntil(t, conn, func(m api.ServerMessage) bool {
		return m.Type == api.MsgState && len(m.Players) == 1 && m.Players[0].Pos.X == startX+dx
	})

	code, body := get(t, ts.URL+"/debug/sessions")
	if code != http.StatusOK || !strings.Contains(string(body), `"raid-ws"`) {
		t.Errorf("Sessions = %d %s", code, body)
	}
	if code, _ := get(t, ts.URL+"/debug/mechanics?session=raid-ws"); code != http.StatusOK {
		t.Errorf("Mechanics status %d", code)
	}

	conn.Close()

	// Обрыв соединения выводит игрока из боя
	deadline := time.Now().Add(2 * time.Second)
	for {
		sess, ok := svc.Session("raid-ws")
		if ok && len(sess.Players()) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Player was not removed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocket_HandshakeRequiresInit(t *testing.T) {
	_, ts := startServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(api.ClientCommand{Action: "WAIT"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	var msg api.ServerMessage
	if err := conn.ReadJSON(&msg); err == nil {
		t.Fatalf("Expected connection to close, got %+v", msg)
	}
}

func itoa(v int) string {
	b, _ := json.Marshal(v)
	return string(b)
}
