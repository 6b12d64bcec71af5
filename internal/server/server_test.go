package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/san-kum/gridviz/internal/grid"
	"github.com/san-kum/gridviz/internal/interact"
	"github.com/san-kum/gridviz/internal/snapshot"
	"github.com/san-kum/gridviz/internal/viz"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	spec, err := grid.NewSpec(500, 500, 10, 10)
	if err != nil {
		t.Fatalf("spec: %v", err)
	}
	quiet := log.New(io.Discard)
	vopts := viz.DefaultOptions()
	vopts.Background = color.White
	s, err := New(spec, Options{Addr: "127.0.0.1:0", Viz: vopts, Logger: quiet})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, StateView) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var st StateView
	if w.Code == http.StatusOK && strings.HasPrefix(path, "/api/") && !strings.HasPrefix(path, "/api/pick") {
		if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return w, st
}

func TestPointerAPI(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()

	w, st := do(t, r, http.MethodPost, "/api/pointer", `{"kind":"move","x":125,"y":175}`)
	if w.Code != http.StatusOK {
		t.Fatalf("move: status %d: %s", w.Code, w.Body)
	}
	if st.Phase != "hovering" || st.Hovered == nil || *st.Hovered != (grid.Cell{Col: 2, Row: 3}) {
		t.Errorf("expected hover at (2,3), got %+v", st)
	}

	_, st = do(t, r, http.MethodPost, "/api/pointer", `{"kind":"click","x":499,"y":0}`)
	if st.Phase != "selected" || st.Selected == nil || *st.Selected != (grid.Cell{Col: 9, Row: 0}) {
		t.Errorf("expected selection at (9,0), got %+v", st)
	}

	_, st = do(t, r, http.MethodPost, "/api/pointer", `{"kind":"leave"}`)
	if st.Hovered != nil || st.Selected == nil {
		t.Errorf("leave should keep the selection, got %+v", st)
	}

	_, st = do(t, r, http.MethodDelete, "/api/selection", "")
	if st.Phase != "idle" || st.Selected != nil {
		t.Errorf("expected idle after clearing, got %+v", st)
	}

	_, st = do(t, r, http.MethodGet, "/api/state", "")
	if st.Grid.Cols != 10 || st.Grid.PixelWidth != 500 {
		t.Errorf("unexpected grid in state %+v", st.Grid)
	}
}

func TestPointerAPIRejectsBadEvents(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()

	for _, body := range []string{`{"kind":"hover","x":1,"y":1}`, `{"x":1}`, `not json`} {
		w, _ := do(t, r, http.MethodPost, "/api/pointer", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
		}
	}
	if st := s.State(); st.Phase != "idle" {
		t.Errorf("bad events should not change state, got %s", st.Phase)
	}
}

func TestPick(t *testing.T) {
	s := newTestServer(t)
	w, _ := do(t, s.Router(), http.MethodGet, "/api/pick?x=-5&y=600", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var c grid.Cell
	if err := json.Unmarshal(w.Body.Bytes(), &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c != (grid.Cell{Col: 0, Row: 9}) {
		t.Errorf("expected clamped (0,9), got %v", c)
	}
}

func TestFramePNG(t *testing.T) {
	s := newTestServer(t)
	stats, err := s.Update(&snapshot.Snapshot{
		Tick:  3,
		Cells: snapshot.Layers{{Name: "l", Cells: []snapshot.CellDatum{{Col: 2, Row: 2, Color: "#0000ff"}}}},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if stats.Cells != 1 {
		t.Errorf("expected one cell drawn, got %+v", stats)
	}

	w, _ := do(t, s.Router(), http.MethodGet, "/frame.png", "")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected response %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	img, err := png.Decode(w.Body)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 500 || b.Dy() != 500 {
		t.Errorf("expected 500x500, got %v", b)
	}
	got := color.NRGBAModel.Convert(img.At(125, 125)).(color.NRGBA)
	if got != (color.NRGBA{0, 0, 0xff, 0xff}) {
		t.Errorf("expected blue cell, got %v", got)
	}

	if sum := s.Timer().Summary(); sum.Frames != 1 {
		t.Errorf("expected one timed frame, got %d", sum.Frames)
	}
}

func TestSelectedHits(t *testing.T) {
	s := newTestServer(t)
	s.Update(&snapshot.Snapshot{
		Cells: snapshot.Layers{
			{Name: "influence", Cells: []snapshot.CellDatum{{Col: 1, Row: 1, Color: "red"}}},
			{Name: "crowd", Cells: []snapshot.CellDatum{{Col: 1, Row: 1, Color: "blue", Payload: map[string]any{"agents": 2}}}},
		},
	})
	if err := s.Pointer(mustEvent(t, "down", 75, 75)); err != nil {
		t.Fatalf("pointer: %v", err)
	}
	st := s.State()
	if len(st.Hits) != 2 || st.Hits[0].Layer != "influence" || st.Hits[1].Datum.Color != "blue" {
		t.Errorf("unexpected hits %+v", st.Hits)
	}
}

func mustEvent(t *testing.T, kind string, x, y float64) interact.Event {
	t.Helper()
	ev, err := PointerEvent{Kind: kind, X: x, Y: y}.Event()
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	return ev
}

func TestPage(t *testing.T) {
	s := newTestServer(t)
	w, _ := do(t, s.Router(), http.MethodGet, "/", "")
	body := w.Body.String()
	if w.Code != http.StatusOK || !strings.Contains(body, `id="frame"`) || !strings.Contains(body, `id="overlay"`) {
		t.Fatalf("unexpected page %d:\n%s", w.Code, body)
	}
	if !strings.Contains(body, "width: 500px") {
		t.Error("expected canvas size in page")
	}
}

func TestHubKeepsLatest(t *testing.T) {
	h := newHub()
	ch, unsubscribe := h.subscribe()
	h.broadcast(View{Tick: 1})
	h.broadcast(View{Tick: 2})
	if v := <-ch; v.Tick != 2 {
		t.Errorf("expected latest view, got tick %d", v.Tick)
	}
	unsubscribe()
	if h.len() != 0 {
		t.Errorf("expected no clients, got %d", h.len())
	}
	h.broadcast(View{Tick: 3})
}

func readView(t *testing.T, conn *websocket.Conn, match func(View) bool) View {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	conn.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		var v View
		if err := conn.ReadJSON(&v); err != nil {
			t.Fatalf("read view: %v", err)
		}
		if match(v) {
			return v
		}
	}
	t.Fatal("no matching view")
	return View{}
}

func TestWebsocket(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := readView(t, conn, func(View) bool { return true })
	raw, err := base64.StdEncoding.DecodeString(first.Frame)
	if err != nil {
		t.Fatalf("frame is not base64: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
		t.Fatalf("frame is not a png: %v", err)
	}

	if err := conn.WriteJSON(PointerEvent{Kind: "down", X: 260, Y: 10}); err != nil {
		t.Fatalf("write: %v", err)
	}
	v := readView(t, conn, func(v View) bool { return v.State.Selected != nil })
	if *v.State.Selected != (grid.Cell{Col: 5, Row: 0}) {
		t.Errorf("expected selection (5,0), got %v", v.State.Selected)
	}

	// Malformed messages are skipped without closing the socket.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.Update(&snapshot.Snapshot{Tick: 7}); err != nil {
		t.Fatalf("update: %v", err)
	}
	readView(t, conn, func(v View) bool { return v.Tick == 7 })
}

func TestRunRendersFeedUntilCancelled(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	snaps := make(chan *snapshot.Snapshot)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, snaps) }()

	snaps <- &snapshot.Snapshot{Tick: 1}
	snaps <- &snapshot.Snapshot{Tick: 2}
	deadline := time.Now().Add(2 * time.Second)
	for s.Timer().Summary().Frames < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := s.Timer().Summary().Frames; n < 2 {
		t.Fatalf("expected frames rendered, got %d", n)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestWebsocketDisconnectUnsubscribes(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	readView(t, conn, func(View) bool { return true })
	if s.hub.len() != 1 {
		t.Fatalf("expected one client, got %d", s.hub.len())
	}
	conn.Close()

	deadline := time.Now().Add(3 * time.Second)
	for s.hub.len() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := s.hub.len(); n != 0 {
		t.Errorf("expected client removed after disconnect, got %d", n)
	}
}
