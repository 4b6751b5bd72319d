package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-deck/internal/session"
)

func startHubServer(t *testing.T, hub *Hub, handle MessageHandler) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		initial := Message{Type: TypeSnapshot, Snapshot: &session.Snapshot{ID: id}}
		if err := hub.Serve(w, r, id, initial, handle); err != nil {
			t.Logf("Serve() returned %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var msg Message
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read error = %v", err)
	}
	return msg
}

func TestHub_InitialSnapshotAndPublish(t *testing.T) {
	hub := NewHub()
	conn := dial(t, startHubServer(t, hub, nil)+"?id=s1")

	first := readMessage(t, conn)
	if first.Type != TypeSnapshot || first.Snapshot == nil || first.Snapshot.ID != "s1" {
		t.Fatalf("initial message = %+v", first)
	}
	if got := hub.Subscribers("s1"); got != 1 {
		t.Fatalf("Subscribers() = %d, want 1", got)
	}

	hub.Publish("other", session.Snapshot{ID: "other"})
	hub.Publish("s1", session.Snapshot{ID: "s1", Deck: session.DeckView{Score: 10}})

	msg := readMessage(t, conn)
	if msg.Type != TypeSnapshot || msg.Snapshot.Deck.Score != 10 {
		t.Errorf("published message = %+v", msg)
	}
}

func TestHub_CapabilitiesForwardInOrder(t *testing.T) {
	hub := NewHub()
	conn := dial(t, startHubServer(t, hub, nil)+"?id=s1")
	readMessage(t, conn)

	caps := hub.Capabilities("s1")
	caps.Narrator.Cancel()
	caps.Narrator.Speak("Hello class")
	caps.Narrator.Pause()
	caps.Narrator.Resume()
	caps.Cues.PlaySuccessCue()
	caps.Cues.PlayFailureCue()

	wantNarration := []NarrationCommand{
		{Action: NarrationCancel},
		{Action: NarrationSpeak, Text: "Hello class"},
		{Action: NarrationPause},
		{Action: NarrationResume},
	}
	for i, want := range wantNarration {
		msg := readMessage(t, conn)
		if msg.Type != TypeNarration || msg.Narration == nil || *msg.Narration != want {
			t.Errorf("message %d = %+v, want narration %+v", i, msg, want)
		}
	}

	for _, kind := range []string{CueSuccess, CueFailure} {
		msg := readMessage(t, conn)
		if msg.Type != TypeCue || msg.Cue == nil || msg.Cue.Kind != kind {
			t.Errorf("cue message = %+v, want %s", msg, kind)
		}
	}
}

func TestHub_ClientMessages(t *testing.T) {
	hub := NewHub()
	got := make(chan ClientMessage, 1)
	conn := dial(t, startHubServer(t, hub, func(_ context.Context, msg ClientMessage) {
		got <- msg
	})+"?id=s1")
	readMessage(t, conn)

	if err := wsjson.Write(context.Background(), conn, ClientMessage{Type: ClientNarrationEnded}); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-got:
		if msg.Type != ClientNarrationEnded {
			t.Errorf("handled message = %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client message never reached the handler")
	}
}

func TestHub_CloseSession(t *testing.T) {
	hub := NewHub()
	conn := dial(t, startHubServer(t, hub, nil)+"?id=s1")
	readMessage(t, conn)

	hub.CloseSession("s1")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var msg Message
	err := wsjson.Read(ctx, conn, &msg)
	if got := websocket.CloseStatus(err); got != websocket.StatusGoingAway {
		t.Errorf("close status = %v (err %v), want StatusGoingAway", got, err)
	}
	if hub.Subscribers("s1") != 0 {
		t.Error("closed session should have no subscribers")
	}
}

func TestHub_DisconnectUnsubscribes(t *testing.T) {
	hub := NewHub()
	conn := dial(t, startHubServer(t, hub, nil)+"?id=s1")
	readMessage(t, conn)

	conn.Close(websocket.StatusNormalClosure, "bye")

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers("s1") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client still subscribed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_SlowClientDropsMessages(t *testing.T) {
	hub := NewHub()
	c := hub.subscribe("s1")

	for range hub.bufferSize + 5 {
		hub.Publish("s1", session.Snapshot{ID: "s1"})
	}
	if got := len(c.outbound); got != hub.bufferSize {
		t.Errorf("queued %d messages, want %d", got, hub.bufferSize)
	}
	hub.unsubscribe("s1", c)
}

func TestCues(t *testing.T) {
	if len(SuccessCue.Voices) != 3 {
		t.Errorf("success cue has %d voices, want 3", len(SuccessCue.Voices))
	}
	for _, v := range SuccessCue.Voices {
		if v.Wave != "triangle" {
			t.Errorf("success voice wave = %q", v.Wave)
		}
	}
	if len(FailureCue.Voices) != 2 {
		t.Fatalf("failure cue has %d voices, want 2", len(FailureCue.Voices))
	}
	last := FailureCue.Voices[1]
	if last.StopMS != 900 || last.Freq[len(last.Freq)-1].Value != 200 {
		t.Errorf("second failure pulse = %+v", last)
	}
}
