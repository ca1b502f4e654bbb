package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"op-quiz-engine/internal/app"
	"op-quiz-engine/internal/domain"
	"op-quiz-engine/internal/infra/memory"
)

func TestWebSocketQuizFlow(t *testing.T) {
	store := memory.NewResultStore()
	results := app.NewResultSubmitter(store, time.Second, nil)
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuiz()), time.Minute)
	service := app.NewQuizService(quizRepo, memory.NewProgressBackend(), results, nil, app.ServiceOptions{
		AutoAdvance: 10 * time.Millisecond,
		DefaultSlug: "mindset",
	})
	conn := dial(t, service, "/ws?clientId=c1")

	readScreen(t, conn, app.ScreenIntro)

	sendAction(t, conn, app.Action{Kind: app.ActionStart})
	readScreen(t, conn, app.ScreenSummary)

	sendAction(t, conn, app.Action{Kind: app.ActionGoToSequence, Index: 0})
	readScreen(t, conn, app.ScreenSequenceIntro)

	sendAction(t, conn, app.Action{Kind: app.ActionStartSequence})
	readScreen(t, conn, app.ScreenQuestion)

	// Auto-advance after the only question completes the sequence.
	sendAction(t, conn, app.Action{Kind: app.ActionSelectAnswer, Code: "B"})
	view := readScreen(t, conn, app.ScreenBilan)
	if view.Bilan == nil || view.Bilan.Dominant == nil || view.Bilan.Dominant.Code != "B" {
		t.Fatalf("expected bilan dominated by B, got %+v", view.Bilan)
	}

	sendAction(t, conn, app.Action{Kind: app.ActionContinue})
	view = readScreen(t, conn, app.ScreenResult)
	if view.Result.Dominant.Code != "B" {
		t.Fatalf("expected B result, got %s", view.Result.Dominant.Code)
	}

	conn.Close()
	results.Wait()
	if store.Len() != 1 {
		t.Fatalf("expected one stored result, got %d", store.Len())
	}
}

func TestWebSocketRejectsInvalidAction(t *testing.T) {
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuiz()), time.Minute)
	service := app.NewQuizService(quizRepo, memory.NewProgressBackend(), nil, nil, app.ServiceOptions{})
	conn := dial(t, service, "/ws?quiz=mindset")

	readScreen(t, conn, app.ScreenIntro)
	sendAction(t, conn, app.Action{Kind: app.ActionSelectAnswer, Code: "A"})

	msg := readMessage(t, conn)
	if msg.Type != "error" {
		t.Fatalf("expected error, got %s", msg.Type)
	}
	var payload errorPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if payload.Code != "invalid_transition" {
		t.Fatalf("expected invalid_transition, got %+v", payload)
	}

	if err := conn.WriteJSON(map[string]any{"type": "ping"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != "error" {
		t.Fatalf("expected error for unsupported type, got %s", msg.Type)
	}
}

func TestWebSocketUnknownQuiz(t *testing.T) {
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuiz()), time.Minute)
	service := app.NewQuizService(quizRepo, memory.NewProgressBackend(), nil, nil, app.ServiceOptions{})
	conn := dial(t, service, "/ws?quiz=inconnu")

	view := readScreen(t, conn, app.ScreenError)
	if view.Error == "" {
		t.Fatalf("expected error message in view")
	}
}

func TestWebSocketCloseDisconnectsSessions(t *testing.T) {
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuiz()), time.Minute)
	service := app.NewQuizService(quizRepo, memory.NewProgressBackend(), nil, nil, app.ServiceOptions{})
	handler := NewWSHandler(service, nil)
	conn := dialHandler(t, handler, "/ws?quiz=mindset")
	readScreen(t, conn, app.ScreenIntro)

	done := make(chan struct{})
	go func() {
		handler.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return while a session was open")
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the session to be disconnected")
	}

	late := dialHandler(t, handler, "/ws?quiz=mindset")
	_ = late.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := late.ReadMessage(); err == nil {
		t.Fatal("expected sessions opened after Close to be refused")
	}
}

type rawMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, service *app.QuizService, path string) *websocket.Conn {
	t.Helper()
	return dialHandler(t, NewWSHandler(service, nil), path)
}

func dialHandler(t *testing.T, handler *WSHandler, path string) *websocket.Conn {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	u := "ws" + server.URL[len("http"):] + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendAction(t *testing.T, conn *websocket.Conn, action app.Action) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": "action", "payload": action}); err != nil {
		t.Fatalf("write action: %v", err)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) rawMessage {
	t.Helper()
	var msg rawMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg
}

// readScreen skips views until one shows screen.
func readScreen(t *testing.T, conn *websocket.Conn, screen app.Screen) app.View {
	t.Helper()
	for i := 0; i < 10; i++ {
		msg := readMessage(t, conn)
		if msg.Type == "error" {
			t.Fatalf("unexpected error while waiting for %s: %s", screen, msg.Payload)
		}
		var view app.View
		if err := json.Unmarshal(msg.Payload, &view); err != nil {
			t.Fatalf("decode view: %v", err)
		}
		if view.Screen == screen {
			return view
		}
	}
	t.Fatalf("screen %s never arrived", screen)
	return app.View{}
}

func sampleQuiz() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"mindset": {
			ID:        "quiz-1",
			Slug:      "mindset",
			Title:     "Ton mindset financier",
			Published: true,
			Sequences: []domain.Sequence{
				{
					ID:    "s1",
					Title: "Rapport à l'argent",
					Questions: []domain.Question{
						{
							ID:     "q1",
							Prompt: "Ton salaire tombe.",
							Answers: []domain.Answer{
								{Code: "A", Text: "J'épargne"},
								{Code: "B", Text: "Je planifie", Position: 1},
							},
						},
					},
				},
			},
		},
	}
}
