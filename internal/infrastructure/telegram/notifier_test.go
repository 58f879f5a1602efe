package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Norvan25/homenest-nous-sub002/internal/config"
)

func TestNotifierSendsToConfiguredChat(t *testing.T) {
	t.Parallel()

	var sent atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"homenest","username":"homenest_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			if r.PostForm.Get("chat_id") != "42" || r.PostForm.Get("text") != "call booked" {
				t.Errorf("unexpected form: %v", r.PostForm)
			}
			sent.Add(1)
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	n, err := NewNotifierWithEndpoint(config.TelegramConfig{BotToken: "token", ChatID: 42}, srv.URL+"/bot%s/%s")
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if err := n.Notify(context.Background(), "call booked"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sent.Load() != 1 {
		t.Fatalf("expected one message, got %d", sent.Load())
	}
}

func TestNotifierRequiresChat(t *testing.T) {
	t.Parallel()

	if _, err := NewNotifier(config.TelegramConfig{BotToken: "token"}); err == nil {
		t.Fatal("expected misconfiguration error")
	}
}
