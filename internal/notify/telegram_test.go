package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTelegram_Send(t *testing.T) {
	var gotText, gotChat string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"isitdown","username":"isitdown_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			_ = r.ParseForm()
			gotText = r.PostForm.Get("text")
			gotChat = r.PostForm.Get("chat_id")
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	tg, err := NewTelegramWithEndpoint("TOKEN", ts.URL+"/bot%s/%s", 42)
	if err != nil {
		t.Fatalf("new telegram: %v", err)
	}
	if err := tg.Send(context.Background(), TitleDown, "a.com is currently down."); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotChat != "42" {
		t.Fatalf("chat_id = %q", gotChat)
	}
	if !strings.HasPrefix(gotText, TitleDown+"\n") {
		t.Fatalf("text = %q", gotText)
	}
}

func TestNewTelegram_DisabledWithoutToken(t *testing.T) {
	tg, err := NewTelegram("", 1)
	if err != nil || tg != nil {
		t.Fatalf("want nil, nil; got %v, %v", tg, err)
	}
}
