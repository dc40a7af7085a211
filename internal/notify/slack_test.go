package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSlack_OK(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		got = payload["text"]
		w.WriteHeader(200)
	}))
	defer ts.Close()

	s := NewSlack(ts.URL)
	if s == nil {
		t.Fatal("expected slack client")
	}
	if err := s.Send(context.Background(), TitleDown, "a.com is currently down."); err != nil {
		t.Fatalf("send err: %v", err)
	}
	if want := "*" + TitleDown + "*\na.com is currently down."; got != want {
		t.Fatalf("payload = %q, want %q", got, want)
	}
}

func TestSlack_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer ts.Close()

	if err := NewSlack(ts.URL).Send(context.Background(), "X", "Y"); err == nil {
		t.Fatalf("expected error on non-2xx")
	}
}

func TestSlack_Disabled(t *testing.T) {
	s := NewSlack("")
	if s != nil {
		t.Fatal("expected nil without webhook")
	}
	if err := s.Send(context.Background(), "X", "Y"); err == nil {
		t.Fatal("expected error from disabled slack")
	}
}
