package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			if r.Header.Get("X-Token") != "abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"value":1.2}`))
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.Error(w, "nope", http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c := NewClient(WithMaxBodySize(32))
	body, err := c.Fetch(context.Background(), srv.URL+"/ok", map[string]string{"X-Token": "abc"})
	if err != nil || string(body) != `{"value":1.2}` {
		t.Fatalf("body=%q err=%v", body, err)
	}

	_, err = c.Fetch(context.Background(), srv.URL+"/down", nil)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 StatusError, got %v", err)
	}

	if _, err := c.Fetch(context.Background(), srv.URL+"/big", nil); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
}
