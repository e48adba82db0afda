package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestUserClient_GetEmail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/users/id/u1":
			_, _ = w.Write([]byte(`{"data":{"id":"u1","email":"traveler@example.com"}}`))
		case "/api/v1/users/id/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"NOT_FOUND","message":"User not found"}`))
		case "/api/v1/users/id/broken":
			w.WriteHeader(http.StatusBadGateway)
		case "/api/v1/users/id/slow":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{"data":{"id":"slow","email":"late@example.com"}}`))
		case "/api/v1/users/id/noemail":
			_, _ = w.Write([]byte(`{"data":{"id":"noemail"}}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer server.Close()

	c := NewUserClient(server.URL, 50*time.Millisecond)
	ctx := context.Background()

	email, err := c.GetEmail(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email != "traveler@example.com" {
		t.Errorf("email = %q", email)
	}

	if _, err := c.GetEmail(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := c.GetEmail(ctx, "broken"); !errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable for 5xx, got %v", err)
	}
	if _, err := c.GetEmail(ctx, "slow"); !errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable on timeout, got %v", err)
	}
	if _, err := c.GetEmail(ctx, "noemail"); err == nil || errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("expected a plain error for a user without email, got %v", err)
	}
}
