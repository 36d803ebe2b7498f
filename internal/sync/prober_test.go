package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/steveyegge/syncpad/internal/remote"
)

// proberServer fakes the backend's health and auth-refresh endpoints.
func proberServer(t *testing.T, healthStatus, authStatus int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/health":
			w.WriteHeader(healthStatus)
		case "/api/collections/users/auth-refresh":
			w.WriteHeader(authStatus)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestProberDisabled(t *testing.T) {
	settings := NewSettings(false, "token")
	p := NewProber(remote.New("http://127.0.0.1:0", ""), settings)

	ok, reason := p.Check(context.Background())
	if ok {
		t.Error("expected check to fail when disabled")
	}
	if reason != "sync is disabled" {
		t.Errorf("reason = %q", reason)
	}
}

func TestProberNoToken(t *testing.T) {
	settings := NewSettings(true, "")
	p := NewProber(remote.New("http://127.0.0.1:0", ""), settings)

	ok, reason := p.Check(context.Background())
	if ok {
		t.Error("expected check to fail without a token")
	}
	if reason != "not authenticated" {
		t.Errorf("reason = %q", reason)
	}
}

func TestProberUnreachable(t *testing.T) {
	srv := proberServer(t, http.StatusInternalServerError, http.StatusOK)
	defer srv.Close()

	settings := NewSettings(true, "token")
	p := NewProber(remote.New(srv.URL, ""), settings)

	ok, reason := p.Check(context.Background())
	if ok {
		t.Error("expected check to fail on unhealthy remote")
	}
	if !strings.HasPrefix(reason, "remote unreachable:") {
		t.Errorf("reason = %q", reason)
	}
}

func TestProberExpiredAuth(t *testing.T) {
	srv := proberServer(t, http.StatusOK, http.StatusUnauthorized)
	defer srv.Close()

	settings := NewSettings(true, "stale-token")
	p := NewProber(remote.New(srv.URL, ""), settings)

	ok, reason := p.Check(context.Background())
	if ok {
		t.Error("expected check to fail on rejected token")
	}
	if reason != "authentication expired" {
		t.Errorf("reason = %q", reason)
	}
}

func TestProberHealthy(t *testing.T) {
	srv := proberServer(t, http.StatusOK, http.StatusOK)
	defer srv.Close()

	settings := NewSettings(true, "token")
	p := NewProber(remote.New(srv.URL, ""), settings)

	ok, reason := p.Check(context.Background())
	if !ok {
		t.Errorf("expected check to pass, got reason %q", reason)
	}
	if reason != "" {
		t.Errorf("reason = %q, want empty", reason)
	}
}
