package sync

import (
	"context"
	"errors"

	"github.com/steveyegge/syncpad/internal/remote"
)

// Prober runs the gating checks before a sync attempt. Check never
// returns an error: every failure path resolves to false plus a
// human-readable reason.
type Prober interface {
	Check(ctx context.Context) (ok bool, reason string)
}

// RemoteProber gates on settings and a live probe of the remote backend.
type RemoteProber struct {
	client   *remote.Client
	settings *Settings
}

// NewProber creates the standard prober over the given client and
// settings.
func NewProber(client *remote.Client, settings *Settings) *RemoteProber {
	return &RemoteProber{client: client, settings: settings}
}

// Check implements Prober. Order matters: administrative and credential
// checks run before any network traffic.
func (p *RemoteProber) Check(ctx context.Context) (bool, string) {
	if !p.settings.Enabled() {
		return false, "sync is disabled"
	}
	if !p.settings.Authenticated() {
		return false, "not authenticated"
	}

	p.client.SetToken(p.settings.Token())

	if err := p.client.Health(ctx); err != nil {
		return false, "remote unreachable: " + err.Error()
	}

	if err := p.client.AuthRefresh(ctx); err != nil {
		if errors.Is(err, remote.ErrNotAuthenticated) {
			return false, "authentication expired"
		}
		return false, "remote unreachable: " + err.Error()
	}

	return true, ""
}
