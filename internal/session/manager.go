// Package session owns the authentication lifecycle: silent
// initialization, role queries, proactive token refresh and teardown.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"smiles/internal/events"
	"smiles/internal/metrics"
	"smiles/internal/model"
)

// ErrNotAuthenticated is returned when a bearer token is requested
// outside an authenticated session.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// Provider is the identity-provider surface the manager depends on.
type Provider interface {
	// Init performs the silent authentication check and reports whether
	// an active session exists.
	Init(ctx context.Context) (bool, error)
	// Login starts an interactive login redirect.
	Login()
	// Logout starts an interactive sign-out redirect.
	Logout()
	// UpdateToken refreshes the token if it expires within minValidity.
	// It reports whether the token was actually rotated.
	UpdateToken(ctx context.Context, minValidity time.Duration) (bool, error)
	// Token returns the current raw bearer token and its expiry.
	Token() (string, time.Time)
}

// UserSource fetches the current user's profile from the backend.
type UserSource interface {
	GetCurrentUser(ctx context.Context) (*model.UserInfo, error)
}

// refreshFlight is a single outstanding token refresh shared by all
// callers that hit an expiring token concurrently.
type refreshFlight struct {
	done chan struct{}
	err  error
}

// Manager drives the session state machine:
// Uninitialized -> Loading -> {Authenticated, Unauthenticated}.
type Manager struct {
	provider    Provider
	users       UserSource
	bus         *events.Bus
	logger      *zerolog.Logger
	minValidity time.Duration
	watchEvery  time.Duration

	mu     sync.Mutex
	state  State
	user   *model.UserInfo
	flight *refreshFlight

	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// NewManager constructs a manager in the uninitialized state.
func NewManager(provider Provider, logger *zerolog.Logger) *Manager {
	return &Manager{
		provider:    provider,
		logger:      logger,
		minValidity: 5 * time.Second,
		watchEvery:  10 * time.Second,
		state:       StateUninitialized,
	}
}

// SetUserSource attaches the backend used to fetch the user profile.
func (m *Manager) SetUserSource(users UserSource) {
	m.users = users
}

// SetEventBus attaches the bus on which session.expired is published.
func (m *Manager) SetEventBus(bus *events.Bus) {
	m.bus = bus
}

// SetMinValidity overrides the refresh lookahead window.
func (m *Manager) SetMinValidity(d time.Duration) {
	if d > 0 {
		m.minValidity = d
	}
}

// SetWatchInterval overrides how often the expiry watcher polls.
func (m *Manager) SetWatchInterval(d time.Duration) {
	if d > 0 {
		m.watchEvery = d
	}
}

// Initialize performs the one-time silent authentication check. Every
// failure is absorbed into the unauthenticated terminal state; the
// resolved snapshot is returned either way.
func (m *Manager) Initialize(ctx context.Context) Snapshot {
	m.mu.Lock()
	if m.state != StateUninitialized {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap
	}
	m.state = StateLoading
	m.mu.Unlock()

	authenticated, err := m.provider.Init(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("silent auth check failed")
		return m.resolve(StateUnauthenticated, nil)
	}
	if !authenticated {
		return m.resolve(StateUnauthenticated, nil)
	}

	var user *model.UserInfo
	if m.users != nil {
		user, err = m.users.GetCurrentUser(ctx)
		if err != nil {
			m.logger.Warn().Err(err).Msg("failed to fetch user info")
			return m.resolve(StateUnauthenticated, nil)
		}
	}

	snap := m.resolve(StateAuthenticated, user)
	m.startWatcher()
	return snap
}

// Login triggers an interactive authentication redirect.
func (m *Manager) Login() {
	m.provider.Login()
}

// Logout tears down the expiry watcher and reverts to the
// unauthenticated state before handing control to the provider.
func (m *Manager) Logout() {
	m.stopWatcher()
	m.mu.Lock()
	m.state = StateUnauthenticated
	m.user = nil
	m.mu.Unlock()
	m.provider.Logout()
}

// Close releases background resources without signing out.
func (m *Manager) Close() {
	m.stopWatcher()
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// HasRole reports whether the current user carries the role; false when
// unauthenticated.
func (m *Manager) HasRole(role string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated {
		return false
	}
	return m.user.HasRole(role)
}

// HasAnyRole reports whether the user carries at least one of the roles.
func (m *Manager) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if m.HasRole(role) {
			return true
		}
	}
	return false
}

// RefreshUserInfo re-fetches the user profile without touching the
// token; used after external profile changes.
func (m *Manager) RefreshUserInfo(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	m.mu.Unlock()

	if m.users == nil {
		return errors.New("session: no user source attached")
	}
	user, err := m.users.GetCurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("refresh user info: %w", err)
	}

	m.mu.Lock()
	if m.state == StateAuthenticated {
		m.user = user
	}
	m.mu.Unlock()
	return nil
}

// Token returns a bearer token valid for at least the configured
// lookahead, refreshing it first when needed. Concurrent callers share a
// single refresh round trip.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.state != StateAuthenticated && m.state != StateLoading {
		m.mu.Unlock()
		return "", ErrNotAuthenticated
	}
	token, expiry := m.provider.Token()
	if token != "" && (expiry.IsZero() || time.Until(expiry) > m.minValidity) {
		m.mu.Unlock()
		return token, nil
	}
	flight := m.beginRefreshLocked()
	m.mu.Unlock()

	select {
	case <-flight.done:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if flight.err != nil {
		return "", fmt.Errorf("token refresh: %w", flight.err)
	}
	token, _ = m.provider.Token()
	return token, nil
}

func (m *Manager) resolve(state State, user *model.UserInfo) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.user = user
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:           m.state,
		IsAuthenticated: m.state == StateAuthenticated,
		IsLoading:       m.state == StateLoading,
	}
	if m.state == StateAuthenticated {
		snap.User = m.user
		snap.Token, _ = m.provider.Token()
	}
	return snap
}

// beginRefreshLocked coalesces concurrent refresh requests into one
// outstanding provider round trip. Callers hold m.mu.
func (m *Manager) beginRefreshLocked() *refreshFlight {
	if m.flight != nil {
		return m.flight
	}
	flight := &refreshFlight{done: make(chan struct{})}
	m.flight = flight

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		_, err := m.provider.UpdateToken(ctx, m.minValidity)

		m.mu.Lock()
		m.flight = nil
		m.mu.Unlock()

		flight.err = err
		close(flight.done)

		if err != nil {
			metrics.IncTokenRefresh("failure")
			m.logger.Error().Err(err).Msg("token refresh failed, forcing logout")
			m.expire()
			return
		}
		metrics.IncTokenRefresh("success")
	}()

	return flight
}

// expire is the forced logout taken when a refresh fails.
func (m *Manager) expire() {
	m.stopWatcher()
	m.mu.Lock()
	if m.state == StateUnauthenticated {
		m.mu.Unlock()
		return
	}
	m.state = StateUnauthenticated
	m.user = nil
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(events.Event{Type: events.TypeSessionExpired})
	}
	m.provider.Logout()
}

// startWatcher runs the background expiry watcher. It is stopped by
// Logout, Close or a failed refresh.
func (m *Manager) startWatcher() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.mu.Lock()
	m.watchCancel = cancel
	m.watchDone = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.watchEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.mu.Lock()
				if m.state != StateAuthenticated {
					m.mu.Unlock()
					continue
				}
				token, expiry := m.provider.Token()
				if token == "" || (!expiry.IsZero() && time.Until(expiry) <= m.minValidity) {
					m.beginRefreshLocked()
				}
				m.mu.Unlock()
			}
		}
	}()
}

func (m *Manager) stopWatcher() {
	m.mu.Lock()
	cancel, done := m.watchCancel, m.watchDone
	m.watchCancel, m.watchDone = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
