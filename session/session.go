// Package session holds the logged-in state of the application. The state is
// an explicit object with an init (hydrate from storage) and teardown (clear
// on logout) lifecycle, handed to the surfaces that need it, rather than
// ambient module-level globals.
package session

import (
	"sync"

	log "github.com/sirupsen/logrus"
	cst "verdant.io/feed/constants"
	fe "verdant.io/feed/errors"
	"verdant.io/feed/kv"
	md "verdant.io/feed/models"
)

// Manager mirrors the session user to storage under the currentUser and
// isLoggedIn keys. Until Hydrate completes, Ready reports false and consumers
// must not make auth decisions, which prevents a flash redirect to login
// while the initial read is still pending.
type Manager struct {
	kv kv.Store

	mu       sync.RWMutex
	user     *md.User
	hydrated bool
}

func NewManager(store kv.Store) *Manager {
	return &Manager{kv: store}
}

// Hydrate performs the initial session read. A missing or invalid stored
// session is "no user", never an error.
func (m *Manager) Hydrate() *fe.FeedErr {
	u := &md.User{}
	found, err := m.kv.Get(cst.KeyCurrentUser, u)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if found && u.ID != "" {
		m.user = u
	}
	m.hydrated = true
	return nil
}

// Ready reports whether the initial hydration read has settled.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hydrated
}

// Current returns the session user, nil when nobody is logged in.
func (m *Manager) Current() *md.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// Login installs u as the session user and persists it. It has no side effect
// on the users collection.
func (m *Manager) Login(u *md.User) *fe.FeedErr {
	clog := log.WithField("userID", u.ID)
	if err := m.kv.Set(cst.KeyCurrentUser, u); err != nil {
		clog.WithError(err).Error("error persisting session user")
		return err
	}
	if err := m.kv.Set(cst.KeyIsLoggedIn, "true"); err != nil {
		clog.WithError(err).Error("error persisting logged-in flag")
		return err
	}
	m.mu.Lock()
	m.user = u
	m.mu.Unlock()
	return nil
}

// Logout clears the session user. The users collection is untouched.
func (m *Manager) Logout() *fe.FeedErr {
	if err := m.kv.Delete(cst.KeyCurrentUser); err != nil {
		log.WithError(err).Error("error clearing session user")
		return err
	}
	if err := m.kv.Set(cst.KeyIsLoggedIn, "false"); err != nil {
		log.WithError(err).Error("error persisting logged-in flag")
		return err
	}
	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()
	return nil
}

// Refresh re-persists the session copy of the user after a profile edit. It
// is a no-op when u is not the session user.
func (m *Manager) Refresh(u *md.User) *fe.FeedErr {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil || m.user.ID != u.ID {
		return nil
	}
	if err := m.kv.Set(cst.KeyCurrentUser, u); err != nil {
		log.WithError(err).WithField("userID", u.ID).Error("error refreshing session user")
		return err
	}
	m.user = u
	return nil
}
