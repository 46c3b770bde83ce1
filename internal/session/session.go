// Package session tracks who is signed in.
//
// A Manager is either anonymous or authenticated with a market.User. The
// authenticated user is cached under kvstore.KeyCurrentUser and trusted on
// the next start without revalidation. The cached record includes the
// plaintext password the backend returns.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/five82/manavault/internal/kvstore"
	"github.com/five82/manavault/internal/logging"
	"github.com/five82/manavault/internal/market"
)

// AdminID is the account allowed to delete other users and edit the catalog.
const AdminID = "1"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConflict           = errors.New("account already exists")
	ErrNotAuthenticated   = errors.New("not signed in")
	ErrMissingFields      = errors.New("all fields are required")
	ErrInvalidEmail       = errors.New("invalid email address")
)

// Listener observes session transitions. authenticated is false after a
// sign-out; user is then the zero value.
type Listener func(ctx context.Context, user market.User, authenticated bool)

// Profile carries the user-editable fields. Empty fields are left as-is.
type Profile struct {
	Name     string
	Username string
	Email    string
	Avatar   string
}

// Manager owns the session state.
type Manager struct {
	api    market.AuthAPI
	store  kvstore.Store
	logger *zap.Logger

	mu            sync.RWMutex
	user          market.User
	authenticated bool
	listeners     []Listener
}

// New builds an anonymous Manager.
func New(api market.AuthAPI, store kvstore.Store, logger *zap.Logger) *Manager {
	return &Manager{api: api, store: store, logger: logging.OrNop(logger)}
}

// OnChange registers fn for every transition.
func (m *Manager) OnChange(fn Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Current returns the signed-in user.
func (m *Manager) Current() (market.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user, m.authenticated
}

// UserID returns the signed-in user's id, or "" when anonymous.
func (m *Manager) UserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.authenticated {
		return ""
	}
	return m.user.ID
}

// IsAdmin reports whether the signed-in user is the administrator.
func (m *Manager) IsAdmin() bool {
	return m.UserID() == AdminID
}

// Restore adopts the cached session, if any. A corrupt record is removed.
func (m *Manager) Restore(ctx context.Context) bool {
	user, ok, err := kvstore.GetJSON[market.User](ctx, m.store, kvstore.KeyCurrentUser)
	if err != nil {
		m.logger.Warn("discarding cached session", zap.Error(err))
		if rmErr := m.store.Remove(ctx, kvstore.KeyCurrentUser); rmErr != nil {
			m.logger.Warn("remove cached session", zap.Error(rmErr))
		}
		return false
	}
	if !ok || user.ID == "" {
		return false
	}
	m.signIn(ctx, user)
	m.logger.Info("session restored", zap.String("user", user.Username))
	return true
}

// Login authenticates with an email or username.
func (m *Manager) Login(ctx context.Context, identifier, password string) (market.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return market.User{}, ErrMissingFields
	}
	user, err := m.api.Login(ctx, identifier, password)
	if err != nil {
		if code := market.StatusCode(err); code >= 400 && code < 500 {
			return market.User{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return market.User{}, fmt.Errorf("login: %w", err)
	}
	m.signIn(ctx, user)
	m.logger.Info("signed in", zap.String("user", user.Username))
	return user, nil
}

// Register creates an account and signs it in.
func (m *Manager) Register(ctx context.Context, name, username, email, password string) (market.User, error) {
	req := market.RegisterRequest{
		Name:     strings.TrimSpace(name),
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	if req.Name == "" || req.Username == "" || req.Email == "" || req.Password == "" {
		return market.User{}, ErrMissingFields
	}
	if !strings.Contains(req.Email, "@") {
		return market.User{}, ErrInvalidEmail
	}
	user, err := m.api.Register(ctx, req)
	if err != nil {
		if market.StatusCode(err) == http.StatusConflict {
			return market.User{}, fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return market.User{}, fmt.Errorf("register: %w", err)
	}
	m.signIn(ctx, user)
	m.logger.Info("registered", zap.String("user", user.Username))
	return user, nil
}

// ChangePassword asks the server to rotate the password and returns its
// confirmation message.
func (m *Manager) ChangePassword(ctx context.Context, current, next string) (string, error) {
	user, ok := m.Current()
	if !ok {
		return "", ErrNotAuthenticated
	}
	if current == "" || next == "" {
		return "", ErrMissingFields
	}
	msg, err := m.api.ChangePassword(ctx, user.ID, current, next)
	if err != nil {
		return "", fmt.Errorf("change password: %w", err)
	}
	m.update(ctx, user.ID, func(u *market.User) { u.Password = next })
	if msg == "" {
		msg = "password updated"
	}
	return msg, nil
}

// UpdateProfile patches the local user record and re-caches it.
func (m *Manager) UpdateProfile(ctx context.Context, p Profile) error {
	user, ok := m.Current()
	if !ok {
		return ErrNotAuthenticated
	}
	if email := strings.TrimSpace(p.Email); email != "" && !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	m.update(ctx, user.ID, func(u *market.User) {
		if v := strings.TrimSpace(p.Name); v != "" {
			u.Name = v
		}
		if v := strings.TrimSpace(p.Username); v != "" {
			u.Username = v
		}
		if v := strings.TrimSpace(p.Email); v != "" {
			u.Email = v
		}
		if v := strings.TrimSpace(p.Avatar); v != "" {
			u.Avatar = v
		}
	})
	return nil
}

// DeleteAccount deletes targetID on behalf of the signed-in user. Deleting
// oneself signs out.
func (m *Manager) DeleteAccount(ctx context.Context, targetID string) error {
	user, ok := m.Current()
	if !ok {
		return ErrNotAuthenticated
	}
	if err := m.api.DeleteUser(ctx, targetID, user.ID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	m.logger.Info("account deleted", zap.String("target", targetID), zap.String("by", user.ID))
	if targetID == user.ID {
		m.Logout(ctx)
	}
	return nil
}

// ResetPassword accepts any address containing "@". No request is made; the
// backend has no reset endpoint.
func (m *Manager) ResetPassword(email string) error {
	if !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// Logout signs out and drops the cached session.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.store.Remove(ctx, kvstore.KeyCurrentUser); err != nil {
		m.logger.Warn("remove cached session", zap.Error(err))
	}
	m.mu.Lock()
	was := m.authenticated
	m.user = market.User{}
	m.authenticated = false
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	if !was {
		return
	}
	m.logger.Info("signed out")
	for _, fn := range listeners {
		fn(ctx, market.User{}, false)
	}
}

func (m *Manager) signIn(ctx context.Context, user market.User) {
	m.persist(ctx, user)
	m.mu.Lock()
	m.user = user
	m.authenticated = true
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, user, true)
	}
}

// update patches and re-caches the signed-in user. It does nothing once
// userID is no longer the signed-in user.
func (m *Manager) update(ctx context.Context, userID string, patch func(*market.User)) {
	m.mu.Lock()
	if !m.authenticated || m.user.ID != userID {
		m.mu.Unlock()
		m.logger.Debug("dropping update for signed-out user", zap.String("user", userID))
		return
	}
	patch(&m.user)
	user := m.user
	m.mu.Unlock()
	m.persist(ctx, user)
}

func (m *Manager) persist(ctx context.Context, user market.User) {
	if err := kvstore.SetJSON(ctx, m.store, kvstore.KeyCurrentUser, user); err != nil {
		m.logger.Warn("cache session", zap.Error(err))
	}
}
