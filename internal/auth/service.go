// Package auth implements the identity layer: password hashing, JWT session
// tokens, and a single-user Service that mirrors a managed identity
// provider's surface (email/password sign-in and sign-up, session
// persistence across restarts, sign-out, password reset, and an
// auth-state-changed notification stream).
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harentsoaR/medibook/internal/models"
	"github.com/harentsoaR/medibook/internal/store"
)

const minPasswordLen = 6

// Identity is the opaque provider-level handle for a signed-in user,
// distinct from the resolved application Profile.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
}

// CredentialStore is the slice of the user store the identity layer needs.
type CredentialStore interface {
	CreateProfile(ctx context.Context, p models.Profile) error
	ProfileByUID(ctx context.Context, uid string) (models.Profile, error)
	ProfileByEmail(ctx context.Context, email string) (models.Profile, error)
	UpdatePassword(ctx context.Context, uid string, hash string) error
}

// Service tracks the device session. It is built for a single signed-in user
// at a time, the way a mobile client uses its identity provider.
type Service struct {
	users   CredentialStore
	tokens  *TokenManager
	session SessionStore
	log     *zap.Logger

	mu      sync.Mutex
	current *Identity
	subs    map[int]chan *Identity
	nextSub int
}

func NewService(users CredentialStore, tokens *TokenManager, session SessionStore, log *zap.Logger) *Service {
	return &Service{
		users:   users,
		tokens:  tokens,
		session: session,
		log:     log,
		subs:    make(map[int]chan *Identity),
	}
}

// SignUp registers a new user. The caller decides the role (allow-list
// membership); the profile document is created here together with the
// credentials, and the new session is persisted and published.
func (s *Service) SignUp(ctx context.Context, email, password, name string, role models.Role) (Identity, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return Identity{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return Identity{}, ErrWeakPassword
	}

	if _, err := s.users.ProfileByEmail(ctx, email); err == nil {
		return Identity{}, ErrEmailInUse
	} else if !errors.Is(err, store.ErrNotFound) {
		return Identity{}, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Identity{}, err
	}

	profile := models.Profile{
		UID:          uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.users.CreateProfile(ctx, profile); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return Identity{}, ErrEmailInUse
		}
		return Identity{}, err
	}

	id := Identity{UID: profile.UID, Email: email, DisplayName: profile.Name}
	s.persistSession(id, string(role))
	s.setCurrent(&id)
	return id, nil
}

// SignIn verifies credentials and publishes the new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (Identity, error) {
	email = normalizeEmail(email)

	p, err := s.users.ProfileByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash comparison so a missing account is not
			// distinguishable by response time.
			_, _ = HashPassword(password)
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, err
	}

	if !CheckPasswordHash(password, p.PasswordHash) {
		return Identity{}, ErrInvalidCredentials
	}

	id := Identity{UID: p.UID, Email: p.Email, DisplayName: p.Name}
	s.persistSession(id, string(p.Role))
	s.setCurrent(&id)
	return id, nil
}

// SignOut terminates the session. Clearing persisted state is best-effort;
// the signed-out state is published regardless.
func (s *Service) SignOut(ctx context.Context) error {
	err := s.session.Clear()
	if err != nil {
		s.log.Warn("clearing persisted session failed", zap.Error(err))
	}
	s.setCurrent(nil)
	return err
}

// ResetPassword mints a short-lived reset token for the account. Delivery
// (mail, SMS) is the caller's concern.
func (s *Service) ResetPassword(ctx context.Context, email string) (string, error) {
	p, err := s.users.ProfileByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return s.tokens.IssueReset(p.UID, p.Email)
}

// ConfirmPasswordReset validates a reset token and stores the new password.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	claims, err := s.tokens.VerifyReset(token)
	if err != nil {
		return ErrInvalidCredentials
	}
	if len(newPassword) < minPasswordLen {
		return ErrWeakPassword
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, claims.UID, hash)
}

// Restore replays a persisted session at startup. A missing or invalid token
// publishes the signed-out state; only unexpected store failures return an
// error.
func (s *Service) Restore(ctx context.Context) error {
	token, err := s.session.Load()
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			s.setCurrent(nil)
			return nil
		}
		return err
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		_ = s.session.Clear()
		s.setCurrent(nil)
		return nil
	}

	id := Identity{UID: claims.UID, Email: claims.Email}
	if p, err := s.users.ProfileByUID(ctx, claims.UID); err == nil {
		id.DisplayName = p.Name
	}
	s.setCurrent(&id)
	return nil
}

// Current returns a snapshot of the signed-in identity, or nil.
func (s *Service) Current() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// StateChanges subscribes to auth-state transitions. The current state is
// delivered immediately, then every change until cancelled. A nil identity
// means signed out.
func (s *Service) StateChanges() (<-chan *Identity, store.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan *Identity, 4)
	key := s.nextSub
	s.nextSub++
	s.subs[key] = ch
	ch <- s.current

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, key)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Service) setCurrent(id *Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = id
	for _, ch := range s.subs {
		// Latest-wins: a slow consumer sees the newest state, not a backlog.
		select {
		case ch <- id:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- id:
			default:
			}
		}
	}
}

func (s *Service) persistSession(id Identity, role string) {
	token, err := s.tokens.Issue(id.UID, id.Email, role)
	if err != nil {
		s.log.Warn("issuing session token failed", zap.Error(err))
		return
	}
	if err := s.session.Save(token); err != nil {
		s.log.Warn("persisting session failed", zap.Error(err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
