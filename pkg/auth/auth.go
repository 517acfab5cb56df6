package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/psantana5/grain/pkg/models"
	"github.com/psantana5/grain/pkg/store"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = fmt.Errorf("%w: password must be at least %d characters", models.ErrInvalid, MinPasswordLength)
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt input limit
	DefaultSessionTTL = 7 * 24 * time.Hour
	DefaultCurrency   = "USD"
)

// UserStore is the slice of store.Store the manager needs
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Options tunes hashing and session lifetime
type Options struct {
	BcryptCost int
	SessionTTL time.Duration
}

// SessionMeta describes the client a session was issued to
type SessionMeta struct {
	IPAddress string
	UserAgent string
}

// Manager registers users and issues, validates and revokes session tokens.
// Tokens have the form <sessionID>.<secret>; only a bcrypt hash of the secret is stored.
type Manager struct {
	store UserStore
	cost  int
	ttl   time.Duration
	now   func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewManager creates a new auth manager
func NewManager(s UserStore, opts Options) *Manager {
	cost := opts.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Manager{store: s, cost: cost, ttl: ttl, now: models.Now}
}

// Register creates a user and opens a first session
func (m *Manager) Register(ctx context.Context, email, password, name string, meta SessionMeta) (*models.User, string, error) {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, "", ErrWeakPassword
	}
	if len(password) > MaxPasswordLength {
		return nil, "", fmt.Errorf("%w: password must be at most %d bytes", models.ErrInvalid, MaxPasswordLength)
	}

	now := m.now()
	user := &models.User{
		ID:        uuid.New().String(),
		Email:     models.NormalizeEmail(email),
		Name:      strings.TrimSpace(name),
		Currency:  DefaultCurrency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.Validate(); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	if err := m.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}

	token, err := m.issue(ctx, user.ID, meta)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login checks credentials and opens a session.
// Unknown emails and wrong passwords fail the same way.
func (m *Manager) Login(ctx context.Context, email, password string, meta SessionMeta) (*models.User, string, error) {
	user, err := m.store.GetUserByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		// keep response time independent of whether the email exists
		_ = bcrypt.CompareHashAndPassword(m.dummy(), []byte(password))
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := m.issue(ctx, user.ID, meta)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Authenticate resolves a session token to its user
func (m *Manager) Authenticate(ctx context.Context, token string) (*models.User, error) {
	session, err := m.session(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := m.store.GetUser(ctx, session.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	return user, err
}

// Logout revokes the session behind a token
func (m *Manager) Logout(ctx context.Context, token string) error {
	session, err := m.session(ctx, token)
	if err != nil && !errors.Is(err, ErrTokenExpired) {
		return err
	}
	if session == nil {
		return nil
	}
	if err := m.store.DeleteSession(ctx, session.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// session validates a token; expired sessions are returned together with ErrTokenExpired
func (m *Manager) session(ctx context.Context, token string) (*models.Session, error) {
	id, secret, ok := strings.Cut(token, ".")
	if !ok || id == "" || secret == "" {
		return nil, ErrInvalidToken
	}

	session, err := m.store.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(session.TokenHash), []byte(secret)); err != nil {
		return nil, ErrInvalidToken
	}

	if session.Expired(m.now()) {
		_ = m.store.DeleteSession(ctx, session.ID)
		return session, ErrTokenExpired
	}
	return session, nil
}

func (m *Manager) issue(ctx context.Context, userID string, meta SessionMeta) (string, error) {
	secret, err := GenerateSecret()
	if err != nil {
		return "", err
	}

	// The secret already carries 256 bits of entropy
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}

	now := m.now()
	session := &models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: string(hash),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return session.ID + "." + secret, nil
}

func (m *Manager) dummy() []byte {
	m.dummyOnce.Do(func() {
		m.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("grain-dummy-password"), m.cost)
	})
	return m.dummyHash
}

// GenerateSecret returns 32 random bytes, base64url encoded
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// SecureCompare performs constant-time comparison
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
