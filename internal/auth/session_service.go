package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/insurai/portal/internal/models"
	"github.com/insurai/portal/pkg/crypto"
	"github.com/insurai/portal/pkg/metrics"
)

const sealLabelPrefix = "portal-session:"

var (
	// ErrSessionNotFound indicates that no session matches the identifier.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionRevoked marks a session ended by logout.
	ErrSessionRevoked = errors.New("session: revoked")
	// ErrSessionExpired signals that the session lifetime has elapsed.
	ErrSessionExpired = errors.New("session: expired")
	// ErrSessionInvalidToken is returned for malformed or foreign portal tokens.
	ErrSessionInvalidToken = errors.New("session: invalid token")
)

// Identity is the principal returned by a backend login together with the
// bearer token the portal must present on the user's behalf.
type Identity struct {
	Role         models.Role
	UserID       int64
	Name         string
	Email        string
	EmployeeCode string
	BackendToken string
}

// SessionMetadata captures contextual information about the client.
type SessionMetadata struct {
	IPAddress string
	UserAgent string
}

// Issued is the result of a successful login.
type Issued struct {
	AccessToken string
	ExpiresAt   time.Time
	Principal   models.Principal
}

// Resolved is an authenticated request's view of its session.
type Resolved struct {
	Principal    models.Principal
	BackendToken string
}

// SessionConfig describes tunable behaviour for the SessionService.
type SessionConfig struct {
	Clock func() time.Time
	Cache SessionCache
}

// SessionService owns the server-side session store: login creates a row,
// every request resolves it and logout destroys it.
type SessionService struct {
	db     *gorm.DB
	jwt    *JWTService
	sealer *crypto.Sealer
	cache  SessionCache
	now    func() time.Time
}

// NewSessionService constructs a session manager backed by the database.
func NewSessionService(db *gorm.DB, jwtService *JWTService, sealer *crypto.Sealer, cfg SessionConfig) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("session service: jwt service is required")
	}
	if sealer == nil {
		return nil, errors.New("session service: sealer is required")
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &SessionService{
		db:     db,
		jwt:    jwtService,
		sealer: sealer,
		cache:  cfg.Cache,
		now:    clock,
	}, nil
}

// Create persists a session for the identity and issues the portal token.
func (s *SessionService) Create(ctx context.Context, identity Identity, meta SessionMetadata) (Issued, error) {
	if identity.Role == "" || identity.UserID == 0 {
		return Issued{}, errors.New("session service: role and user id are required")
	}
	if strings.TrimSpace(identity.BackendToken) == "" {
		return Issued{}, errors.New("session service: backend token is required")
	}

	now := s.now()
	session := &models.PortalSession{
		ID:           uuid.NewString(),
		Role:         identity.Role.String(),
		UserID:       identity.UserID,
		DisplayName:  strings.TrimSpace(identity.Name),
		Email:        strings.ToLower(strings.TrimSpace(identity.Email)),
		EmployeeCode: strings.TrimSpace(identity.EmployeeCode),
		IPAddress:    strings.TrimSpace(meta.IPAddress),
		UserAgent:    strings.TrimSpace(meta.UserAgent),
		ExpiresAt:    now.Add(s.jwt.TTL()),
		LastUsedAt:   now,
	}

	sealed, err := s.sealer.Seal(identity.BackendToken, sealLabelPrefix+session.ID)
	if err != nil {
		return Issued{}, fmt.Errorf("session service: seal backend token: %w", err)
	}
	session.SealedToken = sealed

	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return Issued{}, fmt.Errorf("session service: create session: %w", err)
	}

	token, expiresAt, err := s.jwt.Issue(session.ID, identity.Role, identity.UserID)
	if err != nil {
		return Issued{}, fmt.Errorf("session service: issue token: %w", err)
	}

	metrics.ActiveSessions.Inc()
	if s.cache != nil {
		_ = s.cache.Set(ctx, session, session.ExpiresAt.Sub(now))
	}

	return Issued{AccessToken: token, ExpiresAt: expiresAt, Principal: session.Principal()}, nil
}

// Resolve validates a portal token and returns the live session behind it.
func (s *SessionService) Resolve(ctx context.Context, accessToken string) (Resolved, error) {
	claims, err := s.jwt.Validate(accessToken)
	if err != nil {
		return Resolved{}, fmt.Errorf("%w: %v", ErrSessionInvalidToken, err)
	}

	session, err := s.load(ctx, claims.SessionID)
	if err != nil {
		return Resolved{}, err
	}

	now := s.now()
	if session.RevokedAt != nil {
		return Resolved{}, ErrSessionRevoked
	}
	if session.ExpiresAt.Before(now) {
		return Resolved{}, ErrSessionExpired
	}
	if session.Role != claims.Role || session.UserID != claims.UserID {
		return Resolved{}, ErrSessionInvalidToken
	}

	backendToken, err := s.sealer.Open(session.SealedToken, sealLabelPrefix+session.ID)
	if err != nil {
		return Resolved{}, fmt.Errorf("session service: open backend token: %w", err)
	}

	return Resolved{Principal: session.Principal(), BackendToken: backendToken}, nil
}

func (s *SessionService) load(ctx context.Context, sessionID string) (*models.PortalSession, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, sessionID); err == nil && cached != nil {
			return cached, nil
		}
	}

	var session models.PortalSession
	err := s.db.WithContext(ctx).Take(&session, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session service: find session: %w", err)
	}

	if s.cache != nil && session.RevokedAt == nil {
		if ttl := session.ExpiresAt.Sub(s.now()); ttl > 0 {
			_ = s.cache.Set(ctx, &session, ttl)
		}
	}
	return &session, nil
}

// Destroy revokes the session. It is the teardown half of the login lifecycle.
func (s *SessionService) Destroy(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrSessionInvalidToken
	}

	result := s.db.WithContext(ctx).Model(&models.PortalSession{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Updates(map[string]any{"revoked_at": s.now()})
	if result.Error != nil {
		return fmt.Errorf("session service: revoke session: %w", result.Error)
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, sessionID)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}

	metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	return nil
}

// CleanupExpired deletes expired and revoked sessions.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	now := s.now()

	var activeExpired int64
	if err := s.db.WithContext(ctx).
		Model(&models.PortalSession{}).
		Where("expires_at < ? AND revoked_at IS NULL", now).
		Count(&activeExpired).Error; err != nil {
		return 0, fmt.Errorf("session service: count expired sessions: %w", err)
	}

	var ids []string
	if s.cache != nil {
		_ = s.db.WithContext(ctx).
			Model(&models.PortalSession{}).
			Where("expires_at < ?", now).
			Or("revoked_at IS NOT NULL").
			Pluck("id", &ids).Error
	}

	result := s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Or("revoked_at IS NOT NULL").
		Delete(&models.PortalSession{})
	if result.Error != nil {
		return 0, fmt.Errorf("session service: cleanup expired sessions: %w", result.Error)
	}

	if s.cache != nil && len(ids) > 0 {
		_ = s.cache.Delete(ctx, ids...)
	}
	if activeExpired > 0 {
		metrics.ActiveSessions.Sub(float64(activeExpired))
	}
	return result.RowsAffected, nil
}
