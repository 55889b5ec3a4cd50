package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/insurai/portal/internal/auth"
	"github.com/insurai/portal/internal/backend"
	"github.com/insurai/portal/internal/models"
	apperrors "github.com/insurai/portal/pkg/errors"
	"github.com/insurai/portal/pkg/logger"
	"github.com/insurai/portal/pkg/metrics"
)

// LoginInput carries the credentials submitted on a role's login page.
type LoginInput struct {
	Role     string
	Email    string
	Password string
}

// LoginResult is returned to the UI after a successful login.
type LoginResult struct {
	AccessToken string           `json:"access_token"`
	ExpiresAt   int64            `json:"expires_at"`
	Principal   models.Principal `json:"user"`
	HomePath    string           `json:"home_path"`
}

// RegisterInput describes a new employee account.
type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	EmployeeID string
	Department string
}

// LogoutHook releases per-principal state held outside the session store.
type LogoutHook func(principal models.Principal)

// AuthService drives the login lifecycle: a successful backend login creates
// a portal session and logout tears it and every derived resource down.
type AuthService struct {
	backend  Backend
	sessions *auth.SessionService
	hooks    []LogoutHook
	log      *zap.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(b Backend, sessions *auth.SessionService, hooks ...LogoutHook) (*AuthService, error) {
	if b == nil {
		return nil, errors.New("auth service: backend is required")
	}
	if sessions == nil {
		return nil, errors.New("auth service: session service is required")
	}
	return &AuthService{
		backend:  b,
		sessions: sessions,
		hooks:    hooks,
		log:      logger.WithModule("auth"),
	}, nil
}

// Login authenticates against the role's backend endpoint and opens a session.
func (s *AuthService) Login(ctx context.Context, input LoginInput, meta auth.SessionMetadata) (LoginResult, error) {
	ctx = ensureContext(ctx)

	role, err := models.ParseRole(input.Role)
	if err != nil {
		return LoginResult{}, apperrors.NewValidation("unknown role").WithDetails(map[string]any{"field": "role"})
	}
	email := strings.TrimSpace(input.Email)
	if err := requireText("email", email); err != nil {
		return LoginResult{}, err
	}
	if err := requireText("password", input.Password); err != nil {
		return LoginResult{}, err
	}

	result, err := s.backend.Login(ctx, role, backend.Credentials{Email: email, Password: input.Password})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(role.String(), "failure").Inc()
		if errors.Is(err, apperrors.ErrUnauthorized) || errors.Is(err, apperrors.ErrNotFound) {
			return LoginResult{}, apperrors.ErrInvalidCredentials.WithInternal(err)
		}
		return LoginResult{}, fmt.Errorf("auth service: login: %w", err)
	}

	// Some backends echo the canonical role; a mismatch means the account
	// signed in through the wrong portal.
	if echoed := strings.TrimSpace(result.Role); echoed != "" {
		if backendRole, perr := models.ParseRole(strings.TrimPrefix(strings.ToLower(echoed), "role_")); perr == nil && backendRole != role {
			metrics.AuthAttempts.WithLabelValues(role.String(), "failure").Inc()
			return LoginResult{}, apperrors.ErrInvalidCredentials
		}
	}

	userID := result.UserID(role)
	if userID == 0 {
		metrics.AuthAttempts.WithLabelValues(role.String(), "failure").Inc()
		return LoginResult{}, apperrors.ErrNetwork.WithInternal(errors.New("login response carried no user id"))
	}

	name := strings.TrimSpace(result.Name)
	if name == "" {
		name = email
	}
	resultEmail := strings.TrimSpace(result.Email)
	if resultEmail == "" {
		resultEmail = email
	}

	issued, err := s.sessions.Create(ctx, auth.Identity{
		Role:         role,
		UserID:       userID,
		Name:         name,
		Email:        resultEmail,
		EmployeeCode: result.EmployeeID,
		BackendToken: result.Token,
	}, meta)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(role.String(), "failure").Inc()
		return LoginResult{}, fmt.Errorf("auth service: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues(role.String(), "success").Inc()
	s.log.Info("portal login",
		zap.String("role", role.String()),
		zap.Int64("user_id", userID),
		zap.String("session_id", issued.Principal.SessionID),
	)

	return LoginResult{
		AccessToken: issued.AccessToken,
		ExpiresAt:   issued.ExpiresAt.Unix(),
		Principal:   issued.Principal,
		HomePath:    auth.HomePath(role),
	}, nil
}

// Register creates an employee account on the backend.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (string, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if err := requireText("name", name); err != nil {
		return "", err
	}
	if err := requireText("email", email); err != nil {
		return "", err
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apperrors.NewValidation("email is invalid").WithDetails(map[string]any{"field": "email"})
	}
	if err := requirePassword(input.Password); err != nil {
		return "", err
	}

	message, err := s.backend.Register(ctx, backend.Registration{
		Name:       name,
		Email:      strings.ToLower(email),
		Password:   input.Password,
		EmployeeID: strings.TrimSpace(input.EmployeeID),
		Department: strings.TrimSpace(input.Department),
	})
	if err != nil {
		return "", fmt.Errorf("auth service: register: %w", err)
	}
	return message, nil
}

// ForgotPassword asks the backend to send a reset link.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if err := requireText("email", email); err != nil {
		return "", err
	}
	message, err := s.backend.ForgotPassword(ensureContext(ctx), strings.ToLower(email))
	if err != nil {
		return "", fmt.Errorf("auth service: forgot password: %w", err)
	}
	return message, nil
}

// ResetPassword completes a reset with the token from the emailed link.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) (string, error) {
	token = strings.TrimSpace(token)
	if err := requireText("token", token); err != nil {
		return "", err
	}
	if err := requirePassword(password); err != nil {
		return "", err
	}
	message, err := s.backend.ResetPassword(ensureContext(ctx), token, password)
	if err != nil {
		return "", fmt.Errorf("auth service: reset password: %w", err)
	}
	return message, nil
}

// Logout destroys the session and runs every teardown hook. Report history
// is kept; it belongs to the user, not the session.
func (s *AuthService) Logout(ctx context.Context, principal models.Principal) error {
	ctx = ensureContext(ctx)

	err := s.sessions.Destroy(ctx, principal.SessionID)
	for _, hook := range s.hooks {
		hook(principal)
	}
	if err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
		return fmt.Errorf("auth service: logout: %w", err)
	}

	s.log.Info("portal logout",
		zap.String("role", principal.Role.String()),
		zap.Int64("user_id", principal.UserID),
		zap.String("session_id", principal.SessionID),
	)
	return nil
}

// EndIfExpired logs the principal out when err shows the backend no longer
// accepts its token. It reports whether the session was ended.
func (s *AuthService) EndIfExpired(ctx context.Context, principal models.Principal, err error) bool {
	if err == nil || !isSessionExpired(err) {
		return false
	}
	if logoutErr := s.Logout(ctx, principal); logoutErr != nil {
		s.log.Warn("failed to end expired session", zap.Error(logoutErr))
	}
	return true
}

func requirePassword(password string) error {
	if err := requireText("password", password); err != nil {
		return err
	}
	if len(password) < 8 {
		return apperrors.NewValidation("password must be at least 8 characters").WithDetails(map[string]any{"field": "password"})
	}
	return nil
}
