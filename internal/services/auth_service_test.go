package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/insurai/portal/internal/auth"
	"github.com/insurai/portal/internal/backend"
	"github.com/insurai/portal/internal/models"
	apperrors "github.com/insurai/portal/pkg/errors"
)

func newAuthService(t *testing.T, fake *fakeBackend, hooks ...LogoutHook) (*AuthService, *auth.SessionService) {
	t.Helper()
	sessions := newTestSessionService(t)
	svc, err := NewAuthService(fake, sessions, hooks...)
	require.NoError(t, err)
	return svc, sessions
}

func TestAuthServiceLoginCreatesSession(t *testing.T) {
	fake := newFakeBackend()
	fake.loginResult = backend.LoginResult{Token: "bearer-1", Role: "HR", Name: "Asha", ID: 7}
	svc, sessions := newAuthService(t, fake)

	result, err := svc.Login(context.Background(), LoginInput{Role: "hr", Email: " asha@corp.test ", Password: "secret-pass"}, auth.SessionMetadata{})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.Equal(t, "/hr", result.HomePath)
	require.Equal(t, int64(7), result.Principal.UserID)
	require.Equal(t, "asha@corp.test", result.Principal.Email)
	require.Equal(t, []models.Role{models.RoleHR}, fake.logins)

	resolved, err := sessions.Resolve(context.Background(), result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "bearer-1", resolved.BackendToken)
	require.Equal(t, models.RoleHR, resolved.Principal.Role)
}

func TestAuthServiceLoginValidatesBeforeCallingBackend(t *testing.T) {
	fake := newFakeBackend()
	svc, _ := newAuthService(t, fake)

	_, err := svc.Login(context.Background(), LoginInput{Role: "employee", Email: "", Password: "x"}, auth.SessionMetadata{})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Login(context.Background(), LoginInput{Role: "manager", Email: "a@b.c", Password: "x"}, auth.SessionMetadata{})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	require.Zero(t, fake.callCount("Login"))
}

func TestAuthServiceLoginMapsRejectedCredentials(t *testing.T) {
	fake := newFakeBackend()
	fake.errs["Login"] = &backend.UnauthorizedError{Endpoint: "login_employee", StatusCode: 401}
	svc, _ := newAuthService(t, fake)

	_, err := svc.Login(context.Background(), LoginInput{Role: "employee", Email: "a@b.c", Password: "wrong"}, auth.SessionMetadata{})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginRejectsRoleMismatch(t *testing.T) {
	fake := newFakeBackend()
	fake.loginResult = backend.LoginResult{Token: "bearer", Role: "ROLE_ADMIN", ID: 3}
	svc, _ := newAuthService(t, fake)

	_, err := svc.Login(context.Background(), LoginInput{Role: "hr", Email: "a@b.c", Password: "pw"}, auth.SessionMetadata{})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuthServiceLogoutRunsHooks(t *testing.T) {
	fake := newFakeBackend()
	fake.loginResult = backend.LoginResult{Token: "bearer", ID: 11}

	var released []models.Principal
	svc, sessions := newAuthService(t, fake, func(p models.Principal) { released = append(released, p) })

	result, err := svc.Login(context.Background(), LoginInput{Role: "employee", Email: "ravi@corp.test", Password: "pw"}, auth.SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), result.Principal))
	require.Len(t, released, 1)
	require.Equal(t, int64(11), released[0].UserID)

	_, err = sessions.Resolve(context.Background(), result.AccessToken)
	require.ErrorIs(t, err, auth.ErrSessionRevoked)

	// A second logout is harmless.
	require.NoError(t, svc.Logout(context.Background(), result.Principal))
}

func TestAuthServiceEndIfExpired(t *testing.T) {
	fake := newFakeBackend()
	fake.loginResult = backend.LoginResult{Token: "bearer", ID: 11}
	svc, sessions := newAuthService(t, fake)

	result, err := svc.Login(context.Background(), LoginInput{Role: "employee", Email: "ravi@corp.test", Password: "pw"}, auth.SessionMetadata{})
	require.NoError(t, err)

	require.False(t, svc.EndIfExpired(context.Background(), result.Principal, errors.New("boom")))
	require.True(t, svc.EndIfExpired(context.Background(), result.Principal, &backend.UnauthorizedError{Endpoint: "claims", StatusCode: 401}))

	_, err = sessions.Resolve(context.Background(), result.AccessToken)
	require.ErrorIs(t, err, auth.ErrSessionRevoked)
}

func TestAuthServicePasswordFlows(t *testing.T) {
	fake := newFakeBackend()
	svc, _ := newAuthService(t, fake)

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Ravi", Email: "not-an-email", Password: "longenough"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Register(context.Background(), RegisterInput{Name: "Ravi", Email: "ravi@corp.test", Password: "short"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	message, err := svc.Register(context.Background(), RegisterInput{Name: "Ravi", Email: "ravi@corp.test", Password: "longenough"})
	require.NoError(t, err)
	require.Equal(t, "registered", message)

	message, err = svc.ForgotPassword(context.Background(), "ravi@corp.test")
	require.NoError(t, err)
	require.Equal(t, "reset link sent", message)

	_, err = svc.ResetPassword(context.Background(), " ", "longenough")
	require.ErrorIs(t, err, apperrors.ErrValidation)

	message, err = svc.ResetPassword(context.Background(), "tok", "longenough")
	require.NoError(t, err)
	require.Equal(t, "password updated", message)
}
