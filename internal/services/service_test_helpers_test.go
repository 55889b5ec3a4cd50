package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/insurai/portal/internal/auth"
	"github.com/insurai/portal/internal/backend"
	"github.com/insurai/portal/internal/claims"
	"github.com/insurai/portal/internal/database/testutil"
	"github.com/insurai/portal/internal/models"
	"github.com/insurai/portal/pkg/crypto"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type decision struct {
	ID      int64
	Status  models.ClaimStatus
	Remarks string
}

// fakeBackend is an in-memory system of record. Errors are keyed by method name.
type fakeBackend struct {
	mu sync.Mutex

	loginResult  backend.LoginResult
	policies     []models.Policy
	claims       []models.Claim
	hrClaims     []models.Claim
	queries      []models.Query
	agentQueries []models.Query
	agents       []models.AgentAvailability
	employees    []models.Employee
	hrUsers      []models.HRUser
	alerts       []models.FraudAlert

	errs         map[string]error
	claimErrs    map[int64]error
	echoDecision bool

	calls     map[string]int
	logins    []models.Role
	submitted []backend.ClaimPayload
	decisions []decision
	asked     []backend.QueryPayload
	responses map[int64]string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		errs:      map[string]error{},
		claimErrs: map[int64]error{},
		calls:     map[string]int{},
		responses: map[int64]string{},
	}
}

func (f *fakeBackend) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.errs[name]
}

func (f *fakeBackend) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) Login(_ context.Context, role models.Role, _ backend.Credentials) (backend.LoginResult, error) {
	if err := f.record("Login"); err != nil {
		return backend.LoginResult{}, err
	}
	f.mu.Lock()
	f.logins = append(f.logins, role)
	f.mu.Unlock()
	return f.loginResult, nil
}

func (f *fakeBackend) Register(context.Context, backend.Registration) (string, error) {
	return "registered", f.record("Register")
}

func (f *fakeBackend) ForgotPassword(context.Context, string) (string, error) {
	return "reset link sent", f.record("ForgotPassword")
}

func (f *fakeBackend) ResetPassword(context.Context, string, string) (string, error) {
	return "password updated", f.record("ResetPassword")
}

func (f *fakeBackend) ListPolicies(context.Context) ([]models.Policy, error) {
	return f.policies, f.record("ListPolicies")
}

func (f *fakeBackend) ListClaims(context.Context, int64) ([]models.Claim, error) {
	return f.claims, f.record("ListClaims")
}

func (f *fakeBackend) SubmitClaim(_ context.Context, payload backend.ClaimPayload) (models.Claim, error) {
	if err := f.record("SubmitClaim"); err != nil {
		return models.Claim{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, payload)
	return models.Claim{ID: 900 + int64(len(f.submitted)), PolicyID: payload.PolicyID, Amount: payload.Amount, Status: models.ClaimPending}, nil
}

func (f *fakeBackend) UpdateClaim(_ context.Context, payload backend.ClaimPayload) (models.Claim, error) {
	if err := f.record("UpdateClaim"); err != nil {
		return models.Claim{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, payload)
	return models.Claim{}, nil
}

func (f *fakeBackend) ListQueries(context.Context, int64) ([]models.Query, error) {
	return f.queries, f.record("ListQueries")
}

func (f *fakeBackend) AskQuery(_ context.Context, payload backend.QueryPayload) (models.Query, error) {
	if err := f.record("AskQuery"); err != nil {
		return models.Query{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, payload)
	return models.Query{ID: 77}, nil
}

func (f *fakeBackend) ListAgentAvailability(context.Context) ([]models.AgentAvailability, error) {
	return f.agents, f.record("ListAgentAvailability")
}

func (f *fakeBackend) ListHRClaims(context.Context, int64) ([]models.Claim, error) {
	return f.hrClaims, f.record("ListHRClaims")
}

func (f *fakeBackend) ApproveClaim(_ context.Context, id int64, remarks string) (*models.Claim, error) {
	return f.decide(id, models.ClaimApproved, remarks)
}

func (f *fakeBackend) RejectClaim(_ context.Context, id int64, remarks string) (*models.Claim, error) {
	return f.decide(id, models.ClaimRejected, remarks)
}

func (f *fakeBackend) decide(id int64, status models.ClaimStatus, remarks string) (*models.Claim, error) {
	if err := f.record("Decide"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.claimErrs[id]; err != nil {
		return nil, err
	}
	f.decisions = append(f.decisions, decision{ID: id, Status: status, Remarks: remarks})
	if !f.echoDecision {
		return nil, nil
	}
	return &models.Claim{ID: id, Status: status}, nil
}

func (f *fakeBackend) ListFraudAlerts(context.Context) ([]models.FraudAlert, error) {
	return f.alerts, f.record("ListFraudAlerts")
}

func (f *fakeBackend) ListAgentQueries(context.Context, int64) ([]models.Query, error) {
	return f.agentQueries, f.record("ListAgentQueries")
}

func (f *fakeBackend) RespondQuery(_ context.Context, id int64, response string) (*models.Query, error) {
	if err := f.record("RespondQuery"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[id] = response
	return nil, nil
}

func (f *fakeBackend) ListEmployees(context.Context) ([]models.Employee, error) {
	return f.employees, f.record("ListEmployees")
}

func (f *fakeBackend) ListHRUsers(context.Context) ([]models.HRUser, error) {
	return f.hrUsers, f.record("ListHRUsers")
}

func testEngine() *claims.Engine {
	return claims.NewEngine(claims.DefaultThresholds(), claims.WithClock(func() time.Time { return testNow }))
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func newTestSessionService(t *testing.T) *auth.SessionService {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	jwtService, err := auth.NewJWTService(auth.JWTConfig{Secret: "services-secret", AccessTokenTTL: time.Hour})
	require.NoError(t, err)
	sealer, err := crypto.NewSealer([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	sessions, err := auth.NewSessionService(db, jwtService, sealer, auth.SessionConfig{})
	require.NoError(t, err)
	return sessions
}

func employeePrincipal() models.Principal {
	return models.Principal{SessionID: "s-emp", Role: models.RoleEmployee, UserID: 11, Name: "Ravi"}
}

func hrPrincipal(id int64) models.Principal {
	return models.Principal{SessionID: "s-hr", Role: models.RoleHR, UserID: id, Name: "Asha"}
}
