package services

import (
	"context"

	"github.com/insurai/portal/internal/backend"
	"github.com/insurai/portal/internal/models"
)

// Backend is the system-of-record API used by the role workflows.
type Backend interface {
	Login(ctx context.Context, role models.Role, creds backend.Credentials) (backend.LoginResult, error)
	Register(ctx context.Context, reg backend.Registration) (string, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, password string) (string, error)

	ListPolicies(ctx context.Context) ([]models.Policy, error)
	ListClaims(ctx context.Context, employeeID int64) ([]models.Claim, error)
	SubmitClaim(ctx context.Context, payload backend.ClaimPayload) (models.Claim, error)
	UpdateClaim(ctx context.Context, payload backend.ClaimPayload) (models.Claim, error)
	ListQueries(ctx context.Context, employeeID int64) ([]models.Query, error)
	AskQuery(ctx context.Context, payload backend.QueryPayload) (models.Query, error)
	ListAgentAvailability(ctx context.Context) ([]models.AgentAvailability, error)

	ListHRClaims(ctx context.Context, hrID int64) ([]models.Claim, error)
	ApproveClaim(ctx context.Context, claimID int64, remarks string) (*models.Claim, error)
	RejectClaim(ctx context.Context, claimID int64, remarks string) (*models.Claim, error)
	ListFraudAlerts(ctx context.Context) ([]models.FraudAlert, error)

	ListAgentQueries(ctx context.Context, agentID int64) ([]models.Query, error)
	RespondQuery(ctx context.Context, queryID int64, response string) (*models.Query, error)

	ListEmployees(ctx context.Context) ([]models.Employee, error)
	ListHRUsers(ctx context.Context) ([]models.HRUser, error)
}

var _ Backend = (*backend.Client)(nil)
