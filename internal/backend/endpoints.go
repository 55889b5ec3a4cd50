package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insurai/portal/internal/models"
)

// Credentials are the email/password pair accepted by every login endpoint.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the identity returned by a login endpoint.
type LoginResult struct {
	Token      string `mapstructure:"token"`
	Role       string `mapstructure:"role"`
	Name       string `mapstructure:"name"`
	Email      string `mapstructure:"email"`
	ID         int64  `mapstructure:"id"`
	EmployeeID string `mapstructure:"employeeId"`
	AgentID    int64  `mapstructure:"agentId"`
}

// UserID resolves the numeric identity the backend uses for the role.
func (r LoginResult) UserID(role models.Role) int64 {
	switch role {
	case models.RoleAgent:
		if r.AgentID != 0 {
			return r.AgentID
		}
	case models.RoleEmployee:
		if r.ID == 0 {
			if id, err := strconv.ParseInt(r.EmployeeID, 10, 64); err == nil {
				return id
			}
		}
	}
	return r.ID
}

var loginPaths = map[models.Role]string{
	models.RoleEmployee: "/auth/login",
	models.RoleAdmin:    "/admin/login",
	models.RoleAgent:    "/agent/login",
	models.RoleHR:       "/hr/login",
}

// Login authenticates against the role's login endpoint.
func (c *Client) Login(ctx context.Context, role models.Role, creds Credentials) (LoginResult, error) {
	path, ok := loginPaths[role]
	if !ok {
		return LoginResult{}, fmt.Errorf("backend: no login endpoint for role %q", role)
	}
	var result LoginResult
	if err := c.do(ctx, "login_"+role.String(), http.MethodPost, path, nil, creds, &result); err != nil {
		return LoginResult{}, err
	}
	if result.Token == "" {
		return LoginResult{}, &NetworkError{Endpoint: "login_" + role.String(), StatusCode: http.StatusOK, Message: "login response carried no token"}
	}
	return result, nil
}

// Registration is an employee self sign-up.
type Registration struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	EmployeeID string `json:"employeeId,omitempty"`
	Department string `json:"department,omitempty"`
}

// Register creates an employee account and returns the backend's message.
func (c *Client) Register(ctx context.Context, reg Registration) (string, error) {
	var message string
	err := c.do(ctx, "register", http.MethodPost, "/auth/register", nil, reg, &message)
	return message, err
}

// ForgotPassword asks the backend to email a reset link.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var message string
	err := c.do(ctx, "forgot_password", http.MethodPost, "/auth/forgot-password", nil, map[string]string{"email": email}, &message)
	return message, err
}

// ResetPassword sets a new password using the emailed reset token.
func (c *Client) ResetPassword(ctx context.Context, token, password string) (string, error) {
	var message string
	path := "/auth/reset-password/" + url.PathEscape(token)
	err := c.do(ctx, "reset_password", http.MethodPost, path, nil, map[string]string{"password": password}, &message)
	return message, err
}

// ListPolicies returns the policies visible to the signed-in employee.
func (c *Client) ListPolicies(ctx context.Context) ([]models.Policy, error) {
	var policies []models.Policy
	if err := c.do(ctx, "employee_policies", http.MethodGet, "/employee/policies", nil, nil, &policies); err != nil {
		return nil, err
	}
	return policies, nil
}

// ListClaims returns the employee's claims.
func (c *Client) ListClaims(ctx context.Context, employeeID int64) ([]models.Claim, error) {
	var claims []models.Claim
	if err := c.do(ctx, "employee_claims", http.MethodGet, "/employee/claims", idQuery("employeeId", employeeID), nil, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ClaimPayload is the body sent when filing or editing a claim.
type ClaimPayload struct {
	ID          int64           `json:"id,omitempty"`
	EmployeeID  int64           `json:"employeeId"`
	PolicyID    int64           `json:"policyId"`
	Title       string          `json:"title"`
	Type        string          `json:"claimType"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	ClaimDate   string          `json:"claimDate"`
	Documents   []string        `json:"documents,omitempty"`
}

// NewClaimPayload formats a claim for the backend's yyyy-mm-dd date contract.
func NewClaimPayload(id, employeeID, policyID int64, title, claimType string, amount decimal.Decimal, description string, date time.Time, documents []string) ClaimPayload {
	return ClaimPayload{
		ID:          id,
		EmployeeID:  employeeID,
		PolicyID:    policyID,
		Title:       title,
		Type:        claimType,
		Amount:      amount,
		Description: description,
		ClaimDate:   date.Format("2006-01-02"),
		Documents:   documents,
	}
}

// SubmitClaim files a new claim and returns the backend's copy.
func (c *Client) SubmitClaim(ctx context.Context, payload ClaimPayload) (models.Claim, error) {
	var claim models.Claim
	err := c.do(ctx, "employee_claims_submit", http.MethodPost, "/employee/claims", nil, payload, &claim)
	return claim, err
}

// UpdateClaim edits a pending claim and returns the backend's copy.
func (c *Client) UpdateClaim(ctx context.Context, payload ClaimPayload) (models.Claim, error) {
	var claim models.Claim
	err := c.do(ctx, "employee_claims_update", http.MethodPost, "/employee/claims/update", nil, payload, &claim)
	return claim, err
}

// ListQueries returns the employee's support queries.
func (c *Client) ListQueries(ctx context.Context, employeeID int64) ([]models.Query, error) {
	var queries []models.Query
	if err := c.do(ctx, "employee_queries", http.MethodGet, "/employee/queries", idQuery("employeeId", employeeID), nil, &queries); err != nil {
		return nil, err
	}
	return queries, nil
}

// QueryPayload is the body of a new support query.
type QueryPayload struct {
	EmployeeID int64  `json:"employeeId"`
	AgentID    int64  `json:"agentId"`
	QueryText  string `json:"queryText"`
	ClaimType  string `json:"claimType,omitempty"`
	PolicyID   int64  `json:"policyId,omitempty"`
}

// AskQuery files a support query with the chosen agent.
func (c *Client) AskQuery(ctx context.Context, payload QueryPayload) (models.Query, error) {
	var query models.Query
	err := c.do(ctx, "employee_queries_ask", http.MethodPost, "/employee/queries", nil, payload, &query)
	return query, err
}

// ListAgentAvailability returns every agent with their availability flag.
func (c *Client) ListAgentAvailability(ctx context.Context) ([]models.AgentAvailability, error) {
	var agents []models.AgentAvailability
	if err := c.do(ctx, "agent_availability", http.MethodGet, "/agent/availability/all", nil, nil, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// ListHRClaims returns the claims assigned to an HR reviewer.
func (c *Client) ListHRClaims(ctx context.Context, hrID int64) ([]models.Claim, error) {
	var claims []models.Claim
	if err := c.do(ctx, "hr_claims", http.MethodGet, "/hr/claims", idQuery("hrId", hrID), nil, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ApproveClaim records an approval. The returned claim is nil when the backend
// acknowledges without echoing the claim.
func (c *Client) ApproveClaim(ctx context.Context, claimID int64, remarks string) (*models.Claim, error) {
	return c.decideClaim(ctx, "hr_claims_approve", "/hr/claims/approve/"+pathID(claimID), remarks)
}

// RejectClaim records a rejection.
func (c *Client) RejectClaim(ctx context.Context, claimID int64, remarks string) (*models.Claim, error) {
	return c.decideClaim(ctx, "hr_claims_reject", "/hr/claims/reject/"+pathID(claimID), remarks)
}

func (c *Client) decideClaim(ctx context.Context, endpoint, path, remarks string) (*models.Claim, error) {
	var raw json.RawMessage
	if err := c.do(ctx, endpoint, http.MethodPost, path, nil, map[string]string{"remarks": remarks}, &raw); err != nil {
		return nil, err
	}
	return decodeEcho(endpoint, raw)
}

// ListFraudAlerts returns every backend-flagged claim.
func (c *Client) ListFraudAlerts(ctx context.Context) ([]models.FraudAlert, error) {
	var alerts []models.FraudAlert
	if err := c.do(ctx, "hr_fraud_alerts", http.MethodGet, "/hr/claims/fraud", nil, nil, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// ListAgentQueries returns the queries routed to an agent.
func (c *Client) ListAgentQueries(ctx context.Context, agentID int64) ([]models.Query, error) {
	var queries []models.Query
	if err := c.do(ctx, "agent_queries", http.MethodGet, "/agent/queries", idQuery("agentId", agentID), nil, &queries); err != nil {
		return nil, err
	}
	return queries, nil
}

// RespondQuery stores an agent's answer.
func (c *Client) RespondQuery(ctx context.Context, queryID int64, response string) (*models.Query, error) {
	var raw json.RawMessage
	path := "/agent/queries/" + pathID(queryID) + "/respond"
	if err := c.do(ctx, "agent_queries_respond", http.MethodPut, path, nil, map[string]string{"response": response}, &raw); err != nil {
		return nil, err
	}
	if !isObject(raw) {
		return nil, nil
	}
	var query models.Query
	if err := Decode(raw, &query); err != nil {
		return nil, &NetworkError{Endpoint: "agent_queries_respond", StatusCode: http.StatusOK, Err: err}
	}
	return &query, nil
}

// ListNotifications returns every notification addressed to the user.
func (c *Client) ListNotifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	var items []models.Notification
	path := "/notifications/user/" + pathID(userID)
	if err := c.do(ctx, "notifications", http.MethodGet, path, nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListUnreadNotifications returns the user's unread notifications.
func (c *Client) ListUnreadNotifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	var items []models.Notification
	path := "/notifications/user/" + pathID(userID) + "/unread"
	if err := c.do(ctx, "notifications_unread", http.MethodGet, path, nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// MarkNotificationRead acknowledges one notification.
func (c *Client) MarkNotificationRead(ctx context.Context, notificationID int64) error {
	path := "/notifications/" + pathID(notificationID) + "/read"
	return c.do(ctx, "notifications_read", http.MethodPut, path, nil, nil, nil)
}

// ListEmployees returns the employee directory.
func (c *Client) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	var employees []models.Employee
	if err := c.do(ctx, "employees", http.MethodGet, "/auth/employees", nil, nil, &employees); err != nil {
		return nil, err
	}
	return employees, nil
}

// ListHRUsers returns the HR directory.
func (c *Client) ListHRUsers(ctx context.Context) ([]models.HRUser, error) {
	var users []models.HRUser
	if err := c.do(ctx, "hr_users", http.MethodGet, "/hr", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func idQuery(key string, id int64) url.Values {
	if id == 0 {
		return nil
	}
	return url.Values{key: []string{pathID(id)}}
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func decodeEcho(endpoint string, raw json.RawMessage) (*models.Claim, error) {
	if !isObject(raw) {
		return nil, nil
	}
	var claim models.Claim
	if err := Decode(raw, &claim); err != nil {
		return nil, &NetworkError{Endpoint: endpoint, StatusCode: http.StatusOK, Err: err}
	}
	return &claim, nil
}
