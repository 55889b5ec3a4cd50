package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/insurai/portal/internal/backend"
	"github.com/insurai/portal/internal/claims"
	"github.com/insurai/portal/internal/models"
	apperrors "github.com/insurai/portal/pkg/errors"
	"github.com/insurai/portal/pkg/metrics"
)

// PolicyView is a policy annotated with what is left to claim against it.
type PolicyView struct {
	models.Policy
	RemainingCoverage decimal.Decimal `json:"remainingCoverage"`
}

// EmployeeDashboard is everything the employee landing page renders.
type EmployeeDashboard struct {
	Policies []PolicyView       `json:"policies"`
	Claims   []models.ClaimView `json:"claims"`
	Queries  []models.Query     `json:"queries"`
	Stats    claims.Stats       `json:"stats"`
}

// SubmitResult is the stored claim plus the employee's refreshed claim list.
type SubmitResult struct {
	Claim             models.Claim    `json:"claim"`
	Claims            []models.Claim  `json:"claims"`
	RemainingCoverage decimal.Decimal `json:"remainingCoverage"`
}

// AskQueryInput is a new support question for a chosen agent.
type AskQueryInput struct {
	AgentID   int64
	QueryText string
	ClaimType string
	PolicyID  int64
}

// EmployeeService implements the employee dashboard workflows.
type EmployeeService struct {
	backend Backend
	engine  *claims.Engine
}

// NewEmployeeService constructs an EmployeeService.
func NewEmployeeService(b Backend, engine *claims.Engine) (*EmployeeService, error) {
	if b == nil {
		return nil, errors.New("employee service: backend is required")
	}
	if engine == nil {
		return nil, errors.New("employee service: claims engine is required")
	}
	return &EmployeeService{backend: b, engine: engine}, nil
}

// Dashboard fetches policies, claims and queries concurrently and derives
// remaining coverage and claim statistics from them.
func (s *EmployeeService) Dashboard(ctx context.Context, principal models.Principal) (*EmployeeDashboard, error) {
	ctx = ensureContext(ctx)

	var (
		policies []models.Policy
		claimSet []models.Claim
		queries  []models.Query
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		policies, err = s.backend.ListPolicies(gctx)
		return err
	})
	g.Go(func() (err error) {
		claimSet, err = s.backend.ListClaims(gctx, principal.UserID)
		return err
	})
	g.Go(func() (err error) {
		queries, err = s.backend.ListQueries(gctx, principal.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("employee service: dashboard: %w", err)
	}

	sortQueries(queries)
	return &EmployeeDashboard{
		Policies: policyViews(policies, claimSet),
		Claims:   s.claimViews(claimSet, policies),
		Queries:  queries,
		Stats:    s.engine.AggregateStats(claimSet),
	}, nil
}

// Policies lists policies with their remaining coverage for the employee.
func (s *EmployeeService) Policies(ctx context.Context, principal models.Principal) ([]PolicyView, error) {
	policies, claimSet, err := s.policiesAndClaims(ensureContext(ctx), principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("employee service: policies: %w", err)
	}
	return policyViews(policies, claimSet), nil
}

// Claims lists the employee's claims newest first.
func (s *EmployeeService) Claims(ctx context.Context, principal models.Principal) ([]models.ClaimView, error) {
	policies, claimSet, err := s.policiesAndClaims(ensureContext(ctx), principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("employee service: claims: %w", err)
	}
	return s.claimViews(claimSet, policies), nil
}

// SubmitClaim validates a new or edited claim and forwards it only when the
// coverage check passes. The stored claim is merged into the returned list.
func (s *EmployeeService) SubmitClaim(ctx context.Context, principal models.Principal, sub claims.Submission) (*SubmitResult, error) {
	ctx = ensureContext(ctx)

	policies, existing, err := s.policiesAndClaims(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("employee service: submit claim: %w", err)
	}

	policy, _ := models.FindPolicy(policies, sub.PolicyID)
	if err := s.engine.ValidateSubmission(sub, policy, existing); err != nil {
		metrics.ClaimValidations.WithLabelValues("rejected").Inc()
		return nil, err
	}
	metrics.ClaimValidations.WithLabelValues("accepted").Inc()

	title := strings.TrimSpace(sub.Title)
	if title == "" {
		title = strings.TrimSpace(sub.Type)
	}
	payload := backend.NewClaimPayload(sub.ID, principal.UserID, sub.PolicyID, title, strings.TrimSpace(sub.Type),
		sub.Amount, strings.TrimSpace(sub.Description), sub.ClaimDate, sub.Documents)

	var stored models.Claim
	if sub.ID != 0 {
		stored, err = s.backend.UpdateClaim(ctx, payload)
	} else {
		stored, err = s.backend.SubmitClaim(ctx, payload)
	}
	if err != nil {
		return nil, fmt.Errorf("employee service: submit claim: %w", err)
	}
	stored = completeClaim(stored, sub, principal.UserID)

	merged := claims.MergeClaim(existing, stored)
	return &SubmitResult{
		Claim:             stored,
		Claims:            merged,
		RemainingCoverage: claims.RemainingCoverage(policy, merged),
	}, nil
}

// Queries lists the employee's support queries newest first.
func (s *EmployeeService) Queries(ctx context.Context, principal models.Principal) ([]models.Query, error) {
	queries, err := s.backend.ListQueries(ensureContext(ctx), principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("employee service: queries: %w", err)
	}
	sortQueries(queries)
	return queries, nil
}

// AvailableAgents returns agents currently accepting queries.
func (s *EmployeeService) AvailableAgents(ctx context.Context) ([]models.AgentAvailability, error) {
	agents, err := s.backend.ListAgentAvailability(ensureContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("employee service: agent availability: %w", err)
	}
	available := make([]models.AgentAvailability, 0, len(agents))
	for _, agent := range agents {
		if agent.Available {
			available = append(available, agent)
		}
	}
	return available, nil
}

// AskQuery raises a support query. The chosen agent must currently be available.
func (s *EmployeeService) AskQuery(ctx context.Context, principal models.Principal, input AskQueryInput) (models.Query, error) {
	ctx = ensureContext(ctx)

	text := strings.TrimSpace(input.QueryText)
	if err := requireText("queryText", text); err != nil {
		return models.Query{}, err
	}
	if input.AgentID == 0 {
		return models.Query{}, requiredField("agentId")
	}

	agents, err := s.AvailableAgents(ctx)
	if err != nil {
		return models.Query{}, err
	}
	if !agentAvailable(agents, input.AgentID) {
		return models.Query{}, apperrors.NewValidation("selected agent is not available").
			WithDetails(map[string]any{"field": "agentId"})
	}

	query, err := s.backend.AskQuery(ctx, backend.QueryPayload{
		EmployeeID: principal.UserID,
		AgentID:    input.AgentID,
		QueryText:  text,
		ClaimType:  strings.TrimSpace(input.ClaimType),
		PolicyID:   input.PolicyID,
	})
	if err != nil {
		return models.Query{}, fmt.Errorf("employee service: ask query: %w", err)
	}
	if query.QueryText == "" {
		query.QueryText = text
	}
	if query.AgentID == 0 {
		query.AgentID = input.AgentID
	}
	if query.EmployeeID == 0 {
		query.EmployeeID = principal.UserID
	}
	return query, nil
}

func (s *EmployeeService) policiesAndClaims(ctx context.Context, employeeID int64) ([]models.Policy, []models.Claim, error) {
	var (
		policies []models.Policy
		claimSet []models.Claim
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		policies, err = s.backend.ListPolicies(gctx)
		return err
	})
	g.Go(func() (err error) {
		claimSet, err = s.backend.ListClaims(gctx, employeeID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return policies, claimSet, nil
}

func (s *EmployeeService) claimViews(claimSet []models.Claim, policies []models.Policy) []models.ClaimView {
	sorted := sortedClaims(claimSet)
	views := make([]models.ClaimView, 0, len(sorted))
	for _, claim := range sorted {
		view := models.ClaimView{Claim: claim, Priority: s.engine.Priority(claim)}
		if policy, ok := models.FindPolicy(policies, claim.PolicyID); ok {
			view.PolicyName = policy.Name
		}
		views = append(views, view)
	}
	return views
}

func policyViews(policies []models.Policy, claimSet []models.Claim) []PolicyView {
	views := make([]PolicyView, 0, len(policies))
	for _, policy := range policies {
		views = append(views, PolicyView{
			Policy:            policy,
			RemainingCoverage: claims.RemainingCoverage(policy, claimSet),
		})
	}
	return views
}

// completeClaim fills fields the backend did not echo from what was submitted.
func completeClaim(stored models.Claim, sub claims.Submission, employeeID int64) models.Claim {
	if stored.ID == 0 {
		stored.ID = sub.ID
	}
	if stored.PolicyID == 0 {
		stored.PolicyID = sub.PolicyID
	}
	if stored.EmployeeID == 0 {
		stored.EmployeeID = employeeID
	}
	if stored.Type == "" {
		stored.Type = strings.TrimSpace(sub.Type)
	}
	if stored.Title == "" {
		stored.Title = strings.TrimSpace(sub.Title)
	}
	if stored.Amount.IsZero() {
		stored.Amount = sub.Amount
	}
	if stored.Description == "" {
		stored.Description = strings.TrimSpace(sub.Description)
	}
	if stored.ClaimDate.IsZero() {
		stored.ClaimDate = sub.ClaimDate
	}
	if stored.Status == "" {
		stored.Status = models.ClaimPending
	}
	return stored
}

func agentAvailable(agents []models.AgentAvailability, agentID int64) bool {
	for _, agent := range agents {
		if agent.AgentID == agentID && agent.Available {
			return true
		}
	}
	return false
}

func sortedClaims(claimSet []models.Claim) []models.Claim {
	sorted := make([]models.Claim, len(claimSet))
	copy(sorted, claimSet)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ClaimDate.After(sorted[j].ClaimDate)
	})
	return sorted
}

func sortQueries(queries []models.Query) {
	sort.SliceStable(queries, func(i, j int) bool {
		return queries[i].CreatedAt.After(queries[j].CreatedAt)
	})
}
