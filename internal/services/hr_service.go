package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/insurai/portal/internal/claims"
	"github.com/insurai/portal/internal/models"
	apperrors "github.com/insurai/portal/pkg/errors"
	"github.com/insurai/portal/pkg/logger"
	"github.com/insurai/portal/pkg/metrics"
)

const defaultDecisionConcurrency = 4

// HRClaimFilter narrows the HR claim list.
type HRClaimFilter struct {
	Status string
	Search string
}

// HRClaims is the HR review screen: joined claim rows plus derived figures.
type HRClaims struct {
	Claims         []models.ClaimView `json:"claims"`
	Stats          claims.Stats       `json:"stats"`
	FraudRiskScore int                `json:"fraudRiskScore"`
	Joined         bool               `json:"joined"`
}

// DecisionResult is the outcome of one claim in a bulk decision.
type DecisionResult struct {
	ID      int64         `json:"id"`
	Success bool          `json:"success"`
	Claim   *models.Claim `json:"claim,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// ParseDecision maps approve/reject (or the status names) to a target status.
func ParseDecision(value string) (models.ClaimStatus, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "approve", "approved":
		return models.ClaimApproved, nil
	case "reject", "rejected":
		return models.ClaimRejected, nil
	default:
		return "", apperrors.NewValidation("decision must be approve or reject").WithDetails(map[string]any{"field": "decision"})
	}
}

// HRService implements claim review for HR reviewers.
type HRService struct {
	backend     Backend
	engine      *claims.Engine
	concurrency int
}

// NewHRService constructs an HRService.
func NewHRService(b Backend, engine *claims.Engine) (*HRService, error) {
	if b == nil {
		return nil, errors.New("hr service: backend is required")
	}
	if engine == nil {
		return nil, errors.New("hr service: claims engine is required")
	}
	return &HRService{backend: b, engine: engine, concurrency: defaultDecisionConcurrency}, nil
}

// Claims lists the claims assigned to the reviewer. Employee and policy names
// are joined in only when both directories could be fetched and are non-empty;
// otherwise rows are returned without them.
func (s *HRService) Claims(ctx context.Context, principal models.Principal, filter HRClaimFilter) (*HRClaims, error) {
	ctx = ensureContext(ctx)
	log := logger.WithPrincipal("hr", principal.Role.String(), principal.UserID)

	var (
		claimSet  []models.Claim
		employees []models.Employee
		policies  []models.Policy
		mu        sync.Mutex
		partial   error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		claimSet, err = s.backend.ListHRClaims(gctx, principal.UserID)
		return err
	})
	g.Go(func() error {
		list, err := s.backend.ListEmployees(gctx)
		mu.Lock()
		employees, partial = list, multierr.Append(partial, err)
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		list, err := s.backend.ListPolicies(gctx)
		mu.Lock()
		policies, partial = list, multierr.Append(partial, err)
		mu.Unlock()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("hr service: claims: %w", err)
	}
	if partial != nil {
		log.Warn("claim directory join skipped", zap.Error(partial))
	}

	joined := partial == nil && len(claimSet) > 0 && len(employees) > 0 && len(policies) > 0
	views := make([]models.ClaimView, 0, len(claimSet))
	for _, claim := range sortedClaims(claimSet) {
		view := models.ClaimView{
			Claim:     claim,
			CanModify: claims.CanModify(claim, principal.UserID),
			Priority:  s.engine.Priority(claim),
		}
		if joined {
			view.EmployeeName = employeeName(employees, claim.EmployeeID)
			if policy, ok := models.FindPolicy(policies, claim.PolicyID); ok {
				view.PolicyName = policy.Name
			}
		}
		if !matchesClaimFilter(view, filter) {
			continue
		}
		views = append(views, view)
	}

	return &HRClaims{
		Claims:         views,
		Stats:          s.engine.AggregateStats(claimSet),
		FraudRiskScore: s.engine.FraudRiskScore(claimSet),
		Joined:         joined,
	}, nil
}

// Decide approves or rejects one claim. The engine checks assignment and
// remarks before anything is sent to the backend.
func (s *HRService) Decide(ctx context.Context, principal models.Principal, claimID int64, target models.ClaimStatus, remarks string) (models.Claim, error) {
	ctx = ensureContext(ctx)

	claimSet, err := s.backend.ListHRClaims(ctx, principal.UserID)
	if err != nil {
		return models.Claim{}, fmt.Errorf("hr service: decide: %w", err)
	}
	claim, ok := lookupClaim(claimSet, claimID)
	if !ok {
		return models.Claim{}, apperrors.New(apperrors.ErrNotFound.Code, "claim not found", apperrors.ErrNotFound.StatusCode)
	}

	updated, err := s.engine.Transition(claim, principal.UserID, target, remarks)
	if err != nil {
		metrics.ClaimDecisions.WithLabelValues(decisionLabel(target), "rejected").Inc()
		return models.Claim{}, err
	}
	return s.forward(ctx, updated)
}

// BulkDecide applies the same decision to each selected claim independently
// and reports every outcome. The returned error combines the failures.
func (s *HRService) BulkDecide(ctx context.Context, principal models.Principal, ids []int64, target models.ClaimStatus, remarks string) ([]DecisionResult, error) {
	ctx = ensureContext(ctx)

	ids = normaliseIDs(ids)
	if len(ids) == 0 {
		return nil, requiredField("ids")
	}

	claimSet, err := s.backend.ListHRClaims(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("hr service: bulk decide: %w", err)
	}

	planned := s.engine.BulkTransition(claimSet, ids, principal.UserID, target, remarks)
	results := make([]DecisionResult, len(planned))
	errs := make([]error, len(planned))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, item := range planned {
		results[i] = DecisionResult{ID: item.ID}
		if !item.OK() {
			metrics.ClaimDecisions.WithLabelValues(decisionLabel(target), "rejected").Inc()
			results[i].Error = apperrors.FromError(item.Err).Message
			errs[i] = fmt.Errorf("claim %d: %w", item.ID, item.Err)
			continue
		}
		i, item := i, item
		g.Go(func() error {
			stored, err := s.forward(gctx, item.Claim)
			if err != nil {
				results[i].Error = apperrors.FromError(err).Message
				errs[i] = fmt.Errorf("claim %d: %w", item.ID, err)
				return nil
			}
			results[i].Success = true
			results[i].Claim = &stored
			return nil
		})
	}
	_ = g.Wait()

	return results, multierr.Combine(errs...)
}

// forward sends a transitioned claim to the backend. A backend that does not
// echo the claim leaves the locally transitioned copy authoritative.
func (s *HRService) forward(ctx context.Context, claim models.Claim) (models.Claim, error) {
	var (
		echoed *models.Claim
		err    error
	)
	switch claim.Status {
	case models.ClaimApproved:
		echoed, err = s.backend.ApproveClaim(ctx, claim.ID, claim.Remarks)
	case models.ClaimRejected:
		echoed, err = s.backend.RejectClaim(ctx, claim.ID, claim.Remarks)
	default:
		return models.Claim{}, fmt.Errorf("hr service: cannot forward %s claim", claim.Status)
	}
	if err != nil {
		metrics.ClaimDecisions.WithLabelValues(decisionLabel(claim.Status), "failed").Inc()
		return models.Claim{}, fmt.Errorf("hr service: forward decision: %w", err)
	}
	metrics.ClaimDecisions.WithLabelValues(decisionLabel(claim.Status), "ok").Inc()

	if echoed == nil || echoed.ID == 0 {
		return claim, nil
	}
	stored := *echoed
	if stored.Status == "" {
		stored.Status = claim.Status
	}
	if stored.Remarks == "" {
		stored.Remarks = claim.Remarks
	}
	if stored.AssignedHRID == 0 {
		stored.AssignedHRID = claim.AssignedHRID
	}
	return stored, nil
}

// FraudRiskScore computes the heuristic score over the reviewer's claims.
func (s *HRService) FraudRiskScore(ctx context.Context, principal models.Principal) (int, error) {
	claimSet, err := s.backend.ListHRClaims(ensureContext(ctx), principal.UserID)
	if err != nil {
		return 0, fmt.Errorf("hr service: fraud risk score: %w", err)
	}
	return s.engine.FraudRiskScore(claimSet), nil
}

func decisionLabel(status models.ClaimStatus) string {
	return strings.ToLower(string(status))
}

func lookupClaim(claimSet []models.Claim, id int64) (models.Claim, bool) {
	for _, claim := range claimSet {
		if claim.ID == id {
			return claim, true
		}
	}
	return models.Claim{}, false
}

func employeeName(employees []models.Employee, id int64) string {
	for _, employee := range employees {
		if employee.ID == id {
			return employee.Name
		}
	}
	return ""
}

func matchesClaimFilter(view models.ClaimView, filter HRClaimFilter) bool {
	if status := strings.TrimSpace(filter.Status); status != "" && !strings.EqualFold(status, "all") {
		if !strings.EqualFold(string(view.Status), status) {
			return false
		}
	}
	search := strings.TrimSpace(filter.Search)
	if search == "" {
		return true
	}
	return containsFold(view.Title, search) ||
		containsFold(view.Type, search) ||
		containsFold(view.EmployeeName, search) ||
		containsFold(view.PolicyName, search)
}
