package claims

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insurai/portal/internal/models"
)

// Thresholds configures the amount cutoffs used by the engine. Priority drives
// the High badge and the high-priority count; FraudHighAmount drives the
// high-amount ratio of the fraud risk score.
type Thresholds struct {
	Priority        decimal.Decimal
	FraudHighAmount decimal.Decimal
	RecentWindow    time.Duration
}

// DefaultThresholds returns the canonical 100k cutoffs and a 30 day recency window.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Priority:        decimal.NewFromInt(100000),
		FraudHighAmount: decimal.NewFromInt(100000),
		RecentWindow:    30 * 24 * time.Hour,
	}
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for recency calculations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine applies the claim rules: coverage validation, the HR decision state
// machine and the derived dashboard statistics. It holds no claim state.
type Engine struct {
	thresholds Thresholds
	now        func() time.Time
}

// NewEngine constructs an Engine. Zero thresholds fall back to the defaults.
func NewEngine(thresholds Thresholds, opts ...Option) *Engine {
	defaults := DefaultThresholds()
	if !thresholds.Priority.IsPositive() {
		thresholds.Priority = defaults.Priority
	}
	if !thresholds.FraudHighAmount.IsPositive() {
		thresholds.FraudHighAmount = defaults.FraudHighAmount
	}
	if thresholds.RecentWindow <= 0 {
		thresholds.RecentWindow = defaults.RecentWindow
	}

	engine := &Engine{thresholds: thresholds, now: time.Now}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Thresholds returns the active configuration.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// RemainingCoverage returns the policy's coverage minus every approved claim
// filed against it. A missing or non-positive coverage counts as zero.
func RemainingCoverage(policy models.Policy, claims []models.Claim) decimal.Decimal {
	return remainingExcluding(policy, claims, 0)
}

func remainingExcluding(policy models.Policy, claims []models.Claim, excludeID int64) decimal.Decimal {
	coverage := policy.CoverageAmount
	if coverage.IsNegative() {
		coverage = decimal.Zero
	}

	approved := decimal.Zero
	for _, claim := range claims {
		if claim.PolicyID != policy.ID || claim.Status != models.ClaimApproved {
			continue
		}
		if excludeID != 0 && claim.ID == excludeID {
			continue
		}
		approved = approved.Add(claim.Amount)
	}
	return coverage.Sub(approved)
}

// Submission is a new claim or an edit of an existing one (ID set).
type Submission struct {
	ID          int64           `json:"id"`
	PolicyID    int64           `json:"policyId"`
	Title       string          `json:"title"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	ClaimDate   time.Time       `json:"claimDate"`
	Documents   []string        `json:"documents,omitempty"`
}

// ValidateSubmission checks required fields and the coverage ceiling. Edits
// exclude the edited claim from the approved sum and are only allowed while
// the claim is still Pending.
func (e *Engine) ValidateSubmission(sub Submission, policy models.Policy, existing []models.Claim) error {
	switch {
	case strings.TrimSpace(sub.Type) == "":
		return required("type")
	case sub.Amount.IsZero():
		return required("amount")
	case sub.ClaimDate.IsZero():
		return required("claimDate")
	case strings.TrimSpace(sub.Description) == "":
		return required("description")
	case sub.PolicyID == 0:
		return required("policyId")
	}

	if !sub.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "amount must be a positive number"}
	}
	if policy.ID != sub.PolicyID {
		return &ValidationError{Field: "policyId", Reason: "policy not found"}
	}

	if sub.ID != 0 {
		original, ok := findClaim(existing, sub.ID)
		if !ok {
			return &ValidationError{Field: "id", Reason: "claim not found"}
		}
		if original.Status != models.ClaimPending {
			return &ValidationError{Field: "status", Reason: "only pending claims can be edited"}
		}
	}

	remaining := remainingExcluding(policy, existing, sub.ID)
	if sub.Amount.GreaterThan(remaining) {
		return &ValidationError{
			Field:             "amount",
			Reason:            "amount exceeds remaining coverage",
			RemainingCoverage: &remaining,
		}
	}
	return nil
}

// CanModify reports whether the caller may decide the claim.
func CanModify(claim models.Claim, callerID int64) bool {
	return claim.Status == models.ClaimPending && callerID != 0 && claim.AssignedHRID == callerID
}

// Transition moves a Pending claim to Approved or Rejected. Assignment is
// checked before remarks so an unassigned caller always sees AuthorizationError.
func (e *Engine) Transition(claim models.Claim, callerID int64, target models.ClaimStatus, remarks string) (models.Claim, error) {
	if claim.AssignedHRID != callerID {
		return claim, &AuthorizationError{ClaimID: claim.ID, CallerID: callerID}
	}
	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		return claim, &ValidationError{Field: "remarks", Reason: "remarks required"}
	}
	if target != models.ClaimApproved && target != models.ClaimRejected {
		return claim, &ValidationError{Field: "status", Reason: "unsupported target status " + string(target)}
	}
	if claim.Status != models.ClaimPending {
		return claim, &ValidationError{Field: "status", Reason: "claim is already " + strings.ToLower(string(claim.Status))}
	}

	claim.Status = target
	claim.Remarks = remarks
	claim.UpdatedAt = e.now()
	return claim, nil
}

// BulkResult is the outcome of one claim in a bulk decision.
type BulkResult struct {
	ID    int64        `json:"id"`
	Claim models.Claim `json:"claim"`
	Err   error        `json:"-"`
}

// OK reports whether the claim transitioned.
func (r BulkResult) OK() bool {
	return r.Err == nil
}

// BulkTransition applies Transition independently to each selected id and
// reports every outcome, including ids that are not in the collection.
func (e *Engine) BulkTransition(claims []models.Claim, ids []int64, callerID int64, target models.ClaimStatus, remarks string) []BulkResult {
	results := make([]BulkResult, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		claim, ok := findClaim(claims, id)
		if !ok {
			results = append(results, BulkResult{ID: id, Err: &ValidationError{Field: "id", Reason: "claim not found"}})
			continue
		}
		updated, err := e.Transition(claim, callerID, target, remarks)
		results = append(results, BulkResult{ID: id, Claim: updated, Err: err})
	}
	return results
}

// Priority classifies a claim as High or Normal.
func (e *Engine) Priority(claim models.Claim) string {
	if claim.Amount.GreaterThan(e.thresholds.Priority) {
		return "High"
	}
	return "Normal"
}

// Stats are the aggregate dashboard figures for a claim collection.
type Stats struct {
	Total         int             `json:"total"`
	Approved      int             `json:"approved"`
	Pending       int             `json:"pending"`
	Rejected      int             `json:"rejected"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	AvgAmount     decimal.Decimal `json:"avgAmount"`
	PendingAmount decimal.Decimal `json:"pendingAmount"`
	HighPriority  int             `json:"highPriority"`
	ApprovalRate  int             `json:"approvalRate"`
}

// AggregateStats reduces the claims to counts, sums and the approval rate.
func (e *Engine) AggregateStats(claims []models.Claim) Stats {
	stats := Stats{
		TotalAmount:   decimal.Zero,
		AvgAmount:     decimal.Zero,
		PendingAmount: decimal.Zero,
	}
	for _, claim := range claims {
		stats.Total++
		stats.TotalAmount = stats.TotalAmount.Add(claim.Amount)
		switch claim.Status {
		case models.ClaimApproved:
			stats.Approved++
		case models.ClaimRejected:
			stats.Rejected++
		case models.ClaimPending:
			stats.Pending++
			stats.PendingAmount = stats.PendingAmount.Add(claim.Amount)
		}
		if claim.Amount.GreaterThan(e.thresholds.Priority) {
			stats.HighPriority++
		}
	}
	if stats.Total == 0 {
		return stats
	}

	stats.AvgAmount = stats.TotalAmount.Div(decimal.NewFromInt(int64(stats.Total))).Round(2)
	stats.ApprovalRate = int(math.Round(float64(stats.Approved) / float64(stats.Total) * 100))
	return stats
}

// FraudRiskScore is a 0-100 display heuristic: half weighted on the share of
// high-amount claims and half on the share filed within the recent window.
func (e *Engine) FraudRiskScore(claims []models.Claim) int {
	if len(claims) == 0 {
		return 0
	}

	cutoff := e.now().Add(-e.thresholds.RecentWindow)
	var high, recent int
	for _, claim := range claims {
		if claim.Amount.GreaterThan(e.thresholds.FraudHighAmount) {
			high++
		}
		if !claim.ClaimDate.IsZero() && !claim.ClaimDate.Before(cutoff) {
			recent++
		}
	}

	total := float64(len(claims))
	score := int(math.Round(float64(high)/total*50 + float64(recent)/total*50))
	if score > 100 {
		score = 100
	}
	return score
}

// MergeClaim folds the backend's authoritative claim into the collection:
// a new id is prepended and a known id is replaced in place.
func MergeClaim(collection []models.Claim, claim models.Claim) []models.Claim {
	for i := range collection {
		if collection[i].ID == claim.ID {
			merged := make([]models.Claim, len(collection))
			copy(merged, collection)
			merged[i] = claim
			return merged
		}
	}
	merged := make([]models.Claim, 0, len(collection)+1)
	merged = append(merged, claim)
	return append(merged, collection...)
}

func findClaim(claims []models.Claim, id int64) (models.Claim, bool) {
	for _, claim := range claims {
		if claim.ID == id {
			return claim, true
		}
	}
	return models.Claim{}, false
}
