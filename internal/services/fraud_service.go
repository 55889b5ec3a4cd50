package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insurai/portal/internal/models"
	apperrors "github.com/insurai/portal/pkg/errors"
)

// FraudFilter narrows the fraud alert list. Zero values match everything.
type FraudFilter struct {
	Status     string
	Flagged    *bool
	EmployeeID int64
	Search     string
}

// FraudAlertView is an alert with its reason list already split.
type FraudAlertView struct {
	models.FraudAlert
	Reasons []string `json:"reasons"`
}

// FraudSummary counts alerts by state.
type FraudSummary struct {
	Total         int             `json:"total"`
	Pending       int             `json:"pending"`
	Resolved      int             `json:"resolved"`
	Flagged       int             `json:"flagged"`
	FlaggedAmount decimal.Decimal `json:"flaggedAmount"`
}

// FraudAlerts is a filtered alert list plus a summary of the unfiltered set.
type FraudAlerts struct {
	Alerts  []FraudAlertView `json:"alerts"`
	Summary FraudSummary     `json:"summary"`
}

// FraudService reads backend fraud alerts.
type FraudService struct {
	backend Backend
}

// NewFraudService constructs a FraudService.
func NewFraudService(b Backend) (*FraudService, error) {
	if b == nil {
		return nil, errors.New("fraud service: backend is required")
	}
	return &FraudService{backend: b}, nil
}

// ParseFraudStatus validates a status filter value. Empty and "all" are accepted.
func ParseFraudStatus(value string) (string, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "", strings.EqualFold(value, "all"):
		return "", nil
	case strings.EqualFold(value, string(models.FraudPending)):
		return string(models.FraudPending), nil
	case strings.EqualFold(value, string(models.FraudResolved)):
		return string(models.FraudResolved), nil
	default:
		return "", apperrors.NewValidation("status must be Pending or Resolved").WithDetails(map[string]any{"field": "status"})
	}
}

// List returns alerts matching the filter, newest claim first.
func (s *FraudService) List(ctx context.Context, filter FraudFilter) (*FraudAlerts, error) {
	alerts, err := s.backend.ListFraudAlerts(ensureContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fraud service: list: %w", err)
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].ClaimDate.After(alerts[j].ClaimDate)
	})

	out := &FraudAlerts{Alerts: []FraudAlertView{}, Summary: SummarizeFraud(alerts)}
	for _, alert := range alerts {
		if !matchesFraudFilter(alert, filter) {
			continue
		}
		out.Alerts = append(out.Alerts, FraudAlertView{FraudAlert: alert, Reasons: alert.Reasons()})
	}
	return out, nil
}

// SummarizeFraud counts alerts by status and flag.
func SummarizeFraud(alerts []models.FraudAlert) FraudSummary {
	summary := FraudSummary{FlaggedAmount: decimal.Zero}
	for _, alert := range alerts {
		summary.Total++
		switch alert.Status {
		case models.FraudResolved:
			summary.Resolved++
		default:
			summary.Pending++
		}
		if alert.FraudFlag {
			summary.Flagged++
			summary.FlaggedAmount = summary.FlaggedAmount.Add(alert.Amount)
		}
	}
	return summary
}

func matchesFraudFilter(alert models.FraudAlert, filter FraudFilter) bool {
	if filter.Status != "" && !strings.EqualFold(string(alert.Status), filter.Status) {
		return false
	}
	if filter.Flagged != nil && alert.FraudFlag != *filter.Flagged {
		return false
	}
	if filter.EmployeeID != 0 && alert.EmployeeID != filter.EmployeeID {
		return false
	}
	if strings.TrimSpace(filter.Search) == "" {
		return true
	}
	return containsFold(alert.Title, filter.Search) ||
		containsFold(alert.PolicyName, filter.Search) ||
		containsFold(alert.FraudReason, filter.Search)
}
