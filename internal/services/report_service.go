package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/insurai/portal/internal/claims"
	"github.com/insurai/portal/internal/models"
	"github.com/insurai/portal/internal/reports"
	apperrors "github.com/insurai/portal/pkg/errors"
	"github.com/insurai/portal/pkg/metrics"
)

// DefaultReportHistory is how many report descriptors each user keeps.
const DefaultReportHistory = 10

// ReportKind names a report a role can export.
type ReportKind string

const (
	ReportClaims    ReportKind = "claims"
	ReportPolicies  ReportKind = "policies"
	ReportFraud     ReportKind = "fraud"
	ReportQueries   ReportKind = "queries"
	ReportEmployees ReportKind = "employees"
)

var reportKindsByRole = map[models.Role][]ReportKind{
	models.RoleEmployee: {ReportClaims, ReportPolicies, ReportQueries},
	models.RoleHR:       {ReportClaims, ReportFraud},
	models.RoleAdmin:    {ReportPolicies, ReportFraud, ReportEmployees},
	models.RoleAgent:    {ReportQueries},
}

// ReportKinds lists the kinds the role may export.
func ReportKinds(role models.Role) []ReportKind {
	return reportKindsByRole[role]
}

// GenerateReportInput selects what to export.
type GenerateReportInput struct {
	Kind   string
	Format string
	Status string
}

// GeneratedReport is a rendered export plus its stored history descriptor.
type GeneratedReport struct {
	Record      models.ReportRecord
	FileName    string
	ContentType string
	Content     []byte
}

// ReportSources are the role workflows a report reads its rows from.
type ReportSources struct {
	Employee *EmployeeService
	HR       *HRService
	Agent    *AgentService
	Admin    *AdminService
	Fraud    *FraudService
}

// ReportService renders role reports and keeps each user's recent history.
type ReportService struct {
	db      *gorm.DB
	sources ReportSources
	engine  *claims.Engine
	limit   int
	now     func() time.Time
}

// NewReportService constructs a ReportService. A non-positive limit keeps
// DefaultReportHistory descriptors per user.
func NewReportService(db *gorm.DB, engine *claims.Engine, sources ReportSources, limit int) (*ReportService, error) {
	if db == nil {
		return nil, errors.New("report service: db is required")
	}
	if engine == nil {
		return nil, errors.New("report service: claims engine is required")
	}
	if limit <= 0 {
		limit = DefaultReportHistory
	}
	return &ReportService{db: db, sources: sources, engine: engine, limit: limit, now: time.Now}, nil
}

// WithClock overrides the time source used for history timestamps.
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	if now != nil {
		s.now = now
	}
	return s
}

// Generate renders the requested report for the principal and records it in
// the principal's history.
func (s *ReportService) Generate(ctx context.Context, principal models.Principal, input GenerateReportInput) (*GeneratedReport, error) {
	ctx = ensureContext(ctx)

	kind := ReportKind(strings.ToLower(strings.TrimSpace(input.Kind)))
	if !s.allowed(principal.Role, kind) {
		return nil, apperrors.NewValidation(fmt.Sprintf("%s reports are not available to the %s role", kind, principal.Role)).
			WithDetails(map[string]any{"field": "kind"})
	}
	format, err := reports.ParseFormat(input.Format)
	if err != nil {
		return nil, apperrors.NewValidation("format must be csv or pdf").WithDetails(map[string]any{"field": "format"})
	}

	report, err := s.build(ctx, principal, kind, strings.TrimSpace(input.Status))
	if err != nil {
		return nil, err
	}
	report.GeneratedAt = s.now().UTC()

	var buf bytes.Buffer
	switch format {
	case reports.FormatPDF:
		err = reports.WritePDF(&buf, report)
	default:
		err = reports.WriteCSV(&buf, report)
	}
	if err != nil {
		return nil, fmt.Errorf("report service: render: %w", err)
	}

	record := models.ReportRecord{
		BaseModel: models.BaseModel{CreatedAt: report.GeneratedAt},
		OwnerRole: principal.Role.String(),
		OwnerID:   principal.UserID,
		Kind:      string(kind),
		Format:    string(format),
		FileName:  report.FileName(string(kind), format),
		RowCount:  len(report.Rows),
	}
	if status := strings.TrimSpace(input.Status); status != "" {
		record.Filters = mustJSON(map[string]string{"status": status})
	}
	record.Summary = mustJSON(report.Summary)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return trimOwner(tx, record.OwnerRole, record.OwnerID, s.limit)
	})
	if err != nil {
		return nil, fmt.Errorf("report service: record history: %w", err)
	}
	metrics.ReportsGenerated.WithLabelValues(string(kind), string(format)).Inc()

	return &GeneratedReport{
		Record:      record,
		FileName:    record.FileName,
		ContentType: format.ContentType(),
		Content:     buf.Bytes(),
	}, nil
}

// History returns the principal's most recent report descriptors, newest first.
func (s *ReportService) History(ctx context.Context, principal models.Principal) ([]models.ReportRecord, error) {
	var records []models.ReportRecord
	err := s.db.WithContext(ensureContext(ctx)).
		Where("owner_role = ? AND owner_id = ?", principal.Role.String(), principal.UserID).
		Order("created_at DESC").
		Limit(s.limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("report service: history: %w", err)
	}
	return records, nil
}

// ClearHistory removes every descriptor owned by the principal.
func (s *ReportService) ClearHistory(ctx context.Context, principal models.Principal) (int64, error) {
	result := s.db.WithContext(ensureContext(ctx)).
		Where("owner_role = ? AND owner_id = ?", principal.Role.String(), principal.UserID).
		Delete(&models.ReportRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("report service: clear history: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// TrimHistory enforces the per-user limit across every owner.
func (s *ReportService) TrimHistory(ctx context.Context) (int64, error) {
	type owner struct {
		OwnerRole string
		OwnerID   int64
	}
	var owners []owner
	db := s.db.WithContext(ensureContext(ctx))
	if err := db.Model(&models.ReportRecord{}).
		Select("owner_role, owner_id").
		Group("owner_role, owner_id").
		Having("COUNT(*) > ?", s.limit).
		Scan(&owners).Error; err != nil {
		return 0, fmt.Errorf("report service: find owners: %w", err)
	}

	var before, after int64
	if err := db.Model(&models.ReportRecord{}).Count(&before).Error; err != nil {
		return 0, fmt.Errorf("report service: count history: %w", err)
	}
	for _, o := range owners {
		if err := trimOwner(db, o.OwnerRole, o.OwnerID, s.limit); err != nil {
			return 0, fmt.Errorf("report service: trim history: %w", err)
		}
	}
	if err := db.Model(&models.ReportRecord{}).Count(&after).Error; err != nil {
		return 0, fmt.Errorf("report service: count history: %w", err)
	}
	return before - after, nil
}

func trimOwner(db *gorm.DB, role string, ownerID int64, limit int) error {
	var ids []string
	if err := db.Model(&models.ReportRecord{}).
		Where("owner_role = ? AND owner_id = ?", role, ownerID).
		Order("created_at DESC").
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) <= limit {
		return nil
	}
	return db.Where("id IN ?", ids[limit:]).Delete(&models.ReportRecord{}).Error
}

func (s *ReportService) allowed(role models.Role, kind ReportKind) bool {
	for _, candidate := range reportKindsByRole[role] {
		if candidate == kind {
			return true
		}
	}
	return false
}

func (s *ReportService) build(ctx context.Context, principal models.Principal, kind ReportKind, status string) (reports.Report, error) {
	switch kind {
	case ReportClaims:
		return s.claimsReport(ctx, principal, status)
	case ReportPolicies:
		return s.policiesReport(ctx, principal)
	case ReportFraud:
		return s.fraudReport(ctx, status)
	case ReportQueries:
		return s.queriesReport(ctx, principal)
	case ReportEmployees:
		return s.employeesReport(ctx)
	}
	return reports.Report{}, fmt.Errorf("report service: unknown kind %q", kind)
}

func (s *ReportService) claimsReport(ctx context.Context, principal models.Principal, status string) (reports.Report, error) {
	var views []models.ClaimView
	switch principal.Role {
	case models.RoleHR:
		if s.sources.HR == nil {
			return reports.Report{}, errors.New("report service: hr source not configured")
		}
		result, err := s.sources.HR.Claims(ctx, principal, HRClaimFilter{Status: status})
		if err != nil {
			return reports.Report{}, err
		}
		views = result.Claims
	default:
		if s.sources.Employee == nil {
			return reports.Report{}, errors.New("report service: employee source not configured")
		}
		all, err := s.sources.Employee.Claims(ctx, principal)
		if err != nil {
			return reports.Report{}, err
		}
		for _, view := range all {
			if matchesClaimFilter(view, HRClaimFilter{Status: status}) {
				views = append(views, view)
			}
		}
	}

	report := reports.Report{
		Title:   "Claims Report",
		Columns: []string{"Claim ID", "Title", "Type", "Employee", "Policy", "Amount", "Claim Date", "Status", "Priority", "Remarks"},
	}
	selected := make([]models.Claim, 0, len(views))
	for _, view := range views {
		selected = append(selected, view.Claim)
		report.Rows = append(report.Rows, []string{
			strconv.FormatInt(view.ID, 10),
			view.Title,
			view.Type,
			firstNonEmpty(view.EmployeeName, strconv.FormatInt(view.EmployeeID, 10)),
			firstNonEmpty(view.PolicyName, strconv.FormatInt(view.PolicyID, 10)),
			view.Amount.StringFixed(2),
			formatDate(view.ClaimDate),
			string(view.Status),
			view.Priority,
			view.Remarks,
		})
	}

	stats := s.engine.AggregateStats(selected)
	report.Summary = []reports.SummaryItem{
		{Label: "Total claims", Value: strconv.Itoa(stats.Total)},
		{Label: "Approved", Value: strconv.Itoa(stats.Approved)},
		{Label: "Pending", Value: strconv.Itoa(stats.Pending)},
		{Label: "Rejected", Value: strconv.Itoa(stats.Rejected)},
		{Label: "Total amount", Value: stats.TotalAmount.StringFixed(2)},
		{Label: "Average amount", Value: stats.AvgAmount.StringFixed(2)},
		{Label: "Pending amount", Value: stats.PendingAmount.StringFixed(2)},
		{Label: "High priority", Value: strconv.Itoa(stats.HighPriority)},
		{Label: "Approval rate", Value: strconv.Itoa(stats.ApprovalRate) + "%"},
	}
	if principal.Role == models.RoleHR {
		report.Summary = append(report.Summary, reports.SummaryItem{
			Label: "Fraud risk score", Value: strconv.Itoa(s.engine.FraudRiskScore(selected)),
		})
	}
	return report, nil
}

func (s *ReportService) policiesReport(ctx context.Context, principal models.Principal) (reports.Report, error) {
	var views []PolicyView
	switch principal.Role {
	case models.RoleEmployee:
		if s.sources.Employee == nil {
			return reports.Report{}, errors.New("report service: employee source not configured")
		}
		list, err := s.sources.Employee.Policies(ctx, principal)
		if err != nil {
			return reports.Report{}, err
		}
		views = list
	default:
		if s.sources.Admin == nil {
			return reports.Report{}, errors.New("report service: admin source not configured")
		}
		list, err := s.sources.Admin.Policies(ctx)
		if err != nil {
			return reports.Report{}, err
		}
		for _, policy := range list {
			views = append(views, PolicyView{Policy: policy, RemainingCoverage: policy.CoverageAmount})
		}
	}

	report := reports.Report{
		Title:   "Policies Report",
		Columns: []string{"Policy ID", "Name", "Provider", "Type", "Coverage", "Remaining", "Monthly Premium", "Renewal Date", "Status"},
	}
	var active int
	for _, view := range views {
		if view.Status == models.PolicyActive {
			active++
		}
		report.Rows = append(report.Rows, []string{
			strconv.FormatInt(view.ID, 10),
			view.Name,
			view.Provider,
			view.PolicyType,
			view.CoverageAmount.StringFixed(2),
			view.RemainingCoverage.StringFixed(2),
			view.MonthlyPremium.StringFixed(2),
			formatDate(view.RenewalDate),
			string(view.Status),
		})
	}
	report.Summary = []reports.SummaryItem{
		{Label: "Total policies", Value: strconv.Itoa(len(views))},
		{Label: "Active policies", Value: strconv.Itoa(active)},
	}
	return report, nil
}

func (s *ReportService) fraudReport(ctx context.Context, status string) (reports.Report, error) {
	if s.sources.Fraud == nil {
		return reports.Report{}, errors.New("report service: fraud source not configured")
	}
	parsed, err := ParseFraudStatus(status)
	if err != nil {
		return reports.Report{}, err
	}
	result, err := s.sources.Fraud.List(ctx, FraudFilter{Status: parsed})
	if err != nil {
		return reports.Report{}, err
	}

	report := reports.Report{
		Title:   "Fraud Alerts Report",
		Columns: []string{"Alert ID", "Claim", "Employee ID", "Policy", "Amount", "Claim Date", "Status", "Flagged", "Reasons"},
	}
	for _, alert := range result.Alerts {
		report.Rows = append(report.Rows, []string{
			strconv.FormatInt(alert.ID, 10),
			alert.Title,
			strconv.FormatInt(alert.EmployeeID, 10),
			alert.PolicyName,
			alert.Amount.StringFixed(2),
			formatDate(alert.ClaimDate),
			string(alert.Status),
			strconv.FormatBool(alert.FraudFlag),
			strings.Join(alert.Reasons, "; "),
		})
	}
	report.Summary = []reports.SummaryItem{
		{Label: "Total alerts", Value: strconv.Itoa(result.Summary.Total)},
		{Label: "Pending", Value: strconv.Itoa(result.Summary.Pending)},
		{Label: "Resolved", Value: strconv.Itoa(result.Summary.Resolved)},
		{Label: "Flagged", Value: strconv.Itoa(result.Summary.Flagged)},
		{Label: "Flagged amount", Value: result.Summary.FlaggedAmount.StringFixed(2)},
	}
	return report, nil
}

func (s *ReportService) queriesReport(ctx context.Context, principal models.Principal) (reports.Report, error) {
	var queries []models.Query
	switch principal.Role {
	case models.RoleAgent:
		if s.sources.Agent == nil {
			return reports.Report{}, errors.New("report service: agent source not configured")
		}
		split, err := s.sources.Agent.Queries(ctx, principal)
		if err != nil {
			return reports.Report{}, err
		}
		queries = append(append(queries, split.Pending...), split.Answered...)
	default:
		if s.sources.Employee == nil {
			return reports.Report{}, errors.New("report service: employee source not configured")
		}
		list, err := s.sources.Employee.Queries(ctx, principal)
		if err != nil {
			return reports.Report{}, err
		}
		queries = list
	}

	report := reports.Report{
		Title:   "Queries Report",
		Columns: []string{"Query ID", "Employee ID", "Agent ID", "Claim Type", "Question", "Response", "Asked"},
	}
	var answered int
	for _, query := range queries {
		if query.Answered() {
			answered++
		}
		report.Rows = append(report.Rows, []string{
			strconv.FormatInt(query.ID, 10),
			strconv.FormatInt(query.EmployeeID, 10),
			strconv.FormatInt(query.AgentID, 10),
			query.ClaimType,
			query.QueryText,
			query.Response,
			formatDate(query.CreatedAt),
		})
	}
	report.Summary = []reports.SummaryItem{
		{Label: "Total queries", Value: strconv.Itoa(len(queries))},
		{Label: "Answered", Value: strconv.Itoa(answered)},
		{Label: "Open", Value: strconv.Itoa(len(queries) - answered)},
	}
	return report, nil
}

func (s *ReportService) employeesReport(ctx context.Context) (reports.Report, error) {
	if s.sources.Admin == nil {
		return reports.Report{}, errors.New("report service: admin source not configured")
	}
	employees, err := s.sources.Admin.Employees(ctx)
	if err != nil {
		return reports.Report{}, err
	}

	report := reports.Report{
		Title:   "Employee Directory",
		Columns: []string{"ID", "Employee Code", "Name", "Email", "Department"},
	}
	for _, employee := range employees {
		report.Rows = append(report.Rows, []string{
			strconv.FormatInt(employee.ID, 10),
			employee.EmployeeCode,
			employee.Name,
			employee.Email,
			employee.Department,
		})
	}
	report.Summary = []reports.SummaryItem{{Label: "Employees", Value: strconv.Itoa(len(employees))}}
	return report, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" && value != "0" {
			return value
		}
	}
	return ""
}

func mustJSON(value any) datatypes.JSON {
	payload, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return datatypes.JSON(payload)
}
