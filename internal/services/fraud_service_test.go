package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/insurai/portal/internal/models"
	apperrors "github.com/insurai/portal/pkg/errors"
)

func fraudFixture() *fakeBackend {
	fake := newFakeBackend()
	fake.alerts = []models.FraudAlert{
		{ID: 1, EmployeeID: 11, Title: "Surgery", Amount: dec("150000"), PolicyName: "Health Plus", ClaimDate: testNow.AddDate(0, 0, -5),
			Status: models.FraudPending, FraudFlag: true, FraudReason: "High amount; Duplicate documents ;"},
		{ID: 2, EmployeeID: 12, Title: "Dental", Amount: dec("900"), PolicyName: "Dental Care", ClaimDate: testNow.AddDate(0, 0, -1),
			Status: models.FraudResolved, FraudFlag: false},
		{ID: 3, EmployeeID: 11, Title: "Physio", Amount: dec("4000"), PolicyName: "Health Plus", ClaimDate: testNow.AddDate(0, 0, -9),
			Status: models.FraudPending, FraudFlag: true, FraudReason: "Frequent claims"},
	}
	return fake
}

func TestFraudListFiltersAndSplitsReasons(t *testing.T) {
	svc, err := NewFraudService(fraudFixture())
	require.NoError(t, err)
	ctx := context.Background()

	all, err := svc.List(ctx, FraudFilter{})
	require.NoError(t, err)
	require.Len(t, all.Alerts, 3)
	require.Equal(t, int64(2), all.Alerts[0].ID)
	require.Equal(t, 3, all.Summary.Total)
	require.Equal(t, 2, all.Summary.Flagged)
	require.True(t, all.Summary.FlaggedAmount.Equal(dec("154000")))

	flagged := true
	pending, err := svc.List(ctx, FraudFilter{Status: "pending", Flagged: &flagged, EmployeeID: 11})
	require.NoError(t, err)
	require.Len(t, pending.Alerts, 2)
	require.Equal(t, []string{"High amount", "Duplicate documents"}, pending.Alerts[0].Reasons)

	search, err := svc.List(ctx, FraudFilter{Search: "frequent"})
	require.NoError(t, err)
	require.Len(t, search.Alerts, 1)
	require.Equal(t, 3, search.Summary.Total, "summary covers the unfiltered set")
}

func TestParseFraudStatus(t *testing.T) {
	status, err := ParseFraudStatus("all")
	require.NoError(t, err)
	require.Empty(t, status)

	status, err = ParseFraudStatus("RESOLVED")
	require.NoError(t, err)
	require.Equal(t, "Resolved", status)

	_, err = ParseFraudStatus("open")
	require.ErrorIs(t, err, apperrors.ErrValidation)
}
