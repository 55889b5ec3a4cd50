package backend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/insurai/portal/internal/models"
)

func TestDecodeFoldsSnakeAndCamelCase(t *testing.T) {
	snake := []byte(`[{"id": 3, "policy_id": 1, "employee_id": 12, "claim_type": "Medical",
		"amount": "45000.50", "claim_date": "2025-05-02", "status": "Pending", "hr_id": 7,
		"documents": "a.pdf;b.pdf"}]`)
	camel := []byte(`{"data": [{"id": 3, "policyId": 1, "employeeId": 12, "type": "Medical",
		"amount": 45000.50, "claimDate": "2025-05-02T00:00:00Z", "status": "Pending", "assignedHrId": 7,
		"documents": ["a.pdf", "b.pdf"]}]}`)

	var fromSnake, fromCamel []models.Claim
	require.NoError(t, Decode(snake, &fromSnake))
	require.NoError(t, Decode(camel, &fromCamel))
	require.Len(t, fromSnake, 1)
	require.Len(t, fromCamel, 1)

	for _, claim := range []models.Claim{fromSnake[0], fromCamel[0]} {
		require.Equal(t, int64(3), claim.ID)
		require.Equal(t, int64(1), claim.PolicyID)
		require.Equal(t, int64(12), claim.EmployeeID)
		require.Equal(t, "Medical", claim.Type)
		require.Equal(t, "45000.5", claim.Amount.String())
		require.Equal(t, models.ClaimPending, claim.Status)
		require.Equal(t, int64(7), claim.AssignedHRID)
		require.Equal(t, []string{"a.pdf", "b.pdf"}, claim.Documents)
		require.True(t, claim.ClaimDate.Equal(time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)))
	}
}

func TestDecodeNonNumericAmountIsZero(t *testing.T) {
	var claim models.Claim
	require.NoError(t, Decode([]byte(`{"id": 1, "amount": "n/a"}`), &claim))
	require.True(t, claim.Amount.IsZero())

	require.NoError(t, Decode([]byte(`{"id": 1, "claimAmount": "1,250"}`), &claim))
	require.Equal(t, "1250", claim.Amount.String())
}

func TestDecodeUnrecognisedDateIsZero(t *testing.T) {
	raw := []byte(`[{"id": 1, "policy_id": 1, "amount": "5000", "claim_date": "2025-05-02", "status": "Pending"},
		{"id": 2, "policy_id": 1, "amount": "7000", "claim_date": "02/05/2025", "status": "Pending"}]`)

	var claims []models.Claim
	require.NoError(t, Decode(raw, &claims))
	require.Len(t, claims, 2)
	require.True(t, claims[0].ClaimDate.Equal(time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)))
	require.True(t, claims[1].ClaimDate.IsZero())
	require.Equal(t, "7000", claims[1].Amount.String())
}

func TestFoldIgnoresCaseAndSeparators(t *testing.T) {
	for _, key := range []string{"claim_date", "ClaimDate", "CLAIM-DATE", "claim date"} {
		require.Equal(t, "claimdate", fold(key), key)
	}
	require.Equal(t, "assignedhrid", canonicalKey("HR_ID"))
}

func TestDecodeNotificationAliases(t *testing.T) {
	var items []models.Notification
	raw := []byte(`[{"id": 1, "user_id": 4, "title": "Claim approved", "message": "ok", "is_read": true,
		"created_at": [2025, 6, 1, 9, 30, 0]}, {"id": 2, "readStatus": false, "timestamp": 1717200000000}]`)
	require.NoError(t, Decode(raw, &items))
	require.Len(t, items, 2)
	require.True(t, items[0].Read)
	require.Equal(t, int64(4), items[0].UserID)
	require.Equal(t, time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC), items[0].CreatedAt)
	require.False(t, items[1].Read)
	require.Equal(t, time.UnixMilli(1717200000000).UTC(), items[1].CreatedAt)
}

func TestDecodePolicyAndFraudAlert(t *testing.T) {
	var policy models.Policy
	require.NoError(t, Decode([]byte(`{"policy_id": 9, "id": 2, "policy_name": "x", "name": "Gold Health",
		"coverage_amount": 500000, "monthly_premium": "1200", "renewal_date": "2026-01-01",
		"policy_type": "Health", "benefits": ["OPD", "Dental"], "claim_form_url": "/forms/claim.pdf"}`), &policy))
	require.Equal(t, int64(2), policy.ID)
	require.Equal(t, "Gold Health", policy.Name)
	require.Equal(t, "500000", policy.CoverageAmount.String())
	require.Equal(t, "1200", policy.MonthlyPremium.String())
	require.Equal(t, []string{"OPD", "Dental"}, policy.Benefits)
	require.Equal(t, "/forms/claim.pdf", policy.ClaimFormURL)

	var alert models.FraudAlert
	require.NoError(t, Decode([]byte(`{"id": 1, "employee_id": 5, "fraud_flag": true,
		"fraud_reason": "duplicate receipt; amount spike ;", "status": "Pending"}`), &alert))
	require.True(t, alert.FraudFlag)
	require.Equal(t, []string{"duplicate receipt", "amount spike"}, alert.Reasons())
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	var claims []models.Claim
	require.Error(t, Decode([]byte(`{"id": `), &claims))
}
