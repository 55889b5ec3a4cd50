package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/insurai/portal/internal/models"
	apperrors "github.com/insurai/portal/pkg/errors"
)

func agentFixture() *fakeBackend {
	fake := newFakeBackend()
	fake.agentQueries = []models.Query{
		{ID: 1, QueryText: "Is dental covered?", CreatedAt: testNow.AddDate(0, 0, -3)},
		{ID: 2, QueryText: "Claim status?", Response: "Approved yesterday", CreatedAt: testNow.AddDate(0, 0, -2)},
		{ID: 3, QueryText: "Renewal date?", Response: "   ", CreatedAt: testNow.AddDate(0, 0, -1)},
	}
	return fake
}

func agentPrincipal() models.Principal {
	return models.Principal{SessionID: "s-agent", Role: models.RoleAgent, UserID: 5, Name: "Meera"}
}

func TestAgentQueriesSplitsByAnswer(t *testing.T) {
	svc, err := NewAgentService(agentFixture())
	require.NoError(t, err)

	queues, err := svc.Queries(context.Background(), agentPrincipal())
	require.NoError(t, err)
	require.Len(t, queues.Pending, 2)
	require.Equal(t, int64(3), queues.Pending[0].ID, "blank responses are still open")
	require.Len(t, queues.Answered, 1)
}

func TestAgentRespond(t *testing.T) {
	fake := agentFixture()
	svc, err := NewAgentService(fake)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Respond(ctx, agentPrincipal(), 1, "  ")
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Respond(ctx, agentPrincipal(), 2, "Changed my mind")
	require.ErrorIs(t, err, apperrors.ErrValidation, "answered queries are immutable")

	_, err = svc.Respond(ctx, agentPrincipal(), 99, "hello")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.Zero(t, fake.callCount("RespondQuery"))

	answered, err := svc.Respond(ctx, agentPrincipal(), 1, " Yes, up to 20000 ")
	require.NoError(t, err)
	require.True(t, answered.Answered())
	require.Equal(t, "Yes, up to 20000", answered.Response)
	require.Equal(t, "Yes, up to 20000", fake.responses[1])
}
