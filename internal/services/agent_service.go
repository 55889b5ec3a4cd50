package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/insurai/portal/internal/models"
	apperrors "github.com/insurai/portal/pkg/errors"
)

// AgentQueries splits an agent's queue into open and answered queries.
type AgentQueries struct {
	Pending  []models.Query `json:"pending"`
	Answered []models.Query `json:"answered"`
}

// AgentService implements the agent side of the query lifecycle.
type AgentService struct {
	backend Backend
}

// NewAgentService constructs an AgentService.
func NewAgentService(b Backend) (*AgentService, error) {
	if b == nil {
		return nil, errors.New("agent service: backend is required")
	}
	return &AgentService{backend: b}, nil
}

// Queries returns the queries routed to the agent.
func (s *AgentService) Queries(ctx context.Context, principal models.Principal) (*AgentQueries, error) {
	queries, err := s.backend.ListAgentQueries(ensureContext(ctx), principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("agent service: queries: %w", err)
	}
	sortQueries(queries)

	out := &AgentQueries{Pending: []models.Query{}, Answered: []models.Query{}}
	for _, query := range queries {
		if query.Answered() {
			out.Answered = append(out.Answered, query)
		} else {
			out.Pending = append(out.Pending, query)
		}
	}
	return out, nil
}

// Respond answers an open query. Answered queries are immutable.
func (s *AgentService) Respond(ctx context.Context, principal models.Principal, queryID int64, response string) (models.Query, error) {
	ctx = ensureContext(ctx)

	response = strings.TrimSpace(response)
	if err := requireText("response", response); err != nil {
		return models.Query{}, err
	}

	queries, err := s.backend.ListAgentQueries(ctx, principal.UserID)
	if err != nil {
		return models.Query{}, fmt.Errorf("agent service: respond: %w", err)
	}
	var query *models.Query
	for i := range queries {
		if queries[i].ID == queryID {
			query = &queries[i]
			break
		}
	}
	if query == nil {
		return models.Query{}, apperrors.New(apperrors.ErrNotFound.Code, "query not found", apperrors.ErrNotFound.StatusCode)
	}
	if query.Answered() {
		return models.Query{}, apperrors.NewValidation("query has already been answered").WithDetails(map[string]any{"field": "response"})
	}

	echoed, err := s.backend.RespondQuery(ctx, queryID, response)
	if err != nil {
		return models.Query{}, fmt.Errorf("agent service: respond: %w", err)
	}
	answered := *query
	if echoed != nil && echoed.ID != 0 {
		answered = *echoed
	}
	if !answered.Answered() {
		answered.Response = response
	}
	return answered, nil
}
