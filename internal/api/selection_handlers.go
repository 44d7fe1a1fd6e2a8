package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/songrequest/server/internal/domain"
)

func (s *Server) registerSelectionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listSelections",
		Method:      http.MethodGet,
		Path:        "/api/v1/selections",
		Summary:     "List announced selections",
		Description: "Returns the most recent announced requests, newest first",
		Tags:        []string{"Selections"},
	}, s.handleListSelections)
}

// ListSelectionsInput contains paging parameters.
type ListSelectionsInput struct {
	Limit int `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Maximum number of selections"`
}

// SelectionsOutput lists selections.
type SelectionsOutput struct {
	Body struct {
		Selections []domain.Selection `json:"selections"`
	}
}

func (s *Server) handleListSelections(ctx context.Context, input *ListSelectionsInput) (*SelectionsOutput, error) {
	out := &SelectionsOutput{}
	out.Body.Selections = []domain.Selection{}
	if s.deps.Selections == nil {
		return out, nil
	}

	selections, err := s.deps.Selections.History(ctx, input.Limit)
	if err != nil {
		return nil, toHTTPError(err)
	}
	out.Body.Selections = selections
	return out, nil
}
