package api

import (
	"bytes"
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/songrequest/server/internal/catalog"
	"github.com/songrequest/server/internal/domain"
	domainerrors "github.com/songrequest/server/internal/errors"
)

// catalogNameHeader optionally names an uploaded catalog.
const catalogNameHeader = "X-Catalog-Name"

const defaultUploadName = "upload.txt"

func (s *Server) registerCatalogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCatalog",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog",
		Summary:     "Get catalog",
		Description: "Returns catalog statistics and, unless disabled, every track in file order",
		Tags:        []string{"Catalog"},
	}, s.handleGetCatalog)

	huma.Register(s.api, huma.Operation{
		OperationID:   "replaceCatalog",
		Method:        http.MethodPut,
		Path:          "/api/v1/catalog",
		Summary:       "Replace catalog",
		Description:   "Replaces the whole catalog with a text body of \"[N. ]author - song\" lines. A rejected body leaves the catalog unchanged.",
		Tags:          []string{"Catalog"},
		MaxBodyBytes:  s.maxUploadBytes(),
		DefaultStatus: http.StatusOK,
	}, s.handleReplaceCatalog)

	huma.Register(s.api, huma.Operation{
		OperationID: "reloadCatalog",
		Method:      http.MethodPost,
		Path:        "/api/v1/catalog/reload",
		Summary:     "Reload catalog file",
		Description: "Re-reads the catalog file on disk. Unchanged files are not re-applied.",
		Tags:        []string{"Catalog"},
	}, s.handleReloadCatalog)

	huma.Register(s.api, huma.Operation{
		OperationID: "getKeyboard",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/keyboards/{field}",
		Summary:     "Get letter keyboard",
		Description: "Returns the distinct uppercased first letters of a field",
		Tags:        []string{"Catalog"},
	}, s.handleGetKeyboard)

	huma.Register(s.api, huma.Operation{
		OperationID: "getValuesByLetter",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/{field}/letters/{letter}",
		Summary:     "List values by first letter",
		Tags:        []string{"Catalog"},
	}, s.handleGetValuesByLetter)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTracksByValue",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/{field}/values/{value}",
		Summary:     "List tracks by field value",
		Tags:        []string{"Catalog"},
	}, s.handleGetTracksByValue)
}

func (s *Server) maxUploadBytes() int64 {
	if s.deps.MaxUploadBytes > 0 {
		return s.deps.MaxUploadBytes
	}
	return 8 << 20
}

// GetCatalogInput contains parameters for getting the catalog.
type GetCatalogInput struct {
	IncludeTracks bool `query:"include_tracks" default:"true" doc:"Include the track list"`
}

// CatalogResponse describes the published catalog.
type CatalogResponse struct {
	catalog.Stats
	Tracks []domain.Track `json:"tracks,omitempty" doc:"Tracks in file order"`
}

// CatalogOutput wraps the catalog response for Huma.
type CatalogOutput struct {
	Body CatalogResponse
}

// ReplaceCatalogInput carries a raw catalog upload.
type ReplaceCatalogInput struct {
	Name    string `header:"X-Catalog-Name" doc:"Name recorded as the catalog source"`
	RawBody []byte `contentType:"text/plain"`
}

// ReplaceCatalogOutput reports the published catalog.
type ReplaceCatalogOutput struct {
	Body catalog.Result
}

// ReloadCatalogOutput reports a reload from disk.
type ReloadCatalogOutput struct {
	Body struct {
		Changed bool            `json:"changed" doc:"False when the file holds the catalog already in use"`
		Result  *catalog.Result `json:"result,omitempty"`
	}
}

// FieldInput selects a catalog field.
type FieldInput struct {
	Field string `path:"field" doc:"author or song"`
}

// LetterInput selects values of a field by first letter.
type LetterInput struct {
	Field  string `path:"field" doc:"author or song"`
	Letter string `path:"letter" doc:"A single letter, case-insensitive"`
}

// ValueInput selects tracks by an exact field value.
type ValueInput struct {
	Field string `path:"field" doc:"author or song"`
	Value string `path:"value" doc:"Exact author name or song title"`
}

// KeyboardOutput lists keyboard letters.
type KeyboardOutput struct {
	Body struct {
		Field   string   `json:"field"`
		Letters []string `json:"letters"`
	}
}

// ValuesOutput lists distinct field values.
type ValuesOutput struct {
	Body struct {
		Field  string   `json:"field"`
		Letter string   `json:"letter"`
		Values []string `json:"values"`
	}
}

// TracksOutput lists tracks.
type TracksOutput struct {
	Body struct {
		Field  string         `json:"field"`
		Value  string         `json:"value"`
		Tracks []domain.Track `json:"tracks"`
	}
}

func (s *Server) handleGetCatalog(_ context.Context, input *GetCatalogInput) (*CatalogOutput, error) {
	if s.deps.Catalog == nil {
		return nil, toHTTPError(domainerrors.ErrCatalogUnavailable)
	}
	resp := CatalogResponse{Stats: s.deps.Catalog.Stats()}
	if input.IncludeTracks {
		resp.Tracks = s.deps.Catalog.AllTracks()
	}
	return &CatalogOutput{Body: resp}, nil
}

func (s *Server) handleReplaceCatalog(ctx context.Context, input *ReplaceCatalogInput) (*ReplaceCatalogOutput, error) {
	if s.deps.Uploader == nil {
		return nil, toHTTPError(domainerrors.Internal("catalog uploads are not configured"))
	}

	name := input.Name
	if name == "" {
		name = defaultUploadName
	}

	result, err := s.deps.Uploader.Upload(ctx, name, bytes.NewReader(input.RawBody))
	if err != nil {
		s.logger.Info("catalog upload rejected", "name", name, "error", err)
		return nil, toHTTPError(err)
	}
	return &ReplaceCatalogOutput{Body: result}, nil
}

func (s *Server) handleReloadCatalog(ctx context.Context, _ *struct{}) (*ReloadCatalogOutput, error) {
	if s.deps.Uploader == nil {
		return nil, toHTTPError(domainerrors.Internal("catalog file is not configured"))
	}

	result, changed, err := s.deps.Uploader.ReloadFile(ctx)
	if err != nil {
		return nil, toHTTPError(err)
	}

	out := &ReloadCatalogOutput{}
	out.Body.Changed = changed
	if changed {
		out.Body.Result = &result
	}
	return out, nil
}

func (s *Server) handleGetKeyboard(_ context.Context, input *FieldInput) (*KeyboardOutput, error) {
	field, err := s.parseField(input.Field)
	if err != nil {
		return nil, err
	}
	letters, err := s.deps.Catalog.KeyboardFor(field)
	if err != nil {
		return nil, toHTTPError(err)
	}

	out := &KeyboardOutput{}
	out.Body.Field = field.String()
	out.Body.Letters = letters
	return out, nil
}

func (s *Server) handleGetValuesByLetter(_ context.Context, input *LetterInput) (*ValuesOutput, error) {
	field, err := s.parseField(input.Field)
	if err != nil {
		return nil, err
	}
	values, err := s.deps.Catalog.QueryByFieldPrefix(field, input.Letter)
	if err != nil {
		return nil, toHTTPError(err)
	}

	out := &ValuesOutput{}
	out.Body.Field = field.String()
	out.Body.Letter = input.Letter
	out.Body.Values = values
	return out, nil
}

func (s *Server) handleGetTracksByValue(_ context.Context, input *ValueInput) (*TracksOutput, error) {
	field, err := s.parseField(input.Field)
	if err != nil {
		return nil, err
	}
	tracks, err := s.deps.Catalog.QueryPairsByField(field, input.Value)
	if err != nil {
		return nil, toHTTPError(err)
	}

	out := &TracksOutput{}
	out.Body.Field = field.String()
	out.Body.Value = input.Value
	out.Body.Tracks = tracks
	return out, nil
}

// parseField also guards against a missing catalog dependency.
func (s *Server) parseField(raw string) (domain.Field, error) {
	if s.deps.Catalog == nil {
		return domain.FieldNone, toHTTPError(domainerrors.ErrCatalogUnavailable)
	}
	field, err := domain.ParseField(raw)
	if err != nil {
		return domain.FieldNone, toHTTPError(domainerrors.Validationf("unknown field %q: want author or song", raw))
	}
	return field, nil
}
