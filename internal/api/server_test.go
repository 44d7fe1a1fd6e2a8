package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songrequest/server/internal/catalog"
	"github.com/songrequest/server/internal/domain"
	"github.com/songrequest/server/internal/service"
	"github.com/songrequest/server/internal/sse"
	"github.com/songrequest/server/internal/store/sqlite"
	"github.com/songrequest/server/internal/upload"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string) error { return nil }

type testServer struct {
	*Server
	api        humatest.TestAPI
	catalog    *catalog.Store
	selections *service.SelectionService
	filePath   string
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	db, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := catalog.New(db, logger)
	filePath := filepath.Join(dir, "tracklist.txt")
	uploads := upload.New(upload.Options{Catalog: store, Path: filePath, Logger: logger})

	manager := sse.NewManager(logger)
	selections := service.NewSelectionService(nopPublisher{}, db, manager, "{track} is next", logger)

	srv := NewServer(Deps{
		Catalog:    store,
		Uploader:   uploads,
		Selections: selections,
		Database:   db,
		Events:     sse.NewHandler(manager, logger),
		Sessions:   func() int { return 3 },
	}, logger)

	return &testServer{
		Server:     srv,
		api:        humatest.Wrap(t, srv.API()),
		catalog:    store,
		selections: selections,
		filePath:   filePath,
	}
}

func (ts *testServer) upload(t *testing.T, body string) {
	t.Helper()
	resp := ts.api.Put("/api/v1/catalog", "Content-Type: text/plain", strings.NewReader(body))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)
	health := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "no catalog loaded", health.Components["catalog"].Message)
	assert.Equal(t, "healthy", health.Components["database"].Status)
	assert.Equal(t, "3 active sessions", health.Components["dialog"].Message)

	ts.upload(t, "Queen - Innuendo\n")

	resp = ts.api.Get("/health")
	health = decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "1 track", health.Components["catalog"].Message)
	assert.Equal(t, "0 connected clients", health.Components["events"].Message)
}

func TestReplaceCatalog(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Put("/api/v1/catalog",
		"Content-Type: text/plain",
		"X-Catalog-Name: friday.txt",
		strings.NewReader("1. Queen - Bohemian Rhapsody\nABBA - Waterloo\n"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	result := decode[catalog.Result](t, resp.Body.Bytes())
	assert.Equal(t, "friday.txt", result.Source)
	assert.Equal(t, 2, result.TrackCount)
	assert.Equal(t, []string{"A", "Q"}, result.AuthorKeyboard)
	assert.Equal(t, []string{"B", "W"}, result.SongKeyboard)

	data, err := os.ReadFile(ts.filePath)
	require.NoError(t, err)
	assert.Equal(t, "1. Queen - Bohemian Rhapsody\nABBA - Waterloo\n", string(data))
}

func TestReplaceCatalog_Rejected(t *testing.T) {
	ts := setupTestServer(t)
	ts.upload(t, "ABBA - SOS")

	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed line", "Queen - Innuendo\nno separator here\n", "MALFORMED_LINE"},
		{"empty source", "\n\n", "EMPTY_SOURCE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Put("/api/v1/catalog", "Content-Type: text/plain", strings.NewReader(tt.body))
			require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

			apiErr := decode[APIError](t, resp.Body.Bytes())
			assert.Equal(t, tt.code, apiErr.Code)

			// Previous catalog is untouched.
			assert.Equal(t, []domain.Track{{Author: "ABBA", Song: "SOS"}}, ts.catalog.AllTracks())
		})
	}
}

func TestGetCatalog(t *testing.T) {
	ts := setupTestServer(t)
	ts.upload(t, "Queen - Innuendo\nABBA - SOS\n")

	resp := ts.api.Get("/api/v1/catalog")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[CatalogResponse](t, resp.Body.Bytes())
	assert.True(t, body.Loaded)
	assert.Equal(t, 2, body.TrackCount)
	assert.Equal(t, []domain.Track{
		{Author: "Queen", Song: "Innuendo"},
		{Author: "ABBA", Song: "SOS"},
	}, body.Tracks)

	resp = ts.api.Get("/api/v1/catalog?include_tracks=false")
	body = decode[CatalogResponse](t, resp.Body.Bytes())
	assert.Empty(t, body.Tracks)
}

func TestCatalogQueries(t *testing.T) {
	ts := setupTestServer(t)
	ts.upload(t, "1. Queen - Bohemian Rhapsody\nQueen - Innuendo\nABBA - Waterloo\n")

	resp := ts.api.Get("/api/v1/catalog/keyboards/author")
	require.Equal(t, http.StatusOK, resp.Code)
	keyboard := decode[struct {
		Letters []string `json:"letters"`
	}](t, resp.Body.Bytes())
	assert.Equal(t, []string{"A", "Q"}, keyboard.Letters)

	resp = ts.api.Get("/api/v1/catalog/author/letters/q")
	require.Equal(t, http.StatusOK, resp.Code)
	values := decode[struct {
		Values []string `json:"values"`
	}](t, resp.Body.Bytes())
	assert.Equal(t, []string{"Queen"}, values.Values)

	resp = ts.api.Get("/api/v1/catalog/author/values/Queen")
	require.Equal(t, http.StatusOK, resp.Code)
	tracks := decode[struct {
		Tracks []domain.Track `json:"tracks"`
	}](t, resp.Body.Bytes())
	assert.Equal(t, []domain.Track{
		{Author: "Queen", Song: "Bohemian Rhapsody"},
		{Author: "Queen", Song: "Innuendo"},
	}, tracks.Tracks)

	resp = ts.api.Get("/api/v1/catalog/song/letters/Z")
	require.Equal(t, http.StatusOK, resp.Code)
	values = decode[struct {
		Values []string `json:"values"`
	}](t, resp.Body.Bytes())
	assert.Empty(t, values.Values)
}

func TestCatalogQueries_Errors(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/catalog/keyboards/author")
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, "CATALOG_UNAVAILABLE", decode[APIError](t, resp.Body.Bytes()).Code)

	ts.upload(t, "ABBA - SOS")

	resp = ts.api.Get("/api/v1/catalog/keyboards/album")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", decode[APIError](t, resp.Body.Bytes()).Code)
}

func TestReloadCatalog(t *testing.T) {
	ts := setupTestServer(t)
	ts.upload(t, "ABBA - SOS")

	resp := ts.api.Post("/api/v1/catalog/reload")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.False(t, decode[struct {
		Changed bool `json:"changed"`
	}](t, resp.Body.Bytes()).Changed)

	require.NoError(t, os.WriteFile(ts.filePath, []byte("Queen - Innuendo\nQueen - Mustapha\n"), 0o600))

	resp = ts.api.Post("/api/v1/catalog/reload")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	reloaded := decode[struct {
		Changed bool            `json:"changed"`
		Result  *catalog.Result `json:"result"`
	}](t, resp.Body.Bytes())
	assert.True(t, reloaded.Changed)
	require.NotNil(t, reloaded.Result)
	assert.Equal(t, 2, reloaded.Result.TrackCount)
}

func TestListSelections(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/selections")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"selections":[]}`, resp.Body.String())

	ctx := context.Background()
	require.NoError(t, ts.selections.Announce(ctx, "1", domain.Track{Author: "ABBA", Song: "SOS"}))
	require.NoError(t, ts.selections.Announce(ctx, "2", domain.Track{Author: "Queen", Song: "Innuendo"}))

	resp = ts.api.Get("/api/v1/selections?limit=1")
	require.Equal(t, http.StatusOK, resp.Code)
	list := decode[struct {
		Selections []domain.Selection `json:"selections"`
	}](t, resp.Body.Bytes())
	require.Len(t, list.Selections, 1)
	assert.Equal(t, "Queen", list.Selections[0].Track.Author)

	resp = ts.api.Get("/api/v1/selections?limit=0")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}
