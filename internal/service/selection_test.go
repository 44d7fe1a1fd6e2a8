package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songrequest/server/internal/domain"
	"github.com/songrequest/server/internal/sse"
	"github.com/songrequest/server/internal/store/sqlite"
)

type fakePublisher struct {
	mu    sync.Mutex
	texts []string
	fail  error
}

func (f *fakePublisher) Publish(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.texts = append(f.texts, text)
	return nil
}

type fakeEmitter struct {
	events []sse.Event
}

func (f *fakeEmitter) Emit(event sse.Event) {
	f.events = append(f.events, event)
}

func newTestSelectionService(t *testing.T) (*SelectionService, *fakePublisher, *fakeEmitter, *sqlite.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	pub := &fakePublisher{}
	events := &fakeEmitter{}
	svc := NewSelectionService(pub, store, events, "{track} is next", logger)
	return svc, pub, events, store
}

func TestSelectionService_Announce(t *testing.T) {
	svc, pub, events, _ := newTestSelectionService(t)
	fixed := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	track := domain.Track{Author: "Queen", Song: "Bohemian Rhapsody"}
	require.NoError(t, svc.Announce(context.Background(), "42", track))

	assert.Equal(t, []string{"Queen - Bohemian Rhapsody is next"}, pub.texts)

	history, err := svc.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "42", history[0].SessionID)
	assert.Equal(t, track, history[0].Track)
	assert.True(t, fixed.Equal(history[0].AnnouncedAt))
	assert.True(t, strings.HasPrefix(history[0].ID, "sel_"))

	require.Len(t, events.events, 1)
	assert.Equal(t, sse.EventSelectionAnnounced, events.events[0].Type)
	data, ok := events.events[0].Data.(sse.SelectionAnnouncedData)
	require.True(t, ok)
	assert.Equal(t, history[0].ID, data.ID)
}

func TestSelectionService_PublishFailure(t *testing.T) {
	svc, pub, events, _ := newTestSelectionService(t)
	pub.fail = errors.New("chat not found")

	err := svc.Announce(context.Background(), "42", domain.Track{Author: "ABBA", Song: "SOS"})
	require.Error(t, err)
	assert.ErrorIs(t, err, pub.fail)

	history, err := svc.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, events.events)
}

func TestSelectionService_StoreFailureStillAnnounces(t *testing.T) {
	svc, pub, events, store := newTestSelectionService(t)
	require.NoError(t, store.Close())

	require.NoError(t, svc.Announce(context.Background(), "42", domain.Track{Author: "ABBA", Song: "SOS"}))
	assert.Len(t, pub.texts, 1)
	assert.Len(t, events.events, 1)
}

func TestSelectionService_Message(t *testing.T) {
	track := domain.Track{Author: "ABBA", Song: "SOS"}

	tests := []struct {
		template string
		want     string
	}{
		{"{track} is next", "ABBA - SOS is next"},
		{"Далее: {track}", "Далее: ABBA - SOS"},
		{"no placeholder", "ABBA - SOS"},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			svc := NewSelectionService(&fakePublisher{}, nil, nil, tt.template, nil)
			assert.Equal(t, tt.want, svc.Message(track))
		})
	}
}

func TestSelectionService_HistoryWithoutStore(t *testing.T) {
	svc := NewSelectionService(&fakePublisher{}, nil, nil, "{track}", nil)
	require.NoError(t, svc.Announce(context.Background(), "1", domain.Track{Author: "A", Song: "B"}))

	history, err := svc.History(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}
