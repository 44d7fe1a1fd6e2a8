package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songrequest/server/internal/catalog"
	"github.com/songrequest/server/internal/domain"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go m.Start(ctx)
	return m
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case event := <-c.EventChan:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func TestManager_ConnectDisconnect(t *testing.T) {
	m := newTestManager(t)

	c, err := m.Connect()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(c.ID, "sse_"))
	assert.Equal(t, 1, m.ClientCount())

	m.Disconnect(c.ID)
	assert.Equal(t, 0, m.ClientCount())

	// Second disconnect is a no-op.
	m.Disconnect(c.ID)

	_, open := <-c.Done
	assert.False(t, open)
}

func TestManager_BroadcastsToAllClients(t *testing.T) {
	m := newTestManager(t)
	a, err := m.Connect()
	require.NoError(t, err)
	b, err := m.Connect()
	require.NoError(t, err)

	m.Emit(NewSelectionAnnouncedEvent(domain.Selection{
		ID:        "sel_1",
		SessionID: "chat-1",
		Track:     domain.Track{Author: "Queen", Song: "Innuendo"},
	}))

	for _, c := range []*Client{a, b} {
		event := receive(t, c)
		assert.Equal(t, EventSelectionAnnounced, event.Type)
		data, ok := event.Data.(SelectionAnnouncedData)
		require.True(t, ok)
		assert.Equal(t, "Queen", data.Author)
		assert.Equal(t, "Innuendo", data.Song)
	}

	var ids []string
	for c := range m.Clients() {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
}

func TestManager_SlowClientDropsEvents(t *testing.T) {
	m := newTestManager(t)
	c, err := m.Connect()
	require.NoError(t, err)

	for range cap(c.EventChan) + 10 {
		m.Emit(NewCatalogReplacedEvent(catalog.Result{Source: "a.txt", TrackCount: 1}))
	}

	// The loop keeps running: a fresh client still gets new events.
	fresh, err := m.Connect()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(c.EventChan) == cap(c.EventChan) }, 2*time.Second, 10*time.Millisecond)

	m.Emit(NewCatalogReplacedEvent(catalog.Result{Source: "b.txt", TrackCount: 2}))
	for {
		data, ok := receive(t, fresh).Data.(CatalogReplacedData)
		if ok && data.Source == "b.txt" {
			assert.Equal(t, 2, data.TrackCount)
			return
		}
	}
}

func TestManager_Shutdown(t *testing.T) {
	m := newTestManager(t)
	c, err := m.Connect()
	require.NoError(t, err)

	m.Emit(NewCatalogReplacedEvent(catalog.Result{Source: "a.txt"}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))
	require.NoError(t, m.Shutdown(ctx))

	// Queued event was delivered before the client was closed.
	event, ok := <-c.EventChan
	require.True(t, ok)
	assert.Equal(t, EventCatalogReplaced, event.Type)
	_, ok = <-c.EventChan
	assert.False(t, ok)

	assert.Equal(t, 0, m.ClientCount())
	assert.NotPanics(t, func() { m.Emit(NewHeartbeatEvent()) })
}

func TestHandler_StreamsEvents(t *testing.T) {
	m := newTestManager(t)
	srv := httptest.NewServer(NewHandler(m, slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	name, _ := readEvent(t, reader)
	assert.Equal(t, "connected", name)
	require.Eventually(t, func() bool { return m.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	m.Emit(NewCatalogReplacedEvent(catalog.Result{Source: "list.txt", TrackCount: 3}))

	name, payload := readEvent(t, reader)
	assert.Equal(t, "catalog.replaced", name)

	var got struct {
		Type string              `json:"type"`
		Data CatalogReplacedData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(payload), &got))
	assert.Equal(t, "catalog.replaced", got.Type)
	assert.Equal(t, "list.txt", got.Data.Source)
	assert.Equal(t, 3, got.Data.TrackCount)

	cancel()
	require.Eventually(t, func() bool { return m.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_RejectsNonGet(t *testing.T) {
	h := NewHandler(NewManager(nil), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// readEvent reads one "event:/data:" frame.
func readEvent(t *testing.T, r *bufio.Reader) (name, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}
