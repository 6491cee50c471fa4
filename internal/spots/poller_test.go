package spots

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"parking-reservation-backend/config"
	"parking-reservation-backend/internal/backend"
	"parking-reservation-backend/internal/booking"
	"parking-reservation-backend/internal/model"
)

// mockStore is a mock implementation of the store.Store interface.
type mockStore struct {
	UpsertSpotsFunc      func(ctx context.Context, spots []booking.Spot) error
	UpdateSpotStatusFunc func(ctx context.Context, now time.Time, spots []booking.Spot) ([]string, error)
}

func (m *mockStore) UpsertSpots(ctx context.Context, spots []booking.Spot) error {
	return m.UpsertSpotsFunc(ctx, spots)
}

func (m *mockStore) UpdateSpotStatus(ctx context.Context, now time.Time, spots []booking.Spot) ([]string, error) {
	return m.UpdateSpotStatusFunc(ctx, now, spots)
}

func (m *mockStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription, spotIDs []string) error {
	return nil
}

func (m *mockStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	return nil, nil
}

func (m *mockStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return nil
}

func (m *mockStore) DB() *gorm.DB {
	return nil
}

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (d *recordingDispatcher) SpotAvailable(spotID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, spotID)
}

type recordingRenderer struct {
	snapshots [][]booking.Spot
}

func (r *recordingRenderer) RenderSpots(spots []booking.Spot) {
	r.snapshots = append(r.snapshots, spots)
}

func newBackend(t *testing.T, handler http.HandlerFunc) *backend.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return backend.NewClient(config.BackendConfig{BaseURL: server.URL, Timeout: time.Second}, zap.NewNop())
}

func spotFeed(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode([]booking.Spot{
		{ID: "B-01", Label: "B01", Status: booking.SpotOccupied},
		{ID: "A-12", Label: "A12", Status: booking.SpotAvailable},
	})
}

func TestPoller_PollOnce(t *testing.T) {
	var upserted []booking.Spot
	st := &mockStore{
		UpsertSpotsFunc: func(ctx context.Context, spots []booking.Spot) error {
			upserted = spots
			return nil
		},
		UpdateSpotStatusFunc: func(ctx context.Context, now time.Time, spots []booking.Spot) ([]string, error) {
			assert.Equal(t, time.UTC, now.Location())
			return []string{"A-12"}, nil
		},
	}
	catalog := NewCatalog()
	dispatcher := &recordingDispatcher{}
	renderer := &recordingRenderer{}

	p := NewPoller(newBackend(t, spotFeed), st, catalog, dispatcher, renderer, "@every 1m", zap.NewNop())
	require.NoError(t, p.PollOnce(context.Background()))

	assert.Len(t, upserted, 2)
	assert.Equal(t, []string{"A-12"}, dispatcher.ids)

	list, updatedAt := catalog.List()
	require.Len(t, list, 2)
	assert.Equal(t, "A12", list[0].Label)
	assert.False(t, updatedAt.IsZero())

	spot, ok := catalog.Lookup("B-01")
	assert.True(t, ok)
	assert.Equal(t, booking.SpotOccupied, spot.Status)

	require.Len(t, renderer.snapshots, 1)
	assert.Equal(t, list, renderer.snapshots[0])
}

func TestPoller_FetchFailureKeepsState(t *testing.T) {
	st := &mockStore{
		UpsertSpotsFunc: func(ctx context.Context, spots []booking.Spot) error {
			t.Error("store must not be touched")
			return nil
		},
		UpdateSpotStatusFunc: func(ctx context.Context, now time.Time, spots []booking.Spot) ([]string, error) {
			t.Error("store must not be touched")
			return nil, nil
		},
	}
	catalog := NewCatalog()
	catalog.Replace([]booking.Spot{{ID: "A-12", Label: "A12", Status: booking.SpotAvailable}}, time.Now())
	renderer := &recordingRenderer{}

	failing := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	p := NewPoller(failing, st, catalog, nil, renderer, "@every 1m", zap.NewNop())

	assert.Error(t, p.PollOnce(context.Background()))
	_, ok := catalog.Lookup("A-12")
	assert.True(t, ok)
	assert.Empty(t, renderer.snapshots)
}

func TestPoller_StatusErrorStillRefreshesCatalog(t *testing.T) {
	st := &mockStore{
		UpsertSpotsFunc: func(ctx context.Context, spots []booking.Spot) error { return nil },
		UpdateSpotStatusFunc: func(ctx context.Context, now time.Time, spots []booking.Spot) ([]string, error) {
			return nil, errors.New("deadlock detected")
		},
	}
	catalog := NewCatalog()
	dispatcher := &recordingDispatcher{}

	p := NewPoller(newBackend(t, spotFeed), st, catalog, dispatcher, nil, "@every 1m", zap.NewNop())
	assert.Error(t, p.PollOnce(context.Background()))

	list, _ := catalog.List()
	assert.Len(t, list, 2)
	assert.Empty(t, dispatcher.ids)
}

func TestPoller_RunRejectsBadSchedule(t *testing.T) {
	st := &mockStore{}
	p := NewPoller(newBackend(t, spotFeed), st, NewCatalog(), nil, nil, "every now and then", zap.NewNop())
	assert.Error(t, p.Run(context.Background()))
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	var mu sync.Mutex
	polls := 0
	st := &mockStore{
		UpsertSpotsFunc: func(ctx context.Context, spots []booking.Spot) error { return nil },
		UpdateSpotStatusFunc: func(ctx context.Context, now time.Time, spots []booking.Spot) ([]string, error) {
			mu.Lock()
			polls++
			mu.Unlock()
			return nil, nil
		},
	}
	p := NewPoller(newBackend(t, spotFeed), st, NewCatalog(), nil, nil, "@every 1h", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- p.Run(ctx) }()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return polls == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestRenderers_FanOut(t *testing.T) {
	first, second := &recordingRenderer{}, &recordingRenderer{}
	snapshot := []booking.Spot{{ID: "A-12", Status: booking.SpotAvailable}}

	Renderers{first, second}.RenderSpots(snapshot)

	assert.Equal(t, [][]booking.Spot{snapshot}, first.snapshots)
	assert.Equal(t, [][]booking.Spot{snapshot}, second.snapshots)
}
