package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"housing-listings-backend/config"
	"housing-listings-backend/internal/dto"
	"housing-listings-backend/internal/query"
	"housing-listings-backend/internal/store"
)

type mockImporter struct {
	mu       sync.Mutex
	calls    int
	received []dto.Listing
	opened   []store.ListingOpened
	err      error
}

func (m *mockImporter) UpsertExternalListings(_ context.Context, jurisdictionID string, items []dto.Listing) ([]store.ListingOpened, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.received = append(m.received, items...)
	return m.opened, m.err
}

func (m *mockImporter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockDispatcher struct {
	mu   sync.Mutex
	jobs []store.ListingOpened
}

func (m *mockDispatcher) Dispatch(_ context.Context, job store.ListingOpened) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return nil
}

// upstream serves total listings in pages of the requested limit.
func upstream(t *testing.T, total int, failPage int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "full", r.URL.Query().Get("view"))
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if page == failPage {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		items := []dto.Listing{}
		for i := (page-1)*limit + 1; i <= min(page*limit, total); i++ {
			id := "ext-" + strconv.Itoa(i)
			items = append(items, dto.Listing{ExternalID: &id, Name: id, Status: "active"})
		}
		resp := query.Paginated[dto.Listing]{Items: items, Meta: query.NewMeta(page, limit, len(items), total)}
		json.NewEncoder(w).Encode(resp)
	}))
	return server
}

func testConfig(url string) config.FeedConfig {
	return config.FeedConfig{
		Enabled:        true,
		URL:            url,
		JurisdictionID: "jurisdiction",
		PageSize:       2,
		Interval:       time.Hour,
		Headers:        map[string]string{"X-Api-Key": "secret"},
	}
}

func TestSyncOnce_PagesAndDispatches(t *testing.T) {
	server := upstream(t, 5, 0)
	defer server.Close()
	importer := &mockImporter{opened: []store.ListingOpened{{ListingID: "l-1", JurisdictionID: "jurisdiction"}}}
	push := &mockDispatcher{}

	service := NewService(testConfig(server.URL), importer, push, zap.NewNop())
	require.NoError(t, service.SyncOnce(context.Background()))

	require.Len(t, importer.received, 5)
	assert.Equal(t, "ext-1", importer.received[0].Name)
	assert.Equal(t, "ext-5", importer.received[4].Name)
	assert.Equal(t, importer.opened, push.jobs)
}

func TestSyncOnce_Failures(t *testing.T) {
	testCases := []struct {
		name          string
		failPage      int
		importErr     error
		expectErr     bool
		expectedItems int
		expectedCalls int
	}{
		{name: "First page fails, nothing imported", failPage: 1, expectErr: true, expectedCalls: 0},
		{name: "Later page fails, partial import", failPage: 2, expectedItems: 2, expectedCalls: 1},
		{name: "Import fails", importErr: errors.New("db down"), expectErr: true, expectedItems: 5, expectedCalls: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := upstream(t, 5, tc.failPage)
			defer server.Close()
			importer := &mockImporter{err: tc.importErr}
			service := NewService(testConfig(server.URL), importer, nil, zap.NewNop())

			err := service.SyncOnce(context.Background())
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, importer.received, tc.expectedItems)
			assert.Equal(t, tc.expectedCalls, importer.Calls())
		})
	}
}

func TestSyncOnce_EmptyUpstream(t *testing.T) {
	server := upstream(t, 0, 0)
	defer server.Close()
	importer := &mockImporter{}
	service := NewService(testConfig(server.URL), importer, nil, zap.NewNop())

	require.NoError(t, service.SyncOnce(context.Background()))
	assert.Equal(t, 1, importer.Calls())
	assert.Empty(t, importer.received)
}

func TestRun_StopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	server := upstream(t, 1, 0)
	defer server.Close()
	importer := &mockImporter{}
	service := NewService(testConfig(server.URL), importer, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		service.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return importer.Calls() == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	service.client.CloseIdleConnections()
}

func TestRun_Disabled(t *testing.T) {
	importer := &mockImporter{}
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enabled = false

	NewService(cfg, importer, nil, zap.NewNop()).Run(context.Background())
	assert.Zero(t, importer.Calls())
}
