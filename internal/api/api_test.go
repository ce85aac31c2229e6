package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"housing-listings-backend/internal/auth"
	"housing-listings-backend/internal/db"
	"housing-listings-backend/internal/dto"
	"housing-listings-backend/internal/model"
	"housing-listings-backend/internal/mw"
	"housing-listings-backend/internal/query"
	"housing-listings-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []store.ListingOpened
}

func (d *recordingDispatcher) Dispatch(_ context.Context, job store.ListingOpened) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	return nil
}

func (d *recordingDispatcher) Jobs() []store.ListingOpened {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]store.ListingOpened(nil), d.jobs...)
}

type testServer struct {
	router       *gin.Engine
	store        store.Store
	db           *gorm.DB
	verifier     *auth.Verifier
	push         *recordingDispatcher
	jurisdiction model.Jurisdiction
	admin        auth.Caller
}

type serverOption func(*Handler, *RouterConfig)

func withCache(backend mw.Backend) serverOption {
	return func(_ *Handler, rc *RouterConfig) {
		rc.Cache = backend
		rc.CacheTTL = time.Minute
	}
}

func withVAPID(publicKey string) serverOption {
	return func(h *Handler, _ *RouterConfig) {
		h.webpush = &webpush.Options{VAPIDPublicKey: publicKey}
	}
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))

	j := model.Jurisdiction{Name: "Alameda"}
	require.NoError(t, gormDB.Create(&j).Error)

	ts := &testServer{
		store:        store.NewGormStore(gormDB),
		db:           gormDB,
		verifier:     auth.NewVerifier("test-secret"),
		push:         &recordingDispatcher{},
		jurisdiction: j,
		admin:        auth.Caller{UserID: uuid.NewString(), IsAdmin: true},
	}
	h := NewHandler(ts.store, nil, ts.push, 10, zap.NewNop())
	rc := RouterConfig{Verifier: ts.verifier, PartnerOrigins: []string{"https://partners.example.org"}, Log: zap.NewNop()}
	for _, opt := range opts {
		opt(h, &rc)
	}
	ts.router = NewRouter(h, rc)
	return ts
}

func (ts *testServer) token(t *testing.T, c auth.Caller) string {
	t.Helper()
	token, err := ts.verifier.Sign(c, time.Hour)
	require.NoError(t, err)
	return token
}

// do performs a request. A zero caller sends no Authorization header.
func (ts *testServer) do(t *testing.T, method, target string, caller auth.Caller, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !caller.Anonymous() {
		req.Header.Set("Authorization", "Bearer "+ts.token(t, caller))
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) seedListing(t *testing.T, name, status string) dto.Listing {
	t.Helper()
	out, err := ts.store.CreateListing(context.Background(), ts.admin, dto.Listing{
		Name:         name,
		Status:       status,
		Jurisdiction: dto.JurisdictionRef{ID: ts.jurisdiction.ID},
		Property:     dto.Property{City: "Oakland"},
	})
	require.NoError(t, err)
	return out
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", auth.Caller{}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListListings_FiltersAndPages(t *testing.T) {
	ts := newTestServer(t)
	ts.seedListing(t, "Alder Court", "active")
	ts.seedListing(t, "Birch Commons", "active")
	ts.seedListing(t, "Cedar Flats", "closed")
	ts.seedListing(t, "Dogwood Place", "active")

	values := url.Values{}
	values.Set("filter[0][$comparison]", "=")
	values.Set("filter[0][status]", "active")
	values.Add("orderBy", "name")
	values.Add("orderDir", "asc")
	values.Set("limit", "2")
	values.Set("page", "2")

	w := ts.do(t, http.MethodGet, "/api/listings?"+values.Encode(), auth.Caller{}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	page := decode[query.Paginated[dto.Listing]](t, w)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Dogwood Place", page.Items[0].Name)
	assert.Nil(t, page.Items[0].ApplicationCount)
	assert.Equal(t, query.Meta{CurrentPage: 2, ItemCount: 1, ItemsPerPage: 2, TotalItems: 3, TotalPages: 2}, page.Meta)
}

func TestListListings_DefaultLimitAndAll(t *testing.T) {
	ts := newTestServer(t)
	for i := 0; i < 12; i++ {
		ts.seedListing(t, fmt.Sprintf("listing %02d", i), "active")
	}

	w := ts.do(t, http.MethodGet, "/api/listings", auth.Caller{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[query.Paginated[dto.Listing]](t, w)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, 2, page.Meta.TotalPages)

	w = ts.do(t, http.MethodGet, "/api/listings?limit=all", auth.Caller{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decode[query.Paginated[dto.Listing]](t, w)
	assert.Len(t, page.Items, 12)
	assert.Equal(t, query.Meta{CurrentPage: 1, ItemCount: 12, ItemsPerPage: 12, TotalItems: 12, TotalPages: 1}, page.Meta)
}

func TestListListings_PrivilegedCallersSeeApplicationCounts(t *testing.T) {
	ts := newTestServer(t)
	listing := ts.seedListing(t, "Alder Court", "active")
	_, err := ts.store.CreateApplication(context.Background(), auth.Caller{}, dto.Application{ListingID: listing.ID})
	require.NoError(t, err)

	w := ts.do(t, http.MethodGet, "/api/listings", ts.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[query.Paginated[dto.Listing]](t, w)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Items[0].ApplicationCount)
	assert.EqualValues(t, 1, *page.Items[0].ApplicationCount)

	req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)
	req.Header.Set("Origin", "https://partners.example.org/")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[query.Paginated[dto.Listing]](t, rec)
	require.NotNil(t, page.Items[0].ApplicationCount)
}

func TestListListings_BadRequests(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name  string
		query string
	}{
		{"unknown field", "filter[0][$comparison]==&filter[0][bogus]=1"},
		{"unknown comparator", "filter[0][$comparison]=LIKE&filter[0][name]=x"},
		{"bad page", "page=zero"},
		{"bad limit", "limit=ten"},
		{"page overflow", "page=4611686018427387905&limit=2"},
		{"unknown direction", "orderBy=name&orderDir=sideways"},
		{"unknown order", "orderBy=rent"},
		{"unknown view", "view=huge"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, "/api/listings?"+tt.query, auth.Caller{}, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestGetListing(t *testing.T) {
	ts := newTestServer(t)
	listing := ts.seedListing(t, "Alder Court", "active")

	w := ts.do(t, http.MethodGet, "/api/listings/"+listing.ID+"?view=full", auth.Caller{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[dto.Listing](t, w)
	assert.Equal(t, "Alder Court", got.Name)
	assert.Equal(t, ts.jurisdiction.ID, got.Jurisdiction.ID)

	w = ts.do(t, http.MethodGet, "/api/listings/"+uuid.NewString(), auth.Caller{}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodGet, "/api/listings/not-an-id", auth.Caller{}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateListing_AuthorizationAndNotification(t *testing.T) {
	ts := newTestServer(t)
	body := dto.Listing{
		Name:         "Elm Terrace",
		Status:       "active",
		Jurisdiction: dto.JurisdictionRef{ID: ts.jurisdiction.ID},
	}

	w := ts.do(t, http.MethodPost, "/api/listings", auth.Caller{}, body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	renter := auth.Caller{UserID: uuid.NewString()}
	w = ts.do(t, http.MethodPost, "/api/listings", renter, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, http.MethodPost, "/api/listings", ts.admin, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.Listing](t, w)
	assert.NotEmpty(t, created.ID)

	assert.Equal(t, []store.ListingOpened{{ListingID: created.ID, Name: "Elm Terrace", JurisdictionID: ts.jurisdiction.ID}}, ts.push.Jobs())

	body.Status = "pending"
	body.Name = "Fir Row"
	w = ts.do(t, http.MethodPost, "/api/listings", ts.admin, body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, ts.push.Jobs(), 1)
}

func TestUpdateListing_OpeningDispatchesOnce(t *testing.T) {
	ts := newTestServer(t)
	listing := ts.seedListing(t, "Alder Court", "pending")

	body := dto.Listing{Name: "Alder Court", Status: "active", Jurisdiction: dto.JurisdictionRef{ID: ts.jurisdiction.ID}}
	w := ts.do(t, http.MethodPut, "/api/listings/"+listing.ID, ts.admin, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, ts.push.Jobs(), 1)

	w = ts.do(t, http.MethodPut, "/api/listings/"+listing.ID, ts.admin, body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, ts.push.Jobs(), 1)

	w = ts.do(t, http.MethodPut, "/api/listings/"+listing.ID, ts.admin, map[string]any{"name": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteListing(t *testing.T) {
	ts := newTestServer(t)
	listing := ts.seedListing(t, "Alder Court", "active")

	w := ts.do(t, http.MethodDelete, "/api/listings/"+listing.ID, auth.Caller{}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/listings/"+listing.ID, ts.admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/api/listings/"+listing.ID, auth.Caller{}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApplications_Lifecycle(t *testing.T) {
	ts := newTestServer(t)
	listing := ts.seedListing(t, "Alder Court", "active")
	partner := auth.Caller{UserID: uuid.NewString(), IsPartner: true, JurisdictionIDs: []string{ts.jurisdiction.ID}}
	renter := auth.Caller{UserID: uuid.NewString()}

	applicant := dto.Applicant{FirstName: "Ada", LastName: "Lovelace", EmailAddress: "ada@example.com"}
	w := ts.do(t, http.MethodPost, "/api/applications", renter, dto.Application{ListingID: listing.ID, Applicant: applicant})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[dto.Application](t, w)
	require.NotNil(t, first.UserID)
	assert.Equal(t, renter.UserID, *first.UserID)

	w = ts.do(t, http.MethodPost, "/api/applications", auth.Caller{}, dto.Application{ListingID: listing.ID, Applicant: applicant})
	require.Equal(t, http.StatusCreated, w.Code)
	second := decode[dto.Application](t, w)

	w = ts.do(t, http.MethodPost, "/api/applications", auth.Caller{}, dto.Application{ListingID: uuid.NewString()})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/applications/"+first.ID, renter, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, "/api/applications/"+second.ID, renter, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/applications?search=lovelace", partner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[query.Paginated[dto.Application]](t, w)
	assert.Equal(t, 2, page.Meta.TotalItems)

	w = ts.do(t, http.MethodGet, "/api/listings/"+listing.ID+"/applications/flagged", partner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	flagged := decode[struct {
		Items []dto.FlaggedSet `json:"items"`
	}](t, w)
	require.Len(t, flagged.Items, 1)
	assert.Equal(t, "ada@example.com", flagged.Items[0].Key)

	w = ts.do(t, http.MethodPut, "/api/applications/duplicates", partner, map[string]any{"ids": []string{second.ID}, "markedAsDuplicate": true})
	assert.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPut, "/api/applications/duplicates", partner, map[string]any{"ids": []string{second.ID}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(t, http.MethodPut, "/api/applications/duplicates", renter, map[string]any{"ids": []string{second.ID}, "markedAsDuplicate": false})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestExportApplications(t *testing.T) {
	ts := newTestServer(t)
	listing := ts.seedListing(t, "Alder Court", "active")
	_, err := ts.store.CreateApplication(context.Background(), auth.Caller{}, dto.Application{
		ListingID: listing.ID,
		Applicant: dto.Applicant{FirstName: "Ada", LastName: "Lovelace"},
	})
	require.NoError(t, err)

	w := ts.do(t, http.MethodGet, "/api/listings/"+listing.ID+"/applications/export", auth.Caller{}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/api/listings/"+listing.ID+"/applications/export", ts.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), listing.ID)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	w = ts.do(t, http.MethodGet, "/api/listings/"+listing.ID+"/applications/export?format=csv", ts.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, csvContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Lovelace")

	w = ts.do(t, http.MethodGet, "/api/listings/"+listing.ID+"/applications/export?format=pdf", ts.admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJurisdictionsAndQuestions(t *testing.T) {
	ts := newTestServer(t)
	q := model.MultiselectQuestion{Text: "Live or work in Alameda", JurisdictionID: ts.jurisdiction.ID, ApplicationSection: "preferences"}
	require.NoError(t, ts.db.Create(&q).Error)

	w := ts.do(t, http.MethodGet, "/api/jurisdictions", auth.Caller{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]dto.Jurisdiction](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "Alameda", list[0].Name)

	w = ts.do(t, http.MethodGet, "/api/jurisdictions/"+ts.jurisdiction.ID, auth.Caller{}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, "/api/jurisdictions/"+uuid.NewString(), auth.Caller{}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	values := url.Values{}
	values.Set("filter[0][jurisdiction]", ts.jurisdiction.ID)
	w = ts.do(t, http.MethodGet, "/api/multiselectQuestions?"+values.Encode(), auth.Caller{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]dto.MultiselectQuestion](t, w), 1)

	values.Set("filter[0][jurisdiction]", uuid.NewString())
	w = ts.do(t, http.MethodGet, "/api/multiselectQuestions?"+values.Encode(), auth.Caller{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]dto.MultiselectQuestion](t, w))
}

func TestPutSubscription(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPut, "/api/subscriptions", auth.Caller{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())
}

func TestSubscriptions_Lifecycle(t *testing.T) {
	ts := newTestServer(t)
	endpoint := "https://push.example.com/send/abc"

	w := ts.do(t, http.MethodPut, "/api/subscriptions", auth.Caller{}, store.SubscriptionInput{
		Endpoint:        endpoint,
		P256DH:          "key",
		Auth:            "secret",
		Language:        "es",
		JurisdictionIDs: []string{ts.jurisdiction.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/subscriptions?endpoint="+endpoint, auth.Caller{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.Subscription{Endpoint: endpoint, Language: "es", JurisdictionIDs: []string{ts.jurisdiction.ID}}, decode[dto.Subscription](t, w))

	w = ts.do(t, http.MethodPut, "/api/subscriptions", auth.Caller{}, store.SubscriptionInput{
		Endpoint: endpoint, P256DH: "key", Auth: "secret", JurisdictionIDs: []string{uuid.NewString()},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/subscriptions", auth.Caller{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/subscriptions", auth.Caller{}, map[string]string{"endpoint": endpoint})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/api/subscriptions?endpoint="+endpoint, auth.Caller{}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRawQueryParam(t *testing.T) {
	raw, ok := rawQueryParam("a=1&endpoint=https%3A%2F%2Fx&b=2", "endpoint")
	assert.True(t, ok)
	assert.Equal(t, "https%3A%2F%2Fx", raw)

	_, ok = rawQueryParam("a=1", "endpoint")
	assert.False(t, ok)
}

func TestGetVAPIDPublicKey(t *testing.T) {
	w := newTestServer(t).do(t, http.MethodGet, "/api/vapid_public_key", auth.Caller{}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = newTestServer(t, withVAPID("BPublic")).do(t, http.MethodGet, "/api/vapid_public_key", auth.Caller{}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"publicKey":"BPublic"}`, w.Body.String())
}

func TestRouter_CachesPublicListings(t *testing.T) {
	ts := newTestServer(t, withCache(mw.NewMemoryBackend(time.Minute)))
	ts.seedListing(t, "Alder Court", "active")

	w := ts.do(t, http.MethodGet, "/api/listings", auth.Caller{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Cache"))

	ts.seedListing(t, "Birch Commons", "active")

	w = ts.do(t, http.MethodGet, "/api/listings", auth.Caller{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Len(t, decode[query.Paginated[dto.Listing]](t, w).Items, 1)

	w = ts.do(t, http.MethodGet, "/api/listings", ts.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Cache"))
	assert.Len(t, decode[query.Paginated[dto.Listing]](t, w).Items, 2)
}

func TestRouter_RejectsBadTokens(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)
	req.Header.Set("Authorization", "Bearer forged")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
