package internal

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
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

	"housing-listings-backend/config"
	"housing-listings-backend/internal/api"
	"housing-listings-backend/internal/auth"
	"housing-listings-backend/internal/db"
	"housing-listings-backend/internal/dto"
	"housing-listings-backend/internal/feed"
	"housing-listings-backend/internal/model"
	"housing-listings-backend/internal/notification"
	"housing-listings-backend/internal/query"
	"housing-listings-backend/internal/store"
)

// browserKeys returns a p256dh and auth pair the way a browser would encode them.
func browserKeys(t *testing.T) (string, string) {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()), base64.RawURLEncoding.EncodeToString(secret)
}

// pushEndpoint counts deliveries and answers each with status.
func pushEndpoint(status int, hits *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.Header.Get("Authorization"), "vapid ") {
			hits.Add(1)
		}
		w.WriteHeader(status)
	}))
}

// TestFeedImportNotifiesSubscribers runs an upstream import through the store,
// the push pool and the public API.
func TestFeedImportNotifiesSubscribers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	// --- Test Setup ---
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	jurisdiction := model.Jurisdiction{Name: "Alameda"}
	require.NoError(t, testDB.Create(&jurisdiction).Error)
	appStore := store.NewGormStore(testDB)

	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	webpushOptions := &webpush.Options{
		VAPIDPublicKey:  publicKey,
		VAPIDPrivateKey: privateKey,
		Subscriber:      "ops@example.org",
		TTL:             60,
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool := notification.NewWorkerPool(2, appStore, webpushOptions, log)
	pool.Start(ctx)
	defer func() {
		cancel()
		pool.Wait()
	}()

	router := api.NewRouter(
		api.NewHandler(appStore, webpushOptions, pool, 10, log),
		api.RouterConfig{Verifier: auth.NewVerifier("secret"), Log: log},
	)

	// Two browsers subscribe; the second has since unsubscribed at the push service.
	var liveHits, goneHits atomic.Int32
	live := pushEndpoint(http.StatusCreated, &liveHits)
	defer live.Close()
	gone := pushEndpoint(http.StatusGone, &goneHits)
	defer gone.Close()

	for _, endpoint := range []string{live.URL + "/push/live", gone.URL + "/push/gone"} {
		p256dh, authKey := browserKeys(t)
		body, err := json.Marshal(store.SubscriptionInput{
			Endpoint:        endpoint,
			P256DH:          p256dh,
			Auth:            authKey,
			Language:        "es",
			JurisdictionIDs: []string{jurisdiction.ID},
		})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPut, "/api/subscriptions", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	// The upstream serves one open and one pending listing.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items := []dto.Listing{
			{ID: "up-1", Name: "Alder Court", Status: "active"},
			{ID: "up-2", Name: "Birch Commons", Status: "pending"},
		}
		json.NewEncoder(w).Encode(feed.Response{Items: items, Meta: query.NewMeta(1, 10, len(items), len(items))})
	}))
	defer upstream.Close()

	feedSvc := feed.NewService(config.FeedConfig{
		Enabled:        true,
		URL:            upstream.URL,
		JurisdictionID: jurisdiction.ID,
		PageSize:       10,
	}, appStore, pool, log)

	// --- Run ---
	require.NoError(t, feedSvc.SyncOnce(ctx))

	// --- Verify ---
	assert.Eventually(t, func() bool {
		return liveHits.Load() == 1 && goneHits.Load() == 1
	}, 5*time.Second, 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		_, err := appStore.GetSubscription(ctx, gone.URL+"/push/gone")
		return err == store.ErrNotFound
	}, 5*time.Second, 20*time.Millisecond, "expired subscription should be pruned")

	_, err = appStore.GetSubscription(ctx, live.URL+"/push/live")
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/listings?orderBy=name", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var page query.Paginated[dto.Listing]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Alder Court", page.Items[0].Name)
	require.NotNil(t, page.Items[0].ExternalID)
	assert.Equal(t, "up-1", *page.Items[0].ExternalID)
	assert.Equal(t, jurisdiction.ID, page.Items[0].Jurisdiction.ID)

	// A second sync finds nothing new to announce.
	require.NoError(t, feedSvc.SyncOnce(ctx))
	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 1, liveHits.Load())
}
