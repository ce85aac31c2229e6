// Package feed periodically imports listings from an upstream listings API that
// serves the same paged {items, meta} shape as this service.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"housing-listings-backend/config"
	"housing-listings-backend/internal/dto"
	"housing-listings-backend/internal/query"
	"housing-listings-backend/internal/store"
)

// Response is one upstream page.
type Response = query.Paginated[dto.Listing]

// Importer persists a batch of upstream listings.
type Importer interface {
	UpsertExternalListings(ctx context.Context, jurisdictionID string, items []dto.Listing) ([]store.ListingOpened, error)
}

// Dispatcher queues a notification for a newly opened listing.
type Dispatcher interface {
	Dispatch(ctx context.Context, job store.ListingOpened) error
}

// Service orchestrates the import. A nil dispatcher disables notifications.
type Service struct {
	cfg      config.FeedConfig
	importer Importer
	push     Dispatcher
	client   *http.Client
	log      *zap.Logger
}

// NewService creates and initializes a new feed service.
func NewService(cfg config.FeedConfig, importer Importer, push Dispatcher, log *zap.Logger) *Service {
	log = log.Named("feed")
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warn("invalid proxy url, feed will not use a proxy", zap.String("proxy", cfg.HTTPProxy), zap.Error(err))
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Service{
		cfg:      cfg,
		importer: importer,
		push:     push,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		log: log,
	}
}

// Run imports once and then every configured interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info("feed is disabled, not starting")
		return
	}
	s.log.Info("starting feed service", zap.String("url", s.cfg.URL), zap.Duration("interval", s.cfg.Interval))

	if err := s.SyncOnce(ctx); err != nil {
		s.log.Error("feed sync failed", zap.Error(err))
	}

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("feed service shutting down")
			return
		case <-timer.C:
			if err := s.SyncOnce(ctx); err != nil {
				s.log.Error("feed sync failed", zap.Error(err))
			}
			timer.Reset(s.cfg.Interval)
		}
	}
}

// SyncOnce pulls every upstream page, upserts the listings and dispatches a
// notification for each listing that became active.
func (s *Service) SyncOnce(ctx context.Context) error {
	var items []dto.Listing
	var fetchErr error
	for page, totalPages := 1, 1; page <= totalPages; page++ {
		resp, err := s.fetchPage(ctx, page)
		if err != nil {
			fetchErr = fmt.Errorf("fetch page %d: %w", page, err)
			break
		}
		if len(resp.Items) == 0 {
			break
		}
		totalPages = resp.Meta.TotalPages
		items = append(items, resp.Items...)
		s.log.Debug("fetched feed page", zap.Int("page", page), zap.Int("total_pages", totalPages), zap.Int("items", len(items)))
	}

	// A failed first page leaves nothing to import.
	if fetchErr != nil && len(items) == 0 {
		return fetchErr
	}
	if fetchErr != nil {
		s.log.Warn("importing partial feed", zap.Int("items", len(items)), zap.Error(fetchErr))
	}

	opened, err := s.importer.UpsertExternalListings(ctx, s.cfg.JurisdictionID, items)
	if err != nil {
		return fmt.Errorf("import %d listings: %w", len(items), err)
	}

	if s.push != nil {
		for _, job := range opened {
			if err := s.push.Dispatch(ctx, job); err != nil {
				s.log.Warn("failed to dispatch notification", zap.String("listing_id", job.ListingID), zap.Error(err))
			}
		}
	}

	s.log.Info("feed sync finished", zap.Int("items", len(items)), zap.Int("opened", len(opened)))
	return nil
}

// fetchPage fetches a single page of listings from the upstream API.
func (s *Service) fetchPage(ctx context.Context, page int) (*Response, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed url: %w", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(s.cfg.PageSize))
	q.Set("view", string(dto.ViewFull))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range s.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feed response: %w", err)
	}
	return &out, nil
}
