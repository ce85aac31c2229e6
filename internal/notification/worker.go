package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"housing-listings-backend/internal/model"
	"housing-listings-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Subscriptions is the part of the store the pool reads and prunes.
type Subscriptions interface {
	SubscriptionsForJurisdiction(ctx context.Context, jurisdictionID string) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// Message is the JSON payload delivered to the browser.
type Message struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	ListingID string `json:"listingId"`
}

var titles = map[string]string{
	"en": "New listing open for applications",
	"es": "Nuevo anuncio abierto para solicitudes",
	"zh": "新房源开放申请",
	"vi": "Danh sách mới đang nhận đơn",
}

// NewMessage renders the notification for one opened listing in language,
// falling back to English.
func NewMessage(job store.ListingOpened, language string) Message {
	title, ok := titles[language]
	if !ok {
		title = titles["en"]
	}
	return Message{Title: title, Body: job.Name, ListingID: job.ListingID}
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan store.ListingOpened
	subs    Subscriptions
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, subs Subscriptions, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan store.ListingOpened, size), // Buffered channel
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
		log:     log.Named("push"),
	}
}

// Start launches the worker goroutines. They exit when ctx is done.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker started by Start has returned.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	wp.log.Debug("worker started", zap.Int("worker", id))
	for {
		select {
		case job := <-wp.jobs:
			wp.log.Debug("worker processing listing", zap.Int("worker", id), zap.String("listing_id", job.ListingID))
			wp.notifyOpened(ctx, job)
		case <-ctx.Done():
			wp.log.Debug("worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues a job, blocking while the pool is saturated or until ctx is done.
func (wp *WorkerPool) Dispatch(ctx context.Context, job store.ListingOpened) error {
	select {
	case wp.jobs <- job:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatch push for listing %s: %w", job.ListingID, ctx.Err())
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan store.ListingOpened {
	return wp.jobs
}

// notifyOpened sends the listing to every subscription following its jurisdiction.
func (wp *WorkerPool) notifyOpened(ctx context.Context, job store.ListingOpened) {
	subscriptions, err := wp.subs.SubscriptionsForJurisdiction(ctx, job.JurisdictionID)
	if err != nil {
		wp.log.Error("failed to fetch subscriptions", zap.String("jurisdiction_id", job.JurisdictionID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	wp.log.Info("sending listing notifications",
		zap.String("listing_id", job.ListingID),
		zap.Int("subscriptions", len(subscriptions)))

	for _, sub := range subscriptions {
		payload, err := json.Marshal(NewMessage(job, sub.Language))
		if err != nil {
			wp.log.Error("failed to encode notification", zap.Error(err))
			return
		}
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warn("failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		wp.log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.subs.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
