package notification

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"restaurant-admin-backend/internal/metrics"
	"restaurant-admin-backend/internal/model"
)

// ErrQueueFull is returned by Dispatch when every worker is busy and the buffer is full.
var ErrQueueFull = errors.New("notification queue full")

// Message is a browser notification delivered to every admin subscription.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	// RequireInteraction keeps the notification on screen until dismissed.
	RequireInteraction bool   `json:"requireInteraction"`
	Tag                string `json:"tag,omitempty"`
}

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

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Message
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	rec     metrics.Recorder
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, rec metrics.Recorder) *WorkerPool {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Message, size*8),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
		rec:     rec,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case msg := <-wp.jobs:
			log.Printf("Worker %d processing %q", id, msg.Title)
			wp.broadcast(ctx, msg)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a message without blocking.
func (wp *WorkerPool) Dispatch(msg Message) error {
	select {
	case wp.jobs <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Message {
	return wp.jobs
}

// broadcast sends msg to every stored subscription.
func (wp *WorkerPool) broadcast(ctx context.Context, msg Message) {
	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).Find(&subscriptions).Error; err != nil {
		log.Printf("Error fetching subscriptions: %v", err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error encoding notification %q: %v", msg.Title, err)
		return
	}

	log.Printf("Sending %d notifications for %q", len(subscriptions), msg.Title)
	for _, sub := range subscriptions {
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
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		wp.rec.IncCounter(metrics.PushExpired, 1)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
		return
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		wp.rec.IncCounter(metrics.PushSent, 1)
	}
}
