package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/patrickmn/go-cache"

	"restaurant-admin-backend/internal/checkout"
	"restaurant-admin-backend/internal/frontdesk"
	"restaurant-admin-backend/internal/notification"
	"restaurant-admin-backend/internal/roster"
	"restaurant-admin-backend/internal/store"
)

// Desk is the live table state the handlers drive.
type Desk interface {
	Snapshot(ctx context.Context) ([]roster.Table, error)
	Table(ctx context.Context, number int) (roster.Table, error)
	Bill(ctx context.Context, number int) (roster.Bill, error)
	Cycle(ctx context.Context, number int) (roster.Table, frontdesk.Notice, error)
	ToggleServed(ctx context.Context, number int, lineID string) (roster.OrderLine, error)
	GenerateOTP(ctx context.Context, number int) (string, frontdesk.Notice, error)
	Checkout(ctx context.Context, number int, paymentMode string) (frontdesk.CheckoutOutcome, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	desk    Desk
	hub     *notification.Hub
	webpush *webpush.Options
	// historyCache backs the cached order history listing and is flushed
	// whenever history changes.
	historyCache *cache.Cache
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, desk Desk, hub *notification.Hub, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:        s,
		desk:         desk,
		hub:          hub,
		webpush:      webpushOptions,
		historyCache: cache.New(5*time.Minute, 10*time.Minute),
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var stepErr *checkout.StepError
	switch {
	case errors.Is(err, roster.ErrUnknownTable),
		errors.Is(err, roster.ErrUnknownOrderLine),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrInvalidPaymentMode):
		return http.StatusBadRequest
	case errors.Is(err, frontdesk.ErrCheckoutInProgress):
		return http.StatusConflict
	case errors.Is(err, frontdesk.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.As(err, &stepErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
