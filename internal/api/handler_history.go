package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"restaurant-admin-backend/internal/checkout"
	"restaurant-admin-backend/internal/model"
	"restaurant-admin-backend/internal/store"
)

// GetOrderHistory handles GET /api/order-history[?tableNumber=n].
func (h *Handler) GetOrderHistory(c *gin.Context) {
	var filter store.HistoryFilter
	if raw := c.Query("tableNumber"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid table number"})
			return
		}
		filter.TableNumber = &n
	}

	records, err := h.store.ListOrderHistory(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve order history"})
		return
	}
	c.JSON(http.StatusOK, records)
}

type historyItemRequest struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type updateHistoryRequest struct {
	TableNumber *int                  `json:"tableNumber"`
	TotalAmount *float64              `json:"totalAmount"`
	PaymentMode *string               `json:"paymentMode"`
	Status      *string               `json:"status"`
	BookMark    *bool                 `json:"bookMark"`
	Items       *[]historyItemRequest `json:"items"`
}

func (r updateHistoryRequest) toUpdate() (store.HistoryUpdate, error) {
	upd := store.HistoryUpdate{
		TableNumber: r.TableNumber,
		TotalAmount: r.TotalAmount,
		BookMark:    r.BookMark,
	}
	if r.TableNumber != nil && *r.TableNumber <= 0 {
		return upd, errors.New("tableNumber must be positive")
	}
	if r.TotalAmount != nil && *r.TotalAmount < 0 {
		return upd, errors.New("totalAmount must not be negative")
	}
	if r.PaymentMode != nil {
		mode, err := checkout.ParsePaymentMode(*r.PaymentMode)
		if err != nil {
			return upd, err
		}
		s := string(mode)
		upd.PaymentMode = &s
	}
	if r.Status != nil {
		switch *r.Status {
		case model.HistoryStatusCompleted, model.HistoryStatusPending,
			model.HistoryStatusRefunded, model.HistoryStatusCancelled:
			upd.Status = r.Status
		default:
			return upd, errors.New("unknown status " + strconv.Quote(*r.Status))
		}
	}
	if r.Items != nil {
		items := make([]store.LineItem, 0, len(*r.Items))
		for _, it := range *r.Items {
			if it.Name == "" || it.Quantity <= 0 || it.Price < 0 {
				return upd, errors.New("items need a name, a positive quantity and a non-negative price")
			}
			items = append(items, store.LineItem{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
		}
		upd.Items = &items
	}
	return upd, nil
}

// UpdateOrderHistory handles PUT /api/order-history/:id.
func (h *Handler) UpdateOrderHistory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order history ID"})
		return
	}

	var req updateHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	upd, err := req.toUpdate()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.store.UpdateOrderHistory(c.Request.Context(), id, upd)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	h.historyCache.Flush()
	c.JSON(http.StatusOK, record)
}
