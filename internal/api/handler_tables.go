package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-admin-backend/internal/checkout"
	"restaurant-admin-backend/internal/parse"
)

// tableNumber reads the :id path parameter, accepting "3", "03" or "T-03".
func tableNumber(c *gin.Context) (int, bool) {
	n, err := parse.TableNumber(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid table ID"})
		return 0, false
	}
	return n, true
}

// GetTables handles GET /api/tables.
func (h *Handler) GetTables(c *gin.Context) {
	tables, err := h.desk.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tables)
}

// GetTable handles GET /api/tables/:id.
func (h *Handler) GetTable(c *gin.Context) {
	n, ok := tableNumber(c)
	if !ok {
		return
	}
	t, err := h.desk.Table(c.Request.Context(), n)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, t)
}

// GetBill handles GET /api/tables/:id/bill.
func (h *Handler) GetBill(c *gin.Context) {
	n, ok := tableNumber(c)
	if !ok {
		return
	}
	bill, err := h.desk.Bill(c.Request.Context(), n)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, bill)
}

// CycleTable handles POST /api/tables/:id/cycle.
func (h *Handler) CycleTable(c *gin.Context) {
	n, ok := tableNumber(c)
	if !ok {
		return
	}
	t, notice, err := h.desk.Cycle(c.Request.Context(), n)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "notice": notice})
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": t, "notice": notice})
}

// ToggleServed handles POST /api/tables/:id/orders/:lineId/served.
func (h *Handler) ToggleServed(c *gin.Context) {
	n, ok := tableNumber(c)
	if !ok {
		return
	}
	line, err := h.desk.ToggleServed(c.Request.Context(), n, c.Param("lineId"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, line)
}

// GenerateOTP handles POST /api/tables/:id/otp.
func (h *Handler) GenerateOTP(c *gin.Context) {
	n, ok := tableNumber(c)
	if !ok {
		return
	}
	code, notice, err := h.desk.GenerateOTP(c.Request.Context(), n)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "notice": notice})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"otp": code, "tableId": parse.TableID(n), "notice": notice})
}

type checkoutRequest struct {
	PaymentMode string `json:"paymentMode" binding:"required"`
}

// Checkout handles POST /api/tables/:id/checkout.
func (h *Handler) Checkout(c *gin.Context) {
	n, ok := tableNumber(c)
	if !ok {
		return
	}
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.desk.Checkout(c.Request.Context(), n, req.PaymentMode)
	if out.History != nil || historyWritten(err) {
		h.historyCache.Flush()
	}
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "notice": out.Notice})
		return
	}
	c.JSON(http.StatusOK, out)
}

// historyWritten reports whether a failed checkout got past the history step.
func historyWritten(err error) bool {
	var stepErr *checkout.StepError
	return errors.As(err, &stepErr) && stepErr.Step != checkout.StepHistory
}
