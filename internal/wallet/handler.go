package wallet

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"campusmarket/internal/api"
	"campusmarket/internal/apperr"
	"campusmarket/internal/auth"
	"campusmarket/internal/logger"
	"campusmarket/internal/metrics"

	"github.com/gin-gonic/gin"
)

const streamKeepAlive = 25 * time.Second

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Pay godoc
// @Summary      Pay for a transaction from the wallet
// @Description  Moves the amount from the buyer's balance into escrow and marks an Accepted transaction as Paid.
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      PayRequest  true  "Payment"
// @Success      200      {object}  api.SuccessResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      401      {object}  api.ErrorResponse
// @Failure      403      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /api/wallet/pay [post]
func (h *Handler) Pay(c *gin.Context) {
	var req PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondError(c, apperr.BadRequest("Missing transactionId or amount"))
		return
	}
	if err := req.Validate(); err != nil {
		api.RespondError(c, err)
		return
	}

	userID, ok := auth.GetUserID(c)
	if !ok {
		api.RespondError(c, apperr.Unauthenticated("User not authenticated"))
		return
	}

	if err := h.service.Pay(c.Request.Context(), userID, req); err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.SuccessResponse{Success: true})
}

// Get godoc
// @Summary      Wallet summary
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "History page size"  default(50)
// @Param        offset  query     int  false  "History offset"     default(0)
// @Success      200     {object}  Summary
// @Failure      401     {object}  api.ErrorResponse
// @Router       /api/wallet/get [get]
func (h *Handler) Get(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.RespondError(c, apperr.Unauthenticated("User not authenticated"))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	summary, err := h.service.Summary(c.Request.Context(), userID, limit, offset)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// CashIn godoc
// @Summary      Add funds
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CashRequest  true  "Amount and channel"
// @Success      200      {object}  Entry
// @Failure      400      {object}  api.ErrorResponse
// @Router       /api/wallet/cash-in [post]
func (h *Handler) CashIn(c *gin.Context) {
	h.cash(c, h.service.CashIn)
}

// CashOut godoc
// @Summary      Withdraw funds
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CashRequest  true  "Amount and channel"
// @Success      200      {object}  Entry
// @Failure      400      {object}  api.ErrorResponse
// @Router       /api/wallet/cash-out [post]
func (h *Handler) CashOut(c *gin.Context) {
	h.cash(c, h.service.CashOut)
}

type cashFunc func(ctx context.Context, userID string, req CashRequest) (*Entry, error)

func (h *Handler) cash(c *gin.Context, apply cashFunc) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.RespondError(c, apperr.Unauthenticated("User not authenticated"))
		return
	}

	var req CashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	entry, err := apply(c.Request.Context(), userID, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// Stream godoc
// @Summary      Live wallet updates
// @Description  Server-Sent Events. Sends the summary on connect and a fresh summary after every wallet change.
// @Tags         wallet
// @Security     BearerAuth
// @Produce      text/event-stream
// @Success      200  {object}  Summary
// @Failure      401  {object}  api.ErrorResponse
// @Router       /api/wallet/stream [get]
func (h *Handler) Stream(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.RespondError(c, apperr.Unauthenticated("User not authenticated"))
		return
	}

	ctx := c.Request.Context()
	events, err := h.service.Subscribe(ctx, userID)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	summary, err := h.service.Summary(ctx, userID, 50, 0)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	metrics.RealtimeSubscribers.Inc()
	defer metrics.RealtimeSubscribers.Dec()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("wallet", summary)
	c.Writer.Flush()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		case _, open := <-events:
			if !open {
				return false
			}
			summary, err := h.service.Summary(ctx, userID, 50, 0)
			if err != nil {
				logger.Warn("wallet refetch failed", "user_id", userID, "error", err)
				c.SSEvent("error", api.ErrorResponse{Error: apperr.Message(err), Code: apperr.KindOf(err)})
				return true
			}
			c.SSEvent("wallet", summary)
			return true
		}
	})
}
