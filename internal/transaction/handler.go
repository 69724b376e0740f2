package transaction

import (
	"context"
	"net/http"
	"strconv"

	"campusmarket/internal/api"
	"campusmarket/internal/apperr"
	"campusmarket/internal/auth"
	"campusmarket/internal/post"

	"github.com/gin-gonic/gin"
)

// FormRoutes maps each transaction form endpoint to the post type it creates.
var FormRoutes = map[string]string{
	"SaleTransac":    post.TypeSale,
	"RentTransac":    post.TypeRent,
	"TradeTransac":   post.TypeTrade,
	"GivewayTransac": post.TypeGiveaway,
	"PasaBuyTransac": post.TypePasaBuy,
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func session(c *gin.Context) (auth.Session, bool) {
	s, ok := auth.CurrentSession(c)
	if !ok {
		api.RespondError(c, apperr.Unauthenticated("User not authenticated"))
	}
	return s, ok
}

// Create returns the form handler for postType.
//
// @Summary      Create transaction
// @Description  Form-encoded; the accepted fields depend on the post type.
// @Tags         transactions
// @Security     BearerAuth
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        form  path      string  true  "SaleTransac, RentTransac, TradeTransac, GivewayTransac or PasaBuyTransac"
// @Success      201   {object}  CreateResponse
// @Failure      400   {object}  api.ErrorResponse
// @Failure      401   {object}  api.ErrorResponse
// @Router       /api/transacForm/{form} [post]
func (h *Handler) Create(postType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session(c)
		if !ok {
			return
		}

		var form CreateForm
		if err := c.ShouldBind(&form); err != nil {
			api.RespondError(c, apperr.BadRequest("Invalid form data"))
			return
		}

		t, err := h.service.Create(c.Request.Context(), sess, postType, form)
		if err != nil {
			api.RespondError(c, err)
			return
		}

		resp := CreateResponse{Success: true, TransactionID: t.ID}
		if t.ReferenceCode != nil {
			resp.ReferenceCode = *t.ReferenceCode
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// List godoc
// @Summary      List transactions
// @Description  Transactions of userId (defaults to the caller) with tab and legal actions.
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        userId  query     string  false  "User ID"
// @Success      200     {object}  map[string][]View
// @Failure      403     {object}  api.ErrorResponse
// @Router       /api/transactions [get]
func (h *Handler) List(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	views, err := h.service.ListForUser(c.Request.Context(), sess, c.Query("userId"))
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": views})
}

// Get godoc
// @Summary      Get transaction
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Transaction ID"
// @Success      200  {object}  View
// @Failure      403  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /api/transactions/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	v, err := h.service.Get(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Accept godoc
// @Summary      Accept transaction
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Transaction ID"
// @Success      200  {object}  View
// @Failure      403  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Router       /api/transactions/{id}/accept [post]
func (h *Handler) Accept(c *gin.Context) {
	h.act(c, h.service.Accept)
}

// Cancel godoc
// @Summary      Cancel transaction
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Transaction ID"
// @Success      200  {object}  View
// @Failure      403  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Router       /api/transactions/{id}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	h.act(c, h.service.Cancel)
}

// Complete godoc
// @Summary      Confirm receipt
// @Description  Wallet payments release escrow to the seller minus commission.
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Transaction ID"
// @Success      200  {object}  View
// @Failure      403  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Router       /api/transactions/{id}/complete [post]
func (h *Handler) Complete(c *gin.Context) {
	h.act(c, h.service.Complete)
}

func (h *Handler) act(c *gin.Context, fn func(ctx context.Context, s auth.Session, id string) (*View, error)) {
	sess, ok := session(c)
	if !ok {
		return
	}

	v, err := fn(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// UpdateStatus godoc
// @Summary      Update fulfillment status
// @Tags         transactions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Transaction ID"
// @Param        request  body      UpdateStatusRequest  true  "Processing or PickedUp"
// @Success      200      {object}  View
// @Failure      400      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /api/transactions/{id}/status [post]
func (h *Handler) UpdateStatus(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	v, err := h.service.UpdateFulfillment(c.Request.Context(), sess, c.Param("id"), Status(req.Status))
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// ListAll godoc
// @Summary      List all transactions (admin)
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Offset"
// @Success      200     {object}  map[string][]View
// @Router       /admin/transactions [get]
func (h *Handler) ListAll(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	views, err := h.service.ListAll(c.Request.Context(), limit, offset)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": views})
}
