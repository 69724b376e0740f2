package delivery

import (
	"net/http"

	"campusmarket/internal/api"

	"github.com/gin-gonic/gin"
)

type QuoteRequest struct {
	FromLat *float64 `json:"from_lat" validate:"required,gte=-90,lte=90"`
	FromLng *float64 `json:"from_lng" validate:"required,gte=-180,lte=180"`
	ToLat   *float64 `json:"to_lat" validate:"required,gte=-90,lte=90"`
	ToLng   *float64 `json:"to_lng" validate:"required,gte=-180,lte=180"`
}

type Handler struct {
	quoter *Quoter
}

func NewHandler(quoter *Quoter) *Handler {
	return &Handler{quoter: quoter}
}

// Quote godoc
// @Summary      Quote a delivery fee
// @Description  Distance, fee and drop-off geohash between two coordinates.
// @Tags         delivery
// @Accept       json
// @Produce      json
// @Param        request  body      QuoteRequest  true  "Coordinates"
// @Success      200      {object}  Quote
// @Failure      400      {object}  api.ErrorResponse
// @Router       /api/delivery/quote [post]
func (h *Handler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}
	if errs := api.ValidateStruct(req); errs != nil {
		api.RespondWithValidationErrors(c, errs)
		return
	}

	quote := h.quoter.Quote(
		Point{Lat: *req.FromLat, Lng: *req.FromLng},
		Point{Lat: *req.ToLat, Lng: *req.ToLng},
	)
	c.JSON(http.StatusOK, quote)
}
