package post

import (
	"net/http"

	"campusmarket/internal/api"
	"campusmarket/internal/apperr"
	"campusmarket/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListPostTypes godoc
// @Summary      List post types
// @Tags         posts
// @Produce      json
// @Success      200  {object}  map[string][]PostType
// @Router       /api/post-types [get]
func (h *Handler) ListPostTypes(c *gin.Context) {
	types, err := h.service.ListPostTypes(c.Request.Context())
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post_types": types})
}

// CreatePost godoc
// @Summary      Create listing
// @Description  PasaBuy listings carry their item list, stored together with the post.
// @Tags         posts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreatePostRequest  true  "Listing"
// @Success      201      {object}  Post
// @Failure      400      {object}  api.ErrorResponse
// @Failure      401      {object}  api.ErrorResponse
// @Router       /api/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.RespondError(c, apperr.Unauthenticated("User not authenticated"))
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	p, err := h.service.CreatePost(c.Request.Context(), userID, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GetPost godoc
// @Summary      Get listing
// @Tags         posts
// @Produce      json
// @Param        id   path      string  true  "Post ID"
// @Success      200  {object}  Post
// @Failure      404  {object}  api.ErrorResponse
// @Router       /api/posts/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	p, err := h.service.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
