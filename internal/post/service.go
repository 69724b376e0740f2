package post

import (
	"context"
	"errors"
	"strings"

	"campusmarket/internal/apperr"
	"campusmarket/internal/logger"
)

type Service interface {
	ListPostTypes(ctx context.Context) ([]PostType, error)
	CreatePost(ctx context.Context, sellerID string, req CreatePostRequest) (*Post, error)
	GetPost(ctx context.Context, id string) (*Post, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListPostTypes(ctx context.Context) ([]PostType, error) {
	types, err := s.repo.ListPostTypes(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to load post types", err)
	}
	return types, nil
}

func (s *service) CreatePost(ctx context.Context, sellerID string, req CreatePostRequest) (*Post, error) {
	typeID, err := s.repo.ResolvePostTypeID(ctx, req.PostType)
	if err != nil {
		return nil, apperr.Internal("Failed to resolve post type", err)
	}
	if typeID == nil {
		return nil, apperr.Validation("Unknown post type: " + req.PostType)
	}

	if req.Price.Valid && req.Price.Decimal.IsNegative() {
		return nil, apperr.Validation("Price cannot be negative.")
	}

	var items []ItemInput
	if req.PostType == TypePasaBuy {
		items, err = ParseItems(string(req.Items))
		if err != nil {
			return nil, err
		}
	}

	p := &Post{
		SellerID:    sellerID,
		PostTypeID:  typeID,
		PostType:    &req.PostType,
		Title:       strings.TrimSpace(req.Title),
		Description: optional(req.Description),
		Price:       req.Price,
		ImageURL:    optional(req.ImageURL),
	}
	if err := s.repo.Create(ctx, p, items); err != nil {
		return nil, apperr.Internal("Failed to create post", err)
	}

	logger.Info("post created", "post_id", p.ID, "post_type", req.PostType, "items", len(items))
	return p, nil
}

func (s *service) GetPost(ctx context.Context, id string) (*Post, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrPostNotFound) {
		return nil, apperr.NotFound("Post not found")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load post", err)
	}
	return p, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
