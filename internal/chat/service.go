package chat

import (
	"context"
	"errors"
	"strings"

	"campusmarket/internal/apperr"
	"campusmarket/internal/auth"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type Service interface {
	StartConversation(ctx context.Context, buyerID, postID string) (*Conversation, error)
	ListMessages(ctx context.Context, session auth.Session, conversationID string, limit, offset int) ([]Message, error)
	SendMessage(ctx context.Context, session auth.Session, conversationID, body string) (*Message, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) StartConversation(ctx context.Context, buyerID, postID string) (*Conversation, error) {
	conv, err := s.repo.FindOrCreateConversation(ctx, postID, buyerID)
	if errors.Is(err, ErrPostNotFound) {
		return nil, apperr.NotFound("Post not found")
	}
	if errors.Is(err, ErrOwnListing) {
		return nil, apperr.Validation("You cannot message your own listing")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to start conversation", err)
	}
	return conv, nil
}

// authorize loads the conversation and checks the caller may read it.
func (s *service) authorize(ctx context.Context, session auth.Session, conversationID string, allowAdmin bool) (*Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if errors.Is(err, ErrConversationNotFound) {
		return nil, apperr.NotFound("Conversation not found")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load conversation", err)
	}
	if !conv.HasParticipant(session.UserID) && !(allowAdmin && session.IsAdmin()) {
		return nil, apperr.Forbidden("You are not part of this conversation")
	}
	return conv, nil
}

func (s *service) ListMessages(ctx context.Context, session auth.Session, conversationID string, limit, offset int) ([]Message, error) {
	if _, err := s.authorize(ctx, session, conversationID, true); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	messages, err := s.repo.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, apperr.Internal("Failed to load messages", err)
	}
	return messages, nil
}

func (s *service) SendMessage(ctx context.Context, session auth.Session, conversationID, body string) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.Validation("Message body is required")
	}
	if _, err := s.authorize(ctx, session, conversationID, false); err != nil {
		return nil, err
	}

	msg, err := s.repo.SendMessage(ctx, conversationID, session.UserID, body)
	if err != nil {
		return nil, apperr.Internal("Failed to send message", err)
	}
	return msg, nil
}
