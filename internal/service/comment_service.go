package service

import (
	"context"
	"strings"
	"time"

	"yatube/internal/models"
	"yatube/internal/repository"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	now         func() time.Time
}

// AddCommentInput creates a comment. A nil PostID stores a comment with no post.
type AddCommentInput struct {
	PostID   *uint
	AuthorID uint
	Text     string
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		now:         time.Now,
	}
}

func (s *CommentService) AddComment(ctx context.Context, in AddCommentInput) (*models.Comment, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, models.NewValidationError("Text is required")
	}
	if in.AuthorID == 0 {
		return nil, models.NewValidationError("Author is required")
	}
	if in.PostID != nil {
		if _, err := s.postRepo.GetByID(ctx, *in.PostID); err != nil {
			return nil, err
		}
	}

	comment := &models.Comment{
		PostID:    in.PostID,
		AuthorID:  in.AuthorID,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}
