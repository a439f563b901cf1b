package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/repository"
)

// PostEventPublisher is told about new posts. Failures never fail the write.
type PostEventPublisher interface {
	PublishPostCreated(ctx context.Context, post *models.Post) error
}

type PostService struct {
	postRepo    repository.PostRepository
	groupRepo   repository.GroupRepository
	commentRepo repository.CommentRepository
	publisher   PostEventPublisher
	now         func() time.Time
}

type CreatePostInput struct {
	AuthorID uint
	Text     string
	GroupID  *uint
	Image    string
}

// UpdatePostInput carries optional edits; nil fields are left alone.
type UpdatePostInput struct {
	PostID     uint
	UserID     uint
	Text       *string
	GroupID    *uint
	ClearGroup bool
	Image      *string
}

type DeletePostInput struct {
	PostID uint
	UserID uint
}

// PostDetail is a post with its comments, oldest first.
type PostDetail struct {
	Post     *models.Post      `json:"post"`
	Comments []*models.Comment `json:"comments"`
}

func NewPostService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	commentRepo repository.CommentRepository,
	publisher PostEventPublisher,
) *PostService {
	return &PostService{
		postRepo:    postRepo,
		groupRepo:   groupRepo,
		commentRepo: commentRepo,
		publisher:   publisher,
		now:         time.Now,
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, models.NewValidationError("Text is required")
	}
	if in.AuthorID == 0 {
		return nil, models.NewValidationError("Author is required")
	}
	if err := s.checkGroup(ctx, in.GroupID); err != nil {
		return nil, err
	}

	post := &models.Post{
		Text:      text,
		AuthorID:  in.AuthorID,
		GroupID:   in.GroupID,
		Image:     in.Image,
		CreatedAt: s.now().UTC(),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	created, err := s.postRepo.GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishPostCreated(ctx, created); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish post event",
				slog.Uint64("post_id", uint64(created.ID)), slog.String("error", err.Error()))
		}
	}
	return created, nil
}

// AuthorizeEdit reports NotFound or Forbidden before any edit input is read.
func (s *PostService) AuthorizeEdit(ctx context.Context, postID, userID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return models.NewForbiddenError("Only the author can edit this post")
	}
	return nil
}

// UpdatePost applies the provided fields. Only the author may edit; creation time and author never change.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != in.UserID {
		return nil, models.NewForbiddenError("Only the author can edit this post")
	}

	var fields []string
	if in.Text != nil {
		text := strings.TrimSpace(*in.Text)
		if text == "" {
			return nil, models.NewValidationError("Text is required")
		}
		post.Text = text
		fields = append(fields, "text")
	}
	switch {
	case in.ClearGroup:
		post.GroupID = nil
		post.Group = nil
		fields = append(fields, "group_id")
	case in.GroupID != nil:
		if err := s.checkGroup(ctx, in.GroupID); err != nil {
			return nil, err
		}
		post.GroupID = in.GroupID
		post.Group = nil
		fields = append(fields, "group_id")
	}
	if in.Image != nil {
		post.Image = *in.Image
		fields = append(fields, "image")
	}

	if len(fields) == 0 {
		return post, nil
	}
	if err := s.postRepo.Update(ctx, post, fields...); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

// DeletePost removes the post and its comments. The index page cache is deliberately left alone.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return err
	}
	if post.AuthorID != in.UserID {
		return models.NewForbiddenError("Only the author can delete this post")
	}
	return s.postRepo.Delete(ctx, post.ID)
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*PostDetail, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: post, Comments: comments}, nil
}

func (s *PostService) checkGroup(ctx context.Context, groupID *uint) error {
	if groupID == nil {
		return nil
	}
	if _, err := s.groupRepo.GetByID(ctx, *groupID); err != nil {
		if models.IsNotFound(err) {
			return models.NewValidationError(fmt.Sprintf("Group %d does not exist", *groupID))
		}
		return err
	}
	return nil
}
