package service

import (
	"context"

	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/repository"
)

// FollowService owns the social graph rules: no self edges, idempotent follow and unfollow.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

// NewFollowService returns a new FollowService.
func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
	}
}

// Follow adds followerID -> authorID. Following someone already followed is a no-op.
func (s *FollowService) Follow(ctx context.Context, followerID, authorID uint) (err error) {
	defer func() { observability.RecordFollow("follow", err) }()

	if followerID == 0 {
		return models.NewUnauthorizedError("Authentication required")
	}
	if followerID == authorID {
		return models.NewValidationError("You cannot follow yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, authorID); err != nil {
		return err
	}
	_, err = s.followRepo.Follow(ctx, followerID, authorID)
	return err
}

// Unfollow removes the edge if present.
func (s *FollowService) Unfollow(ctx context.Context, followerID, authorID uint) (err error) {
	defer func() { observability.RecordFollow("unfollow", err) }()

	if followerID == 0 {
		return models.NewUnauthorizedError("Authentication required")
	}
	_, err = s.followRepo.Unfollow(ctx, followerID, authorID)
	return err
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, authorID uint) (bool, error) {
	if followerID == 0 || authorID == 0 {
		return false, nil
	}
	return s.followRepo.Exists(ctx, followerID, authorID)
}

// FollowUsername resolves username and follows that author.
func (s *FollowService) FollowUsername(ctx context.Context, followerID uint, username string) (*models.User, error) {
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.Follow(ctx, followerID, author.ID); err != nil {
		return nil, err
	}
	return author, nil
}

// UnfollowUsername resolves username and unfollows that author.
func (s *FollowService) UnfollowUsername(ctx context.Context, followerID uint, username string) (*models.User, error) {
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.Unfollow(ctx, followerID, author.ID); err != nil {
		return nil, err
	}
	return author, nil
}
