package repository

import (
	"context"

	"yatube/internal/models"
	"yatube/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository stores directed follow edges.
// Follow and Unfollow report whether they changed anything; redundant calls are not errors.
type FollowRepository interface {
	Follow(ctx context.Context, followerID, authorID uint) (bool, error)
	Unfollow(ctx context.Context, followerID, authorID uint) (bool, error)
	Exists(ctx context.Context, followerID, authorID uint) (bool, error)
	FollowingIDs(ctx context.Context, followerID uint) ([]uint, error)
	FollowerIDs(ctx context.Context, authorID uint) ([]uint, error)
}

type followRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewFollowRepository creates the relational follow store.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db, log: observability.NewRepoLogger("follows")}
}

// Follow inserts the edge with ON CONFLICT DO NOTHING so racing duplicates collapse to one row.
func (r *followRepository) Follow(ctx context.Context, followerID, authorID uint) (bool, error) {
	follow := models.Follow{UserID: followerID, AuthorID: authorID}
	result := r.db.WithContext(ctx).
		Omit("User", "Author").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&follow)
	if result.Error != nil {
		r.log.LogError(ctx, result.Error, "create")
		return false, classifyConstraint(result.Error)
	}
	created := result.RowsAffected > 0
	if created {
		r.log.LogCreate(ctx, map[string]interface{}{"user_id": followerID, "author_id": authorID})
	}
	return created, nil
}

func (r *followRepository) Unfollow(ctx context.Context, followerID, authorID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", followerID, authorID).
		Delete(&models.Follow{})
	if result.Error != nil {
		r.log.LogError(ctx, result.Error, "delete")
		return false, models.NewInternalError(result.Error)
	}
	removed := result.RowsAffected > 0
	if removed {
		r.log.LogDelete(ctx, map[string]interface{}{"user_id": followerID, "author_id": authorID})
	}
	return removed, nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, authorID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", followerID, authorID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *followRepository) FollowingIDs(ctx context.Context, followerID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("user_id = ?", followerID).
		Order("author_id").
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *followRepository) FollowerIDs(ctx context.Context, authorID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("author_id = ?", authorID).
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
