package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Constraint names shared by the schema and the error classifier.
const (
	FollowSelfConstraint   = "user_cannot_follow_yourself"
	FollowUniqueConstraint = "idx_follows_pair"
)

// ErrSelfFollow is returned when a follow edge would point back at its follower.
var ErrSelfFollow = errors.New("user cannot follow themselves")

// Follow is a directed edge: User follows Author.
// At most one edge exists per ordered pair and an edge never loops.
type Follow struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_follows_pair;check:user_cannot_follow_yourself,user_id <> author_id" json:"user_id"`
	AuthorID  uint      `gorm:"not null;uniqueIndex:idx_follows_pair;index" json:"author_id"`
	CreatedAt time.Time `json:"created_at"`

	User   User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Author User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}

// BeforeCreate refuses self-follow edges before they reach the database.
// The CHECK constraint still guards writes that skip hooks.
func (f *Follow) BeforeCreate(_ *gorm.DB) error {
	if f.UserID != 0 && f.UserID == f.AuthorID {
		return ErrSelfFollow
	}
	return nil
}
