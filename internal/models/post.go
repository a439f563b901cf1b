package models

import (
	"time"
	"unicode/utf8"
)

// PostPreviewLen is the number of runes shown when a post is summarised.
const PostPreviewLen = 15

// Post is a piece of text published by an author, optionally inside a group.
// Posts are hard-deleted so the comment cascade runs in the database.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"not null;index:idx_posts_created_at" json:"pub_date"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	GroupID   *uint     `gorm:"index" json:"group_id,omitempty"`
	Group     *Group    `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	Image     string    `gorm:"size:255" json:"image,omitempty"`
}

// Preview returns the first PostPreviewLen runes of the text.
func (p Post) Preview() string {
	if utf8.RuneCountInString(p.Text) <= PostPreviewLen {
		return p.Text
	}
	return string([]rune(p.Text)[:PostPreviewLen])
}
