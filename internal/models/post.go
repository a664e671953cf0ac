package models

import (
	"time"
)

// PreviewLen is how many runes of a post's text are used as its display label.
const PreviewLen = 15

// Post represents a blog entry in the Yatube application.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Text     string `gorm:"type:text;not null" json:"text"`
	AuthorID uint   `gorm:"not null;index" json:"author_id"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"author"`
	GroupID  *uint  `gorm:"index" json:"group_id,omitempty"`
	Group    *Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	// Image is the media-relative path of the uploaded illustration,
	// e.g. "posts/8f3b….gif". Empty when the post has no image.
	Image     string    `gorm:"size:255" json:"image,omitempty"`
	CreatedAt time.Time `gorm:"index:idx_posts_created" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Comments  []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
}

// Preview returns the first PreviewLen runes of the post text.
// It is the post's human-readable label in lists and page titles.
func (p *Post) Preview() string {
	runes := []rune(p.Text)
	if len(runes) <= PreviewLen {
		return p.Text
	}
	return string(runes[:PreviewLen])
}
