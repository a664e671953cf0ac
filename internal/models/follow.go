package models

import "time"

// Follow is a directed edge meaning "UserID receives AuthorID's posts
// in their personalized feed".
// idx_follow_pair = (user_id, author_id) keeps duplicate edges out at
// the storage layer, including under concurrent toggles.
type Follow struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_follow_user;index:idx_follow_pair,unique" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	AuthorID  uint      `gorm:"not null;index:idx_follow_pair,unique" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Follow) TableName() string {
	return "follows"
}
