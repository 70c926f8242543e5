package models

// Tag is an entry of the tag vocabulary shared by all posts.
type Tag struct {
	ID   int64  `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// TagUsage links a post to a tag. A (post_id, tag_id) pair appears at most once.
type TagUsage struct {
	ID     int64 `gorm:"primaryKey" json:"id"`
	PostID int64 `gorm:"not null;uniqueIndex:idx_tag_usage_post_tag" json:"post_id"`
	TagID  int64 `gorm:"not null;uniqueIndex:idx_tag_usage_post_tag;index" json:"tag_id"`
}
