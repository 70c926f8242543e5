package models

import "time"

// Post is a blog post. MarkdownContent is the source of truth; RenderedContent
// is derived from it on every save and is never edited directly.
//
// A post starts as an empty draft (UpdatedAt == nil) and becomes saved on its
// first successful save. CreatedAt is set once at draft creation.
type Post struct {
	ID              int64  `gorm:"primaryKey" json:"id"`
	OwnerID         int64  `gorm:"not null;index" json:"owner_id"`
	Title           string `gorm:"not null" json:"title"`
	TitleImage      string `gorm:"not null" json:"title_image"`
	MarkdownContent string `gorm:"type:text;not null" json:"markdown_content"`
	RenderedContent string `gorm:"type:text;not null" json:"rendered_content"`
	CreatedAt       int64  `gorm:"not null;autoCreateTime:false" json:"created_at"`
	UpdatedAt       *int64 `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// IsDraft reports whether the post has never been saved.
func (p *Post) IsDraft() bool {
	return p.UpdatedAt == nil
}

// PostDetail is the read view of a post handed to readers and the editor.
type PostDetail struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	TitleImage string     `json:"title_image"`
	Content    string     `json:"content"`
	Tags       []string   `json:"tags"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

// ToDetail projects a post into its detail view. Tags are left nil because
// resolving tag names needs a join the caller performs.
func (p *Post) ToDetail() PostDetail {
	detail := PostDetail{
		ID:         p.ID,
		Title:      p.Title,
		TitleImage: p.TitleImage,
		Content:    p.RenderedContent,
		CreatedAt:  time.Unix(p.CreatedAt, 0).UTC(),
	}
	if p.UpdatedAt != nil {
		updated := time.Unix(*p.UpdatedAt, 0).UTC()
		detail.UpdatedAt = &updated
	}
	return detail
}
