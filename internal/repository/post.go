package repository

import (
	"context"

	"scriptorium/internal/models"
	"scriptorium/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	// GetForUpdate reads the post and, on PostgreSQL, locks its row until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*models.Post, error)
	// List returns saved posts, newest first. Drafts are never listed.
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	UpdateContent(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id int64) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("insert", "posts")()
	return translate(r.db.WithContext(ctx).Create(post).Error)
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	defer observability.TrackQuery("select", "posts")()
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (r *postRepository) GetForUpdate(ctx context.Context, id int64) (*models.Post, error) {
	defer observability.TrackQuery("select_for_update", "posts")()
	q := r.db.WithContext(ctx)
	// SQLite serializes writers on its own and has no row locks.
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var post models.Post
	if err := q.First(&post, id).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	defer observability.TrackQuery("select", "posts")()
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("updated_at IS NOT NULL").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, translate(err)
}

// UpdateContent writes the editable columns of post. id, owner_id and
// created_at are never touched.
func (r *postRepository) UpdateContent(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("update", "posts")()
	res := r.db.WithContext(ctx).
		Model(post).
		Select("title", "title_image", "markdown_content", "rendered_content", "updated_at").
		Updates(post)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id int64) error {
	defer observability.TrackQuery("delete", "posts")()
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
