package repository

import (
	"context"

	"scriptorium/internal/models"
	"scriptorium/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagRepository covers the tag vocabulary and the post/tag join rows.
type TagRepository interface {
	// FindOrCreate returns the tag called name, inserting it when missing.
	// created reports whether this call inserted it. Safe under concurrent
	// callers racing on the same name.
	FindOrCreate(ctx context.Context, name string) (tag *models.Tag, created bool, err error)
	ListNames(ctx context.Context) ([]string, error)
	// NamesForPost returns the post's tag names in TagUsage insertion order.
	NamesForPost(ctx context.Context, postID int64) ([]string, error)
	NamesForPosts(ctx context.Context, postIDs []int64) (map[int64][]string, error)
	// UsageTagIDs returns the tag ids linked to the post in insertion order.
	UsageTagIDs(ctx context.Context, postID int64) ([]int64, error)
	AddUsages(ctx context.Context, postID int64, tagIDs []int64) error
	RemoveUsages(ctx context.Context, postID int64, tagIDs []int64) error
	RemoveAllUsages(ctx context.Context, postID int64) error
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) FindOrCreate(ctx context.Context, name string) (*models.Tag, bool, error) {
	defer observability.TrackQuery("upsert", "tags")()

	tag := models.Tag{Name: name}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&tag)
	if res.Error != nil {
		return nil, false, translate(res.Error)
	}
	if res.RowsAffected > 0 && tag.ID != 0 {
		return &tag, true, nil
	}

	var existing models.Tag
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&existing).Error; err != nil {
		return nil, false, translate(err)
	}
	return &existing, false, nil
}

func (r *tagRepository) ListNames(ctx context.Context) ([]string, error) {
	defer observability.TrackQuery("select", "tags")()
	names := []string{}
	err := r.db.WithContext(ctx).Model(&models.Tag{}).Order("name").Pluck("name", &names).Error
	return names, translate(err)
}

func (r *tagRepository) NamesForPost(ctx context.Context, postID int64) ([]string, error) {
	defer observability.TrackQuery("select", "tag_usages")()
	var names []string
	err := r.db.WithContext(ctx).
		Table("tag_usages").
		Joins("JOIN tags ON tags.id = tag_usages.tag_id").
		Where("tag_usages.post_id = ?", postID).
		Order("tag_usages.id").
		Pluck("tags.name", &names).Error
	return names, translate(err)
}

func (r *tagRepository) NamesForPosts(ctx context.Context, postIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	defer observability.TrackQuery("select", "tag_usages")()

	var rows []struct {
		PostID int64
		Name   string
	}
	err := r.db.WithContext(ctx).
		Table("tag_usages").
		Select("tag_usages.post_id AS post_id, tags.name AS name").
		Joins("JOIN tags ON tags.id = tag_usages.tag_id").
		Where("tag_usages.post_id IN ?", postIDs).
		Order("tag_usages.id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}

	for _, row := range rows {
		out[row.PostID] = append(out[row.PostID], row.Name)
	}
	return out, nil
}

func (r *tagRepository) UsageTagIDs(ctx context.Context, postID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.TagUsage{}).
		Where("post_id = ?", postID).
		Order("id").
		Pluck("tag_id", &ids).Error
	return ids, translate(err)
}

func (r *tagRepository) AddUsages(ctx context.Context, postID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}
	defer observability.TrackQuery("insert", "tag_usages")()

	usages := make([]models.TagUsage, 0, len(tagIDs))
	for _, id := range tagIDs {
		usages = append(usages, models.TagUsage{PostID: postID, TagID: id})
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "tag_id"}},
			DoNothing: true,
		}).
		Create(&usages).Error
	return translate(err)
}

func (r *tagRepository) RemoveUsages(ctx context.Context, postID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}
	defer observability.TrackQuery("delete", "tag_usages")()
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND tag_id IN ?", postID, tagIDs).
		Delete(&models.TagUsage{}).Error
	return translate(err)
}

func (r *tagRepository) RemoveAllUsages(ctx context.Context, postID int64) error {
	defer observability.TrackQuery("delete", "tag_usages")()
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Delete(&models.TagUsage{}).Error
	return translate(err)
}
