// Package service implements the post lifecycle and account operations on
// top of the repository layer.
package service

import (
	"context"
	"errors"
	"time"

	"scriptorium/internal/cache"
	"scriptorium/internal/models"
	"scriptorium/internal/observability"
	"scriptorium/internal/render"
	"scriptorium/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultPageSize is used by ListPosts when the caller passes no size.
const DefaultPageSize = 10

const (
	msgPostNotFound = "post not found"
	msgUnauthorized = "unauthorized"
)

// PostService drives a post from empty draft through repeated saves.
// It holds no locks; concurrent saves on one post are serialized by the
// row lock taken inside the save transaction.
type PostService struct {
	store    repository.Store
	renderer render.Renderer
	now      func() time.Time
}

// SavePostInput is the full editable state of a post. A nil Tags leaves
// the post's tags untouched; a non-nil empty slice removes them all.
type SavePostInput struct {
	ID         int64
	Title      string
	TitleImage string
	Content    string
	Tags       *[]string
}

func NewPostService(store repository.Store, renderer render.Renderer) *PostService {
	return &PostService{
		store:    store,
		renderer: renderer,
		now:      time.Now,
	}
}

// CreateDraft allocates an empty post owned by ownerID and returns its id.
func (s *PostService) CreateDraft(ctx context.Context, ownerID int64) (int64, error) {
	post := &models.Post{
		OwnerID:   ownerID,
		CreatedAt: s.now().Unix(),
	}
	if err := s.store.Posts().Create(ctx, post); err != nil {
		return 0, err
	}
	observability.PostsDrafted.Inc()
	return post.ID, nil
}

// Save renders the markdown, then updates the post and syncs its tags in a
// single transaction. Saving the same input twice leaves storage unchanged.
// The returned tags follow the supplied order after normalization, while
// FetchDetail lists them in attachment order, so a save that only reorders
// tags answers in the new order but is read back in the old one.
func (s *PostService) Save(ctx context.Context, in SavePostInput) (detail *models.PostDetail, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "PostService.Save", attribute.Int64("post.id", in.ID))
	defer func() {
		observability.ObserveSave(start, err)
		observability.EndSpan(span, err)
	}()

	rendered, err := s.renderer.Render(in.Content)
	if err != nil {
		return nil, err
	}

	var names []string
	if in.Tags != nil {
		names = NormalizeTags(*in.Tags)
	}

	var result models.PostDetail
	tagsCreated := 0
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		post, err := tx.Posts().GetForUpdate(ctx, in.ID)
		if errors.Is(err, repository.ErrNotFound) {
			return models.NewBusinessError(msgPostNotFound)
		}
		if err != nil {
			return err
		}

		updatedAt := s.now().Unix()
		post.Title = in.Title
		post.TitleImage = in.TitleImage
		post.MarkdownContent = in.Content
		post.RenderedContent = rendered
		post.UpdatedAt = &updatedAt
		if err := tx.Posts().UpdateContent(ctx, post); err != nil {
			return err
		}

		result = post.ToDetail()

		if in.Tags == nil {
			current, err := tx.Tags().NamesForPost(ctx, post.ID)
			if err != nil {
				return err
			}
			result.Tags = nonNil(current)
			return nil
		}

		created, err := syncTags(ctx, tx.Tags(), post.ID, names)
		if err != nil {
			return err
		}
		tagsCreated = created
		result.Tags = names
		return nil
	})
	if err != nil {
		return nil, err
	}

	cache.BumpPostVersion(ctx, in.ID)
	if tagsCreated > 0 {
		observability.TagsCreated.Add(float64(tagsCreated))
		cache.InvalidateTagList(ctx)
	}

	return &result, nil
}

// FetchDetail returns the reader view of a post, tags in the order they were
// attached.
func (s *PostService) FetchDetail(ctx context.Context, id int64) (*models.PostDetail, error) {
	var detail models.PostDetail
	load := func() error {
		post, err := s.store.Posts().GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return models.NewBusinessError(msgPostNotFound)
		}
		if err != nil {
			return err
		}

		names, err := s.store.Tags().NamesForPost(ctx, id)
		if err != nil {
			return err
		}

		detail = post.ToDetail()
		detail.Tags = nonNil(names)
		return nil
	}

	var err error
	if key, ok := cache.PostDetailKey(ctx, id); ok {
		err = cache.Aside(ctx, key, &detail, cache.PostTTL, load)
	} else {
		err = load()
	}
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// FetchForEdit is FetchDetail for the post's owner: Content carries the
// markdown source instead of the rendered HTML. It is never cached.
func (s *PostService) FetchForEdit(ctx context.Context, id, userID int64) (*models.PostDetail, error) {
	post, err := s.store.Posts().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewBusinessError(msgPostNotFound)
	}
	if err != nil {
		return nil, err
	}
	if post.OwnerID != userID {
		return nil, models.NewBusinessError(msgUnauthorized)
	}

	names, err := s.store.Tags().NamesForPost(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := post.ToDetail()
	detail.Content = post.MarkdownContent
	detail.Tags = nonNil(names)
	return &detail, nil
}

// ListPosts returns one page of saved posts, newest first. page is 1-based.
func (s *PostService) ListPosts(ctx context.Context, page, size int) ([]models.PostDetail, error) {
	if page < 1 {
		return nil, models.NewBusinessError("page must be at least 1")
	}
	if size <= 0 {
		size = DefaultPageSize
	}

	posts, err := s.store.Posts().List(ctx, size, (page-1)*size)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	tagsByPost, err := s.store.Tags().NamesForPosts(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.PostDetail, 0, len(posts))
	for _, p := range posts {
		detail := p.ToDetail()
		detail.Tags = nonNil(tagsByPost[p.ID])
		out = append(out, detail)
	}
	return out, nil
}

// ListTags returns the whole tag vocabulary ordered by name.
func (s *PostService) ListTags(ctx context.Context) ([]string, error) {
	var names []string
	err := cache.Aside(ctx, cache.TagListKey, &names, cache.TagListTTL, func() error {
		var err error
		names, err = s.store.Tags().ListNames(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return nonNil(names), nil
}

// Delete removes the post and its tag links in one transaction. Tags stay in
// the vocabulary even when no post uses them any more.
func (s *PostService) Delete(ctx context.Context, id, userID int64) error {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		post, err := tx.Posts().GetForUpdate(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return models.NewBusinessError(msgPostNotFound)
		}
		if err != nil {
			return err
		}
		if post.OwnerID != userID {
			return models.NewBusinessError(msgUnauthorized)
		}

		if err := tx.Tags().RemoveAllUsages(ctx, id); err != nil {
			return err
		}
		return tx.Posts().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	cache.BumpPostVersion(ctx, id)
	return nil
}

func nonNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}
