package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"scriptorium/internal/models"
	"scriptorium/internal/observability"
	"scriptorium/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func newPost(t *testing.T, store Store, owner int64, created int64) *models.Post {
	t.Helper()
	post := &models.Post{OwnerID: owner, CreatedAt: created}
	require.NoError(t, store.Posts().Create(context.Background(), post))
	require.NotZero(t, post.ID)
	return post
}

func newSavedPost(t *testing.T, store Store, created int64) *models.Post {
	t.Helper()
	post := &models.Post{OwnerID: 1, Title: "t", CreatedAt: created, UpdatedAt: &created}
	require.NoError(t, store.Posts().Create(context.Background(), post))
	return post
}

func TestTagRepository_FindOrCreate_ExistingTagOnPostgres(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTagRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "tags" ("name") VALUES ($1) ON CONFLICT ("name") DO NOTHING`)).
		WithArgs("go").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "tags" WHERE name = $1`)).
		WithArgs("go", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(4, "go"))

	tag, created, err := repo.FindOrCreate(context.Background(), "go")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(4), tag.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetForUpdate_LocksOnPostgres(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "posts" WHERE "posts"."id" = \$1 .*FOR UPDATE`).
		WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "title"}).AddRow(7, 1, "t"))

	before := querySamples(t, "select_for_update", "posts")
	post, err := repo.GetForUpdate(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, before+1, querySamples(t, "select_for_update", "posts"))
}

func querySamples(t *testing.T, operation, table string) uint64 {
	t.Helper()
	var m dto.Metric
	observer := observability.DatabaseQueryLatency.WithLabelValues(operation, table)
	require.NoError(t, observer.(prometheus.Metric).Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestPostRepository_StorageFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	boom := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts"`)).WillReturnError(boom)

	_, err := repo.GetByID(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestPostRepository_CRUD(t *testing.T) {
	store := NewStore(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	post := newPost(t, store, 1, 1700000000)

	got, err := store.Posts().GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDraft())
	assert.Equal(t, int64(1700000000), got.CreatedAt)

	updated := int64(1700000100)
	got.Title = "Hello"
	got.MarkdownContent = "# Hi"
	got.RenderedContent = "<h1>Hi</h1>"
	got.UpdatedAt = &updated
	require.NoError(t, store.Posts().UpdateContent(ctx, got))

	reloaded, err := store.Posts().GetForUpdate(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", reloaded.Title)
	assert.Equal(t, "<h1>Hi</h1>", reloaded.RenderedContent)
	require.NotNil(t, reloaded.UpdatedAt)
	assert.Equal(t, updated, *reloaded.UpdatedAt)
	assert.Equal(t, int64(1700000000), reloaded.CreatedAt)
	assert.Equal(t, int64(1), reloaded.OwnerID)

	require.NoError(t, store.Posts().Delete(ctx, post.ID))
	_, err = store.Posts().GetByID(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Posts().Delete(ctx, post.ID), ErrNotFound)
	assert.ErrorIs(t, store.Posts().UpdateContent(ctx, got), ErrNotFound)
}

func TestPostRepository_ListNewestFirst(t *testing.T) {
	store := NewStore(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	oldest := newSavedPost(t, store, 100)
	newest := newSavedPost(t, store, 300)
	middle := newSavedPost(t, store, 200)
	newPost(t, store, 1, 400) // draft

	posts, err := store.Posts().List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, newest.ID, posts[0].ID)
	assert.Equal(t, middle.ID, posts[1].ID)

	posts, err = store.Posts().List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, oldest.ID, posts[0].ID)
}

func TestTagRepository_FindOrCreate(t *testing.T) {
	store := NewStore(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	first, created, err := store.Tags().FindOrCreate(ctx, "rust")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := store.Tags().FindOrCreate(ctx, "rust")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	other, _, err := store.Tags().FindOrCreate(ctx, "Rust")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	names, err := store.Tags().ListNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rust", "rust"}, names)
}

func TestTagRepository_Usages(t *testing.T) {
	store := NewStore(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	tags := store.Tags()

	p1 := newPost(t, store, 1, 100)
	p2 := newPost(t, store, 1, 200)

	ids := map[string]int64{}
	for _, name := range []string{"web", "go", "db"} {
		tag, _, err := tags.FindOrCreate(ctx, name)
		require.NoError(t, err)
		ids[name] = tag.ID
	}

	require.NoError(t, tags.AddUsages(ctx, p1.ID, []int64{ids["go"], ids["web"]}))
	// re-adding an existing pair is a no-op
	require.NoError(t, tags.AddUsages(ctx, p1.ID, []int64{ids["go"], ids["db"]}))
	require.NoError(t, tags.AddUsages(ctx, p2.ID, []int64{ids["db"]}))

	names, err := tags.NamesForPost(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "web", "db"}, names)

	usageIDs, err := tags.UsageTagIDs(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{ids["go"], ids["web"], ids["db"]}, usageIDs)

	require.NoError(t, tags.RemoveUsages(ctx, p1.ID, []int64{ids["web"], ids["db"]}))
	names, err = tags.NamesForPost(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, names)

	// removal on one post never touches another
	byPost, err := tags.NamesForPosts(ctx, []int64{p1.ID, p2.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, byPost[p1.ID])
	assert.Equal(t, []string{"db"}, byPost[p2.ID])

	require.NoError(t, tags.RemoveAllUsages(ctx, p1.ID))
	names, err = tags.NamesForPost(ctx, p1.ID)
	require.NoError(t, err)
	assert.Empty(t, names)

	all, err := tags.ListNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "go", "web"}, all)
}

func TestUserRepository(t *testing.T) {
	store := NewStore(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	user := &models.User{Email: "a@example.com", Password: "hash", CreatedAt: 1}
	require.NoError(t, store.Users().Create(ctx, user))

	dup := &models.User{Email: "a@example.com", Password: "hash", CreatedAt: 2}
	assert.ErrorIs(t, store.Users().Create(ctx, dup), ErrDuplicate)

	found, err := store.Users().GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)

	missing, err := store.Users().GetByEmail(ctx, "b@example.com")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = store.Users().GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	store := NewStore(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	boom := errors.New("boom")

	var createdID int64
	err := store.Transaction(ctx, func(tx Store) error {
		post := &models.Post{OwnerID: 1, CreatedAt: 1}
		if err := tx.Posts().Create(ctx, post); err != nil {
			return err
		}
		createdID = post.ID
		if _, _, err := tx.Tags().FindOrCreate(ctx, "orphan"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Posts().GetByID(ctx, createdID)
	assert.ErrorIs(t, err, ErrNotFound)
	names, err := store.Tags().ListNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}
