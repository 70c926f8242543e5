package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"scriptorium/internal/auth"
	"scriptorium/internal/config"
	"scriptorium/internal/featureflags"
	"scriptorium/internal/models"
	"scriptorium/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPostLifecycle is a mock of the postLifecycle interface
type MockPostLifecycle struct {
	mock.Mock
}

func (m *MockPostLifecycle) CreateDraft(ctx context.Context, ownerID int64) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPostLifecycle) Save(ctx context.Context, in service.SavePostInput) (*models.PostDetail, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PostDetail), args.Error(1)
}

func (m *MockPostLifecycle) FetchDetail(ctx context.Context, id int64) (*models.PostDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PostDetail), args.Error(1)
}

func (m *MockPostLifecycle) FetchForEdit(ctx context.Context, id, userID int64) (*models.PostDetail, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PostDetail), args.Error(1)
}

func (m *MockPostLifecycle) ListPosts(ctx context.Context, page, size int) ([]models.PostDetail, error) {
	args := m.Called(ctx, page, size)
	return args.Get(0).([]models.PostDetail), args.Error(1)
}

func (m *MockPostLifecycle) ListTags(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockPostLifecycle) Delete(ctx context.Context, id, userID int64) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

type testEnvelope struct {
	Status int `json:"status"`
	Error  *struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"error"`
	Data json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, posts postLifecycle, accts accounts, rdb *redis.Client, flags string) (*Server, *fiber.App) {
	t.Helper()
	s := &Server{
		config:       &config.Config{Env: "test", FeatureFlags: flags},
		redis:        rdb,
		tokens:       auth.NewTokenIssuer("test-secret", time.Hour),
		featureFlags: featureflags.NewManager(flags),
		posts:        posts,
		accounts:     accts,
		pageSize:     service.DefaultPageSize,
	}
	return s, s.NewApp()
}

func sessionCookie(t *testing.T, s *Server, userID int64) string {
	t.Helper()
	token, err := s.tokens.Issue(userID)
	require.NoError(t, err)
	return auth.CookieName + "=" + token
}

func doRequest(t *testing.T, app *fiber.App, method, path, body, cookie string) (*http.Response, testEnvelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var env testEnvelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

func TestNewPost(t *testing.T) {
	posts := new(MockPostLifecycle)
	s, app := newTestServer(t, posts, nil, nil, "")

	t.Run("requires a session", func(t *testing.T) {
		resp, env := doRequest(t, app, http.MethodGet, "/post/new", "", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, http.StatusBadRequest, env.Status)
		require.NotNil(t, env.Error)
		assert.Equal(t, "BusinessException", env.Error.Code)
		assert.Equal(t, "not authenticated", env.Error.Detail)
	})

	t.Run("garbage token", func(t *testing.T) {
		resp, _ := doRequest(t, app, http.MethodGet, "/post/new", "", auth.CookieName+"=nope")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("creates a draft for the caller", func(t *testing.T) {
		posts.On("CreateDraft", mock.Anything, int64(7)).Return(int64(42), nil).Once()

		resp, env := doRequest(t, app, http.MethodGet, "/post/new", "", sessionCookie(t, s, 7))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 0, env.Status)
		assert.Nil(t, env.Error)
		assert.JSONEq(t, "42", string(env.Data))
	})

	posts.AssertExpectations(t)
}

func TestSavePost(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	saved := &models.PostDetail{
		ID:        7,
		Title:     "T",
		Content:   "<h1>Hi</h1>",
		Tags:      []string{"go", "db"},
		CreatedAt: now,
		UpdatedAt: &now,
	}

	tests := []struct {
		name       string
		body       string
		setup      func(m *MockPostLifecycle)
		wantStatus int
		wantCode   string
		wantDetail string
	}{
		{
			name: "tags supplied",
			body: `{"id":7,"title":"T","title_image":"","content":"# Hi","tags":["go","db"]}`,
			setup: func(m *MockPostLifecycle) {
				m.On("Save", mock.Anything, mock.MatchedBy(func(in service.SavePostInput) bool {
					return in.ID == 7 && in.Content == "# Hi" && in.Tags != nil && len(*in.Tags) == 2
				})).Return(saved, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "tags omitted leaves them untouched",
			body: `{"id":7,"title":"T","title_image":"","content":"# Hi"}`,
			setup: func(m *MockPostLifecycle) {
				m.On("Save", mock.Anything, mock.MatchedBy(func(in service.SavePostInput) bool {
					return in.Tags == nil
				})).Return(saved, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "empty tag list clears tags",
			body: `{"id":7,"title":"T","title_image":"","content":"# Hi","tags":[]}`,
			setup: func(m *MockPostLifecycle) {
				m.On("Save", mock.Anything, mock.MatchedBy(func(in service.SavePostInput) bool {
					return in.Tags != nil && len(*in.Tags) == 0
				})).Return(saved, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed body",
			body:       `{"id":"seven"`,
			setup:      func(m *MockPostLifecycle) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "BadRequest",
			wantDetail: "Bad request",
		},
		{
			name: "unknown post",
			body: `{"id":999,"title":"T","title_image":"","content":""}`,
			setup: func(m *MockPostLifecycle) {
				m.On("Save", mock.Anything, mock.MatchedBy(func(in service.SavePostInput) bool {
					return in.ID == 999
				})).Return(nil, models.NewBusinessError("post not found")).Once()
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "BusinessException",
			wantDetail: "post not found",
		},
		{
			name: "storage failure",
			body: `{"id":8,"title":"T","title_image":"","content":""}`,
			setup: func(m *MockPostLifecycle) {
				m.On("Save", mock.Anything, mock.MatchedBy(func(in service.SavePostInput) bool {
					return in.ID == 8
				})).Return(nil, errors.New("connection reset")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "InternalServerError",
			wantDetail: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts := new(MockPostLifecycle)
			tt.setup(posts)
			s, app := newTestServer(t, posts, nil, nil, "")

			resp, env := doRequest(t, app, http.MethodPost, "/post/save", tt.body, sessionCookie(t, s, 1))
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantCode == "" {
				assert.Equal(t, 0, env.Status)
				var detail models.PostDetail
				require.NoError(t, json.Unmarshal(env.Data, &detail))
				assert.Equal(t, []string{"go", "db"}, detail.Tags)
				assert.Equal(t, "<h1>Hi</h1>", detail.Content)
			} else {
				assert.Equal(t, tt.wantStatus, env.Status)
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.wantCode, env.Error.Code)
				assert.Equal(t, tt.wantDetail, env.Error.Detail)
				assert.Equal(t, "null", string(env.Data))
			}
			posts.AssertExpectations(t)
		})
	}
}

func TestShowPost(t *testing.T) {
	posts := new(MockPostLifecycle)
	s, app := newTestServer(t, posts, nil, nil, "")

	posts.On("FetchDetail", mock.Anything, int64(3)).
		Return(&models.PostDetail{ID: 3, Content: "<p>x</p>", Tags: []string{}}, nil).Once()
	posts.On("FetchDetail", mock.Anything, int64(4)).
		Return(nil, models.NewBusinessError("post not found")).Once()
	posts.On("FetchForEdit", mock.Anything, int64(3), int64(9)).
		Return(&models.PostDetail{ID: 3, Content: "x", Tags: []string{}}, nil).Once()

	resp, env := doRequest(t, app, http.MethodGet, "/post/show/3", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `"<p>x</p>"`, mustField(t, env.Data, "content"))

	resp, env = doRequest(t, app, http.MethodGet, "/post/show/4", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "post not found", env.Error.Detail)

	resp, env = doRequest(t, app, http.MethodGet, "/post/show/abc", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NotFound", env.Error.Code)

	resp, _ = doRequest(t, app, http.MethodGet, "/post/show/3?edit=true", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env = doRequest(t, app, http.MethodGet, "/post/show/3?edit=true", "", sessionCookie(t, s, 9))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `"x"`, mustField(t, env.Data, "content"))

	posts.AssertExpectations(t)
}

func TestListPostsAndTags(t *testing.T) {
	posts := new(MockPostLifecycle)
	_, app := newTestServer(t, posts, nil, nil, "")

	posts.On("ListPosts", mock.Anything, 2, service.DefaultPageSize).
		Return([]models.PostDetail{{ID: 1, Tags: []string{}}}, nil).Once()
	posts.On("ListPosts", mock.Anything, 0, service.DefaultPageSize).
		Return([]models.PostDetail(nil), models.NewBusinessError("page must be at least 1")).Once()
	posts.On("ListTags", mock.Anything).Return([]string{"db", "go"}, nil).Once()

	resp, env := doRequest(t, app, http.MethodGet, "/post/list/2", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var list []models.PostDetail
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)

	resp, _ = doRequest(t, app, http.MethodGet, "/post/list/0", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodGet, "/post/list/first", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, env = doRequest(t, app, http.MethodGet, "/tag/list", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `["db","go"]`, string(env.Data))

	posts.AssertExpectations(t)
}

func TestDeletePost(t *testing.T) {
	posts := new(MockPostLifecycle)
	s, app := newTestServer(t, posts, nil, nil, "")

	posts.On("Delete", mock.Anything, int64(5), int64(2)).Return(nil).Once()
	posts.On("Delete", mock.Anything, int64(6), int64(2)).Return(models.NewBusinessError("unauthorized")).Once()

	resp, env := doRequest(t, app, http.MethodDelete, "/post/5", "", sessionCookie(t, s, 2))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "5", string(env.Data))

	resp, env = doRequest(t, app, http.MethodDelete, "/post/6", "", sessionCookie(t, s, 2))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unauthorized", env.Error.Detail)

	resp, _ = doRequest(t, app, http.MethodDelete, "/post/5", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	posts.AssertExpectations(t)
}

func TestRoutingFailuresUseEnvelope(t *testing.T) {
	_, app := newTestServer(t, new(MockPostLifecycle), nil, nil, "")

	resp, env := doRequest(t, app, http.MethodGet, "/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NotFound", env.Error.Code)
	assert.Equal(t, "Not found", env.Error.Detail)

	resp, env = doRequest(t, app, http.MethodPut, "/tag/list", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "MethodNotAllowed", env.Error.Code)
	assert.Equal(t, http.StatusMethodNotAllowed, env.Status)
}

func mustField(t *testing.T, raw json.RawMessage, field string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	return string(m[field])
}
