package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPost_ToDetail(t *testing.T) {
	updated := int64(1700000600)
	post := &Post{
		ID:              7,
		Title:           "Hi",
		TitleImage:      "/asset/title.png",
		MarkdownContent: "# Hi",
		RenderedContent: "<h1>Hi</h1>",
		CreatedAt:       1700000000,
		UpdatedAt:       &updated,
	}

	detail := post.ToDetail()
	assert.Equal(t, int64(7), detail.ID)
	assert.Equal(t, "<h1>Hi</h1>", detail.Content)
	assert.Equal(t, "/asset/title.png", detail.TitleImage)
	assert.Nil(t, detail.Tags)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), detail.CreatedAt)
	require.NotNil(t, detail.UpdatedAt)
	assert.Equal(t, time.Unix(updated, 0).UTC(), *detail.UpdatedAt)
	assert.False(t, post.IsDraft())
}

func TestPost_ToDetail_Draft(t *testing.T) {
	post := &Post{ID: 1, CreatedAt: 1700000000}
	detail := post.ToDetail()
	assert.True(t, post.IsDraft())
	assert.Nil(t, detail.UpdatedAt)
	assert.Empty(t, detail.Content)
}

func TestUser_ToInfo_StripsPassword(t *testing.T) {
	user := &User{ID: 3, Email: "a@example.com", Password: "$2a$10$hash"}
	info := user.ToInfo()
	assert.Equal(t, UserInfo{ID: 3, Email: "a@example.com"}, info)

	raw, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hash")
}

func TestErrorKind_TextRoundTrip(t *testing.T) {
	for _, kind := range []ErrorKind{NotFound, BadRequest, MethodNotAllowed, BusinessException, InternalServerError} {
		text, err := kind.MarshalText()
		require.NoError(t, err)
		var back ErrorKind
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, kind, back)
	}

	var bad ErrorKind
	assert.Error(t, bad.UnmarshalText([]byte("Teapot")))
}

func TestIsKind(t *testing.T) {
	assert.True(t, IsKind(NewBusinessError("x"), BusinessException))
	assert.False(t, IsKind(NewBusinessError("x"), NotFound))
	assert.False(t, IsKind(assert.AnError, InternalServerError))
}
