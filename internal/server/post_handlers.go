package server

import (
	"strconv"

	"scriptorium/internal/models"
	"scriptorium/internal/service"

	"github.com/gofiber/fiber/v2"
)

type savePostRequest struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	TitleImage string    `json:"title_image"`
	Content    string    `json:"content"`
	Tags       *[]string `json:"tags"`
}

// NewPost handles GET /post/new
// @Summary Create an empty draft
// @Tags posts
// @Produce json
// @Success 200 {object} models.Envelope[int64]
// @Failure 400 {object} models.Envelope[any]
// @Router /post/new [get]
func (s *Server) NewPost(c *fiber.Ctx) error {
	id, err := s.posts.CreateDraft(c.UserContext(), currentUserID(c))
	if err != nil {
		return err
	}
	return models.RespondWithData(c, id)
}

// SavePost handles POST /post/save
// @Summary Save a post
// @Description Renders the markdown, updates the post and, when tags is present, replaces its tags.
// @Tags posts
// @Accept json
// @Produce json
// @Param request body savePostRequest true "Post"
// @Success 200 {object} models.Envelope[models.PostDetail]
// @Failure 400 {object} models.Envelope[any]
// @Router /post/save [post]
func (s *Server) SavePost(c *fiber.Ctx) error {
	var req savePostRequest
	if err := c.BodyParser(&req); err != nil {
		return &models.BodyError{Err: err}
	}

	detail, err := s.posts.Save(c.UserContext(), service.SavePostInput{
		ID:         req.ID,
		Title:      req.Title,
		TitleImage: req.TitleImage,
		Content:    req.Content,
		Tags:       req.Tags,
	})
	if err != nil {
		return err
	}
	return models.RespondWithData(c, detail)
}

// ShowPost handles GET /post/show/:id
// With edit=true the caller must own the post and receives the markdown.
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Param edit query bool false "Load for editing"
// @Success 200 {object} models.Envelope[models.PostDetail]
// @Failure 400 {object} models.Envelope[any]
// @Failure 404 {object} models.Envelope[any]
// @Router /post/show/{id} [get]
func (s *Server) ShowPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if c.QueryBool("edit") {
		claims, err := s.authenticate(c)
		if err != nil {
			return err
		}
		setUser(c, claims.UserID)

		detail, err := s.posts.FetchForEdit(c.UserContext(), id, claims.UserID)
		if err != nil {
			return err
		}
		return models.RespondWithData(c, detail)
	}

	detail, err := s.posts.FetchDetail(c.UserContext(), id)
	if err != nil {
		return err
	}
	return models.RespondWithData(c, detail)
}

// ListPosts handles GET /post/list/:page
// @Summary List saved posts, newest first
// @Tags posts
// @Produce json
// @Param page path int true "1-based page"
// @Success 200 {object} models.Envelope[[]models.PostDetail]
// @Failure 400 {object} models.Envelope[any]
// @Router /post/list/{page} [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	page, err := strconv.Atoi(c.Params("page"))
	if err != nil {
		return models.NewNotFoundError()
	}

	posts, err := s.posts.ListPosts(c.UserContext(), page, s.pageSize)
	if err != nil {
		return err
	}
	return models.RespondWithData(c, posts)
}

// DeletePost handles DELETE /post/:id
// @Summary Delete a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Envelope[int64]
// @Failure 400 {object} models.Envelope[any]
// @Router /post/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := s.posts.Delete(c.UserContext(), id, currentUserID(c)); err != nil {
		return err
	}
	return models.RespondWithData(c, id)
}

// ListTags handles GET /tag/list
// @Summary List tag names
// @Tags tags
// @Produce json
// @Success 200 {object} models.Envelope[[]string]
// @Router /tag/list [get]
func (s *Server) ListTags(c *fiber.Ctx) error {
	names, err := s.posts.ListTags(c.UserContext())
	if err != nil {
		return err
	}
	return models.RespondWithData(c, names)
}
