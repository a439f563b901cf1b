package server

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// postForm is the parsed body of a create or edit request. Nil fields were absent.
type postForm struct {
	Text       *string
	GroupID    *uint
	ClearGroup bool
	Image      *string
}

type postJSON struct {
	Text       *string `json:"text"`
	GroupID    *uint   `json:"group_id"`
	ClearGroup bool    `json:"clear_group"`
}

// readPostForm accepts JSON or multipart bodies. A multipart "image" file is
// stored before the service runs; callers discard it if the write fails.
func (s *Server) readPostForm(c *fiber.Ctx) (postForm, error) {
	var form postForm

	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		var req postJSON
		if err := c.BodyParser(&req); err != nil {
			return form, models.NewValidationError("Invalid request body")
		}
		return postForm{Text: req.Text, GroupID: req.GroupID, ClearGroup: req.ClearGroup}, nil
	}

	mf, err := c.MultipartForm()
	if err != nil {
		return form, models.NewValidationError("Invalid multipart body")
	}
	if v, ok := mf.Value["text"]; ok && len(v) > 0 {
		form.Text = &v[0]
	}
	if v, ok := mf.Value["group_id"]; ok && len(v) > 0 {
		raw := strings.TrimSpace(v[0])
		if raw == "" {
			form.ClearGroup = true
		} else {
			id, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || id == 0 {
				return form, models.NewValidationError("Invalid group_id")
			}
			gid := uint(id)
			form.GroupID = &gid
		}
	}

	files := mf.File["image"]
	if len(files) == 0 {
		return form, nil
	}
	src, err := files[0].Open()
	if err != nil {
		return form, models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()
	content, err := io.ReadAll(src)
	if err != nil {
		return form, models.NewValidationError("Unable to read uploaded file")
	}
	rel, err := s.storage.SaveImage(c.UserContext(), content)
	if err != nil {
		return form, err
	}
	form.Image = &rel
	return form, nil
}

func (s *Server) discardImage(c *fiber.Ctx, form postForm) {
	if form.Image == nil {
		return
	}
	if err := s.storage.Delete(c.UserContext(), *form.Image); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "failed to remove orphaned upload",
			slog.String("path", *form.Image), slog.String("error", err.Error()))
	}
}

// GetPost handles GET /api/posts/:id
// @Summary Post detail with comments
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} service.PostDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	detail, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(detail)
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body object{text=string,group_id=int} true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	form, err := s.readPostForm(c)
	if err != nil {
		return respondError(c, err)
	}

	in := service.CreatePostInput{
		AuthorID: middleware.UserID(c),
		GroupID:  form.GroupID,
	}
	if form.Text != nil {
		in.Text = *form.Text
	}
	if form.Image != nil {
		in.Image = *form.Image
	}

	post, err := s.postService.CreatePost(c.UserContext(), in)
	if err != nil {
		s.discardImage(c, form)
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id. Anyone but the author is sent back
// to the post with a redirect and the post is left untouched.
// @Summary Edit a post
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body object{text=string,group_id=int,clear_group=bool} true "Changed fields"
// @Success 200 {object} models.Post
// @Success 302 "Caller is not the author"
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	detail := fmt.Sprintf("/api/posts/%d", id)
	if err := s.postService.AuthorizeEdit(c.UserContext(), id, middleware.UserID(c)); err != nil {
		if models.IsForbidden(err) {
			return c.Redirect(detail, fiber.StatusFound)
		}
		return respondError(c, err)
	}
	form, err := s.readPostForm(c)
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		PostID:     id,
		UserID:     middleware.UserID(c),
		Text:       form.Text,
		GroupID:    form.GroupID,
		ClearGroup: form.ClearGroup,
		Image:      form.Image,
	})
	if err != nil {
		s.discardImage(c, form)
		if models.IsForbidden(err) {
			return c.Redirect(detail, fiber.StatusFound)
		}
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		PostID: id,
		UserID: middleware.UserID(c),
	}); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
