package server

import (
	"context"
	"encoding/json"
	"strconv"

	"yatube/internal/middleware"
	"yatube/internal/pagination"

	"github.com/gofiber/fiber/v2"
)

// GetIndex handles GET /api/posts?page=N. Responses come from the page cache
// and may lag writes by up to the cache TTL.
// @Summary Index feed
// @Description All posts, newest first. Served from the page cache.
// @Tags feed
// @Produce json
// @Param page query string false "Page number"
// @Success 200 {object} service.Feed
// @Header 200 {string} X-Cache "HIT or MISS"
// @Router /posts [get]
func (s *Server) GetIndex(c *fiber.Ctx) error {
	page := pagination.ParseNumber(c.Query("page"))

	rendered, err := s.pageCache.GetOrRender(c.UserContext(), page, func(ctx context.Context) ([]byte, error) {
		feed, err := s.feedService.Index(ctx, strconv.Itoa(page))
		if err != nil {
			return nil, err
		}
		return json.Marshal(feed)
	})
	if err != nil {
		return respondError(c, err)
	}

	if rendered.Hit {
		c.Set("X-Cache", "HIT")
	} else {
		c.Set("X-Cache", "MISS")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(rendered.Body)
}

// GetGroupFeed handles GET /api/group/:slug
// @Summary Group feed
// @Tags feed
// @Produce json
// @Param slug path string true "Group slug"
// @Param page query string false "Page number"
// @Success 200 {object} service.Feed
// @Failure 404 {object} models.ErrorResponse
// @Router /group/{slug} [get]
func (s *Server) GetGroupFeed(c *fiber.Ctx) error {
	feed, err := s.feedService.Group(c.UserContext(), c.Params("slug"), c.Query("page"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(feed)
}

// GetProfile handles GET /api/profile/:username
// @Summary Profile feed
// @Description Posts by one author plus whether the caller follows them.
// @Tags feed
// @Produce json
// @Param username path string true "Author username"
// @Param page query string false "Page number"
// @Success 200 {object} service.Feed
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{username} [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	feed, err := s.feedService.Profile(c.UserContext(), c.Params("username"), middleware.UserID(c), c.Query("page"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(feed)
}

// GetFollowFeed handles GET /api/follow
// @Summary Following feed
// @Tags follow
// @Produce json
// @Security BearerAuth
// @Param page query string false "Page number"
// @Success 200 {object} service.Feed
// @Failure 401 {object} models.ErrorResponse
// @Router /follow [get]
func (s *Server) GetFollowFeed(c *fiber.Ctx) error {
	feed, err := s.feedService.Following(c.UserContext(), middleware.UserID(c), c.Query("page"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(feed)
}

// ListGroups handles GET /api/groups
func (s *Server) ListGroups(c *fiber.Ctx) error {
	groups, err := s.groupRepo.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(groups)
}
