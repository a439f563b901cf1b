package server

import (
	"yatube/internal/middleware"
	"yatube/internal/models"

	"github.com/gofiber/fiber/v2"
)

type followResponse struct {
	Author    *models.User `json:"author"`
	Following bool         `json:"following"`
}

// FollowAuthor handles POST /api/profile/:username/follow. Repeating it is harmless.
// @Summary Follow an author
// @Tags follow
// @Produce json
// @Security BearerAuth
// @Param username path string true "Author username"
// @Success 200 {object} followResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{username}/follow [post]
func (s *Server) FollowAuthor(c *fiber.Ctx) error {
	author, err := s.followService.FollowUsername(c.UserContext(), middleware.UserID(c), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(followResponse{Author: author, Following: true})
}

// UnfollowAuthor handles POST /api/profile/:username/unfollow
func (s *Server) UnfollowAuthor(c *fiber.Ctx) error {
	author, err := s.followService.UnfollowUsername(c.UserContext(), middleware.UserID(c), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(followResponse{Author: author, Following: false})
}
