package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/newspin/newspin/app/models"
	"github.com/newspin/newspin/app/repository"
	"github.com/newspin/newspin/internal/pkg/usercontext"
	"github.com/newspin/newspin/internal/pkg/utils"
)

type commentRequest struct {
	Content string `json:"content"`
}

// HandleListComments returns the comments under a published post.
func HandleListComments(c *fiber.Ctx) error {
	post, err := repository.GetGlobalFactory().GetPostRepository().GetBySlug(c.Params("slug"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Post not found")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load post")
	}
	if !post.IsPublished() {
		return errorJSON(c, fiber.StatusNotFound, "not_found", "Post not found")
	}

	offset, limit := pagination(c)
	comments, err := repository.GetGlobalFactory().GetCommentRepository().GetByPostID(post.ID, offset, limit)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load comments")
	}

	items := make([]fiber.Map, 0, len(comments))
	for i := range comments {
		cm := &comments[i]
		items = append(items, fiber.Map{
			"id":      cm.ID,
			"content": cm.Content,
			"user": fiber.Map{
				"id":         cm.User.ID,
				"name":       cm.User.Name,
				"avatar_url": utils.GetGravatarURL(cm.User.Email, 80),
			},
			"created_at": cm.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"comments": items})
}

// HandleCreateComment adds a comment to a published post.
func HandleCreateComment(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	post, err := repository.GetGlobalFactory().GetPostRepository().GetBySlug(c.Params("slug"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Post not found")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load post")
	}
	if !post.IsPublished() {
		return errorJSON(c, fiber.StatusNotFound, "not_found", "Post not found")
	}

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return errorJSON(c, fiber.StatusUnprocessableEntity, "validation_failed", "Comment content is required")
	}

	comment := &models.Comment{
		UserID:  userCtx.UserID,
		PostID:  post.ID,
		Content: content,
	}
	if err := repository.GetGlobalFactory().GetCommentRepository().Create(comment); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create comment")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         comment.ID,
		"content":    comment.Content,
		"created_at": comment.CreatedAt,
	})
}

// HandleDeleteComment removes a comment; allowed for its writer, the post
// author and admins.
func HandleDeleteComment(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	id, err := parseUintParam(c, "id")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid comment id")
	}

	commentRepo := repository.GetGlobalFactory().GetCommentRepository()
	comment, err := commentRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Comment not found")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load comment")
	}

	allowed := comment.UserID == userCtx.UserID || userCtx.IsAdmin
	if !allowed {
		if post, err := repository.GetGlobalFactory().GetPostRepository().GetByID(comment.PostID); err == nil {
			allowed = post.AuthorID == userCtx.UserID
		}
	}
	if !allowed {
		return errorJSON(c, fiber.StatusForbidden, "forbidden", "Not allowed to delete this comment")
	}

	if err := commentRepo.Delete(comment.ID); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete comment")
	}
	return c.JSON(fiber.Map{"message": "comment deleted"})
}
