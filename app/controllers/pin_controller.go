package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/newspin/newspin/internal/pkg/database"
	"github.com/newspin/newspin/internal/pkg/pinning"
	"github.com/newspin/newspin/internal/pkg/usercontext"
)

func pinErrorJSON(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, pinning.ErrPostNotFound):
		return errorJSON(c, fiber.StatusNotFound, "not_found", "Post not found")
	case errors.Is(err, pinning.ErrNotAuthor):
		return errorJSON(c, fiber.StatusForbidden, "not_author", "Only the author can pin a post")
	case errors.Is(err, pinning.ErrNotPublished):
		return errorJSON(c, fiber.StatusUnprocessableEntity, "not_published", "Only published posts can be pinned")
	case errors.Is(err, pinning.ErrSubscriptionRequired):
		return errorJSON(c, fiber.StatusPaymentRequired, "subscription_required", "An active subscription is required to pin posts")
	case errors.Is(err, pinning.ErrNoPinnedPost):
		return errorJSON(c, fiber.StatusNotFound, "no_pinned_post", "You have no pinned post")
	default:
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Pin operation failed")
	}
}

// HandleGetMyPin returns the authenticated user's pinned post.
func HandleGetMyPin(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	guard := pinning.NewGuardFromDB(database.GetDB())
	pin, err := guard.GetPinnedPost(c.Context(), userCtx.UserID)
	if err != nil {
		return pinErrorJSON(c, err)
	}
	return c.JSON(fiber.Map{
		"post_id":   pin.PostID,
		"pinned_at": pin.PinnedAt,
	})
}

// HandlePinPost pins a post by id, replacing any previous pin.
func HandlePinPost(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	postID, err := parseUintParam(c, "id")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid post id")
	}

	guard := pinning.NewGuardFromDB(database.GetDB())
	pin, err := guard.Pin(c.Context(), userCtx.UserID, postID)
	if err != nil {
		return pinErrorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"post_id":   pin.PostID,
		"pinned_at": pin.PinnedAt,
	})
}

// HandleUnpin removes the user's pinned post.
func HandleUnpin(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	guard := pinning.NewGuardFromDB(database.GetDB())
	if err := guard.Unpin(c.Context(), userCtx.UserID); err != nil {
		return pinErrorJSON(c, err)
	}
	return c.JSON(fiber.Map{"message": "post unpinned"})
}

// HandleTogglePin flips the pin state of a post addressed by slug.
func HandleTogglePin(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	guard := pinning.NewGuardFromDB(database.GetDB())
	pinned, pin, err := guard.ToggleBySlug(c.Context(), userCtx.UserID, c.Params("slug"))
	if err != nil {
		return pinErrorJSON(c, err)
	}

	response := fiber.Map{"pinned": pinned}
	if pin != nil {
		response["pinned_at"] = pin.PinnedAt
	}
	return c.JSON(response)
}

// HandleCanPin returns the eligibility breakdown for a post.
func HandleCanPin(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	postID, err := parseUintParam(c, "id")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid post id")
	}

	guard := pinning.NewGuardFromDB(database.GetDB())
	eligibility, err := guard.CanPin(c.Context(), userCtx.UserID, postID)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to check pin eligibility")
	}
	return c.JSON(eligibility)
}

// HandleListPinned returns the public list of currently valid pins.
func HandleListPinned(c *fiber.Ctx) error {
	offset, limit := pagination(c)

	guard := pinning.NewGuardFromDB(database.GetDB())
	pins, err := guard.ListPinned(c.Context(), offset, limit)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load pinned posts")
	}

	items := make([]fiber.Map, 0, len(pins))
	for i := range pins {
		items = append(items, fiber.Map{
			"pinned_at": pins[i].PinnedAt,
			"post":      postJSON(&pins[i].Post, true),
		})
	}
	return c.JSON(fiber.Map{"pinned": items})
}
