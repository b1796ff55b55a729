package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/newspin/newspin/app/models"
	"github.com/newspin/newspin/app/repository"
	"github.com/newspin/newspin/internal/pkg/database"
	"github.com/newspin/newspin/internal/pkg/metrics/counter"
	"github.com/newspin/newspin/internal/pkg/pinning"
	"github.com/newspin/newspin/internal/pkg/usercontext"
)

type postRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID *uint  `json:"category_id"`
	Status     string `json:"status"`
}

func postJSON(p *models.Post, pinned bool) fiber.Map {
	m := fiber.Map{
		"id":         p.ID,
		"uuid":       p.UUID,
		"title":      p.Title,
		"slug":       p.Slug,
		"content":    p.Content,
		"status":     p.Status,
		"author_id":  p.AuthorID,
		"view_count": p.ViewCount,
		"pinned":     pinned,
		"created_at": p.CreatedAt,
		"updated_at": p.UpdatedAt,
	}
	if p.Author.ID != 0 {
		m["author"] = fiber.Map{"id": p.Author.ID, "name": p.Author.Name}
	}
	if p.Category != nil {
		m["category"] = fiber.Map{"id": p.Category.ID, "name": p.Category.Name, "slug": p.Category.Slug}
	}
	return m
}

// HandleListPosts returns the public feed: currently valid pinned posts first
// (oldest pin first), then the regular published page. The pinned block only
// appears on the first page so deep pagination stays stable.
func HandleListPosts(c *fiber.Ctx) error {
	offset, limit := pagination(c)
	repo := repository.GetGlobalFactory().GetPostRepository()

	var posts []models.Post
	var err error
	if q := c.Query("q"); q != "" {
		posts, err = repo.Search(q, offset, limit)
	} else if categorySlug := c.Query("category"); categorySlug != "" {
		category, cerr := repository.GetGlobalFactory().GetCategoryRepository().GetBySlug(categorySlug)
		if cerr != nil {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Category not found")
		}
		posts, err = repo.ListPublishedByCategory(category.ID, offset, limit)
	} else {
		posts, err = repo.ListPublished(offset, limit)
	}
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load posts")
	}

	pinnedIDs := map[uint]bool{}
	pinned := make([]fiber.Map, 0)
	if offset == 0 && c.Query("q") == "" && c.Query("category") == "" {
		guard := pinning.NewGuardFromDB(database.GetDB())
		pins, err := guard.ListPinned(c.Context(), 0, 10)
		if err != nil {
			log.Errorf("loading pinned posts failed: %v", err)
		} else {
			for i := range pins {
				pinnedIDs[pins[i].PostID] = true
				pinned = append(pinned, postJSON(&pins[i].Post, true))
			}
		}
	}

	items := make([]fiber.Map, 0, len(posts))
	for i := range posts {
		if pinnedIDs[posts[i].ID] {
			continue
		}
		items = append(items, postJSON(&posts[i], false))
	}

	return c.JSON(fiber.Map{
		"pinned": pinned,
		"posts":  items,
	})
}

// HandleGetPost returns one post by slug. Drafts are only visible to their
// author and admins. Views are counted through the buffered Redis counter.
func HandleGetPost(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetPostRepository()
	post, err := repo.GetBySlug(c.Params("slug"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Post not found")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load post")
	}

	userCtx := usercontext.GetUserContext(c)
	if !post.IsPublished() && post.AuthorID != userCtx.UserID && !userCtx.IsAdmin {
		return errorJSON(c, fiber.StatusNotFound, "not_found", "Post not found")
	}

	if post.IsPublished() {
		if err := counter.AddPostView(post.ID); err != nil {
			log.Debugf("view counter for post %d: %v", post.ID, err)
		}
	}

	pinnedByOwner := false
	if pin, err := pinning.NewGuardFromDB(database.GetDB()).GetPinnedPost(c.Context(), post.AuthorID); err == nil {
		pinnedByOwner = pin.PostID == post.ID
	}

	return c.JSON(postJSON(post, pinnedByOwner))
}

// HandleListMyPosts returns the authenticated user's posts, drafts included.
func HandleListMyPosts(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	offset, limit := pagination(c)

	posts, err := repository.GetGlobalFactory().GetPostRepository().GetByAuthorID(userCtx.UserID, offset, limit)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load posts")
	}

	items := make([]fiber.Map, 0, len(posts))
	for i := range posts {
		items = append(items, postJSON(&posts[i], false))
	}
	return c.JSON(fiber.Map{"posts": items})
}

// HandleCreatePost creates a post for the authenticated user.
func HandleCreatePost(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	status := models.PostStatusDraft
	if req.Status == models.PostStatusPublished {
		status = models.PostStatusPublished
	}

	post := &models.Post{
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: req.CategoryID,
		AuthorID:   userCtx.UserID,
		Status:     status,
	}
	if err := post.Validate(); err != nil {
		return errorJSON(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}
	if err := repository.GetGlobalFactory().GetPostRepository().Create(post); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create post")
	}

	return c.Status(fiber.StatusCreated).JSON(postJSON(post, false))
}

// HandleUpdatePost updates title, content, category or status. Only the
// author or an admin may edit; the slug stays stable.
func HandleUpdatePost(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repo := repository.GetGlobalFactory().GetPostRepository()

	post, err := repo.GetBySlug(c.Params("slug"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Post not found")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load post")
	}
	if post.AuthorID != userCtx.UserID && !userCtx.IsAdmin {
		return errorJSON(c, fiber.StatusForbidden, "forbidden", "Only the author can edit this post")
	}

	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	if req.Title != "" {
		post.Title = req.Title
	}
	if req.Content != "" {
		post.Content = req.Content
	}
	if req.CategoryID != nil {
		post.CategoryID = req.CategoryID
	}
	unpublished := false
	if req.Status == models.PostStatusDraft && post.IsPublished() {
		post.Status = models.PostStatusDraft
		unpublished = true
	} else if req.Status == models.PostStatusPublished {
		post.Status = models.PostStatusPublished
	}

	if err := post.Validate(); err != nil {
		return errorJSON(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}
	if err := repo.Update(post); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update post")
	}

	// Unpublishing a pinned post invalidates its pin.
	if unpublished {
		database.GetDB().Where("post_id = ?", post.ID).Delete(&models.PinnedPost{})
	}

	return c.JSON(postJSON(post, false))
}

// HandleDeletePost removes a post, its pin included.
func HandleDeletePost(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repo := repository.GetGlobalFactory().GetPostRepository()

	post, err := repo.GetBySlug(c.Params("slug"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Post not found")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load post")
	}
	if post.AuthorID != userCtx.UserID && !userCtx.IsAdmin {
		return errorJSON(c, fiber.StatusForbidden, "forbidden", "Only the author can delete this post")
	}

	if err := repo.Delete(post.ID); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete post")
	}
	database.GetDB().Where("post_id = ?", post.ID).Delete(&models.PinnedPost{})

	return c.JSON(fiber.Map{"message": "post deleted"})
}
