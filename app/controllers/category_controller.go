package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/newspin/newspin/app/models"
	"github.com/newspin/newspin/app/repository"
)

// HandleListCategories returns all categories.
func HandleListCategories(c *fiber.Ctx) error {
	categories, err := repository.GetGlobalFactory().GetCategoryRepository().List()
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load categories")
	}
	return c.JSON(fiber.Map{"categories": categories})
}

// HandleCreateCategory creates a category (admin only, enforced by routing).
func HandleCreateCategory(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return errorJSON(c, fiber.StatusUnprocessableEntity, "validation_failed", "Category name is required")
	}

	category := &models.Category{Name: strings.TrimSpace(req.Name), Description: req.Description}
	if err := repository.GetGlobalFactory().GetCategoryRepository().Create(category); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create category")
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}
