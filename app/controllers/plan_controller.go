package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/newspin/newspin/app/models"
	"github.com/newspin/newspin/app/repository"
)

// HandleListPlans returns the purchasable plans.
func HandleListPlans(c *fiber.Ctx) error {
	plans, err := repository.GetGlobalFactory().GetPlanRepository().ListActive()
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load plans")
	}
	return c.JSON(fiber.Map{"plans": plans})
}

// HandleGetPlan returns one plan by id.
func HandleGetPlan(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid plan id")
	}
	plan, err := repository.GetGlobalFactory().GetPlanRepository().GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Plan not found")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load plan")
	}
	return c.JSON(plan)
}

type planRequest struct {
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	DurationDays  int     `json:"duration_days"`
	StripePriceID string  `json:"stripe_price_id"`
	IsActive      *bool   `json:"is_active"`
}

// HandleCreatePlan creates a plan (admin only, enforced by routing).
func HandleCreatePlan(c *fiber.Ctx) error {
	var req planRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	plan := &models.SubscriptionPlan{
		Name:         req.Name,
		Price:        req.Price,
		DurationDays: req.DurationDays,
		IsActive:     true,
	}
	if req.StripePriceID != "" {
		plan.StripePriceID = &req.StripePriceID
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}
	if err := plan.Validate(); err != nil {
		return errorJSON(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}
	if err := repository.GetGlobalFactory().GetPlanRepository().Create(plan); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create plan")
	}
	return c.Status(fiber.StatusCreated).JSON(plan)
}

// HandleUpdatePlan updates plan fields. Retiring a plan (is_active=false)
// leaves running subscriptions untouched.
func HandleUpdatePlan(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid plan id")
	}

	repo := repository.GetGlobalFactory().GetPlanRepository()
	plan, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Plan not found")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load plan")
	}

	var req planRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if req.Name != "" {
		plan.Name = req.Name
	}
	if req.Price > 0 {
		plan.Price = req.Price
	}
	if req.DurationDays > 0 {
		plan.DurationDays = req.DurationDays
	}
	if req.StripePriceID != "" {
		plan.StripePriceID = &req.StripePriceID
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}

	if err := plan.Validate(); err != nil {
		return errorJSON(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}
	if err := repo.Update(plan); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update plan")
	}
	return c.JSON(plan)
}
