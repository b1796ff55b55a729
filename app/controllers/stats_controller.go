package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/newspin/newspin/internal/pkg/statistics"
)

// HandleGetStatistics returns the cached platform numbers.
func HandleGetStatistics(c *fiber.Ctx) error {
	return c.JSON(statistics.GetStatistics())
}
