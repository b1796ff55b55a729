package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/newspin/newspin/app/models"
	"github.com/newspin/newspin/app/repository"
	"github.com/newspin/newspin/internal/pkg/database"
	"github.com/newspin/newspin/internal/pkg/session"
	"github.com/newspin/newspin/internal/pkg/usercontext"
	"github.com/newspin/newspin/internal/pkg/utils"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a user account and logs it in.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	if _, err := repo.GetByEmail(req.Email); err == nil {
		return errorJSON(c, fiber.StatusConflict, "email_taken", "An account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to check email")
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return errorJSON(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}
	if err := repo.Create(user); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create account")
	}

	if err := startSession(c, user); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Account created but login failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}

// HandleLogin verifies credentials and starts a session.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(req.Email)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "invalid_credentials", "Email or password is wrong")
	}
	if !user.IsActive() {
		return errorJSON(c, fiber.StatusForbidden, "account_disabled", "This account is not active")
	}
	if !user.CheckPassword(req.Password) {
		return errorJSON(c, fiber.StatusUnauthorized, "invalid_credentials", "Email or password is wrong")
	}

	if err := startSession(c, user); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to start session")
	}

	database.GetDB().Model(user).Update("last_login_at", time.Now())

	return c.JSON(fiber.Map{
		"id":       user.ID,
		"name":     user.Name,
		"email":    user.Email,
		"is_admin": user.Role == models.ROLE_ADMIN,
	})
}

// HandleLogout destroys the current session.
func HandleLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		_ = sess.Destroy()
	}
	return c.JSON(fiber.Map{"message": "logged out"})
}

// HandleMe returns the authenticated user's account.
func HandleMe(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	return c.JSON(fiber.Map{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"avatar_url":    utils.GetGravatarURL(user.Email, 200),
		"bio":           user.Bio,
		"is_admin":      user.Role == models.ROLE_ADMIN,
		"created_at":    user.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at": formatTimePtr(user.LastLoginAt),
	})
}

func startSession(c *fiber.Ctx, user *models.User) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}
	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyIsAdmin, user.Role == models.ROLE_ADMIN)
	return sess.Save()
}
