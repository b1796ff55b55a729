package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/newspin/newspin/app/controllers"
	"github.com/newspin/newspin/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	v1 := api.Group("/v1")

	// auth
	v1.Post("/auth/register", controllers.HandleRegister)
	v1.Post("/auth/login", controllers.HandleLogin)
	v1.Post("/auth/logout", controllers.HandleLogout)
	v1.Get("/auth/me", middleware.RequireAuth, controllers.HandleMe)

	// posts and comments
	v1.Get("/posts", controllers.HandleListPosts)
	v1.Post("/posts", middleware.RequireAuth, controllers.HandleCreatePost)
	v1.Get("/posts/mine", middleware.RequireAuth, controllers.HandleListMyPosts)
	v1.Get("/posts/:slug", controllers.HandleGetPost)
	v1.Put("/posts/:slug", middleware.RequireAuth, controllers.HandleUpdatePost)
	v1.Delete("/posts/:slug", middleware.RequireAuth, controllers.HandleDeletePost)
	v1.Post("/posts/:slug/toggle-pin", middleware.RequireAuth, controllers.HandleTogglePin)
	v1.Get("/posts/:slug/comments", controllers.HandleListComments)
	v1.Post("/posts/:slug/comments", middleware.RequireAuth, controllers.HandleCreateComment)
	v1.Delete("/comments/:id", middleware.RequireAuth, controllers.HandleDeleteComment)

	// categories
	v1.Get("/categories", controllers.HandleListCategories)
	v1.Post("/categories", middleware.RequireAdmin, controllers.HandleCreateCategory)

	// plans
	v1.Get("/plans", controllers.HandleListPlans)
	v1.Get("/plans/:id", controllers.HandleGetPlan)
	v1.Post("/plans", middleware.RequireAdmin, controllers.HandleCreatePlan)
	v1.Put("/plans/:id", middleware.RequireAdmin, controllers.HandleUpdatePlan)

	// subscription and payments
	v1.Post("/subscription", middleware.RequireAuth, controllers.HandleSubscribe)
	v1.Get("/subscription", middleware.RequireAuth, controllers.HandleSubscriptionStatus)
	v1.Delete("/subscription", middleware.RequireAuth, controllers.HandleCancelSubscription)
	v1.Get("/payments", middleware.RequireAuth, controllers.HandleListMyPayments)
	v1.Post("/refunds", middleware.RequireAdmin, controllers.HandleCreateRefund)

	// pins
	v1.Get("/pins", controllers.HandleListPinned)
	v1.Get("/pins/me", middleware.RequireAuth, controllers.HandleGetMyPin)
	v1.Delete("/pins/me", middleware.RequireAuth, controllers.HandleUnpin)
	v1.Post("/pins/:id", middleware.RequireAuth, controllers.HandlePinPost)
	v1.Get("/pins/:id/eligibility", middleware.RequireAuth, controllers.HandleCanPin)

	// statistics
	v1.Get("/statistics", controllers.HandleGetStatistics)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
