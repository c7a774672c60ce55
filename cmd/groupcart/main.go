package main

import (
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"groupcart/internal/config"
	"groupcart/internal/http/handlers"
	applog "groupcart/internal/log"
	"groupcart/internal/metrics"
	"groupcart/internal/repos"
	"groupcart/internal/services"
	"groupcart/internal/ws"
)

func main() {
	cfg := config.Load()
	applog.Setup(cfg.LogLevel, cfg.LogFile)

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	// Auth wiring
	userRepo := repos.NewUserRepo(db)
	authSvc := &services.AuthService{Users: userRepo}
	authH := &handlers.AuthHandler{Auth: authSvc}

	// Run event hub
	hub := ws.NewHub()
	hub.OnConnect = func() { metrics.WSConnections.Inc() }
	hub.OnDisconnect = func() { metrics.WSConnections.Dec() }

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": fiber.Map{"code": "internal"},
			})
		},
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
	}))

	// ---------- App handlers ----------
	deps := handlers.NewDeps(db, authSvc, hub)

	// Auth (login throttled)
	app.Post("/api/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": fiber.Map{"code": "rate_limited"},
			})
		},
	}), authH.Login)
	app.Post("/api/logout", authH.Logout)

	api := app.Group("/api", handlers.RequireUser(authSvc))
	api.Get("/me", authH.Me)

	// Groups & catalog
	api.Get("/groups", deps.GroupHandler.List)
	api.Post("/groups", deps.GroupHandler.Create)
	api.Post("/groups/:id/join", deps.GroupHandler.Join)
	api.Get("/groups/:id/runs", deps.GroupHandler.ListRuns)
	api.Get("/stores", deps.StoreHandler.List)
	api.Get("/stores/:id/products", deps.StoreHandler.ListProducts)

	// Run lifecycle
	api.Post("/runs/create", deps.RunHandler.Create)
	api.Get("/runs/:id", deps.RunHandler.Detail)
	api.Post("/runs/:id/ready", deps.RunHandler.ToggleReady)
	api.Post("/runs/:id/activate", deps.RunHandler.Activate)
	api.Post("/runs/:id/force-confirm", deps.RunHandler.ForceConfirm)
	api.Post("/runs/:id/start-shopping", deps.RunHandler.StartShopping)
	api.Post("/runs/:id/finish-adjusting", deps.RunHandler.FinishAdjusting)
	api.Post("/runs/:id/cancel", deps.RunHandler.Cancel)
	api.Post("/runs/:id/helpers/:user_id", deps.RunHandler.ToggleHelper)
	api.Post("/runs/:id/leadership/request", deps.RunHandler.RequestLeadership)
	api.Post("/runs/:id/leadership/accept", deps.RunHandler.AcceptLeadership)

	// Bids
	api.Post("/runs/:id/bids", deps.BidHandler.Place)
	api.Delete("/runs/:id/bids/:product_id", deps.BidHandler.Retract)
	api.Get("/runs/:id/bids", deps.BidHandler.List)
	api.Get("/runs/:id/available-products", deps.BidHandler.AvailableProducts)

	// Shopping phase
	api.Get("/runs/:id/shopping-list", deps.ShoppingHandler.List)
	api.Post("/runs/:id/shopping/:product_id/price", deps.ShoppingHandler.AddPrice)
	api.Post("/runs/:id/shopping/:product_id/purchase", deps.ShoppingHandler.MarkPurchased)
	api.Post("/runs/:id/shopping/:product_id/buy-more", deps.ShoppingHandler.BuyMore)

	// Admin
	admin := app.Group("/admin", handlers.RequireAdmin(authSvc))
	admin.Get("/users", deps.AdminHandler.ListUsers)
	admin.Post("/users/:id/verify", deps.AdminHandler.VerifyUser)
	admin.Delete("/users/:id", deps.AdminHandler.DeleteUser)
	admin.Get("/products", deps.AdminHandler.ListProducts)
	admin.Post("/products/:id/verify", deps.AdminHandler.VerifyProduct)
	admin.Put("/products/:id", deps.AdminHandler.UpdateProduct)
	admin.Post("/products/:id/merge", deps.AdminHandler.MergeProduct)
	admin.Delete("/products/:id", deps.AdminHandler.DeleteProduct)
	admin.Get("/stores", deps.AdminHandler.ListStores)
	admin.Post("/stores/:id/verify", deps.AdminHandler.VerifyStore)
	admin.Delete("/stores/:id", deps.AdminHandler.DeleteStore)

	// WebSocket channel per run: invalidation events only.
	app.Use("/ws/runs/:id", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	app.Get("/ws/runs/:id", websocket.New(hub.Serve))

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fiber.Map{"code": "not_found"},
		})
	})

	go func() {
		if err := metrics.Serve(cfg.MetricsPort); err != nil {
			log.Printf("[metrics] server stopped: %v", err)
		}
	}()

	log.Fatal(app.Listen(":" + cfg.Port))
}
