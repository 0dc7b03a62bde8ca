// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"brokebuy/internal/handlers"
	"brokebuy/internal/middleware"
	"brokebuy/internal/services/abuse"
	"brokebuy/internal/services/marketplace"
	"brokebuy/internal/services/purchase"
	"brokebuy/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the services the routes are served by.
type Dependencies struct {
	JWTSecret string

	Wallet      wallet.Service
	Purchase    purchase.Service
	Marketplace marketplace.Service
	Abuse       abuse.Service

	// Gatherer backs /metrics; nil leaves the endpoint out.
	Gatherer     prometheus.Gatherer
	HealthChecks map[string]handlers.HealthCheck
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	walletHandler := handlers.NewWalletHandler(deps.Wallet)
	creditHandler := handlers.NewCreditHandler(deps.Wallet)
	adminHandler := handlers.NewAdminHandler(deps.Wallet, deps.Abuse)
	marketplaceHandler := handlers.NewMarketplaceHandler(deps.Marketplace)
	purchaseHandler := handlers.NewPurchaseHandler(deps.Purchase)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)

	api := app.Group("/api")

	// Public endpoints (no auth required)
	api.Get("/health", healthHandler.Check)
	if deps.Gatherer != nil {
		api.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	authMiddleware := middleware.NewAuthMiddleware(deps.JWTSecret)
	protected := api.Group("", authMiddleware.Handler)

	setupWalletRoutes(protected, walletHandler, creditHandler)
	setupMarketplaceRoutes(protected, marketplaceHandler, purchaseHandler)
	setupAdminRoutes(protected, adminHandler)
}

func setupWalletRoutes(router fiber.Router, h *handlers.WalletHandler, credits *handlers.CreditHandler) {
	wallet := router.Group("/wallet")
	wallet.Get("/balance", h.GetBalance)
	wallet.Post("/topup", h.TopUp)
	wallet.Post("/auto-refill/check", h.CheckAutoRefill)
	wallet.Post("/refill", h.ManualRefill)
	wallet.Get("/history", h.GetHistory)
	wallet.Get("/reconcile", h.Reconcile)

	router.Get("/credit-transactions", credits.List)
	router.Get("/credit-transactions/summary", credits.Summary)
}

func setupMarketplaceRoutes(router fiber.Router, h *handlers.MarketplaceHandler, requests *handlers.PurchaseHandler) {
	router.Post("/listings", h.CreateListing)
	router.Get("/listings/:listingID", h.GetListing)
	router.Post("/messages", h.SendMessage)

	listing := router.Group("/listings/:listingID/requests")
	listing.Post("/", requests.Create)
	listing.Get("/", requests.ListForListing)
	listing.Post("/:requestID/accept", requests.Accept)
	listing.Post("/:requestID/decline", requests.Decline)

	router.Get("/requests/mine", requests.Mine)
	router.Get("/requests/:requestID", requests.Get)
}

func setupAdminRoutes(router fiber.Router, h *handlers.AdminHandler) {
	admin := router.Group("/admin", middleware.AdminAuthMiddleware)

	admin.Get("/credit-transactions/summary", h.CreditSummary)
	admin.Get("/money-flow", h.MoneyFlow)
	admin.Get("/abuse/check", h.AbuseCheck)
	admin.Get("/abuse/stats/:userID", h.AbuseStats)
}
