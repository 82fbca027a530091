package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/glovia/internal/config"
	"github.com/example/glovia/internal/handlers"
	"github.com/example/glovia/internal/middleware"
	"github.com/example/glovia/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	smsService := services.NewSMSService(cfg.SMSGateway, cfg.SparrowToken, cfg.SparrowFrom)
	emailService := services.NewEmailService(cfg.EmailProvider, cfg.SendgridKey, cfg.SendgridFrom)
	trustService := services.NewTrustService(db)
	otpService := services.NewOTPService(db, trustService, smsService, emailService)

	orderService := services.NewOrderService(db, services.DeliveryConfig{
		FreeThreshold: cfg.FreeDeliveryThreshold,
		ZoneDistricts: cfg.ValleyDistricts,
		ZoneCharge:    cfg.ValleyDeliveryCharge,
		OutsideCharge: cfg.OutsideValleyCharge,
	})

	paymentService := services.NewPaymentService(db,
		&services.EsewaGateway{
			MerchantID: cfg.EsewaMerchantID,
			GatewayURL: cfg.EsewaGatewayURL,
			SuccessURL: cfg.EsewaSuccessURL,
			FailureURL: cfg.EsewaFailureURL,
		},
		&services.KhaltiGateway{
			PublicKey:   cfg.KhaltiPublicKey,
			SecretKey:   cfg.KhaltiSecretKey,
			VerifyURL:   cfg.KhaltiGatewayURL,
			FrontendURL: cfg.FrontendURL,
		},
		&services.IMEPayGateway{
			MerchantCode: cfg.IMEMerchantCode,
			GatewayURL:   cfg.IMEGatewayURL,
		},
	)

	authHandler := handlers.NewAuthHandler(db, cfg, otpService)
	verificationHandler := handlers.NewVerificationHandler(db, otpService, trustService)
	profileHandler := handlers.NewProfileHandler(db, trustService)
	catalogHandler := handlers.NewCatalogHandler(db)
	cartHandler := handlers.NewCartHandler(db)
	orderHandler := handlers.NewOrderHandler(db, orderService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/verify-email", authHandler.VerifyEmail)
	auth.Post("/login", authHandler.Login)
	auth.Post("/forgot-password", authHandler.ForgotPassword)
	auth.Post("/reset-password", authHandler.ResetPassword)

	// Catalog routes
	products := api.Group("/products")
	products.Get("/", catalogHandler.ListProducts)
	products.Get("/:id", catalogHandler.GetProduct)

	categories := api.Group("/categories")
	categories.Get("/", catalogHandler.ListCategories)

	// Gateway callbacks carry no session.
	payments := api.Group("/payments")
	payments.Post("/:gateway/verify", paymentHandler.Verify)

	// Public phone OTP verify: the user is identified by phone.
	api.Post("/verification/otp/verify", verificationHandler.VerifyOtp)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	verification := protected.Group("/verification")
	verification.Post("/otp/send", verificationHandler.SendOtp)
	verification.Post("/address/:addressId", verificationHandler.VerifyAddress)
	verification.Post("/delivery/:orderId", verificationHandler.ConfirmDelivery)

	protected.Get("/profile", profileHandler.GetProfile)
	protected.Put("/profile", profileHandler.UpdateProfile)
	protected.Get("/profile/addresses", profileHandler.ListAddresses)
	protected.Post("/profile/addresses", profileHandler.CreateAddress)
	protected.Put("/profile/addresses/:id", profileHandler.UpdateAddress)
	protected.Delete("/profile/addresses/:id", profileHandler.DeleteAddress)

	cart := protected.Group("/cart")
	cart.Get("/", cartHandler.ListItems)
	cart.Post("/", cartHandler.AddItem)
	cart.Put("/:id", cartHandler.UpdateItem)
	cart.Delete("/clear", cartHandler.Clear)
	cart.Delete("/:id", cartHandler.RemoveItem)

	// Order creation sits behind the trust gate; the rest only need auth.
	protected.Post("/orders", middleware.TrustScoreMiddleware(db), orderHandler.CreateOrder)
	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)
	protected.Post("/orders/:id/cancel", orderHandler.CancelOrder)

	protected.Post("/payments/:gateway/initiate/:orderId", paymentHandler.Initiate)

	// Admin routes
	admin := protected.Group("/admin", middleware.AdminMiddleware(db))
	admin.Put("/orders/:id/status", orderHandler.UpdateStatus)
	admin.Post("/products", catalogHandler.CreateProduct)
	admin.Put("/products/:id", catalogHandler.UpdateProduct)
	admin.Delete("/products/:id", catalogHandler.DeleteProduct)
	admin.Post("/categories", catalogHandler.CreateCategory)
	admin.Delete("/categories/:id", catalogHandler.DeleteCategory)
	admin.Get("/coupons", catalogHandler.ListCoupons)
	admin.Post("/coupons", catalogHandler.CreateCoupon)
	admin.Delete("/coupons/:id", catalogHandler.DeleteCoupon)
}
