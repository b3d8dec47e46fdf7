package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AVAproject2025/Luxbid/internal/api/handlers"
	"github.com/AVAproject2025/Luxbid/internal/api/middleware"
	"github.com/AVAproject2025/Luxbid/internal/cache"
	"github.com/AVAproject2025/Luxbid/internal/config"
	"github.com/AVAproject2025/Luxbid/internal/email"
	"github.com/AVAproject2025/Luxbid/internal/payments"
	"github.com/AVAproject2025/Luxbid/internal/services"
	"github.com/AVAproject2025/Luxbid/internal/storage"
	"github.com/AVAproject2025/Luxbid/internal/tasks"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, taskClient handlers.IAsynqClient, provider payments.Provider) *gin.Engine {
	listingCache := cache.NewJSONCache(rdb, cfg.GetCacheTTL)

	userService := services.NewUserService(db, cfg)
	notificationService := services.NewNotificationService(db)
	listingService := services.NewListingService(db, cfg, listingCache, userService)
	offerService := services.NewOfferService(db, listingCache, userService, notificationService)
	paymentService := services.NewPaymentService(db, cfg, provider, listingCache, userService, notificationService,
		tasks.NewEmailQueue(taskClient))
	messageService := services.NewMessageService(db, notificationService)
	reviewService := services.NewReviewService(db, notificationService)
	moderationService := services.NewModerationService(db, userService, notificationService)
	analyticsService := services.NewAnalyticsService(db)

	s3StorageService, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize S3 storage for API: %v", err)
	}

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(rateLimiter.Limit())

	authHandler := handlers.NewAuthHandler(cfg, userService)
	userHandler := handlers.NewUserHandler(userService)
	listingHandler := handlers.NewListingHandler(listingService)
	offerHandler := handlers.NewOfferHandler(offerService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, provider)
	messageHandler := handlers.NewMessageHandler(messageService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	notificationHandler := handlers.NewNotificationHandler(cfg, notificationService)
	reportHandler := handlers.NewReportHandler(moderationService)
	adminHandler := handlers.NewAdminHandler(moderationService, analyticsService)
	uploadHandler := handlers.NewUploadHandler(s3StorageService, listingService, taskClient)

	v1 := r.Group("/v1")
	{
		// Public routes
		v1.POST("/auth/register", authHandler.Register)
		v1.POST("/auth/login", authHandler.Login)
		v1.GET("/listings", listingHandler.List)
		v1.GET("/listings/:id", listingHandler.Get)
		v1.GET("/listings/:id/reviews", reviewHandler.ListForListing)
		v1.GET("/users/:id", userHandler.GetPublicProfile)
		v1.GET("/users/:id/review-stats", reviewHandler.SellerStats)

		// The payment provider calls this unauthenticated; the signature
		// check inside is the auth.
		v1.POST("/payments/webhook", paymentHandler.Webhook)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Authenticated routes
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.GET("/me", userHandler.Me)
			authRequired.POST("/membership/upgrade", userHandler.UpgradeMembership)

			authRequired.POST("/listings", listingHandler.Create)
			authRequired.PUT("/listings/:id", listingHandler.Update)
			authRequired.DELETE("/listings/:id", listingHandler.Delete)

			authRequired.POST("/listings/:id/offers", offerHandler.Create)
			authRequired.GET("/listings/:id/offers", offerHandler.ListForListing)
			authRequired.GET("/offers", offerHandler.ListMine)
			authRequired.POST("/offers/:id/accept", offerHandler.Accept)
			authRequired.GET("/offers/:id/payment", paymentHandler.GetForOffer)

			authRequired.POST("/payments/checkout", paymentHandler.CreateCheckoutSession)

			authRequired.POST("/listings/:id/messages", messageHandler.Send)
			authRequired.GET("/listings/:id/messages", messageHandler.Thread)
			authRequired.GET("/conversations", messageHandler.Conversations)

			authRequired.POST("/listings/:id/reviews", reviewHandler.Create)

			authRequired.GET("/notifications", notificationHandler.List)
			authRequired.POST("/notifications/:id/read", notificationHandler.MarkRead)

			authRequired.POST("/reports", reportHandler.File)

			authRequired.POST("/uploads/presign", uploadHandler.Presign)
			authRequired.POST("/uploads/complete", uploadHandler.Complete)
		}

		// Admin routes
		adminRequired := v1.Group("/admin")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			adminRequired.GET("/reports", adminHandler.ListReports)
			adminRequired.POST("/reports/:id/review", adminHandler.ReviewReport)
			adminRequired.POST("/users/:id/ban", adminHandler.BanUser)
			adminRequired.POST("/users/:id/unban", adminHandler.UnbanUser)
			adminRequired.GET("/stats", adminHandler.Stats)
			adminRequired.GET("/transactions/export", adminHandler.ExportTransactions)
		}
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine used for
// operational commands: shutdown, test email retrieval and metrics scraping.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Println("Shutdown channel already signaled or blocked.")
			}
		case "getTestEmail":
			var args []string // Expect ["email"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 1 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [email]"})
				return
			}
			redisKey := email.MockEmailKey(args[0])

			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()

			// Poll briefly: the test may query before the task worker has
			// delivered.
			var emailJSON string
			found := false
			for i := 0; i < 10; i++ {
				data, err := rdb.Get(ctx, redisKey).Result()
				if err == nil {
					emailJSON = data
					found = true
					rdb.Del(ctx, redisKey)
					break
				}
				if err != redis.Nil {
					log.Printf("Service API: error getting key %s from Redis: %v", redisKey, err)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				time.Sleep(200 * time.Millisecond)
			}
			if !found {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found for key %s", redisKey)})
				return
			}

			var emailData map[string]interface{}
			if err := json.Unmarshal([]byte(emailJSON), &emailData); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
