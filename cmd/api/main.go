package main

import (
	_ "betonflow/api/swagger" // swagger docs
	"betonflow/internal/cache"
	"betonflow/internal/config"
	"betonflow/internal/database"
	"betonflow/internal/excel"
	"betonflow/internal/handler"
	"betonflow/internal/logger"
	"betonflow/internal/repository"
	"betonflow/internal/service"
	"betonflow/internal/websocket"
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Concrete Production & Delivery API
// @version         1.0
// @description     Backend for concrete order management, expense invoices and driver delivery tracking.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		fmt.Println("No configs/.env file found or error loading it")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Configuration error:", err)
		return
	}

	log := logger.New(cfg.Environment)
	production := cfg.Environment == "production"
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.DB.DSN(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	log.Info().Msg("connected to PostgreSQL")

	directoryCache := cache.New(cfg.Cache.DefaultTTL, cfg.Cache.SweepInterval)
	defer directoryCache.Close()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run()

	jwtSecret := []byte(cfg.Auth.JWTSecret)

	// Set up dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	txManager := repository.NewTransactionManager(db)

	directoryService := service.NewDirectoryService(db, directoryCache, cfg.Cache.DefaultTTL)
	userService := service.NewUserService(userRepo, cfg.Auth)
	orderService := service.NewOrderService(orderRepo, directoryService)
	invoiceService := service.NewInvoiceService(invoiceRepo, orderRepo, directoryService)
	notificationService := service.NewNotificationService(notificationRepo, wsHub, log)
	reconcileService := service.NewReconcileService(invoiceRepo, orderRepo, directoryService, notificationService, txManager, log)
	statisticsService := service.NewStatisticsService(db)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService, jwtSecret, production)
	orderHandler := handler.NewOrderHandler(orderService, jwtSecret)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, reconcileService, jwtSecret)
	directoryHandler := handler.NewDirectoryHandler(directoryService, jwtSecret)
	notificationHandler := handler.NewNotificationHandler(notificationService, jwtSecret)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService, excel.NewGenerator(), jwtSecret)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.HTTP.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, jwtSecret)
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	orderHandler.RegisterRoutes(router.Group(""))
	invoiceHandler.RegisterRoutes(router.Group(""))
	directoryHandler.RegisterRoutes(router.Group(""))
	notificationHandler.RegisterRoutes(router.Group(""))
	statisticsHandler.RegisterRoutes(router.Group(""))

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("server listening")
	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
