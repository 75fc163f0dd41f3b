package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/nextskill/course-commerce-api/internal/config"
	"github.com/nextskill/course-commerce-api/internal/events"
	"github.com/nextskill/course-commerce-api/internal/gateway"
	"github.com/nextskill/course-commerce-api/internal/handler"
	"github.com/nextskill/course-commerce-api/internal/middleware"
	"github.com/nextskill/course-commerce-api/internal/repository"
	"github.com/nextskill/course-commerce-api/internal/service"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := events.Setup(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	courseRepo := repository.NewCourseRepository(dbPool)
	upcomingRepo := repository.NewUpcomingCourseRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)

	// Services
	publisher := events.NewPublisher(amqpCh, log)
	paymentGW := gateway.NewRazorpayGateway(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
	verifier := service.NewGoogleVerifier(cfg.Google.ClientID)

	authSvc := service.NewAuthService(userRepo, cartRepo, orderRepo, verifier, cfg.JWT.Secret, cfg.JWT.Expiration)
	courseSvc := service.NewCourseService(courseRepo, redisClient)
	upcomingSvc := service.NewUpcomingCourseService(upcomingRepo)
	cartSvc := service.NewCartService(cartRepo)
	checkoutSvc := service.NewCheckoutService(
		orderRepo, cartRepo, courseRepo, paymentGW,
		cfg.Razorpay.KeySecret, cfg.Razorpay.WebhookSecret,
		publisher, log,
	)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	courseH := handler.NewCourseHandler(courseSvc)
	upcomingH := handler.NewUpcomingCourseHandler(upcomingSvc)
	cartH := handler.NewCartHandler(cartSvc)
	orderH := handler.NewOrderHandler(checkoutSvc, cfg.Razorpay.KeyID)
	adminH := handler.NewAdminHandler(cfg.Admin, cfg.JWT.Secret, cfg.JWT.Expiration)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Router
	router := gin.Default()
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	userAuth := middleware.AuthMiddleware(cfg.JWT.Secret)
	adminAuth := middleware.AdminAuthMiddleware(cfg.JWT.Secret)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)
		auth.POST("/google", authH.GoogleLogin)

		me := v1.Group("/auth", userAuth)
		me.GET("/me", authH.Me)
		me.PUT("/profile", authH.UpdateProfile)
		me.PATCH("/password", authH.ChangePassword)
		me.DELETE("/account", authH.DeleteAccount)

		courses := v1.Group("/courses")
		courses.GET("", courseH.ListCourses)
		courses.GET("/:id", courseH.GetCourse)

		coursesAdmin := courses.Group("", adminAuth)
		coursesAdmin.POST("", courseH.CreateCourse)
		coursesAdmin.PUT("/:id", courseH.UpdateCourse)
		coursesAdmin.POST("/:id/videos", courseH.AddVideo)
		coursesAdmin.DELETE("/:id", courseH.DeleteCourse)

		upcoming := v1.Group("/upcoming")
		upcoming.GET("", upcomingH.ListPublic)

		upcomingAdmin := upcoming.Group("/admin", adminAuth)
		upcomingAdmin.GET("", upcomingH.ListAll)
		upcomingAdmin.POST("", upcomingH.Create)
		upcomingAdmin.PUT("/:id", upcomingH.Update)
		upcomingAdmin.DELETE("/:id", upcomingH.Delete)

		cart := v1.Group("/cart", userAuth)
		cart.GET("", cartH.GetCart)
		cart.POST("/add", cartH.AddItem)
		cart.PATCH("/decrement", cartH.DecrementItem)
		cart.DELETE("/item/:courseId", cartH.RemoveItem)
		cart.PUT("/sync", cartH.SyncCart)
		cart.DELETE("/clear", cartH.ClearCart)

		orders := v1.Group("/orders")
		// Gateway webhook; authenticated by signature, not bearer token.
		orders.POST("/webhook", orderH.Webhook)

		ordersUser := orders.Group("", userAuth)
		ordersUser.POST("/checkout/create", orderH.CreateCheckout)
		ordersUser.POST("/checkout/verify", orderH.VerifyPayment)
		ordersUser.GET("/my", orderH.ListOrders)
		ordersUser.GET("/access", orderH.CourseAccess)

		admin := v1.Group("/admin")
		admin.POST("/login", adminH.Login)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	cancel()
	log.Info("server stopped")
}
