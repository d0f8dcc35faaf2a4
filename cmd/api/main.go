package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/harentsoaR/medibook/internal/auth"
	"github.com/harentsoaR/medibook/internal/config"
	"github.com/harentsoaR/medibook/internal/handlers"
	"github.com/harentsoaR/medibook/internal/images"
	"github.com/harentsoaR/medibook/internal/middleware"
	"github.com/harentsoaR/medibook/internal/notify"
	"github.com/harentsoaR/medibook/internal/policy"
	"github.com/harentsoaR/medibook/internal/store"
	"github.com/harentsoaR/medibook/pkg/logger"
	"github.com/harentsoaR/medibook/pkg/metrics"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		zlog.Fatal("connecting to MongoDB", zap.Error(err))
	}
	defer client.Disconnect(context.Background())

	if err := client.Ping(connectCtx, nil); err != nil {
		zlog.Fatal("pinging MongoDB", zap.Error(err))
	}
	zlog.Info("connected to MongoDB", zap.String("database", cfg.Mongo.Database))

	st := store.New(client.Database(cfg.Mongo.Database), zlog)
	if err := st.EnsureIndexes(ctx); err != nil {
		zlog.Warn("ensuring indexes failed", zap.Error(err))
	}

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TokenTTL, cfg.JWT.ResetTTL, cfg.JWT.Issuer)
	roles := policy.NewRolePolicy(cfg.Policy.AdminEmails)
	imagesClient := images.NewClient(cfg.ImgBB.APIKey, cfg.ImgBB.Endpoint, zlog)
	sms := notify.NewSMSClient(cfg.Textbelt.APIKey, cfg.Textbelt.Endpoint, zlog)
	collector := metrics.NewCollector("medibook")

	h := handlers.NewHandler(st, tokens, roles, imagesClient, sms, collector, zlog)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Metrics(collector))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	authRoutes := r.Group("/auth")
	authRoutes.Use(middleware.RateLimit(cfg.RateLimit.AuthRequestsPerMinute, cfg.RateLimit.AuthBurst))
	{
		authRoutes.POST("/register", h.Register)
		authRoutes.POST("/login", h.Login)
		authRoutes.POST("/reset", h.RequestPasswordReset)
		authRoutes.POST("/reset/confirm", h.ConfirmPasswordReset)
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(tokens))
	{
		api.GET("/doctors", h.ListDoctors)
		api.GET("/doctors/:id", h.GetDoctor)

		api.POST("/appointments", h.CreateAppointment)
		api.GET("/appointments", h.ListAppointments)

		api.GET("/me", h.GetCurrentUser)
		api.PUT("/me", h.UpdateCurrentUser)

		admin := api.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.POST("/doctors", h.CreateDoctor)
			admin.PUT("/doctors/:id", h.UpdateDoctor)
			admin.DELETE("/doctors/:id", h.DeleteDoctor)

			admin.PATCH("/appointments/:id/status", h.UpdateAppointmentStatus)
			admin.DELETE("/appointments/:id", h.DeleteAppointment)

			admin.GET("/users", h.ListUsers)
			admin.PATCH("/users/:id/role", h.UpdateUserRole)

			admin.POST("/uploads", h.UploadImage)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		zlog.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
