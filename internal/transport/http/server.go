package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "insightdocs-gateway/internal/app"
	"insightdocs-gateway/internal/auth"
	"insightdocs-gateway/internal/bootstrap"
	"insightdocs-gateway/internal/platform/rabbitmq"
	"insightdocs-gateway/internal/repository"
	"insightdocs-gateway/internal/store"
	"insightdocs-gateway/internal/transport/http/handler"
	"insightdocs-gateway/internal/transport/http/middleware"
	"insightdocs-gateway/internal/upstream"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	upstreamClient := upstream.NewClient(upstream.Config{
		BaseURL:      app.Config.Upstream.BaseURL,
		QueryPaths:   app.Config.Upstream.QueryEndpoints,
		FeedbackPath: app.Config.Upstream.FeedbackPath,
		Timeout:      time.Duration(app.Config.Upstream.TimeoutSeconds) * time.Second,
	})
	creds := auth.NewContextProvider(auth.NewStaticProvider(app.Config.Auth.AccessToken))

	sessionTTL := time.Duration(app.Config.Redis.SessionTTLMinutes) * time.Minute
	sessions := store.NewSessionStore(store.NewRedisKV(app.Redis, sessionTTL))
	publisher := rabbitmq.NewArchivePublisher(app.MQConn, app.Config.RabbitMQ.ArchiveQueue)
	pipeline := appsvc.NewQueryPipeline(upstreamClient, creds)
	recorder := appsvc.NewFeedbackRecorder(upstreamClient, creds)

	managers := appsvc.NewManagerSet(app.Config.Scopes(), func(scope string) *appsvc.SessionManager {
		return appsvc.NewSessionManager(scope, pipeline, recorder, sessions, publisher)
	})

	exchangeRepo := repository.NewExchangeRepository(app.MySQL)
	chatHandler := handler.NewChatHandler(managers, exchangeRepo)
	adminHandler := handler.NewAdminHandler(upstreamClient, creds)

	v1 := router.Group("/api/v1")

	chatGroup := v1.Group("/chat")
	chatGroup.Use(middleware.BearerToken())
	chatGroup.POST("/:scope/messages", chatHandler.Submit)
	chatGroup.GET("/:scope/history", chatHandler.History)
	chatGroup.POST("/:scope/feedback", chatHandler.Feedback)
	chatGroup.POST("/:scope/scroll", chatHandler.Scroll)
	chatGroup.DELETE("/:scope/history", chatHandler.Clear)
	chatGroup.GET("/:scope/archive", chatHandler.Archive)

	adminGroup := v1.Group("/admin")
	adminGroup.Use(middleware.BearerToken())
	adminGroup.POST("/populate", adminHandler.PopulateConfluence)
	adminGroup.POST("/populate-md", adminHandler.PopulateMarkdown)
	adminGroup.POST("/reset", adminHandler.Reset)

	return router
}
