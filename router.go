package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"dm-service/internal/config"
	"dm-service/internal/handlers"
	"dm-service/internal/identity"
	"dm-service/internal/middleware"
	"dm-service/internal/observability"
	"dm-service/internal/repositories"
	"dm-service/internal/service"
	"dm-service/internal/telemetry"
	"dm-service/internal/ws"
)

type app struct {
	router *gin.Engine
	hub    *ws.Hub
}

func newApp(cfg config.Config, database *sqlx.DB, audit *telemetry.AuditEmitter) *app {
	userRepo := repositories.NewUserRepo(database)
	contactRepo := repositories.NewContactRepo(database)
	conversationRepo := repositories.NewConversationRepo(database)

	clock := service.NewClock(nil)
	directory := service.NewDirectory(userRepo, clock)
	contacts := service.NewContacts(userRepo, contactRepo, clock)
	messages := service.NewMessages(userRepo, conversationRepo, clock)

	resolver := identity.NewResolver(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	hub := ws.NewHub()

	userHandler := handlers.NewUserHandler(directory, audit)
	contactHandler := handlers.NewContactHandler(contacts, hub, audit)
	messageHandler := handlers.NewMessageHandler(messages, hub, audit)
	wsHandler := ws.NewHandler(hub, resolver, cfg.WSAllowedOrigins)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", handlers.Healthz(database))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", wsHandler.Handle)

	authed := router.Group("/", middleware.AuthMiddleware(resolver))
	authed.POST("/users/me", userHandler.UpsertMe)
	authed.GET("/users/:user_id", userHandler.GetUser)
	authed.GET("/users", userHandler.FindByEmail)

	authed.GET("/contacts", contactHandler.ListContacts)
	authed.POST("/contacts", contactHandler.AddContact)
	authed.POST("/contacts/by-email", contactHandler.AddContactByEmail)
	authed.DELETE("/contacts/:contact_id", contactHandler.DeleteContact)

	authed.GET("/conversations/:user_id/messages", messageHandler.GetMessages)
	authed.POST("/conversations/:user_id/messages", messageHandler.SendMessage)
	authed.POST("/conversations/:user_id/clear", messageHandler.ClearConversation)
	authed.DELETE("/messages/:message_id", messageHandler.DeleteMessage)

	handlers.RegisterDebugRoutes(authed, audit, hub, cfg.DebugRoutes)

	return &app{router: router, hub: hub}
}
