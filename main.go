package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"maternity-chat/internal/config"
	"maternity-chat/internal/db"
	"maternity-chat/internal/handlers"
	"maternity-chat/internal/middleware"
	"maternity-chat/internal/observability"
	"maternity-chat/internal/repositories"
	"maternity-chat/internal/telemetry"
	"maternity-chat/internal/ws"
)

const serviceName = "maternity-chat"

func main() {
	cfg := config.Load()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	publisher := observability.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	messageRepo := repositories.NewMessageRepo(database)
	audit := telemetry.NewAuditEmitter(publisher, "audit.chat", serviceName, cfg.Environment)

	hub := ws.NewHub()
	gateway := ws.NewGateway(hub, messageRepo)
	messageHandler := handlers.NewMessageHandler(messageRepo, audit)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	router.GET("/messages", authMiddleware, messageHandler.GetMessages)
	router.POST("/messages", authMiddleware, messageHandler.PostMessage)
	router.GET("/messages/unread-count/:doctor_id", authMiddleware, messageHandler.GetUnreadCounts)
	router.PATCH("/messages/read", authMiddleware, messageHandler.MarkRead)

	router.GET("/ws", gateway.Handle)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
