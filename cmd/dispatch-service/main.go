package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dispatch-service/internal/auth"
	"dispatch-service/internal/config"
	"dispatch-service/internal/db"
	httphandler "dispatch-service/internal/http"
	"dispatch-service/internal/http/middleware"
	"dispatch-service/internal/logger"
	"dispatch-service/internal/realtime"
	"dispatch-service/internal/repository"
	"dispatch-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	ticketRepo := repository.NewTicketRepository(database)
	technicianRepo := repository.NewTechnicianRepository(database)
	userRepo := repository.NewUserRepository(database)
	auditRepo := repository.NewAuditRepository(database)
	notificationRepo := repository.NewNotificationRepository(database)
	settingRepo := repository.NewSettingRepository(database)
	outboxRepo := repository.NewOutboxRepository(database)

	notificationService := service.NewNotificationService(notificationRepo, userRepo, technicianRepo, outboxRepo, log)
	assignmentService := service.NewAssignmentService(ticketRepo, technicianRepo, settingRepo, notificationService, log)
	ticketService := service.NewTicketService(ticketRepo, technicianRepo, userRepo, assignmentService, notificationService, cfg.Dispatch.GeofenceRadiusMeters, log)
	auditService := service.NewAuditService(ticketRepo, auditRepo, notificationService, log)

	var publisher realtime.Publisher = realtime.NoopPublisher{}
	if brokers := realtime.ParseBrokers(cfg.Realtime.KafkaBrokers); len(brokers) > 0 {
		publisher = realtime.NewKafkaPublisher(brokers, cfg.Realtime.KafkaTopic, cfg.Realtime.TopicPrefix)
		log.Info().Strs("brokers", brokers).Str("topic", cfg.Realtime.KafkaTopic).Msg("realtime publisher enabled")
	} else {
		log.Info().Msg("no kafka brokers configured, realtime events stay in the outbox")
	}
	defer publisher.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher := realtime.NewDispatcher(outboxRepo, publisher, cfg.Realtime.PollInterval, log)
	go dispatcher.Run(ctx)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(ticketService, assignmentService, auditService, notificationService, log)
	router := httphandler.NewRouter(handler, middleware.Auth(tokenParser), cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting dispatch service")

	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
