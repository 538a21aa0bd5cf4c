package main

import (
	"context"

	"yoyaku/internal/reservations/admission"
	"yoyaku/internal/reservations/handler"
	"yoyaku/internal/reservations/notify"
	"yoyaku/internal/reservations/repository"
	"yoyaku/internal/reservations/service"
	"yoyaku/internal/reservations/validator"
	"yoyaku/pkg/app"
	"yoyaku/pkg/auth"
	"yoyaku/pkg/config"
	"yoyaku/pkg/kafka"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting Reservations service")
	cfg.SetMongo()
	if cfg.RedisAddr != "" {
		cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.MongoConnTimeout)
	}

	if err := repository.EnsureIndexes(context.Background(), cfg); err != nil {
		cfg.Log.Fatal("Failed to ensure database indexes", "error", err)
	}

	reservationService, slotStatusService, gate, notifier := initServices(cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewBookingHandler(reservationService, cfg.Log),
		handler.NewSlotStatusHandler(slotStatusService, cfg.Log),
	)
	serverApp.OnShutdown(gate.Stop)
	serverApp.OnShutdown(func() {
		if err := notifier.Close(); err != nil {
			cfg.Log.Error("Failed to close event producer", "error", err)
		}
	})
	serverApp.OnShutdown(cfg.GracefulShutdown)
	serverApp.Run()
}

func initServices(cfg *config.Config) (service.ReservationService, service.SlotStatusService, *admission.Controller, notify.Notifier) {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	slotStatusRepo := repository.NewMongoSlotStatusRepository(cfg)
	businessHoursRepo := repository.NewMongoBusinessHoursRepository(cfg)
	verifier := auth.NewStaticTokenVerifier(cfg.AdminToken)

	gate := admission.NewController(newRateStore(cfg), bookingRepo, admission.Limits{
		CreateLimit:      cfg.CreateRateLimit,
		CreateWindow:     cfg.CreateRateWindow,
		DeleteLimit:      cfg.DeleteRateLimit,
		DeleteWindow:     cfg.DeleteRateWindow,
		BulkDeleteLimit:  cfg.BulkDeleteRateLimit,
		BulkDeleteWindow: cfg.BulkDeleteRateWindow,
		AnomalyLimit:     cfg.AnomalyRateLimit,
		ClientQuota:      cfg.ClientQuota,
	}, cfg.Log)

	notifier := newNotifier(cfg)

	reservationService := service.NewReservationService(
		bookingRepo,
		slotStatusRepo,
		gate,
		bookingValidator,
		verifier,
		notifier,
		cfg,
	)
	slotStatusService := service.NewSlotStatusService(
		slotStatusRepo,
		bookingRepo,
		businessHoursRepo,
		bookingValidator,
		verifier,
		cfg,
	)

	cfg.Log.Info("Reservation services initialized", "database", cfg.MongoDatabaseName)
	return reservationService, slotStatusService, gate, notifier
}

// newRateStore prefers Redis so rate windows survive restarts and span
// replicas; otherwise windows are tracked in process memory.
func newRateStore(cfg *config.Config) admission.RateStore {
	if cfg.Client.Redis != nil {
		cfg.Log.Info("Using Redis-backed rate store", "addr", cfg.RedisAddr)
		return admission.NewRedisRateStore(cfg.Client.Redis)
	}
	cfg.Log.Info("Using in-memory rate store")
	return admission.NewMemoryRateStore()
}

func newNotifier(cfg *config.Config) notify.Notifier {
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Info("No Kafka brokers configured, booking events disabled")
		return notify.NewNoopNotifier()
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	cfg.Log.Info("Booking event producer initialized", "topic", cfg.KafkaTopic)
	return notify.NewKafkaNotifier(producer, cfg.Log)
}
