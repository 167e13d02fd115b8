package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wanderstay/wanderstay-bookings/internal/platform/mailer"
	"github.com/wanderstay/wanderstay-bookings/internal/repo/postgres"
	"github.com/wanderstay/wanderstay-bookings/pkg/config"
	"github.com/wanderstay/wanderstay-bookings/pkg/database"
	"github.com/wanderstay/wanderstay-bookings/pkg/events"
	"github.com/wanderstay/wanderstay-bookings/pkg/logger"
)

// The notify worker listens for booking events and mails the tenant.
// It is deliberately decoupled: a dead worker delays mail, it never
// blocks a booking.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	tenantRepo := postgres.NewTenantRepository(pool)

	var mail mailer.Service
	if cfg.Email.DevMode {
		mail = mailer.NewDevMailer()
	} else {
		mail = mailer.NewMailer(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	}

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	err = eventBus.QueueSubscribe(events.BookingCreated, "notify", func(msg *events.Message) {
		var ev events.BookingCreatedEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Error("Failed to decode booking created event", "error", err)
			return
		}
		tenant, err := tenantRepo.FindByID(ctx, ev.TenantID)
		if err != nil || tenant == nil {
			logger.Error("Failed to resolve tenant for notification", "tenant_id", ev.TenantID, "error", err)
			return
		}
		subject := "Your booking is confirmed pending payment"
		text := fmt.Sprintf("Booking #%d from %s to %s, total %.2f %s.",
			ev.BookingID, ev.StartDate.Format("2006-01-02"), ev.EndDate.Format("2006-01-02"),
			ev.TotalPrice, ev.Currency)
		if _, err := mail.Send(tenant.Email, tenant.Name, subject, text, ""); err != nil {
			logger.Error("Failed to send booking created mail", "booking_id", ev.BookingID, "error", err)
		}
	})
	if err != nil {
		logger.Error("Failed to subscribe to booking created events", "error", err)
		os.Exit(1)
	}

	err = eventBus.QueueSubscribe(events.BookingCancelled, "notify", func(msg *events.Message) {
		var ev events.BookingCancelledEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Error("Failed to decode booking cancelled event", "error", err)
			return
		}
		tenant, err := tenantRepo.FindByID(ctx, ev.TenantID)
		if err != nil || tenant == nil {
			logger.Error("Failed to resolve tenant for notification", "tenant_id", ev.TenantID, "error", err)
			return
		}
		subject := "Your booking was cancelled"
		text := fmt.Sprintf("Booking #%d was cancelled. Refund amount: %.2f (fee kept: %.2f).",
			ev.BookingID, ev.RefundAmount, ev.Fee)
		if _, err := mail.Send(tenant.Email, tenant.Name, subject, text, ""); err != nil {
			logger.Error("Failed to send booking cancelled mail", "booking_id", ev.BookingID, "error", err)
		}
	})
	if err != nil {
		logger.Error("Failed to subscribe to booking cancelled events", "error", err)
		os.Exit(1)
	}

	logger.Info("Notify worker running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down notify worker...")
}
