package impl

import (
	"context"
	"log/slog"

	"fintrack/internal/domain/entity"
	domainerrors "fintrack/internal/domain/errors"
	"fintrack/internal/domain/repository"
	"fintrack/internal/domain/service"
	"fintrack/internal/errors"
	"fintrack/internal/usecase"

	"github.com/google/uuid"
)

const defaultProviderFailureReason = "payment failed at provider"

// HandleWebhook verifies and applies one provider delivery. Once the signature
// is accepted the delivery is always acknowledged; processing failures are only logged.
func (srv *paymentService) HandleWebhook(ctx context.Context, input *usecase.WebhookInput) error {
	if input.Signature == "" {
		return domainerrors.ErrWebhookSignatureMissing
	}

	event, err := srv.gateway.HandleWebhook(input.RawBody, input.Signature)
	if err != nil {
		if errors.IsAny(err, domainerrors.ErrWebhookSignatureMissing, domainerrors.ErrWebhookSignatureInvalid) {
			srv.log(ctx).Warn("Webhook signature rejected", slog.String("eventID", input.EventID))

			return err
		}

		srv.log(ctx).Error("Verified webhook could not be parsed", slog.String("eventID", input.EventID), slog.Any("error", err))

		return nil
	}

	logger := srv.log(ctx).With(
		slog.String("eventID", input.EventID),
		slog.String("eventType", event.Type),
		slog.String("orderID", event.OrderID),
	)

	if input.EventID != "" {
		if err := srv.archive.Store(ctx, input.EventID, input.RawBody); err != nil {
			logger.Warn("Failed to archive webhook body", slog.Any("error", err))
		}
	}

	record, duplicate := srv.recordWebhook(ctx, logger, input.EventID, event)
	if duplicate {
		logger.Info("Duplicate webhook delivery acknowledged")

		return nil
	}

	processErr := srv.processWebhook(ctx, logger, event)
	if processErr != nil {
		logger.Error("Webhook processing failed", slog.Any("error", processErr))
	}

	if record != nil {
		outcome := ""
		if processErr != nil {
			outcome = processErr.Error()
		}
		if err := srv.webhookRepo.MarkProcessed(ctx, record.ID, outcome); err != nil {
			logger.Warn("Failed to record webhook outcome", slog.Any("error", err))
		}
	}

	return nil
}

// recordWebhook inserts the delivery log row. A nil record with duplicate=false
// means the log is unavailable and processing continues without it.
func (srv *paymentService) recordWebhook(
	ctx context.Context,
	logger *slog.Logger,
	eventID string,
	event *service.WebhookEvent,
) (*entity.WebhookEvent, bool) {
	if eventID == "" {
		logger.Warn("Webhook delivery has no event id, skipping de-duplication")

		return nil, false
	}

	record := &entity.WebhookEvent{
		ID:              uuid.New(),
		Provider:        srv.gateway.Name(),
		EventID:         eventID,
		EventType:       event.Type,
		ProviderOrderID: event.OrderID,
	}

	err := srv.webhookRepo.Record(ctx, record)
	if errors.Is(err, repository.ErrWebhookEventDuplicate) {
		return nil, true
	}
	if err != nil {
		logger.Warn("Failed to record webhook delivery", slog.Any("error", err))

		return nil, false
	}

	return record, false
}

func (srv *paymentService) processWebhook(ctx context.Context, logger *slog.Logger, event *service.WebhookEvent) error {
	switch event.Status {
	case service.WebhookStatusCompleted:
		return srv.applyCompleted(ctx, logger, event)
	case service.WebhookStatusFailed:
		return srv.applyFailed(ctx, logger, event)
	case service.WebhookStatusRefunded:
		logger.Warn("Refund received, manual follow-up required",
			slog.String("paymentID", event.PaymentID),
			slog.String("refundID", event.RefundID),
		)

		return nil
	default:
		logger.Debug("Ignoring webhook event")

		return nil
	}
}

func (srv *paymentService) applyCompleted(ctx context.Context, logger *slog.Logger, event *service.WebhookEvent) error {
	payment, err := srv.findPayment(ctx, event.OrderID)
	if err != nil {
		return err
	}
	if payment.Status != entity.PaymentStatusPending {
		logger.Info("Payment already terminal, nothing to settle", slog.String("status", string(payment.Status)))

		return nil
	}

	providerPaymentID := event.PaymentID
	if providerPaymentID == "" {
		providerPaymentID = payment.ProviderPaymentID
	}

	if _, _, err := srv.settle(ctx, payment, providerPaymentID); err != nil {
		return err
	}

	return nil
}

func (srv *paymentService) applyFailed(ctx context.Context, logger *slog.Logger, event *service.WebhookEvent) error {
	payment, err := srv.findPayment(ctx, event.OrderID)
	if err != nil {
		return err
	}

	reason := event.ErrorDescription
	if reason == "" {
		reason = defaultProviderFailureReason
	}

	failed, err := srv.paymentRepo.MarkFailed(ctx, payment.ID, reason)
	if err != nil {
		return errors.Wrap(err, "failed to mark payment failed")
	}
	if !failed {
		logger.Info("Payment already terminal, failure ignored", slog.String("status", string(payment.Status)))
	}

	return nil
}
