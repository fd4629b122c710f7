package impl

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"fintrack/config"
	deliverycontext "fintrack/internal/delivery/context"
	"fintrack/internal/domain/entity"
	domainerrors "fintrack/internal/domain/errors"
	"fintrack/internal/domain/repository"
	"fintrack/internal/domain/service"
	"fintrack/internal/errors"
	"fintrack/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// errAlreadySettled rolls back a settlement transaction that lost the race to another path.
var errAlreadySettled = errors.New("payment already settled")

// paymentService implements the PaymentUsecase interface.
type paymentService struct {
	txManager   repository.TransactionManager
	paymentRepo repository.PaymentRepository
	webhookRepo repository.WebhookEventRepository
	gateway     service.PaymentGateway
	archive     service.WebhookArchive
	notifier    *notificationDispatcher
	plans       []*entity.Plan
	plansByCode map[string]*entity.Plan
	now         func() time.Time
	logger      *slog.Logger
}

// PaymentServiceParams holds dependencies for PaymentService, injected by Fx.
type PaymentServiceParams struct {
	fx.In

	TxManager   repository.TransactionManager
	PaymentRepo repository.PaymentRepository
	WebhookRepo repository.WebhookEventRepository
	Gateway     service.PaymentGateway
	Archive     service.WebhookArchive
	Publisher   service.EventPublisher
	Config      *config.Config
	Logger      *slog.Logger
}

// NewPaymentService is the constructor for paymentService.
func NewPaymentService(params PaymentServiceParams) usecase.PaymentUsecase {
	return newPaymentService(params)
}

func newPaymentService(params PaymentServiceParams) *paymentService {
	plans, byCode := buildPlanCatalog(params.Config.Payment.Plans)

	return &paymentService{
		txManager:   params.TxManager,
		paymentRepo: params.PaymentRepo,
		webhookRepo: params.WebhookRepo,
		gateway:     params.Gateway,
		archive:     params.Archive,
		notifier:    newNotificationDispatcher(params.Publisher, params.Logger),
		plans:       plans,
		plansByCode: byCode,
		now:         time.Now,
		logger:      params.Logger,
	}
}

func buildPlanCatalog(configs []config.PlanConfig) ([]*entity.Plan, map[string]*entity.Plan) {
	plans := make([]*entity.Plan, 0, len(configs))
	byCode := make(map[string]*entity.Plan, len(configs))

	for _, pc := range configs {
		prices := make(map[string]int64, len(pc.Prices))
		for currency, amount := range pc.Prices {
			prices[strings.ToUpper(currency)] = amount
		}

		plan := &entity.Plan{
			Code:         strings.ToUpper(pc.Code),
			Name:         pc.Name,
			DurationDays: pc.DurationDays,
			Prices:       prices,
		}
		plans = append(plans, plan)
		byCode[plan.Code] = plan
	}

	return plans, byCode
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *paymentService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.LoggerOrDefault(ctx, srv.logger)
}

func (srv *paymentService) ListPlans(_ context.Context) []*entity.Plan {
	return srv.plans
}

func (srv *paymentService) plan(code string) (*entity.Plan, bool) {
	plan, ok := srv.plansByCode[strings.ToUpper(strings.TrimSpace(code))]

	return plan, ok
}

// CreateOrder opens a provider order for the plan and tracks it as a PENDING payment.
func (srv *paymentService) CreateOrder(ctx context.Context, userID uuid.UUID, input *usecase.CreateOrderInput) (*usecase.CreateOrderOutput, error) {
	plan, ok := srv.plan(input.Plan)
	if !ok {
		return nil, domainerrors.ErrPlanNotFound
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	amount, ok := plan.PriceFor(currency)
	if !ok {
		return nil, domainerrors.ErrCurrencyNotSupported
	}

	order, err := srv.gateway.CreateOrder(ctx, service.CreateOrderInput{
		Amount:   amount,
		Currency: currency,
		UserID:   userID.String(),
		Plan:     plan.Code,
	})
	if err != nil {
		srv.log(ctx).Error("Provider order creation failed", slog.Any("userID", userID), slog.String("plan", plan.Code), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to create provider order")
	}

	payment := &entity.Payment{
		ID:                uuid.New(),
		UserID:            userID,
		Plan:              plan.Code,
		Provider:          srv.gateway.Name(),
		Amount:            amount,
		Currency:          currency,
		ProviderOrderID:   order.OrderID,
		ProviderPaymentID: entity.PendingPaymentID(order.OrderID),
		Status:            entity.PaymentStatusPending,
	}

	if err := srv.paymentRepo.Create(ctx, payment); err != nil {
		srv.log(ctx).Error("orphaned provider order",
			slog.String("orderID", order.OrderID),
			slog.String("receipt", order.Receipt),
			slog.Any("userID", userID),
			slog.String("plan", plan.Code),
			slog.Int64("amount", amount),
			slog.String("currency", currency),
			slog.Any("error", err),
		)

		return nil, domainerrors.ErrPaymentInconsistent.WithDetails("provider order " + order.OrderID + " is not tracked")
	}

	srv.log(ctx).Info("Payment order created", slog.Any("paymentID", payment.ID), slog.String("orderID", order.OrderID))

	return &usecase.CreateOrderOutput{
		PaymentID: payment.ID,
		OrderID:   order.OrderID,
		Receipt:   order.Receipt,
		Plan:      plan.Code,
		Amount:    amount,
		Currency:  currency,
		KeyID:     order.KeyID,
	}, nil
}

// VerifyPayment checks the checkout callback and settles the payment exactly once.
func (srv *paymentService) VerifyPayment(ctx context.Context, userID uuid.UUID, input *usecase.VerifyPaymentInput) (*usecase.VerifyPaymentOutput, error) {
	if input.OrderID == "" || input.PaymentID == "" || input.Signature == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("orderId, paymentId and signature are required")
	}

	payment, err := srv.findPayment(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != userID {
		return nil, domainerrors.ErrPaymentOwnership
	}
	if payment.Status != entity.PaymentStatusPending {
		return nil, domainerrors.ErrPaymentAlreadyProcessed
	}

	err = srv.gateway.VerifyPayment(service.PaymentProof{
		OrderID:   input.OrderID,
		PaymentID: input.PaymentID,
		Signature: input.Signature,
	})
	if err != nil {
		srv.log(ctx).Warn("Payment signature rejected", slog.Any("paymentID", payment.ID), slog.Any("error", err))

		if _, markErr := srv.paymentRepo.MarkFailed(ctx, payment.ID, err.Error()); markErr != nil {
			srv.log(ctx).Error("Failed to mark payment failed", slog.Any("paymentID", payment.ID), slog.Any("error", markErr))
		}

		return nil, domainerrors.ErrPaymentVerificationFailed
	}

	subscription, settled, err := srv.settle(ctx, payment, input.PaymentID)
	if err != nil {
		return nil, err
	}
	if !settled {
		return nil, domainerrors.ErrPaymentAlreadyProcessed
	}

	return &usecase.VerifyPaymentOutput{Payment: payment, Subscription: subscription}, nil
}

func (srv *paymentService) findPayment(ctx context.Context, orderID string) (*entity.Payment, error) {
	payment, err := srv.paymentRepo.FindByProviderOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, domainerrors.ErrPaymentNotFound
		}

		return nil, errors.Wrap(err, "failed to find payment")
	}

	return payment, nil
}

// settle upserts the subscription and completes the payment in one transaction.
// It reports settled=false without changes when another path completed the payment first.
// On success payment is updated in place.
func (srv *paymentService) settle(ctx context.Context, payment *entity.Payment, providerPaymentID string) (*entity.Subscription, bool, error) {
	plan, ok := srv.plan(payment.Plan)
	if !ok {
		srv.log(ctx).Error("Payment references a plan missing from the catalog", slog.Any("paymentID", payment.ID), slog.String("plan", payment.Plan))

		return nil, false, domainerrors.ErrPaymentInconsistent.WithDetails("unknown plan " + payment.Plan)
	}

	now := srv.now()
	subscription := &entity.Subscription{
		UserID:    payment.UserID,
		Plan:      plan.Code,
		Status:    entity.SubscriptionStatusActive,
		ExpiresAt: plan.ExpiresFrom(now),
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if err := repoFactory.NewSubscriptionRepository().Upsert(ctx, subscription); err != nil {
			return errors.Wrap(err, "failed to upsert subscription")
		}

		completed, err := repoFactory.NewPaymentRepository().MarkCompleted(ctx, &entity.Settlement{
			PaymentID:         payment.ID,
			ProviderPaymentID: providerPaymentID,
			SubscriptionID:    subscription.ID,
			PaidAt:            now,
		})
		if err != nil {
			return errors.Wrap(err, "failed to complete payment")
		}
		if !completed {
			return errAlreadySettled
		}

		return nil
	})
	if errors.Is(err, errAlreadySettled) {
		srv.log(ctx).Info("Payment was settled concurrently", slog.Any("paymentID", payment.ID))

		return nil, false, nil
	}
	if err != nil {
		srv.log(ctx).Error("Settlement failed", slog.Any("paymentID", payment.ID), slog.Any("error", err))

		return nil, false, errors.Wrap(err, "failed to settle payment")
	}

	payment.Status = entity.PaymentStatusCompleted
	payment.ProviderPaymentID = providerPaymentID
	payment.SubscriptionID = &subscription.ID
	payment.PaidAt = &now

	srv.log(ctx).Info("Payment settled",
		slog.Any("paymentID", payment.ID),
		slog.Any("subscriptionID", subscription.ID),
		slog.Time("expiresAt", subscription.ExpiresAt),
	)

	srv.notifier.enqueue(ctx, &service.NotificationEvent{
		Kind:   service.NotificationPaymentCompleted,
		UserID: payment.UserID.String(),
		Payload: map[string]string{
			"payment_id": payment.ID.String(),
			"plan":       plan.Code,
			"expires_at": subscription.ExpiresAt.UTC().Format(time.RFC3339),
		},
	})

	return subscription, true, nil
}
