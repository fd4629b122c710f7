package handler

import (
	"time"

	"fintrack/internal/domain/entity"

	"github.com/google/uuid"
)

// UserView is the public shape of an identity.
type UserView struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name,omitempty"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"email_verified"`
}

func newUserView(u *entity.User) *UserView {
	if u == nil {
		return nil
	}

	return &UserView{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.Role.String(),
		EmailVerified: u.EmailVerified,
	}
}

// SessionView never exposes the refresh token digest.
type SessionView struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpireAt  time.Time `json:"expire_at"`
}

func newSessionViews(sessions []*entity.Session) []SessionView {
	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, SessionView{ID: s.ID, CreatedAt: s.CreatedAt, ExpireAt: s.ExpireAt})
	}

	return views
}

// PlanView lists a plan with its prices in minor units.
type PlanView struct {
	Code         string           `json:"code"`
	Name         string           `json:"name"`
	DurationDays int              `json:"duration_days"`
	Prices       map[string]int64 `json:"prices"`
}

func newPlanViews(plans []*entity.Plan) []PlanView {
	views := make([]PlanView, 0, len(plans))
	for _, p := range plans {
		views = append(views, PlanView{Code: p.Code, Name: p.Name, DurationDays: p.DurationDays, Prices: p.Prices})
	}

	return views
}

// PaymentView is the client-facing state of a payment.
type PaymentView struct {
	ID                uuid.UUID  `json:"id"`
	Plan              string     `json:"plan"`
	Amount            int64      `json:"amount"`
	Currency          string     `json:"currency"`
	ProviderOrderID   string     `json:"order_id"`
	ProviderPaymentID string     `json:"payment_id"`
	Status            string     `json:"status"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
}

func newPaymentView(p *entity.Payment) *PaymentView {
	if p == nil {
		return nil
	}

	return &PaymentView{
		ID:                p.ID,
		Plan:              p.Plan,
		Amount:            p.Amount,
		Currency:          p.Currency,
		ProviderOrderID:   p.ProviderOrderID,
		ProviderPaymentID: p.ProviderPaymentID,
		Status:            string(p.Status),
		PaidAt:            p.PaidAt,
	}
}

// SubscriptionView is the caller's entitlement.
type SubscriptionView struct {
	Plan      string    `json:"plan"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newSubscriptionView(s *entity.Subscription) *SubscriptionView {
	if s == nil {
		return nil
	}

	return &SubscriptionView{Plan: s.Plan, Status: string(s.Status), ExpiresAt: s.ExpiresAt}
}
