// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"fintrack/internal/delivery/api/middleware"
	"fintrack/internal/delivery/api/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler         *handler.AuthHandler
	SessionHandler      *handler.SessionHandler
	PaymentHandler      *handler.PaymentHandler
	SubscriptionHandler *handler.SubscriptionHandler
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimiter         *middleware.RateLimiter
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler         *handler.AuthHandler
	sessionHandler      *handler.SessionHandler
	paymentHandler      *handler.PaymentHandler
	subscriptionHandler *handler.SubscriptionHandler
	authMiddleware      *middleware.AuthMiddleware
	rateLimiter         *middleware.RateLimiter
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:         params.AuthHandler,
		sessionHandler:      params.SessionHandler,
		paymentHandler:      params.PaymentHandler,
		subscriptionHandler: params.SubscriptionHandler,
		authMiddleware:      params.AuthMiddleware,
		rateLimiter:         params.RateLimiter,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)

	authGroup := e.Group("/auth")
	authGroup.Use(r.rateLimiter.Limit)
	{
		authGroup.POST("/otp/request", r.authHandler.RequestOTP)
		authGroup.POST("/otp/verify", r.authHandler.VerifyOTP)
		authGroup.POST("/refresh", r.authHandler.Refresh)
		authGroup.POST("/logout", r.authHandler.Logout)
	}

	e.GET("/payments/plans", r.paymentHandler.ListPlans)

	// Provider deliveries are authenticated by their signature, not a bearer token.
	e.POST("/webhooks/payments", r.paymentHandler.Webhook)

	apiV1 := e.Group("/api/v1")
	apiV1.Use(r.authMiddleware.Authenticate) // All API v1 routes require authentication
	{
		apiV1.POST("/auth/logout-all", r.authHandler.LogoutAll)

		apiV1.GET("/sessions", r.sessionHandler.ListSessions)
		apiV1.DELETE("/sessions/:id", r.sessionHandler.RevokeSession)

		apiV1.POST("/payments/orders", r.paymentHandler.CreateOrder)
		apiV1.POST("/payments/verify", r.paymentHandler.VerifyPayment)

		apiV1.GET("/subscription", r.subscriptionHandler.GetSubscription)
	}
}
