package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/vaiven-app/vaiven-backend/api/controllers"
	"github.com/vaiven-app/vaiven-backend/api/middleware"
	"github.com/vaiven-app/vaiven-backend/pkg/config"
	"github.com/vaiven-app/vaiven-backend/pkg/logger"
)

// Controllers bundles every handler the router mounts.
type Controllers struct {
	Health       *controllers.HealthController
	Cart         *controllers.CartController
	Checkout     *controllers.CheckoutController
	Orders       *controllers.OrderController
	Delivery     *controllers.DeliveryController
	Tracking     *controllers.TrackingController
	Confirmation *controllers.ConfirmationController
	Webhooks     *controllers.WebhookController
}

func NewRouter(cfg *config.Config, logg *logger.Logger, c Controllers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Logging(logg))

	r.Get("/health/live", c.Health.Live)
	r.Get("/health/ready", c.Health.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		// public tracking lookup
		r.Get("/delivery/track/{trackingCode}", c.Tracking.Track)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", c.Cart.Get)
				r.Delete("/", c.Cart.Clear)
				r.Post("/items", c.Cart.AddItem)
				r.Patch("/items/{itemID}", c.Cart.UpdateItem)
				r.Delete("/items/{itemID}", c.Cart.RemoveItem)
				r.Post("/checkout", c.Checkout.Checkout)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", c.Orders.List)
				r.Get("/{orderID}", c.Orders.Get)
			})

			r.Route("/delivery", func(r chi.Router) {
				r.Post("/estimate", c.Delivery.Estimate)
				r.Post("/store-purchase", c.Delivery.CreateStorePurchase)
				r.Post("/user-to-user", c.Delivery.CreateUserToUser)
				r.Get("/{deliveryID}", c.Delivery.Get)
				r.Post("/{deliveryID}/cancel", c.Delivery.Cancel)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireCarrierRole(logg))
					r.Post("/{deliveryID}/assign", c.Delivery.Assign)
					r.Post("/{deliveryID}/transit", c.Delivery.MarkInTransit)
					r.Post("/{deliveryID}/delivered", c.Delivery.MarkDelivered)
				})

				r.Post("/confirm", c.Confirmation.Confirm)
				r.Get("/confirmation/{token}", c.Confirmation.Get)
			})

			r.Route("/webhooks/subscriptions", func(r chi.Router) {
				r.Post("/", c.Webhooks.Create)
				r.Get("/", c.Webhooks.List)
				r.Delete("/{subscriptionID}", c.Webhooks.Delete)
			})
		})
	})

	return r
}
