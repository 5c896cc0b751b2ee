package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rahulmehra/mandiflow-backend/api/controllers"
	"github.com/rahulmehra/mandiflow-backend/api/middleware"
	b2bsvc "github.com/rahulmehra/mandiflow-backend/internal/b2b"
	cartsvc "github.com/rahulmehra/mandiflow-backend/internal/cart"
	checkoutsvc "github.com/rahulmehra/mandiflow-backend/internal/checkout"
	deliverysvc "github.com/rahulmehra/mandiflow-backend/internal/delivery"
	notificationsvc "github.com/rahulmehra/mandiflow-backend/internal/notifications"
	ordersvc "github.com/rahulmehra/mandiflow-backend/internal/orders"
	productsvc "github.com/rahulmehra/mandiflow-backend/internal/products"
	usersvc "github.com/rahulmehra/mandiflow-backend/internal/users"
	"github.com/rahulmehra/mandiflow-backend/pkg/config"
	"github.com/rahulmehra/mandiflow-backend/pkg/db"
	"github.com/rahulmehra/mandiflow-backend/pkg/enums"
	"github.com/rahulmehra/mandiflow-backend/pkg/logger"
	"github.com/rahulmehra/mandiflow-backend/pkg/redis"
)

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Users         usersvc.Service
	Products      productsvc.Service
	Cart          cartsvc.Service
	Checkout      checkoutsvc.Service
	Orders        ordersvc.Service
	B2B           b2bsvc.Service
	Delivery      deliverysvc.Service
	Notifications notificationsvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users/register", controllers.UsersRegister(svcs.Users, cfg.JWT, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Get("/users/me", controllers.UsersMe(svcs.Users, logg))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ProductsList(svcs.Products, logg))
				r.Get("/{productId}", controllers.ProductsGet(svcs.Products, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(svcs.Cart, logg))
				r.Post("/items", controllers.CartAddItem(svcs.Cart, svcs.Products, logg))
				r.Patch("/items/{itemId}", controllers.CartUpdateItem(svcs.Cart, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(svcs.Cart, logg))
				r.Delete("/", controllers.CartClear(svcs.Cart, logg))
			})

			r.Post("/checkout", controllers.CheckoutPlaceOrder(svcs.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/purchases", controllers.OrdersPurchases(svcs.Orders, logg))
				r.Get("/sales", controllers.OrdersSales(svcs.Orders, logg))
				r.Get("/{orderId}", controllers.OrdersGet(svcs.Orders, logg))
				r.Get("/{orderId}/delivery", controllers.DeliveryTrackingGet(svcs.Delivery, logg))
			})

			r.Route("/retailer", func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.UserRoleRetailer, logg))
				r.Get("/inventory", controllers.RetailerInventory(svcs.Products, logg))
				r.Post("/stock-requests", controllers.B2BRequestStock(svcs.B2B, logg))
			})

			r.Route("/wholesaler", func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.UserRoleWholesaler, logg))
				r.Get("/inventory", controllers.WholesalerInventory(svcs.Products, logg))
				r.Get("/stock-requests/{orderId}/availability", controllers.B2BCheckStock(svcs.B2B, logg))
				r.Post("/stock-requests/{orderId}/approve", controllers.B2BApprove(svcs.B2B, logg))
				r.Post("/stock-requests/{orderId}/reject", controllers.B2BReject(svcs.B2B, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.NotificationsList(svcs.Notifications, logg))
				r.Get("/unread-count", controllers.NotificationsUnreadCount(svcs.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.NotificationsMarkRead(svcs.Notifications, logg))
				r.Post("/read-all", controllers.NotificationsMarkAllRead(svcs.Notifications, logg))
			})
		})
	})

	return r
}
