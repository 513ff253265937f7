package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/healios-dev/healios-backend/api/controllers"
	"github.com/healios-dev/healios-backend/api/middleware"
	cartsvc "github.com/healios-dev/healios-backend/internal/cart"
	checkoutsvc "github.com/healios-dev/healios-backend/internal/checkout"
	"github.com/healios-dev/healios-backend/internal/discounts"
	"github.com/healios-dev/healios-backend/internal/orders"
	"github.com/healios-dev/healios-backend/internal/products"
	"github.com/healios-dev/healios-backend/pkg/config"
	"github.com/healios-dev/healios-backend/pkg/db"
	"github.com/healios-dev/healios-backend/pkg/logger"
	"github.com/healios-dev/healios-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Keeping it a struct
// saves the call site from a dozen positional arguments.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        db.Pinger
	Redis     *redis.Client
	Products  products.Service
	Carts     cartsvc.Service
	Discounts discounts.Service
	Admin     discounts.AdminService
	Checkout  checkoutsvc.Service
	Orders    orders.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.CORS(),
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(deps.Products, logg))
			r.Get("/{productKey}", controllers.ProductGet(deps.Products, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Carts, logg))
			r.Post("/items", controllers.CartItemAdd(deps.Carts, logg))
			r.Delete("/items/{productId}", controllers.CartItemRemove(deps.Carts, logg))
			r.Post("/codes", controllers.CartCodeApply(deps.Carts, logg))
			r.Delete("/codes/{code}", controllers.CartCodeRemove(deps.Carts, logg))
		})

		r.Post("/discounts/validate", controllers.DiscountValidate(deps.Carts, deps.Discounts, logg))

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))
		r.Post("/payments/result", controllers.PaymentResult(deps.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderGet(deps.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminKey(cfg.Admin.APIKey, logg))

		r.Route("/discounts", func(r chi.Router) {
			r.Post("/", controllers.AdminDiscountCreate(deps.Admin, logg))
			r.Get("/", controllers.AdminDiscountList(deps.Admin, logg))
			r.Get("/{codeId}", controllers.AdminDiscountGet(deps.Admin, logg))
			r.Get("/{codeId}/redemptions", controllers.AdminDiscountRedemptions(deps.Admin, logg))
			r.Put("/{codeId}", controllers.AdminDiscountUpdate(deps.Admin, logg))
			r.Delete("/{codeId}", controllers.AdminDiscountDeactivate(deps.Admin, logg))
		})
	})

	return r
}
