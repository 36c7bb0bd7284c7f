package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/tablebite-backend/api/controllers"
	"github.com/angelmondragon/tablebite-backend/api/middleware"
	"github.com/angelmondragon/tablebite-backend/internal/auth"
	"github.com/angelmondragon/tablebite-backend/internal/cart"
	"github.com/angelmondragon/tablebite-backend/internal/catalog"
	"github.com/angelmondragon/tablebite-backend/internal/checkout"
	"github.com/angelmondragon/tablebite-backend/internal/loyalty"
	"github.com/angelmondragon/tablebite-backend/internal/orders"
	"github.com/angelmondragon/tablebite-backend/internal/rewards"
	"github.com/angelmondragon/tablebite-backend/pkg/auth/session"
	"github.com/angelmondragon/tablebite-backend/pkg/config"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
	"github.com/angelmondragon/tablebite-backend/pkg/metrics"
)

type redisStore interface {
	controllers.Pinger
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(parts ...string) string
	Get(context.Context, string) (string, error)
	Set(context.Context, string, any, time.Duration) error
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

type visitorStore interface {
	Load(ctx context.Context, token string) (*session.Visitor, error)
	Save(ctx context.Context, visitor *session.Visitor) error
}

// Dependencies is everything the HTTP surface is wired to.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    redisStore
	Sessions session.AccessSessionChecker
	Visitors visitorStore

	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
	CORSOrigins    []string

	Auth     auth.Service
	Register auth.RegisterService
	Catalog  catalog.Service
	Cart     cart.Service
	Checkout checkout.Service
	Orders   orders.Service
	Loyalty  loyalty.Service
	Rewards  rewards.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(deps.CORSOrigins, cfg.Session.Header),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterUsernameLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessChecks(deps)))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Visitor(deps.Visitors, cfg.Session.Header, logg))
		r.Use(middleware.OptionalAuth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Register, deps.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.With(middleware.RequireUser(logg)).Post("/logout", controllers.AuthLogout(deps.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		})

		r.Get("/menu", controllers.Menu(deps.Catalog, logg))
		r.Get("/menu/items/{itemId}", controllers.MenuItem(deps.Catalog, logg))
		r.Get("/news", controllers.NewsList(deps.Catalog, logg))
		r.Get("/news/{newsId}", controllers.NewsDetail(deps.Catalog, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Get("/count", controllers.CartCount(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Put("/items/{itemId}", controllers.CartSetQuantity(deps.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Cart, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(logg))

			r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

			r.Get("/orders", controllers.OrderList(deps.Orders, logg))
			r.Get("/orders/{orderId}", controllers.OrderDetail(deps.Orders, logg))

			r.Get("/profile", controllers.ProfileGet(deps.Loyalty, logg))
			r.Put("/profile", controllers.ProfileUpdate(deps.Loyalty, logg))

			r.Get("/rewards", controllers.RewardsOverview(deps.Rewards, logg))
			r.Post("/rewards/discounts", controllers.DiscountRedeem(deps.Rewards, logg))
			r.Post("/rewards/{rewardId}/redeem", controllers.RewardRedeem(deps.Rewards, logg))
		})
	})

	r.Route("/api/staff/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.RequireStaff(logg))
		r.Post("/orders/{orderId}/status", controllers.StaffOrderStatus(deps.Orders, logg))
	})

	return r
}

func readinessChecks(deps Dependencies) map[string]controllers.Pinger {
	checks := map[string]controllers.Pinger{}
	if deps.DB != nil {
		checks["database"] = deps.DB
	}
	if deps.Redis != nil {
		checks["redis"] = deps.Redis
	}
	return checks
}
