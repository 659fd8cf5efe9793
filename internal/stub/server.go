// Package stub is a development stand-in for the marketplace backend. It
// implements exactly the REST and realtime interface the client consumes so
// the synchronizer can be exercised without the production API.
package stub

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"fieldcart/internal/metrics"
	"fieldcart/internal/stub/sqlite"
)

// Options configures the stub server.
type Options struct {
	JWTSecret string
	TokenTTL  time.Duration
	RateRPS   float64
	RateBurst int
}

// NewRouter wires the stub's routes, repositories, and middleware.
func NewRouter(db *sql.DB, hub *Hub, opts Options, log zerolog.Logger) http.Handler {
	if opts.TokenTTL == 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	tokens := NewTokenService(opts.JWTSecret, opts.TokenTTL)

	users := sqlite.NewUserRepo(db)
	convs := sqlite.NewConversationRepo(db)
	msgs := sqlite.NewMessageRepo(db)
	carts := sqlite.NewCartRepo(db)

	limiter := newLimiterPool(opts.RateRPS, opts.RateBurst)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(countRequests)
	r.Use(limiter.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", handleLogin(users, tokens, log))

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokens))

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", handleListConversations(convs))
				r.Post("/", handleCreateConversation(convs))
				r.Get("/{chatID}", handleGetConversation(convs))
				r.Post("/message", handleSendMessage(convs, msgs, hub, log))
				r.Put("/message", handleEditMessage(msgs))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", handleGetCart(carts))
				r.Post("/{productID}", handleAddCartItem(carts))
				r.Put("/{productID}", handleUpdateCartItem(carts))
				r.Delete("/{productID}", handleRemoveCartItem(carts))
			})

			r.Get("/products", handleListProducts(carts))
		})
	})

	r.Get("/ws", MakeWSHandler(hub, tokens, log))

	return r
}

func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		class := fmt.Sprintf("%dxx", ww.Status()/100)
		metrics.HTTPRequests.WithLabelValues(r.Method, class).Inc()
	})
}
