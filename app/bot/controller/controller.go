package controller

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/smallstreet/megabot/app/bot/types"
	"github.com/smallstreet/megabot/pkg/utils"
)

type Controller struct {
	App        *types.App
	AdminToken string
	AuthUser   string
	AuthPass   string
	JWTSecret  []byte
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	return &Controller{
		App:        app,
		AdminToken: utils.Env("ADMIN_TOKEN", "devtoken"),
		AuthUser:   utils.Env("ADMIN_USER", "admin"),
		AuthPass:   utils.Env("ADMIN_PASSWORD", "admin"),
		JWTSecret:  []byte(utils.Env("SESSION_SECRET", "change-me-please")),
	}
}

// WithCORS is a middleware that adds CORS headers to the response.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodPost+", "+http.MethodOptions)

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()

	// basically it's ok, could even be a public endpoint
	r.Handle("/api/health", http.HandlerFunc(c.HandleHealth)).Methods(http.MethodGet)

	r.HandleFunc("/api/auth/login", c.HandleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/logout", c.HandleLogout).Methods(http.MethodPost)

	// Poll lifecycle
	r.Handle("/api/polls", c.RequireAuth(http.HandlerFunc(c.HandleCreatePoll))).Methods(http.MethodPost)
	r.Handle("/api/polls/{id}", c.RequireAuth(http.HandlerFunc(c.HandlePollDetail))).Methods(http.MethodGet)
	r.Handle("/api/polls/{id}/resolve", c.RequireAuth(http.HandlerFunc(c.HandleResolvePoll))).Methods(http.MethodPost)
	r.Handle("/api/polls/{id}/rewards", c.RequireAuth(http.HandlerFunc(c.HandlePollRewards))).Methods(http.MethodGet)

	// XP summaries
	r.Handle("/api/xp/{username}", c.RequireAuth(http.HandlerFunc(c.HandleXPSummary))).Methods(http.MethodGet)

	return r, nil
}
