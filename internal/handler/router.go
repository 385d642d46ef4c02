package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/zhouzirui/avatar-interview/backend/internal/handler/avatar"
	"github.com/zhouzirui/avatar-interview/backend/internal/handler/live"
	"github.com/zhouzirui/avatar-interview/backend/internal/handler/session"
	"github.com/zhouzirui/avatar-interview/backend/internal/handler/webhook"
	avatarModel "github.com/zhouzirui/avatar-interview/backend/internal/model/avatar"
	avatarService "github.com/zhouzirui/avatar-interview/backend/internal/service/avatar"
	"github.com/zhouzirui/avatar-interview/backend/internal/service/interview"
	"github.com/zhouzirui/avatar-interview/backend/internal/service/notify"
	"github.com/zhouzirui/avatar-interview/backend/pkg/utils"
)

// Deps carries the services the HTTP layer needs. Tokens and Notifier are
// optional.
type Deps struct {
	Sessions       *interview.Service
	Avatars        avatarModel.Store
	Tokens         avatarService.TokenIssuer
	Notifier       notify.Notifier
	AllowedOrigins []string

	// AllowWebhookOverride lets webhook callers pick the delivery URL.
	AllowWebhookOverride bool
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(newCORS(deps.AllowedOrigins).Handler)

	sessionHandler := session.New(deps.Sessions, deps.Avatars, deps.Tokens, deps.Notifier)
	liveHandler := live.New(deps.Sessions, deps.Notifier)
	webhookHandler := webhook.New(deps.Sessions, deps.Notifier, deps.AllowWebhookOverride)
	avatarHandler := avatar.New(deps.Avatars)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":           "ok",
			"sessions":         deps.Sessions.Len(),
			"pendingEvictions": deps.Sessions.PendingEvictions(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		sessionHandler.RegisterRoutes(api)
		liveHandler.RegisterRoutes(api)
		webhookHandler.RegisterRoutes(api)
		avatarHandler.RegisterRoutes(api)
	})

	return r
}

func newCORS(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	})
}
