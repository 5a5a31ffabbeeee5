package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"meetspace-api/internal/auth"
	"meetspace-api/internal/config"
	"meetspace-api/internal/http/docs"
	"meetspace-api/internal/http/handler"
	"meetspace-api/internal/http/middleware"
	"meetspace-api/internal/observability/logger"
	"meetspace-api/internal/ratelimit"
	"meetspace-api/internal/telemetry"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReadyCheck is one dependency checked by /ready.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// RouterDeps holds everything buildRouter wires into routes.
type RouterDeps struct {
	Cfg         *config.Config
	Log         *logger.Logger
	Resolver    *auth.KeyResolver
	Workspaces  middleware.WorkspaceLookup
	RateLimiter ratelimit.Limiter
	Metrics     *telemetry.Metrics
	Prom        *telemetry.PromMetrics
	ReadyChecks []ReadyCheck

	// Handlers
	UserHandler      *handler.UserHandler
	WorkspaceHandler *handler.WorkspaceHandler
	MemberHandler    *handler.MemberHandler
	AccessHandler    *handler.AccessHandler
	MeetingHandler   *handler.MeetingHandler
	DebugHandler     *handler.DebugHandler
}

func writeStatus(w http.ResponseWriter, code int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// buildRouter builds the chi router with all middlewares and routes.
func buildRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLoggingMiddleware(deps.Log))
	r.Use(middleware.RecoveryMiddleware(deps.Log))
	r.Use(telemetry.OTelMiddleware(deps.Cfg.OTELServiceName))
	if deps.Metrics != nil {
		r.Use(telemetry.MetricsMiddleware(deps.Metrics))
	}

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for _, c := range deps.ReadyChecks {
			if err := c.Check(ctx); err != nil {
				deps.Log.Error(ctx, "readiness check failed",
					logger.Module("http"),
					zap.String("dependency", c.Name),
					zap.Error(err),
				)
				writeStatus(w, http.StatusServiceUnavailable, map[string]string{
					"status":  "error",
					"message": c.Name + " unavailable",
				})
				return
			}
		}
		writeStatus(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	prom := deps.Prom
	if prom == nil {
		prom = telemetry.NewPromMetrics()
	}
	r.Method(http.MethodGet, "/metrics", prom.Handler(deps.Cfg.MetricsToken))

	r.Get("/openapi.yaml", docs.OpenAPIHandler().ServeHTTP)
	r.Get("/docs", docs.ScalarDocsHandler("/openapi.yaml").ServeHTTP)

	// Debug routes (dev-only)
	if deps.Cfg.IsDev() && deps.DebugHandler != nil {
		r.Route("/debug", func(r chi.Router) {
			r.With(auth.Middleware(deps.Resolver)).Get("/auth", deps.DebugHandler.GetAuthDebug)
			r.With(auth.Middleware(deps.Resolver), middleware.WorkspaceMiddleware(deps.Workspaces)).
				Get("/auth/workspaces/{workspaceId}", deps.DebugHandler.GetAuthDebug)
			r.Get("/db/ping", deps.DebugHandler.PingDB)
		})
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware(deps.Resolver))

		if deps.UserHandler != nil {
			r.Post("/users", deps.UserHandler.Register)
			r.Route("/users/me", func(r chi.Router) {
				r.Get("/", deps.UserHandler.GetMe)
				r.Patch("/", deps.UserHandler.UpdateMe)
				r.Get("/calendar/events", deps.UserHandler.ListEvents)
				r.Post("/calendar/events", deps.UserHandler.CreateEvent)
				r.Delete("/calendar/events/{eventId}", deps.UserHandler.DeleteEvent)
			})
		}

		if deps.WorkspaceHandler != nil {
			r.Post("/workspaces", deps.WorkspaceHandler.CreateWorkspace)
		}

		// Workspace-scoped routes: the caller must be a member.
		r.Route("/workspaces/{workspaceId}", func(r chi.Router) {
			r.Use(middleware.WorkspaceMiddleware(deps.Workspaces))
			r.Use(middleware.RateLimitMiddleware(deps.RateLimiter, deps.Cfg.RateLimitPerWorkspacePerMin))

			if deps.WorkspaceHandler != nil {
				r.Get("/", deps.WorkspaceHandler.GetWorkspace)
				r.Delete("/", deps.WorkspaceHandler.DeleteWorkspace)
			}

			if deps.MemberHandler != nil {
				r.Route("/members", func(r chi.Router) {
					r.Get("/", deps.MemberHandler.ListMembers)
					r.Post("/", deps.MemberHandler.AddMember)
					r.Route("/{memberId}", func(r chi.Router) {
						r.Delete("/", deps.MemberHandler.DeleteMember)
						r.Post("/permissions", deps.MemberHandler.AssignPermission)
						r.Delete("/permissions/{permission}", deps.MemberHandler.RevokePermission)
						r.Post("/roles", deps.MemberHandler.AssignRole)
						r.Delete("/roles/{role}", deps.MemberHandler.RevokeRole)
					})
				})
			}

			if deps.AccessHandler != nil {
				r.Post("/access:check", deps.AccessHandler.CheckAccess)
			}

			if deps.MeetingHandler != nil {
				r.Route("/meetings", func(r chi.Router) {
					r.Get("/", deps.MeetingHandler.ListMeetings)
					r.Post("/", deps.MeetingHandler.CreateMeeting)
					r.Route("/{meetingId}", func(r chi.Router) {
						r.Post("/participants", deps.MeetingHandler.Join)
						r.Delete("/participants/me", deps.MeetingHandler.Leave)
						r.Post("/recording:start", deps.MeetingHandler.StartRecording)
						r.Post("/recording:stop", deps.MeetingHandler.StopRecording)
						r.Get("/recordings", deps.MeetingHandler.ListRecordings)
						r.Post("/recordings", deps.MeetingHandler.SaveRecording)
						r.Post("/translate", deps.MeetingHandler.Translate)
						r.Post("/voice", deps.MeetingHandler.VoiceCommand)
						r.Get("/logs", deps.MeetingHandler.ListLogs)
						r.Post("/logs", deps.MeetingHandler.CreateLog)
						r.Delete("/logs/{logId}", deps.MeetingHandler.DeleteLog)
					})
				})
			}
		})
	})

	return r
}
