package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Norvan25/homenest-nous-sub002/internal/usecase"
)

// Deps lists the services exposed over HTTP.
type Deps struct {
	Leads      *usecase.Leads
	CRM        *usecase.CRM
	Queue      *usecase.CallQueue
	Reports    *usecase.CallReports
	Generation *usecase.Generation
	Outreach   *usecase.Outreach
	Admin      *usecase.Admin
	Realtime   http.Handler

	JWTSecret      string
	WebhookSecret  string
	AllowedOrigins []string
	SwaggerDir     string
	Now            func() time.Time
	Logger         *slog.Logger
}

// API holds the handlers.
type API struct {
	leads      *usecase.Leads
	crm        *usecase.CRM
	queue      *usecase.CallQueue
	reports    *usecase.CallReports
	generation *usecase.Generation
	outreach   *usecase.Outreach
	admin      *usecase.Admin

	jwtSecret     string
	webhookSecret string
	now           func() time.Time
	logger        *slog.Logger
}

// NewHandler builds the routed, CORS-wrapped HTTP handler.
func NewHandler(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	a := &API{
		leads:         deps.Leads,
		crm:           deps.CRM,
		queue:         deps.Queue,
		reports:       deps.Reports,
		generation:    deps.Generation,
		outreach:      deps.Outreach,
		admin:         deps.Admin,
		jwtSecret:     deps.JWTSecret,
		webhookSecret: deps.WebhookSecret,
		now:           now,
		logger:        logger.With("component", "http"),
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", a.Health).Methods(http.MethodGet)
	router.HandleFunc("/api/webhooks/elevenlabs", a.ElevenLabsWebhook).Methods(http.MethodPost)

	if deps.SwaggerDir != "" {
		router.PathPrefix("/swagger/doc/").Handler(http.StripPrefix("/swagger/doc/", http.FileServer(http.Dir(deps.SwaggerDir))))
		router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc/swagger.json"),
			httpSwagger.DeepLinking(true),
		))
	}

	if deps.Realtime != nil {
		router.Handle("/ws", a.authMiddleware(true)(deps.Realtime))
	}

	api := router.PathPrefix("/api").Subrouter()
	api.Use(a.authMiddleware(false))
	a.routes(api)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondMessage(w, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return c.Handler(router)
}

func (a *API) routes(r *mux.Router) {
	r.HandleFunc("/properties", a.ListProperties).Methods(http.MethodGet)
	r.HandleFunc("/properties", a.CreateProperty).Methods(http.MethodPost)
	r.HandleFunc("/properties/{id}", a.GetProperty).Methods(http.MethodGet)
	r.HandleFunc("/properties/{id}", a.UpdateProperty).Methods(http.MethodPatch)
	r.HandleFunc("/properties/{id}", a.DeleteProperty).Methods(http.MethodDelete)
	r.HandleFunc("/properties/{id}/contacts", a.AddContact).Methods(http.MethodPost)
	r.HandleFunc("/contacts/{id}", a.UpdateContact).Methods(http.MethodPatch)
	r.HandleFunc("/contacts/{id}", a.DeleteContact).Methods(http.MethodDelete)
	r.HandleFunc("/contacts/{id}/phones", a.AddPhone).Methods(http.MethodPost)
	r.HandleFunc("/contacts/{id}/emails", a.AddEmail).Methods(http.MethodPost)
	r.HandleFunc("/phones/{id}", a.UpdatePhone).Methods(http.MethodPatch)
	r.HandleFunc("/phones/{id}", a.DeletePhone).Methods(http.MethodDelete)
	r.HandleFunc("/emails/{id}", a.DeleteEmail).Methods(http.MethodDelete)

	r.HandleFunc("/crm/leads", a.ListLeads).Methods(http.MethodGet)
	r.HandleFunc("/crm/leads", a.CreateLead).Methods(http.MethodPost)
	r.HandleFunc("/crm/leads/{id}", a.GetLead).Methods(http.MethodGet)
	r.HandleFunc("/crm/leads/{id}", a.UpdateLead).Methods(http.MethodPatch)
	r.HandleFunc("/crm/leads/{id}", a.DeleteLead).Methods(http.MethodDelete)
	r.HandleFunc("/crm/leads/{id}/activities", a.ListActivities).Methods(http.MethodGet)
	r.HandleFunc("/crm/leads/{id}/activities", a.AddActivity).Methods(http.MethodPost)
	r.HandleFunc("/crm/stats", a.PipelineStats).Methods(http.MethodGet)
	r.HandleFunc("/crm/stats/chart.png", a.PipelineChart).Methods(http.MethodGet)

	r.HandleFunc("/call-queue", a.ListQueue).Methods(http.MethodGet)
	r.HandleFunc("/call-queue", a.Enqueue).Methods(http.MethodPost)
	r.HandleFunc("/call-queue/state", a.QueueState).Methods(http.MethodGet)
	r.HandleFunc("/call-queue/start", a.StartQueue).Methods(http.MethodPost)
	r.HandleFunc("/call-queue/pause", a.PauseQueue).Methods(http.MethodPost)
	r.HandleFunc("/call-queue/clear", a.ClearQueue).Methods(http.MethodPost)
	r.HandleFunc("/call-queue/{id}", a.CancelQueueItem).Methods(http.MethodDelete)
	r.HandleFunc("/call-queue/{id}/retry", a.RetryQueueItem).Methods(http.MethodPost)

	r.HandleFunc("/documents", a.ListDocuments).Methods(http.MethodGet)
	r.HandleFunc("/documents/types", a.DocumentTypes).Methods(http.MethodGet)
	r.HandleFunc("/documents/generate", a.GenerateDocument).Methods(http.MethodPost)
	r.HandleFunc("/documents/{id}", a.GetDocument).Methods(http.MethodGet)
	r.HandleFunc("/documents/{id}", a.DeleteDocument).Methods(http.MethodDelete)
	r.HandleFunc("/documents/{id}/feedback", a.DocumentFeedback).Methods(http.MethodPost)
	r.HandleFunc("/content", a.ListContent).Methods(http.MethodGet)
	r.HandleFunc("/content/generate", a.GenerateContent).Methods(http.MethodPost)
	r.HandleFunc("/content/{id}/feedback", a.ContentFeedback).Methods(http.MethodPost)
	r.HandleFunc("/voice/synthesize", a.SynthesizeVoice).Methods(http.MethodPost)

	r.HandleFunc("/outreach/sends", a.ListSends).Methods(http.MethodGet)
	r.HandleFunc("/outreach/sends", a.RecordSend).Methods(http.MethodPost)
	r.HandleFunc("/outreach/responses", a.ListResponses).Methods(http.MethodGet)
	r.HandleFunc("/outreach/responses", a.RecordResponse).Methods(http.MethodPost)

	r.HandleFunc("/admin/users", a.ListUsers).Methods(http.MethodGet)
	r.HandleFunc("/admin/users", a.CreateUser).Methods(http.MethodPost)
	r.HandleFunc("/admin/users/{id}/role", a.SetUserRole).Methods(http.MethodPatch)
	r.HandleFunc("/admin/users/{id}", a.DeleteUser).Methods(http.MethodDelete)
	r.HandleFunc("/admin/settings", a.ListSettings).Methods(http.MethodGet)
	r.HandleFunc("/admin/settings/{key}", a.GetSetting).Methods(http.MethodGet)
	r.HandleFunc("/admin/settings/{key}", a.PutSetting).Methods(http.MethodPut)
	r.HandleFunc("/admin/settings/{key}", a.DeleteSetting).Methods(http.MethodDelete)
	r.HandleFunc("/admin/debug-logs", a.ListDebugLogs).Methods(http.MethodGet)
	r.HandleFunc("/admin/debug-logs", a.ClearDebugLogs).Methods(http.MethodDelete)
}

// Health reports liveness.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	respondOK(w, "ok", map[string]string{"service": "homenest"})
}
