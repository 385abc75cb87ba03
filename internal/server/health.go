package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/desertthunder/ratebot/internal/telemetry"
)

// Pinger reports whether a dependency is reachable. [*sql.DB] satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler answers liveness checks by pinging the database.
type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Routes() []string {
	return []string{"/healthz"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Dispatcher is everything the bot routes need.
type Dispatcher interface {
	EventDispatcher
	CommandDispatcher
}

// NewRouter wires the Slack, health and metrics routes behind the standard middleware.
func NewRouter(dispatcher Dispatcher, db Pinger, logger *log.Logger) *BasicRouter {
	telemetry.Init()

	logger = logger.With("component", "http")

	router := NewBasicRouter()
	router.Use(WithRequestID(), WithLogging(logger), WithRecover(logger))

	router.Handler(NewEventsHandler(dispatcher, logger))
	router.Handler(NewCommandsHandler(dispatcher, logger))
	router.Handler(NewHealthHandler(db))
	router.Handle(http.MethodGet, "/metrics", promhttp.Handler())

	return router
}
