package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/plenumlab/speechqa/internal/core/domain"
	"github.com/plenumlab/speechqa/internal/core/ports"
	"github.com/plenumlab/speechqa/internal/observability/metrics"
)

type Router struct {
	answerer       ports.QuestionAnswerer
	feedback       ports.FeedbackQueue
	metricsHandler http.Handler
	httpMetrics    *metrics.HTTPMetrics
	logger         *slog.Logger
}

func NewRouter(
	answerer ports.QuestionAnswerer,
	feedback ports.FeedbackQueue,
	metricsHandler http.Handler,
	httpMetrics *metrics.HTTPMetrics,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		answerer:       answerer,
		feedback:       feedback,
		metricsHandler: metricsHandler,
		httpMetrics:    httpMetrics,
		logger:         logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/ask", rt.ask)
	mux.HandleFunc("/v1/feedback", rt.tagFeedback)
	if rt.metricsHandler != nil {
		mux.Handle("/metrics", rt.metricsHandler)
	}

	var handler http.Handler = mux
	handler = accessLogMiddleware(handler)
	if rt.httpMetrics != nil {
		handler = metricsMiddleware(rt.httpMetrics, handler)
	}
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	result, err := rt.answerer.Ask(r.Context(), req)
	if err != nil {
		rt.writeError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) tagFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.TagFeedback
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.TagID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tag_id is required"})
		return
	}

	if err := rt.feedback.PublishTagFeedback(r.Context(), req); err != nil {
		rt.writeError(r, w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (rt *Router) writeError(r *http.Request, w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": publicErrorMessage(err, status)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
