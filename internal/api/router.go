package api

import (
	"net/http"
	"time"

	"github.com/RichardoC/pad-chat/internal/auth"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter wires the chat API. secretKey enables the identity gate.
func NewRouter(h *Handler, secretKey []byte) *mux.Router {
	r := mux.NewRouter()
	r.Use(recoverPanic(h.logger))
	r.Use(logRequests(h.logger))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware(secretKey, h.logger))

	api.HandleFunc("/message", h.HandleMessage).Methods(http.MethodPost)
	api.HandleFunc("/conversations", h.GetConversations).Methods(http.MethodGet)
	api.HandleFunc("/conversations/new", h.NewConversation).Methods(http.MethodPost)
	api.HandleFunc("/conversations/active", h.GetActiveConversation).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/messages", h.GetMessages).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}", h.UpdateConversation).Methods(http.MethodPut)
	api.HandleFunc("/conversations/{id}", h.DeleteConversation).Methods(http.MethodDelete)
	api.HandleFunc("/credential", h.GetCredential).Methods(http.MethodGet)
	api.HandleFunc("/credential", h.SetCredential).Methods(http.MethodPut)
	api.HandleFunc("/credential", h.ResetCredential).Methods(http.MethodDelete)
	api.HandleFunc("/suggestions", h.GetSuggestions).Methods(http.MethodGet)

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

func recoverPanic(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic serving request",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path))
					http.Error(w, "Internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
