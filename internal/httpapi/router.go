package httpapi

import (
	"log"
	"net/http"
	"time"
)

func NewRouter(handler *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handler.healthz)
	mux.HandleFunc("GET /docs", handler.swaggerUI)
	mux.HandleFunc("GET /docs/", handler.swaggerUI)
	mux.HandleFunc("GET /docs/openapi.json", handler.swaggerSpec)

	mux.HandleFunc("POST /api/v1/auth/signup", handler.signUp)
	mux.HandleFunc("POST /api/v1/auth/signin", handler.signIn)

	mux.HandleFunc("GET /api/v1/state", handler.authed(handler.state))
	mux.HandleFunc("POST /api/v1/goals", handler.authed(handler.createGoal))
	mux.HandleFunc("DELETE /api/v1/goals/{id}", handler.authed(handler.deleteGoal))
	mux.HandleFunc("POST /api/v1/goals/{id}/activate", handler.authed(handler.activateGoal))
	mux.HandleFunc("POST /api/v1/identity/reset", handler.authed(handler.resetIdentity))
	mux.HandleFunc("PUT /api/v1/notifications/permission", handler.authed(handler.notificationPermission))

	mux.HandleFunc("POST /api/v1/tasks", handler.authed(handler.addTask))
	mux.HandleFunc("POST /api/v1/tasks/{id}/toggle", handler.authed(handler.toggleTask))
	mux.HandleFunc("PUT /api/v1/tasks/{id}", handler.authed(handler.editTask))
	mux.HandleFunc("DELETE /api/v1/tasks/{id}", handler.authed(handler.deleteTask))
	mux.HandleFunc("POST /api/v1/journal", handler.authed(handler.addJournalEntry))
	mux.HandleFunc("PUT /api/v1/chat", handler.authed(handler.replaceChat))
	mux.HandleFunc("POST /api/v1/chat/messages", handler.authed(handler.sendChat))

	mux.HandleFunc("POST /api/v1/daily-actions", handler.authed(handler.dailyActions))
	mux.HandleFunc("POST /api/v1/trajectory", handler.authed(handler.trajectory))
	mux.HandleFunc("POST /api/v1/predict", handler.authed(handler.predict))

	return withRequestLogging(withCORS(withJSONContentType(mux)))
}

func withJSONContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if (r.Method == http.MethodPost || r.Method == http.MethodPut) && r.Header.Get("Content-Type") == "" {
			r.Header.Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s -> %d (%s) from %s", r.Method, r.URL.RequestURI(), rec.status, time.Since(start).Truncate(time.Millisecond), r.RemoteAddr)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
