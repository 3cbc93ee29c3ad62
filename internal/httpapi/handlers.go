package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"bridge/internal/auth"
	"bridge/internal/gateway"
	"bridge/internal/model"
	"bridge/internal/service"
)

const badBody = "request body is not valid JSON"

type Handler struct {
	svc     *service.Service
	auth    *auth.Service
	gateway *gateway.Gateway
}

func NewHandler(svc *service.Service, authSvc *auth.Service, gw *gateway.Gateway) *Handler {
	return &Handler{svc: svc, auth: authSvc, gateway: gw}
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"generation": h.gateway.Enabled(),
	})
}

// authed resolves the bearer token to a user id before calling next.
func (h *Handler) authed(next func(w http.ResponseWriter, r *http.Request, userID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, err := h.auth.UserIDFromToken(strings.TrimSpace(token))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next(w, r, userID)
	}
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		log.Printf("signUp decode error: %v", err)
		writeError(w, http.StatusBadRequest, badBody)
		return
	}
	session, err := h.auth.SignUp(creds)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, auth.ErrUserExists):
			writeError(w, http.StatusConflict, err.Error())
		default:
			log.Printf("signUp internal error: err=%v", err)
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		log.Printf("signIn decode error: %v", err)
		writeError(w, http.StatusBadRequest, badBody)
		return
	}
	session, err := h.auth.SignIn(creds)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		log.Printf("signIn internal error: err=%v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request, userID string) {
	view, err := h.svc.State(userID)
	h.respond(w, "state", userID, view, err)
}

type createGoalBody struct {
	Title      string `json:"title"`
	Routine    string `json:"routine"`
	TargetDate string `json:"target_date"`
	Image      string `json:"image,omitempty"`
}

func (h *Handler) createGoal(w http.ResponseWriter, r *http.Request, userID string) {
	var body createGoalBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		log.Printf("createGoal decode error: user=%s err=%v", userID, err)
		writeError(w, http.StatusBadRequest, badBody)
		return
	}
	target, err := parseTargetDate(body.TargetDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "target_date must be YYYY-MM-DD or RFC 3339")
		return
	}
	view, err := h.svc.CreateGoal(r.Context(), userID, service.CreateGoalRequest{
		Title:      body.Title,
		Routine:    body.Routine,
		TargetDate: target,
		Image:      body.Image,
	})
	if err == nil {
		writeJSON(w, http.StatusCreated, view)
		return
	}
	h.respond(w, "createGoal", userID, nil, err)
}

func (h *Handler) deleteGoal(w http.ResponseWriter, r *http.Request, userID string) {
	view, err := h.svc.DeleteGoal(userID, r.PathValue("id"))
	h.respond(w, "deleteGoal", userID, view, err)
}

func (h *Handler) activateGoal(w http.ResponseWriter, r *http.Request, userID string) {
	view, err := h.svc.ActivateGoal(userID, r.PathValue("id"))
	h.respond(w, "activateGoal", userID, view, err)
}

func (h *Handler) resetIdentity(w http.ResponseWriter, r *http.Request, userID string) {
	view, err := h.svc.ResetIdentity(userID)
	h.respond(w, "resetIdentity", userID, view, err)
}

func (h *Handler) notificationPermission(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		Granted bool `json:"granted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, badBody)
		return
	}
	view, err := h.svc.SetNotificationPermission(userID, body.Granted)
	h.respond(w, "notificationPermission", userID, view, err)
}

func (h *Handler) addTask(w http.ResponseWriter, r *http.Request, userID string) {
	var req service.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, badBody)
		return
	}
	view, err := h.svc.AddTask(userID, req)
	h.respond(w, "addTask", userID, view, err)
}

func (h *Handler) toggleTask(w http.ResponseWriter, r *http.Request, userID string) {
	view, err := h.svc.ToggleTask(userID, r.PathValue("id"))
	h.respond(w, "toggleTask", userID, view, err)
}

func (h *Handler) editTask(w http.ResponseWriter, r *http.Request, userID string) {
	var req service.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, badBody)
		return
	}
	view, err := h.svc.EditTask(userID, r.PathValue("id"), req)
	h.respond(w, "editTask", userID, view, err)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request, userID string) {
	view, err := h.svc.DeleteTask(userID, r.PathValue("id"))
	h.respond(w, "deleteTask", userID, view, err)
}

func (h *Handler) addJournalEntry(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, badBody)
		return
	}
	view, err := h.svc.AddJournalEntry(userID, body.Content)
	h.respond(w, "addJournalEntry", userID, view, err)
}

func (h *Handler) replaceChat(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		Messages []model.ChatMessage `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, badBody)
		return
	}
	view, err := h.svc.ReplaceChatHistory(userID, body.Messages)
	h.respond(w, "replaceChat", userID, view, err)
}

func (h *Handler) sendChat(w http.ResponseWriter, r *http.Request, userID string) {
	var req service.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, badBody)
		return
	}
	resp, err := h.svc.SendChatMessage(r.Context(), userID, req)
	if err != nil {
		h.respond(w, "sendChat", userID, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type dailyActionsBody struct {
	Routine       string `json:"routine"`
	Goal          string `json:"goal"`
	DayContext    int    `json:"dayContext"`
	DaysRemaining int    `json:"daysRemaining"`
}

func (h *Handler) dailyActions(w http.ResponseWriter, r *http.Request, userID string) {
	var body dailyActionsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, badBody)
		return
	}
	if body.DayContext <= 0 {
		body.DayContext = 1
	}
	if body.DaysRemaining <= 0 {
		body.DaysRemaining = 30
	}
	plan := h.gateway.GenerateTaskPlan(r.Context(), body.Routine, body.Goal, body.DayContext, body.DaysRemaining)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tasks":   plan.Tasks,
		"quote":   plan.Quote,
	})
}

type trajectoryBody struct {
	ImageBase64 string `json:"imageBase64"`
	Routine     string `json:"routine"`
	Goal        string `json:"goal"`
	Type        string `json:"type"`
}

func (h *Handler) trajectory(w http.ResponseWriter, r *http.Request, userID string) {
	var body trajectoryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, badBody)
		return
	}
	if strings.TrimSpace(body.ImageBase64) == "" {
		writeError(w, http.StatusBadRequest, "imageBase64 is required")
		return
	}
	var image string
	if strings.EqualFold(body.Type, string(gateway.ImageFutureSelf)) {
		image = h.gateway.GenerateImage(r.Context(), gateway.ImageFutureSelf, body.ImageBase64, body.Goal)
	} else {
		image = h.gateway.GenerateImage(r.Context(), gateway.ImageStagnation, body.ImageBase64, body.Routine)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "image": image})
}

func (h *Handler) predict(w http.ResponseWriter, r *http.Request, userID string) {
	var body dailyActionsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, badBody)
		return
	}
	if strings.TrimSpace(body.Routine) == "" || strings.TrimSpace(body.Goal) == "" {
		writeError(w, http.StatusBadRequest, "routine and goal are required")
		return
	}
	prediction := h.gateway.PredictOutcome(r.Context(), body.Routine, body.Goal, body.DaysRemaining)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "prediction": prediction})
}

// respond writes payload on success and maps service errors to statuses.
func (h *Handler) respond(w http.ResponseWriter, scope string, userID string, payload any, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, payload)
		return
	}
	switch {
	case errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrRoutineRequired),
		errors.Is(err, service.ErrTargetDateRequired),
		errors.Is(err, service.ErrImageRequired),
		errors.Is(err, service.ErrTaskTitleRequired),
		errors.Is(err, service.ErrMessageRequired),
		errors.Is(err, service.ErrInvalidChatRole):
		log.Printf("%s bad request: user=%s err=%v", scope, userID, err)
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrGoalNotFound):
		log.Printf("%s not found: user=%s err=%v", scope, userID, err)
		writeError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("%s internal error: user=%s err=%v", scope, userID, err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func parseTargetDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
