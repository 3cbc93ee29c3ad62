package httpapi

import (
	"net/http"
	"strings"
)

func (h *Handler) swaggerUI(w http.ResponseWriter, r *http.Request) {
	const page = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>The Bridge API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/docs/openapi.json',
      dom_id: '#swagger-ui'
    });
  </script>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

func (h *Handler) swaggerSpec(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, openAPISpec(requestBaseURL(r)))
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); forwarded != "" {
		scheme = strings.Split(forwarded, ",")[0]
		scheme = strings.TrimSpace(scheme)
	}

	host := strings.TrimSpace(r.Host)
	if host == "" {
		host = "localhost:8080"
	}
	return scheme + "://" + host
}

func ref(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

func jsonContent(schema map[string]any) map[string]any {
	return map[string]any{"application/json": map[string]any{"schema": schema}}
}

// operation describes one authenticated endpoint. An empty request schema
// means the endpoint takes no body.
func operation(id string, summary string, request string, response string, extra map[string]any) map[string]any {
	op := map[string]any{
		"summary":     summary,
		"operationId": id,
		"security":    []map[string]any{{"bearerAuth": []string{}}},
	}
	responses := map[string]any{
		"200": map[string]any{"description": "OK", "content": jsonContent(ref(response))},
		"401": map[string]any{"description": "Missing or invalid session token"},
		"500": map[string]any{"description": "Server error"},
	}
	for code, desc := range extra {
		responses[code] = desc
	}
	op["responses"] = responses
	if request != "" {
		op["requestBody"] = map[string]any{"required": true, "content": jsonContent(ref(request))}
	}
	return op
}

func idParam(desc string) []map[string]any {
	return []map[string]any{{
		"name":        "id",
		"in":          "path",
		"required":    true,
		"description": desc,
		"schema":      map[string]any{"type": "string"},
	}}
}

func withParams(op map[string]any, params []map[string]any) map[string]any {
	op["parameters"] = params
	return op
}

func openAPISpec(serverURL string) map[string]any {
	badRequest := map[string]any{"400": map[string]any{"description": "Invalid input"}}
	notFound := map[string]any{"404": map[string]any{"description": "Goal not found"}}
	str := map[string]any{"type": "string"}
	dateTime := map[string]any{"type": "string", "format": "date-time"}
	num := map[string]any{"type": "number"}
	integer := map[string]any{"type": "integer"}
	boolean := map[string]any{"type": "boolean"}
	arrayOf := func(items map[string]any) map[string]any {
		return map[string]any{"type": "array", "items": items}
	}
	object := func(props map[string]any) map[string]any {
		return map[string]any{"type": "object", "properties": props}
	}

	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       "The Bridge API",
			"description": "Goal lifecycle, daily task refresh and generation endpoints",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": serverURL},
		},
		"paths": map[string]any{
			"/healthz": map[string]any{
				"get": map[string]any{
					"summary":     "Health check",
					"operationId": "healthz",
					"responses": map[string]any{
						"200": map[string]any{"description": "OK", "content": jsonContent(ref("HealthResponse"))},
					},
				},
			},
			"/api/v1/auth/signup": map[string]any{
				"post": map[string]any{
					"summary":     "Create an account and start a session",
					"operationId": "signUp",
					"requestBody": map[string]any{"required": true, "content": jsonContent(ref("Credentials"))},
					"responses": map[string]any{
						"201": map[string]any{"description": "Created", "content": jsonContent(ref("Session"))},
						"400": map[string]any{"description": "Invalid email or weak password"},
						"409": map[string]any{"description": "User already exists"},
					},
				},
			},
			"/api/v1/auth/signin": map[string]any{
				"post": map[string]any{
					"summary":     "Start a session",
					"operationId": "signIn",
					"requestBody": map[string]any{"required": true, "content": jsonContent(ref("Credentials"))},
					"responses": map[string]any{
						"200": map[string]any{"description": "OK", "content": jsonContent(ref("Session"))},
						"401": map[string]any{"description": "Invalid email or password"},
					},
				},
			},
			"/api/v1/state": map[string]any{
				"get": operation("getState", "Current user state and active goal", "", "StateView", nil),
			},
			"/api/v1/goals": map[string]any{
				"post": operation("createGoal", "Create a goal with plan and images", "CreateGoalRequest", "StateView", badRequest),
			},
			"/api/v1/goals/{id}": map[string]any{
				"delete": withParams(operation("deleteGoal", "Delete a goal permanently", "", "StateView", notFound), idParam("Goal id")),
			},
			"/api/v1/goals/{id}/activate": map[string]any{
				"post": withParams(operation("activateGoal", "Select the active goal", "", "StateView", notFound), idParam("Goal id")),
			},
			"/api/v1/identity/reset": map[string]any{
				"post": operation("resetIdentity", "Forget the shared identity image", "", "StateView", nil),
			},
			"/api/v1/notifications/permission": map[string]any{
				"put": operation("setNotificationPermission", "Grant or revoke reminders", "NotificationPermission", "StateView", nil),
			},
			"/api/v1/tasks": map[string]any{
				"post": operation("addTask", "Add a task to the active goal", "TaskRequest", "StateView", badRequest),
			},
			"/api/v1/tasks/{id}": map[string]any{
				"put":    withParams(operation("editTask", "Edit a task title and description", "TaskRequest", "StateView", badRequest), idParam("Task id")),
				"delete": withParams(operation("deleteTask", "Remove a task", "", "StateView", nil), idParam("Task id")),
			},
			"/api/v1/tasks/{id}/toggle": map[string]any{
				"post": withParams(operation("toggleTask", "Flip a task's completion", "", "StateView", nil), idParam("Task id")),
			},
			"/api/v1/journal": map[string]any{
				"post": operation("addJournalEntry", "Append a journal entry", "JournalRequest", "StateView", nil),
			},
			"/api/v1/chat": map[string]any{
				"put": operation("replaceChatHistory", "Replace the chat history", "ChatHistory", "StateView", nil),
			},
			"/api/v1/chat/messages": map[string]any{
				"post": operation("sendChatMessage", "Send a message to the mentor", "ChatRequest", "ChatResponse", badRequest),
			},
			"/api/v1/daily-actions": map[string]any{
				"post": operation("dailyActions", "Generate a daily plan", "DailyActionsRequest", "DailyActionsResponse", badRequest),
			},
			"/api/v1/trajectory": map[string]any{
				"post": operation("trajectory", "Generate a future-self or stagnation image", "TrajectoryRequest", "TrajectoryResponse", badRequest),
			},
			"/api/v1/predict": map[string]any{
				"post": operation("predict", "Reality check for routine versus goal", "DailyActionsRequest", "PredictResponse", badRequest),
			},
		},
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"bearerAuth": map[string]any{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
			"schemas": map[string]any{
				"HealthResponse": object(map[string]any{"status": str, "generation": boolean}),
				"Credentials":    object(map[string]any{"email": str, "password": str}),
				"Session":        object(map[string]any{"token": str, "user_id": str, "email": str, "expires_at": dateTime}),
				"DailyTask": object(map[string]any{
					"id": str, "title": str, "description": str, "completed": boolean, "impact_score": integer,
				}),
				"JournalEntry": object(map[string]any{"id": str, "date": dateTime, "content": str}),
				"ChatMessage": object(map[string]any{
					"id": str, "role": map[string]any{"type": "string", "enum": []string{"user", "assistant"}}, "text": str, "timestamp": dateTime,
				}),
				"Goal": object(map[string]any{
					"id": str, "title": str, "routine": str,
					"tasks":    arrayOf(ref("DailyTask")),
					"progress": num, "streak": integer, "drift": num,
					"target_date": dateTime, "last_generated_at": dateTime, "created_at": dateTime,
					"future_self_image": str, "current_routine_image": str,
					"journal":            arrayOf(ref("JournalEntry")),
					"chat_history":       arrayOf(ref("ChatMessage")),
					"motivational_quote": str,
				}),
				"UserState": object(map[string]any{
					"shared_identity_image": str,
					"goals":                 arrayOf(ref("Goal")),
					"notifications_granted": boolean,
				}),
				"StateView": object(map[string]any{
					"state":          ref("UserState"),
					"active_goal_id": str,
					"warning":        str,
				}),
				"CreateGoalRequest": object(map[string]any{
					"title": str, "routine": str,
					"target_date": map[string]any{"type": "string", "description": "YYYY-MM-DD or RFC 3339"},
					"image":       map[string]any{"type": "string", "description": "data URL; optional when an identity image is stored"},
				}),
				"TaskRequest":            object(map[string]any{"title": str, "description": str}),
				"JournalRequest":         object(map[string]any{"content": str}),
				"NotificationPermission": object(map[string]any{"granted": boolean}),
				"ChatHistory":            object(map[string]any{"messages": arrayOf(ref("ChatMessage"))}),
				"ChatRequest": object(map[string]any{
					"message": str,
					"mode":    map[string]any{"type": "string", "enum": []string{"normal", "study"}},
				}),
				"ChatResponse": object(map[string]any{"reply": str, "state": ref("StateView")}),
				"DailyActionsRequest": object(map[string]any{
					"routine": str, "goal": str, "dayContext": integer, "daysRemaining": integer,
				}),
				"DailyActionsResponse": object(map[string]any{
					"success": boolean,
					"tasks":   arrayOf(object(map[string]any{"title": str, "description": str, "impactScore": integer})),
					"quote":   str,
				}),
				"TrajectoryRequest": object(map[string]any{
					"imageBase64": str, "routine": str, "goal": str,
					"type": map[string]any{"type": "string", "enum": []string{"FUTURE_SELF", "STAGNATION"}},
				}),
				"TrajectoryResponse": object(map[string]any{"success": boolean, "image": str}),
				"PredictResponse":    object(map[string]any{"success": boolean, "prediction": str}),
			},
		},
	}
}
