package gateway

import "bridge/internal/model"

const (
	fallbackQuote      = "Chaos is not an excuse. Adapt."
	fallbackChatReply  = "Connection to the bridge interrupted."
	emptyChatReply     = "I'm focusing on your goal. Try again."
	fallbackPrediction = "Trajectory analysis unavailable. Execute today's directives and measure again tomorrow."
)

// EmergencyPlan is served whenever plan generation times out or fails.
func EmergencyPlan() model.Plan {
	return model.Plan{
		Tasks: []model.PlanTask{
			{Title: "Manual Override", Description: "AI connection unstable. Set your own tasks today.", ImpactScore: 10},
			{Title: "Review Goal", Description: "Read your primary objective out loud.", ImpactScore: 5},
			{Title: "Hydrate", Description: "Drink water to reset biological functions.", ImpactScore: 3},
		},
		Quote: fallbackQuote,
	}
}
