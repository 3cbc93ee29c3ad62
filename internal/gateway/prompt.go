package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"bridge/internal/accounting"
	"bridge/internal/llm"
	"bridge/internal/model"
)

var ErrEmptyPlan = errors.New("plan contains no usable tasks")

const (
	planSystemInstruction = "You are a ruthless productivity algorithm. Return ONLY JSON."

	mentorInstruction = "You are a mentor and strategist inside the app 'The Bridge'. Help the user achieve their goals, discuss study topics, and keep them motivated. Be concise, direct, and encouraging but realistic."

	studyInstruction = `You are an academic tutor and subject matter expert in 'Study Mode'.
Your goal is to provide structured, distraction-free learning paths related to the user's goal.
- Do not use conversational filler or small talk.
- Use bullet points, numbered lists, and clear headings.
- Focus strictly on factual information, methodologies, and study plans.
- Break down complex concepts into digestible steps.`

	predictInstruction = "You are the AI engine for 'The Bridge'. You are a ruthless, stoic, high-contrast motivator. Be direct. No fluff. Use data-driven language. Create urgency."

	stagnationYears = 5
)

func BuildPlanPrompt(routine string, goal string, dayIndex int, daysRemaining int) string {
	phase := ComputePhase(dayIndex, daysRemaining)
	urgency := ComputeUrgency(daysRemaining)
	return fmt.Sprintf(`Analyze the gap between the user's current routine and their goal.
Current Routine: %q
Goal: %q
Context: Day %d of the journey.
Time Remaining: %d days.
Urgency Level: %s.

PROGRESSION PHASE: %s (%d%% complete).
DIFFICULTY INSTRUCTION: %s

Create a concrete, actionable daily to-do list (max 5 items) for TODAY.
Return ONLY valid JSON with fields: tasks (array of {title, description, impactScore 1-10}), quote (string).
No markdown formatting. No introductory text.
Since urgency is %s and phase is %s, strictly adhere to the difficulty instruction.
Also provide a short, punchy, dark-themed motivational quote.`,
		strings.TrimSpace(routine),
		strings.TrimSpace(goal),
		dayIndex,
		daysRemaining,
		urgency,
		phase.Name,
		int(math.Round(phase.Ratio*100)),
		phase.Directive,
		urgency,
		phase.Name,
	)
}

func buildImagePrompt(kind ImageKind, subject string) string {
	subject = strings.TrimSpace(subject)
	if kind == ImageStagnation {
		return fmt.Sprintf(`Show this person %d years in the future if they rigidly stick to this current daily routine: %q without changing anything.
The style should be: High contrast, black and white, gritty, film noir.
The person should look slightly weary, stagnant, stuck in a loop, unfulfilled, or bored.
Keep facial features recognizable but reflect the lack of progress.
Background should be mundane, cluttered, or confining.`, stagnationYears, subject)
	}
	return fmt.Sprintf(`Transform this person into their future self who has achieved this goal: %q.
The style should be: High contrast, cinematic lighting, black and white or muted desaturated colors, epic, successful, stoic, powerful.
Keep the facial features recognizable but enhanced by success (better grooming, confident posture, appropriate attire for the goal).
Background should be abstract dark or minimal.`, subject)
}

func buildPredictPrompt(routine string, goal string, daysRemaining int) string {
	return fmt.Sprintf(`User Routine: %q
User Goal: %q
Time Remaining: %d days.

Analyze the trajectory. If they keep this routine, will they reach the goal?
Provide a percentage probability of success and a 2-sentence reality check.`,
		strings.TrimSpace(routine), strings.TrimSpace(goal), daysRemaining)
}

// ParsePlan decodes a model response into a usable plan. Tasks without a
// title are dropped and impact scores are clamped to the valid range.
func ParsePlan(content string) (model.Plan, error) {
	var parsed struct {
		Tasks []struct {
			Title       string  `json:"title"`
			Description string  `json:"description"`
			ImpactScore float64 `json:"impactScore"`
		} `json:"tasks"`
		Quote string `json:"quote"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSONPayload(content)), &parsed); err != nil {
		return model.Plan{}, fmt.Errorf("parse plan: %w", err)
	}

	plan := model.Plan{
		Tasks: make([]model.PlanTask, 0, len(parsed.Tasks)),
		Quote: strings.TrimSpace(parsed.Quote),
	}
	for _, task := range parsed.Tasks {
		title := strings.TrimSpace(task.Title)
		if title == "" {
			continue
		}
		plan.Tasks = append(plan.Tasks, model.PlanTask{
			Title:       title,
			Description: strings.TrimSpace(task.Description),
			ImpactScore: accounting.ClampImpact(int(math.Round(task.ImpactScore))),
		})
	}
	if len(plan.Tasks) == 0 {
		return model.Plan{}, ErrEmptyPlan
	}
	if plan.Quote == "" {
		plan.Quote = fallbackQuote
	}
	return plan, nil
}
