// Package gateway wraps the generative provider behind fixed deadlines and
// deterministic fallbacks. No method returns an error: a caller always gets a
// usable value.
package gateway

import (
	"context"
	"log"
	"strings"
	"time"

	"bridge/internal/llm"
	"bridge/internal/model"
)

type ImageKind string

const (
	ImageFutureSelf ImageKind = "FUTURE_SELF"
	ImageStagnation ImageKind = "STAGNATION"
)

type ChatMode string

const (
	ModeMentor ChatMode = "normal"
	ModeStudy  ChatMode = "study"
)

const (
	DefaultTextTimeout  = 15 * time.Second
	DefaultImageTimeout = 25 * time.Second
)

// Generator is the provider capability; *llm.Client satisfies it.
type Generator interface {
	GenerateText(ctx context.Context, req llm.TextRequest) (string, error)
	Chat(ctx context.Context, req llm.ChatRequest) (string, error)
	GenerateImage(ctx context.Context, req llm.ImageRequest) (string, error)
}

type Config struct {
	TextTimeout  time.Duration
	ImageTimeout time.Duration
}

type Gateway struct {
	gen          Generator
	textTimeout  time.Duration
	imageTimeout time.Duration
}

// New returns a Gateway. A nil gen puts every call on its fallback path.
func New(gen Generator, cfg Config) *Gateway {
	if cfg.TextTimeout <= 0 {
		cfg.TextTimeout = DefaultTextTimeout
	}
	if cfg.ImageTimeout <= 0 {
		cfg.ImageTimeout = DefaultImageTimeout
	}
	return &Gateway{
		gen:          gen,
		textTimeout:  cfg.TextTimeout,
		imageTimeout: cfg.ImageTimeout,
	}
}

func (g *Gateway) Enabled() bool {
	return g != nil && g.gen != nil
}

func (g *Gateway) GenerateTaskPlan(ctx context.Context, routine string, goal string, dayIndex int, daysRemaining int) model.Plan {
	if !g.Enabled() {
		return EmergencyPlan()
	}
	prompt := BuildPlanPrompt(routine, goal, dayIndex, daysRemaining)
	res := Await(ctx, g.textTimeout, func(ctx context.Context) (model.Plan, error) {
		text, err := g.gen.GenerateText(ctx, llm.TextRequest{
			System:      planSystemInstruction,
			Prompt:      prompt,
			JSON:        true,
			Temperature: 0.7,
		})
		if err != nil {
			return model.Plan{}, err
		}
		return ParsePlan(text)
	})
	if !res.OK() {
		log.Printf("gateway plan fallback: outcome=%s day=%d days_remaining=%d err=%v", res.Outcome, dayIndex, daysRemaining, res.Err)
		return EmergencyPlan()
	}
	return res.Value
}

// GenerateImage returns sourceImage unchanged when generation does not
// produce an image in time.
func (g *Gateway) GenerateImage(ctx context.Context, kind ImageKind, sourceImage string, subject string) string {
	if !g.Enabled() || strings.TrimSpace(sourceImage) == "" {
		return sourceImage
	}
	prompt := buildImagePrompt(kind, subject)
	res := Await(ctx, g.imageTimeout, func(ctx context.Context) (string, error) {
		return g.gen.GenerateImage(ctx, llm.ImageRequest{Prompt: prompt, SourceImage: sourceImage})
	})
	if !res.OK() || strings.TrimSpace(res.Value) == "" {
		log.Printf("gateway image fallback: kind=%s outcome=%s err=%v", kind, res.Outcome, res.Err)
		return sourceImage
	}
	return res.Value
}

func (g *Gateway) Converse(ctx context.Context, history []model.ChatMessage, message string, mode ChatMode) string {
	if !g.Enabled() {
		return fallbackChatReply
	}
	system := mentorInstruction
	if mode == ModeStudy {
		system = studyInstruction
	}
	turns := make([]llm.Message, 0, len(history))
	for _, msg := range history {
		role := llm.RoleUser
		if msg.Role == model.ChatRoleAssistant {
			role = llm.RoleModel
		}
		turns = append(turns, llm.Message{Role: role, Text: msg.Text})
	}

	res := Await(ctx, g.textTimeout, func(ctx context.Context) (string, error) {
		return g.gen.Chat(ctx, llm.ChatRequest{System: system, History: turns, Message: message})
	})
	if !res.OK() {
		log.Printf("gateway chat fallback: mode=%s outcome=%s err=%v", mode, res.Outcome, res.Err)
		return fallbackChatReply
	}
	if strings.TrimSpace(res.Value) == "" {
		return emptyChatReply
	}
	return res.Value
}

// PredictOutcome gives a short reality check for routine versus goal.
func (g *Gateway) PredictOutcome(ctx context.Context, routine string, goal string, daysRemaining int) string {
	if !g.Enabled() {
		return fallbackPrediction
	}
	prompt := buildPredictPrompt(routine, goal, daysRemaining)
	res := Await(ctx, g.textTimeout, func(ctx context.Context) (string, error) {
		return g.gen.GenerateText(ctx, llm.TextRequest{System: predictInstruction, Prompt: prompt, Temperature: 0.6})
	})
	if !res.OK() || strings.TrimSpace(res.Value) == "" {
		log.Printf("gateway predict fallback: outcome=%s err=%v", res.Outcome, res.Err)
		return fallbackPrediction
	}
	return strings.TrimSpace(res.Value)
}
