package advisory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Sources reported in Result.Source.
const (
	SourceSimulation = "simulation"
	SourceDisabled   = "disabled"
	SourceProvider   = "provider"
	SourceFallback   = "fallback"
)

const (
	simulationPrefix = "Gemini API Key missing. Simulation: "
	unavailableNote  = "AI analysis unavailable. Safety score is based on community reports from women travelers."

	noteSafe     = "This route is well-lit and populated. It is the recommended choice for safety."
	noteCaution  = "Caution: This route has poor lighting and isolation. Avoid if traveling alone at night."
	noteModerate = "Moderate risk. Stay alert and keep to main paths where possible."
)

// Provider generates text for a prompt.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Request describes the route being analysed.
type Request struct {
	RouteID     string
	Features    []string
	SafetyScore float64
}

// Result is the advisory text and how it was produced.
type Result struct {
	Analysis string
	Source   string
}

// Advisor decides how to answer an advisory request.
type Advisor struct {
	provider Provider
	enabled  bool
}

// New returns an Advisor. A nil provider means no key is configured.
// enabled gates calls to a non-nil provider.
func New(p Provider, enabled bool) *Advisor {
	return &Advisor{provider: p, enabled: enabled}
}

// Analyze returns the safety note for req.
func (a *Advisor) Analyze(ctx context.Context, req Request) Result {
	if a.provider == nil {
		return Result{Analysis: simulationPrefix + cannedNote(req.SafetyScore), Source: SourceSimulation}
	}
	if !a.enabled {
		return Result{Analysis: unavailableNote, Source: SourceDisabled}
	}

	text, err := a.provider.Generate(ctx, Prompt(req))
	if err != nil {
		slog.Warn("advisory: provider failed, using fallback",
			"route_id", req.RouteID, "err", err)
		return Result{Analysis: unavailableNote, Source: SourceFallback}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		slog.Warn("advisory: provider returned empty text", "route_id", req.RouteID)
		return Result{Analysis: unavailableNote, Source: SourceFallback}
	}
	return Result{Analysis: text, Source: SourceProvider}
}

// Prompt builds the text-generation prompt for req.
func Prompt(req Request) string {
	return fmt.Sprintf(`Act as a safety expert for a pedestrian navigation app.
Analyze the following route attributes:
- Safety Score: %s/100
- Environmental Features: %s

Provide a concise (2-3 sentences) safety advice warning or recommendation for a user walking this route alone at night.`,
		formatScore(req.SafetyScore), strings.Join(req.Features, ", "))
}

// cannedNote picks the simulated note for a score.
func cannedNote(score float64) string {
	switch {
	case score > 80:
		return noteSafe
	case score < 50:
		return noteCaution
	default:
		return noteModerate
	}
}

func formatScore(s float64) string {
	if s == float64(int64(s)) {
		return fmt.Sprintf("%d", int64(s))
	}
	return fmt.Sprintf("%.1f", s)
}
