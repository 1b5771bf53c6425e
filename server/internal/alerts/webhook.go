package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/config"
)

// payloads renders an alert into the JSON body each webhook type expects.
var payloads = map[string]func(*Alert) interface{}{
	"slack": slackPayload,
	"teams": teamsPayload,
	"http":  func(a *Alert) interface{} { return map[string]interface{}{"alert": a} },
}

// notify posts a to every target with a resolvable URL. Failures are logged.
func (e *Engine) notify(targets []config.WebhookConfig, a *Alert) {
	for _, t := range targets {
		url := t.URL()
		render, ok := payloads[t.Type]
		if url == "" || !ok {
			continue
		}
		log := slog.With("webhook", t.Type, "rule", a.RuleName, "state", a.State)
		if err := e.post(url, render(a)); err != nil {
			log.Error("alerts: webhook delivery failed", "err", err)
			continue
		}
		log.Debug("alerts: webhook delivered")
	}
}

func (e *Engine) post(url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	resp, err := e.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %s", resp.Status)
	}
	return nil
}

// headline is the one-line summary used by chat integrations.
func headline(a *Alert) string {
	if a.State == StateResolved {
		return fmt.Sprintf("Resolved: %s on route %s", a.RuleName, a.RouteKey)
	}
	return fmt.Sprintf("%s: %s on route %s", a.Severity, a.RuleName, a.RouteKey)
}

func slackPayload(a *Alert) interface{} {
	return map[string]string{"text": fmt.Sprintf("*%s*\n%s", headline(a), a.Message)}
}

func teamsPayload(a *Alert) interface{} {
	color := "2E7D32" // resolved
	if a.State == StateFiring {
		switch a.Severity {
		case "critical":
			color = "C62828"
		case "warning":
			color = "F9A825"
		default:
			color = "1565C0"
		}
	}
	return map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": color,
		"summary":    headline(a),
		"title":      headline(a),
		"sections": []map[string]interface{}{{
			"text": a.Message,
			"facts": []map[string]string{
				{"name": "Route", "value": a.RouteID},
				{"name": "Key", "value": a.RouteKey},
				{"name": "Value", "value": fmt.Sprintf("%g", a.Value)},
			},
		}},
	}
}
