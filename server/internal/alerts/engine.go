package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/config"
)

const (
	defaultCooldown = 15 * time.Minute
	defaultSeverity = "warning"

	// resolved alerts stay visible in Active for this long
	resolvedRetention = time.Hour
	maxResolved       = 200
)

const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert is one firing or resolved rule match on a route key.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	RouteKey   string     `json:"route_key"`
	RouteID    string     `json:"route_id"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"`
}

// Recorder observes alert transitions. metrics.Registry satisfies it.
type Recorder interface {
	Alert(state string)
}

// Engine matches route states against the configured rules. An alert fires
// once per (rule, route key) and stays firing until the condition clears;
// after that the rule's cooldown must pass before it can fire again.
//
// Engine is safe for concurrent use.
type Engine struct {
	rec    Recorder
	client *http.Client
	now    func() time.Time
	wg     sync.WaitGroup

	mu        sync.Mutex
	rules     []config.AlertRule
	webhooks  []config.WebhookConfig
	firing    map[string]*Alert
	lastFired map[string]time.Time
	resolved  []*Alert
}

// New creates an Engine from the alert configuration. rec may be nil.
func New(cfg config.AlertsConfig, rec Recorder) *Engine {
	return &Engine{
		rec:       rec,
		client:    &http.Client{Timeout: 10 * time.Second},
		now:       time.Now,
		rules:     cfg.Rules,
		webhooks:  cfg.Webhooks,
		firing:    make(map[string]*Alert),
		lastFired: make(map[string]time.Time),
	}
}

// SetConfig swaps rules and webhook targets. Alerts of removed rules are
// dropped silently.
func (e *Engine) SetConfig(cfg config.AlertsConfig) {
	keep := make(map[string]bool, len(cfg.Rules))
	for _, r := range cfg.Rules {
		keep[r.Name] = true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = cfg.Rules
	e.webhooks = cfg.Webhooks
	for k, a := range e.firing {
		if !keep[a.RuleName] {
			delete(e.firing, k)
		}
	}
}

// Evaluate checks every rule against st, firing or resolving alerts as
// needed. Webhooks are delivered in the background.
func (e *Engine) Evaluate(st RouteState) {
	e.mu.Lock()
	rules := e.rules
	e.mu.Unlock()

	now := e.now()
	for _, rule := range rules {
		matched, value := evalCondition(rule.Condition, st)

		var a *Alert
		if matched {
			a = e.fire(rule, st, value, now)
		} else {
			a = e.resolve(rule.Name+":"+st.Key, now)
		}
		if a != nil {
			e.dispatch(a)
		}
	}
}

// fire records a new alert and returns a copy of it, or nil when the rule is
// already firing for this key or still cooling down.
func (e *Engine) fire(rule config.AlertRule, st RouteState, value float64, now time.Time) *Alert {
	key := rule.Name + ":" + st.Key
	cooldown := rule.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	severity := rule.Severity
	if severity == "" {
		severity = defaultSeverity
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.firing[key]; ok {
		return nil
	}
	if last, ok := e.lastFired[key]; ok && now.Sub(last) <= cooldown {
		return nil
	}

	a := &Alert{
		ID:       uuid.NewString(),
		RuleName: rule.Name,
		RouteKey: st.Key,
		RouteID:  st.RouteID,
		Severity: severity,
		Value:    value,
		Message:  fmt.Sprintf("%s on %s: %s (value %g, level %s)", rule.Name, st.Key, rule.Condition, value, st.Level),
		FiredAt:  now,
		State:    StateFiring,
	}
	e.firing[key] = a
	e.lastFired[key] = now

	slog.Warn("alerts: rule fired",
		"rule", rule.Name, "route_key", st.Key, "value", value, "severity", severity)
	cp := *a
	return &cp
}

// resolve clears a firing alert and returns a copy, or nil if nothing was
// firing under key.
func (e *Engine) resolve(key string, now time.Time) *Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.firing[key]
	if !ok {
		return nil
	}
	delete(e.firing, key)
	a.State = StateResolved
	a.ResolvedAt = &now

	e.resolved = append(e.resolved, a)
	if n := len(e.resolved); n > maxResolved {
		e.resolved = e.resolved[n-maxResolved:]
	}

	slog.Info("alerts: rule resolved", "rule", a.RuleName, "route_key", a.RouteKey)
	cp := *a
	return &cp
}

// Active returns copies of the firing alerts and of alerts resolved within
// the last hour, newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-resolvedRetention)
	out := make([]*Alert, 0, len(e.firing))
	for _, a := range e.firing {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.resolved {
		if a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// Wait blocks until in-flight webhook deliveries finish.
func (e *Engine) Wait() { e.wg.Wait() }

func (e *Engine) dispatch(a *Alert) {
	if e.rec != nil {
		e.rec.Alert(a.State)
	}
	e.mu.Lock()
	targets := e.webhooks
	e.mu.Unlock()
	if len(targets) == 0 {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.notify(targets, a)
	}()
}
