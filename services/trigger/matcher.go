// Package trigger picks the support flow that should open a new conversation, based on the
// thread's tag and title.
package trigger

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Revoa-ux/revoa-app-sub007/services/flow"
)

//go:embed triggers.yaml
var defaultTable []byte

// Rule maps keywords to a flow category.
type Rule struct {
	Category  string   `yaml:"category" json:"category"`
	Keywords  []string `yaml:"keywords" json:"keywords"`
	AutoStart bool     `yaml:"autoStart" json:"autoStart"`
}

// DefaultRules returns the built-in trigger table.
func DefaultRules() ([]Rule, error) {
	return LoadRules(defaultTable)
}

// LoadRules decodes a YAML trigger table.
func LoadRules(data []byte) ([]Rule, error) {
	var rules []Rule
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&rules); err != nil {
		return nil, fmt.Errorf("decode trigger table: %w", err)
	}
	return rules, nil
}

var tagAliases = map[string]string{
	"damaged": "damage",
	"cancel":  "cancel_modify",
	"modify":  "cancel_modify",
}

// NormalizeTag lowercases a tag and applies the alias table.
func NormalizeTag(tag string) string {
	t := strings.ToLower(strings.TrimSpace(tag))
	if alias, ok := tagAliases[t]; ok {
		return alias
	}
	return t
}

// How a match was found.
const (
	ByTag        = "tag"
	ByTagKeyword = "tag_keyword"
	ByTitle      = "title"
)

// Match is the category selected for a thread.
type Match struct {
	Category  string `json:"category"`
	AutoStart bool   `json:"autoStart"`
	MatchedBy string `json:"matchedBy"`
}

// Classify tries tag equality, then tag keywords, then title keywords. Returns nil when
// nothing matches.
func Classify(rules []Rule, tag, title string) *Match {
	normalized := NormalizeTag(tag)
	if normalized != "" {
		for _, r := range rules {
			if r.Category == normalized {
				return &Match{Category: r.Category, AutoStart: r.AutoStart, MatchedBy: ByTag}
			}
		}
		if r := firstKeywordMatch(rules, normalized); r != nil {
			return &Match{Category: r.Category, AutoStart: r.AutoStart, MatchedBy: ByTagKeyword}
		}
	}

	if r := firstKeywordMatch(rules, strings.ToLower(title)); r != nil {
		return &Match{Category: r.Category, AutoStart: r.AutoStart, MatchedBy: ByTitle}
	}
	return nil
}

func firstKeywordMatch(rules []Rule, text string) *Rule {
	if text == "" {
		return nil
	}
	for i := range rules {
		for _, kw := range rules[i].Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				return &rules[i]
			}
		}
	}
	return nil
}

// Suggestion is the flow proposed for a thread.
type Suggestion struct {
	Match
	FlowID   string `json:"flowId"`
	FlowName string `json:"flowName"`
	Version  int    `json:"version"`
}

// Starter starts flow sessions.
type Starter interface {
	Start(ctx context.Context, threadID, flowID string) (*flow.Step, error)
}

// Matcher resolves suggestions against the flow catalog.
type Matcher struct {
	rules   []Rule
	catalog flow.Catalog
	starter Starter
}

// NewMatcher creates a Matcher. starter may be nil when auto-start is not used.
func NewMatcher(rules []Rule, catalog flow.Catalog, starter Starter) *Matcher {
	return &Matcher{rules: rules, catalog: catalog, starter: starter}
}

// Suggest returns the newest active flow of the matched category, or nil.
func (m *Matcher) Suggest(ctx context.Context, tag, title string) (*Suggestion, error) {
	match := Classify(m.rules, tag, title)
	if match == nil {
		return nil, nil
	}

	defs, err := m.catalog.ActiveFlowsByCategory(ctx, match.Category)
	if err != nil {
		return nil, fmt.Errorf("list flows for %s: %w", match.Category, err)
	}
	if len(defs) == 0 {
		slog.Debug("No active flow for matched category", "category", match.Category)
		return nil, nil
	}

	best := defs[0]
	return &Suggestion{Match: *match, FlowID: best.ID, FlowName: best.Name, Version: best.Version}, nil
}

// Outcome is the result of AutoStart. Step is nil when no session was started.
type Outcome struct {
	Suggestion *Suggestion `json:"suggestion"`
	Step       *flow.Step  `json:"step,omitempty"`
}

// AutoStart suggests a flow and starts it on the thread when the matched rule allows it.
func (m *Matcher) AutoStart(ctx context.Context, threadID, tag, title string) (*Outcome, error) {
	s, err := m.Suggest(ctx, tag, title)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Suggestion: s}
	if s == nil || !s.AutoStart || m.starter == nil {
		return out, nil
	}

	step, err := m.starter.Start(ctx, threadID, s.FlowID)
	if err != nil {
		return nil, fmt.Errorf("auto-start %s: %w", s.FlowID, err)
	}
	slog.Info("Auto-started flow", "threadId", threadID, "flowId", s.FlowID, "matchedBy", s.MatchedBy)
	out.Step = step
	return out, nil
}
