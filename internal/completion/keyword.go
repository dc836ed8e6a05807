package completion

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nikhilbhutani/livehint/pkg/tokenizer"
)

// GenericResponse is returned when no keyword matches.
const GenericResponse = "I'm not sure about that topic, but it sounds interesting!"

// Rule maps a keyword to a canned recommendation.
type Rule struct {
	Keyword  string `yaml:"keyword"`
	Response string `yaml:"response"`
}

// RuleSet is the on-disk form of a keyword table.
type RuleSet struct {
	Rules    []Rule `yaml:"rules"`
	Fallback string `yaml:"fallback"`
}

// DefaultRules are checked in order; the first match wins.
var DefaultRules = []Rule{
	{Keyword: "politics", Response: "Politics is a process by which groups of people make collective decisions."},
	{Keyword: "history", Response: "History is the study of past events, particularly in human affairs."},
	{Keyword: "technology", Response: "Technology refers to the application of scientific knowledge for practical purposes."},
	{Keyword: "science", Response: "Science is a systematic enterprise that builds and organizes knowledge."},
}

// KeywordMatcher answers from a fixed keyword table without any network call.
type KeywordMatcher struct {
	rules    []Rule
	fallback string
}

// NewKeywordMatcher builds a matcher. Nil rules select DefaultRules and an
// empty fallback selects GenericResponse.
func NewKeywordMatcher(rules []Rule, fallback string) *KeywordMatcher {
	if rules == nil {
		rules = DefaultRules
	}
	if fallback == "" {
		fallback = GenericResponse
	}
	m := &KeywordMatcher{fallback: fallback, rules: make([]Rule, len(rules))}
	for i, r := range rules {
		m.rules[i] = Rule{Keyword: strings.ToLower(r.Keyword), Response: r.Response}
	}
	return m
}

func (m *KeywordMatcher) Name() string { return "keyword" }

// Match returns the response of the first rule whose keyword occurs in text,
// compared case-insensitively, or the fallback.
func (m *KeywordMatcher) Match(text string) string {
	lower := strings.ToLower(text)
	for _, r := range m.rules {
		if strings.Contains(lower, r.Keyword) {
			return r.Response
		}
	}
	return m.fallback
}

func (m *KeywordMatcher) Complete(_ context.Context, text string) (*Result, error) {
	start := time.Now()
	out := m.Match(text)
	in, outTokens := tokenizer.CountTokens(text), tokenizer.CountTokens(out)
	return &Result{
		Text:         out,
		Provider:     "keyword",
		Model:        "keyword",
		InputTokens:  in,
		OutputTokens: outTokens,
		TotalTokens:  in + outTokens,
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}

// LoadRules reads a YAML keyword table:
//
//	fallback: "..."
//	rules:
//	  - keyword: weather
//	    response: "..."
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword rules: %w", err)
	}
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse keyword rules %s: %w", path, err)
	}
	if len(rs.Rules) == 0 {
		return nil, fmt.Errorf("keyword rules %s: no rules defined", path)
	}
	for i, r := range rs.Rules {
		if strings.TrimSpace(r.Keyword) == "" {
			return nil, fmt.Errorf("keyword rules %s: rule %d has an empty keyword", path, i)
		}
		if r.Response == "" {
			return nil, fmt.Errorf("keyword rules %s: rule %q has an empty response", path, r.Keyword)
		}
	}
	return &rs, nil
}
