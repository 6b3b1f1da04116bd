// Package insights asks a generative model for commentary on the current
// expense totals. The response is returned verbatim.
package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
)

const (
	DefaultModel    = "gemini-2.5-flash"
	DefaultTimeout  = 30 * time.Second
	DefaultCacheTTL = 10 * time.Minute
	cacheSize       = 32
)

// ErrNoExpenses is returned when there is nothing to analyze.
var ErrNoExpenses = errors.New("no expenses recorded")

// Generator sends a prompt to a model and returns its text.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Config configures the insights service.
type Config struct {
	Model    string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Result is a model answer plus whether it came from the cache.
type Result struct {
	Text        string
	Model       string
	Cached      bool
	GeneratedAt time.Time
}

type Service struct {
	gen     Generator
	model   string
	timeout time.Duration
	cache   *cache.LRUCache[Result]
}

func NewService(gen Generator, cfg Config) *Service {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	s := &Service{
		gen:     gen,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
	if cfg.CacheTTL > 0 {
		s.cache = cache.NewLRUCache[Result](cacheSize, cfg.CacheTTL)
	}
	return s
}

// Cache exposes the response cache so a janitor can expire it. Nil when
// caching is disabled.
func (s *Service) Cache() *cache.LRUCache[Result] { return s.cache }

// Insights makes one bounded request for summary. Failures are wrapped in
// core.CollaboratorError and never retried.
func (s *Service) Insights(ctx context.Context, summary core.Summary) (Result, error) {
	if summary.GrandTotal.Cents <= 0 {
		return Result{}, ErrNoExpenses
	}
	if s.gen == nil {
		return Result{}, &core.CollaboratorError{Collaborator: "insights", Err: errors.New("no model configured")}
	}

	key := cacheKey(s.model, summary)
	if s.cache != nil {
		if r, ok := s.cache.Get(key); ok {
			r.Cached = true
			return r, nil
		}
	}

	prompt, err := BuildPrompt(summary)
	if err != nil {
		return Result{}, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	text, err := s.gen.Generate(reqCtx, s.model, prompt)
	if err != nil {
		slog.ErrorContext(ctx, "Insights request failed", "model", s.model, "error", err)
		return Result{}, &core.CollaboratorError{Collaborator: "insights", Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, &core.CollaboratorError{Collaborator: "insights", Err: fmt.Errorf("empty response from model")}
	}

	slog.InfoContext(ctx, "Insights generated",
		"model", s.model,
		"duration", time.Since(start),
		"chars", len(text))

	r := Result{Text: text, Model: s.model, GeneratedAt: time.Now()}
	if s.cache != nil {
		s.cache.Set(key, r)
	}
	return r, nil
}
