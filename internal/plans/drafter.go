package plans

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/nutri-agenda/pkg/logging"
)

var plansTracer = otel.Tracer("nutri.internal.plans")

const (
	DefaultMaxTokens   int32   = 200
	DefaultTemperature float32 = 0.7

	maxPromptRunes = 8000
)

// DraftRecorder records drafting outcomes.
type DraftRecorder interface {
	ObserveDraft(source, outcome string, seconds float64)
}

// DrafterConfig tunes the completion request. Zero values take the defaults.
type DrafterConfig struct {
	SystemPrompt string
	Model        string
	MaxTokens    int32
	Temperature  *float32
}

// DraftRequest is the body of POST /api/plans/draft.
type DraftRequest struct {
	Prompt string `json:"prompt"`
}

// Validate trims the prompt and rejects an empty or oversized one.
func (r *DraftRequest) Validate() error {
	r.Prompt = strings.TrimSpace(r.Prompt)
	if r.Prompt == "" {
		return ErrMissingPrompt
	}
	if len([]rune(r.Prompt)) > maxPromptRunes {
		return ErrPromptTooLong
	}
	return nil
}

// Draft is a drafted plan.
type Draft struct {
	Plan   string `json:"plan"`
	Cached bool   `json:"cached,omitempty"`
}

// Drafter turns prompts into plan drafts.
type Drafter struct {
	llm     LLMClient
	cache   *DraftCache
	archive *Archive
	metrics DraftRecorder
	logger  *logging.Logger
	cfg     DrafterConfig
}

// NewDrafter creates a drafter. cache, archive and metrics may be nil.
func NewDrafter(llm LLMClient, cache *DraftCache, archive *Archive, metrics DraftRecorder, logger *logging.Logger, cfg DrafterConfig) *Drafter {
	if llm == nil {
		panic("plans: llm client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == nil {
		t := DefaultTemperature
		cfg.Temperature = &t
	}
	return &Drafter{llm: llm, cache: cache, archive: archive, metrics: metrics, logger: logger, cfg: cfg}
}

// Draft returns a plan for req. Quota refusals come back wrapping ErrQuotaExceeded.
func (d *Drafter) Draft(ctx context.Context, req DraftRequest) (*Draft, error) {
	ctx, span := plansTracer.Start(ctx, "plans.draft")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("nutri.prompt_length", len(req.Prompt)))

	llmReq := d.request(req.Prompt)
	started := time.Now()

	if cached, err := d.cache.Get(ctx, llmReq); err != nil {
		d.logger.Warn("plan cache read failed", "error", err)
	} else if cached != nil {
		d.observe("cache", "ok", started)
		span.SetAttributes(attribute.Bool("nutri.cache_hit", true))
		return &Draft{Plan: cached.Plan, Cached: true}, nil
	}

	resp, err := d.llm.Complete(ctx, llmReq)
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrQuotaExceeded) {
			outcome = "quota"
		}
		d.observe("llm", outcome, started)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}
	d.observe("llm", "ok", started)
	span.SetAttributes(
		attribute.Int("nutri.tokens_in", int(resp.Usage.InputTokens)),
		attribute.Int("nutri.tokens_out", int(resp.Usage.OutputTokens)),
	)

	now := time.Now().UTC()
	if err := d.cache.Set(ctx, llmReq, CachedDraft{Plan: resp.Text, DraftedAt: now}); err != nil {
		d.logger.Warn("plan cache write failed", "error", err)
	}
	if _, err := d.archive.Put(ctx, &ArchivedDraft{
		Prompt:      req.Prompt,
		Plan:        resp.Text,
		StopReason:  resp.StopReason,
		Usage:       resp.Usage,
		MaxTokens:   llmReq.MaxTokens,
		Temperature: llmReq.Temperature,
		DraftedAt:   now,
	}); err != nil {
		d.logger.Warn("plan archive failed", "error", err)
	}

	d.logger.Info("plan drafted",
		"prompt_length", len(req.Prompt),
		"output_tokens", resp.Usage.OutputTokens,
		"stop_reason", resp.StopReason,
	)
	return &Draft{Plan: resp.Text}, nil
}

func (d *Drafter) request(prompt string) LLMRequest {
	return LLMRequest{
		Model:       d.cfg.Model,
		System:      []string{d.cfg.SystemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   d.cfg.MaxTokens,
		Temperature: *d.cfg.Temperature,
	}
}

func (d *Drafter) observe(source, outcome string, started time.Time) {
	if d.metrics == nil {
		return
	}
	d.metrics.ObserveDraft(source, outcome, time.Since(started).Seconds())
}
