package bootstrap

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/nutri-agenda/internal/config"
	"github.com/wolfman30/nutri-agenda/internal/plans"
	"github.com/wolfman30/nutri-agenda/pkg/logging"
)

// PlanLLM is the drafting client plus whatever must be released on shutdown.
type PlanLLM struct {
	Client   plans.LLMClient
	Provider string
	closers  []func() error
}

// Close releases provider connections.
func (p *PlanLLM) Close() error {
	if p == nil {
		return nil
	}
	var firstErr error
	for _, c := range p.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BuildPlanLLM wires Gemini as the primary drafting provider and Bedrock as the fallback.
// Either may be absent. With neither configured it returns nil and plan drafting is off.
func BuildPlanLLM(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (*PlanLLM, error) {
	if logger == nil {
		logger = logging.Default()
	}

	var (
		out      PlanLLM
		primary  plans.LLMClient
		fallback plans.LLMClient
	)

	if key := strings.TrimSpace(cfg.GeminiAPIKey); key != "" {
		gemini, err := plans.NewGeminiLLMClient(ctx, key, cfg.GeminiModelID)
		if err != nil {
			return nil, err
		}
		out.closers = append(out.closers, gemini.Close)
		primary = gemini
		out.Provider = "gemini"
	}

	if model := strings.TrimSpace(cfg.BedrockModelID); model != "" && awsCfg != nil {
		bedrock := plans.NewBedrockLLMClient(bedrockruntime.NewFromConfig(*awsCfg), model)
		if primary == nil {
			primary = bedrock
			out.Provider = "bedrock"
		} else {
			fallback = bedrock
			out.Provider = "gemini+bedrock"
		}
	}

	if primary == nil {
		logger.Warn("no plan drafting provider configured, set GEMINI_API_KEY or BEDROCK_MODEL_ID")
		return nil, nil
	}

	out.Client = plans.NewFallbackLLMClient(primary, fallback, logger)
	logger.Info("plan drafting enabled", "provider", out.Provider)
	return &out, nil
}
