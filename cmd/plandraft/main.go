// Command plandraft drafts one nutrition plan from the command line with the configured
// providers, to check keys and prompts without running the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/nutri-agenda/cmd/mainconfig"
	"github.com/wolfman30/nutri-agenda/internal/app/bootstrap"
	appconfig "github.com/wolfman30/nutri-agenda/internal/config"
	"github.com/wolfman30/nutri-agenda/internal/plans"
	"github.com/wolfman30/nutri-agenda/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var (
		prompt   = flag.String("prompt", "", "prompt text; when empty one is built from the profile flags")
		name     = flag.String("name", "Paciente", "patient name")
		weight   = flag.Float64("weight", 0, "weight in kg (0 = unknown)")
		height   = flag.Float64("height", 0, "height in cm (0 = unknown)")
		goal     = flag.String("goal", "", "short-term goal")
		allergy  = flag.String("allergies", "", "comma-separated allergies")
		timeout  = flag.Duration("timeout", 60*time.Second, "request timeout")
		showOnly = flag.Bool("show-prompt", false, "print the prompt and exit")
	)
	flag.Parse()

	text := strings.TrimSpace(*prompt)
	if text == "" {
		profile := plans.PatientProfile{Name: *name, ShortTermGoal: *goal, Allergies: strings.Split(*allergy, ",")}
		if *weight > 0 {
			profile.WeightKg = weight
		}
		if *height > 0 {
			profile.HeightCm = height
		}
		text = plans.DefaultPrompt(profile)
	}
	if *showOnly {
		fmt.Println(text)
		return
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("load AWS config: %v", err)
	}
	llm, err := bootstrap.BuildPlanLLM(ctx, cfg, &awsCfg, logger)
	if err != nil {
		log.Fatalf("build LLM client: %v", err)
	}
	if llm == nil {
		log.Fatal("set GEMINI_API_KEY or BEDROCK_MODEL_ID")
	}
	defer llm.Close()

	temperature := float32(cfg.PlanTemperature)
	drafter := plans.NewDrafter(llm.Client, nil, nil, nil, logger, plans.DrafterConfig{
		SystemPrompt: cfg.PlanSystemPrompt,
		MaxTokens:    int32(cfg.PlanMaxTokens),
		Temperature:  &temperature,
	})

	start := time.Now()
	draft, err := drafter.Draft(ctx, plans.DraftRequest{Prompt: text})
	if err != nil {
		fmt.Fprintf(os.Stderr, "draft failed after %v: %v\n", time.Since(start).Round(time.Millisecond), err)
		os.Exit(1)
	}
	fmt.Printf("provider: %s (%v)\n\n%s\n", llm.Provider, time.Since(start).Round(time.Millisecond), draft.Plan)
}
