package plans

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/nutri-agenda/pkg/logging"
)

type recordingLLM struct {
	reqs []LLMRequest
	resp LLMResponse
	err  error
}

func (r *recordingLLM) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	r.reqs = append(r.reqs, req)
	return r.resp, r.err
}

type draftObservation struct {
	source, outcome string
}

type fakeDraftRecorder struct {
	seen []draftObservation
}

func (f *fakeDraftRecorder) ObserveDraft(source, outcome string, seconds float64) {
	f.seen = append(f.seen, draftObservation{source, outcome})
}

func TestDrafter_DefaultSettings(t *testing.T) {
	llm := &recordingLLM{resp: LLMResponse{Text: "Desayuno: avena"}}
	d := NewDrafter(llm, nil, nil, nil, logging.New("error"), DrafterConfig{})

	draft, err := d.Draft(context.Background(), DraftRequest{Prompt: "  plan para Ana  "})
	require.NoError(t, err)
	assert.Equal(t, "Desayuno: avena", draft.Plan)
	assert.False(t, draft.Cached)

	require.Len(t, llm.reqs, 1)
	req := llm.reqs[0]
	assert.Equal(t, []string{DefaultSystemPrompt}, req.System)
	assert.Equal(t, []ChatMessage{{Role: ChatRoleUser, Content: "plan para Ana"}}, req.Messages)
	assert.Equal(t, int32(200), req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 1e-6)
}

func TestDrafter_MissingPrompt(t *testing.T) {
	llm := &recordingLLM{}
	d := NewDrafter(llm, nil, nil, nil, logging.New("error"), DrafterConfig{})

	_, err := d.Draft(context.Background(), DraftRequest{Prompt: " \n "})
	require.ErrorIs(t, err, ErrMissingPrompt)

	_, err = d.Draft(context.Background(), DraftRequest{Prompt: strings.Repeat("a", maxPromptRunes+1)})
	require.ErrorIs(t, err, ErrPromptTooLong)

	assert.Empty(t, llm.reqs)
}

func TestDrafter_QuotaExceeded(t *testing.T) {
	llm := &recordingLLM{err: fmt.Errorf("%w: gemini", ErrQuotaExceeded)}
	metrics := &fakeDraftRecorder{}
	d := NewDrafter(llm, nil, nil, metrics, logging.New("error"), DrafterConfig{})

	_, err := d.Draft(context.Background(), DraftRequest{Prompt: "plan"})
	require.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, []draftObservation{{"llm", "quota"}}, metrics.seen)
}

func TestDrafter_CachesAndArchives(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour)
	s3api := &fakeS3{}
	llm := &recordingLLM{resp: LLMResponse{Text: "avena", Usage: TokenUsage{OutputTokens: 10}}}
	metrics := &fakeDraftRecorder{}
	d := NewDrafter(llm, cache, NewArchive(s3api, "nutri-plans", nil), metrics, logging.New("error"), DrafterConfig{})

	first, err := d.Draft(context.Background(), DraftRequest{Prompt: "plan"})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := d.Draft(context.Background(), DraftRequest{Prompt: "plan"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "avena", second.Plan)

	assert.Len(t, llm.reqs, 1)
	assert.Len(t, s3api.puts, 1)
	assert.Equal(t, []draftObservation{{"llm", "ok"}, {"cache", "ok"}}, metrics.seen)
}

func TestDrafter_ArchiveFailureDoesNotFailDraft(t *testing.T) {
	llm := &recordingLLM{resp: LLMResponse{Text: "avena"}}
	archive := NewArchive(&fakeS3{err: errors.New("denied")}, "nutri-plans", nil)
	d := NewDrafter(llm, nil, archive, nil, logging.New("error"), DrafterConfig{})

	draft, err := d.Draft(context.Background(), DraftRequest{Prompt: "plan"})
	require.NoError(t, err)
	assert.Equal(t, "avena", draft.Plan)
}

func TestDrafter_CustomSettings(t *testing.T) {
	llm := &recordingLLM{resp: LLMResponse{Text: "x"}}
	temp := float32(0)
	d := NewDrafter(llm, nil, nil, nil, nil, DrafterConfig{
		SystemPrompt: "Eres nutriólogo.",
		Model:        "gemini-2.5-pro",
		MaxTokens:    800,
		Temperature:  &temp,
	})

	_, err := d.Draft(context.Background(), DraftRequest{Prompt: "plan"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", llm.reqs[0].Model)
	assert.Equal(t, []string{"Eres nutriólogo."}, llm.reqs[0].System)
	assert.Equal(t, int32(800), llm.reqs[0].MaxTokens)
	assert.Zero(t, llm.reqs[0].Temperature)
}
