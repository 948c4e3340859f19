package inference

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/agenthands/cobalt/internal/config"
	"github.com/agenthands/cobalt/internal/core/common"
	"github.com/agenthands/cobalt/internal/core/model"
	"github.com/agenthands/cobalt/internal/llm"
)

// Oracle proposes a unifying hypothesis for an ordered list of claim
// texts. Injected so tests can substitute a deterministic stub.
type Oracle interface {
	Infer(ctx context.Context, claimTexts []string) (*model.OracleProposal, error)
}

const defaultOraclePrompt = `Given the following related claims from different documents, infer the underlying shared hypothesis that these claims collectively support or test.

Claims:
%s

A hypothesis should be:
- A testable prediction or assumption
- More general than the individual claims
- Something that could explain or unify these claims

Return a JSON object with:
- "hypothesis": the inferred hypothesis text
- "confidence": confidence score (0.0-1.0)
- "reasoning": brief explanation of why this hypothesis was inferred

Return only a valid JSON object.`

const retryBackoffCap = 2 * time.Second

// LLMOracle is the production oracle: one chat completion per cluster,
// rate limited, with a small fixed number of retries.
type LLMOracle struct {
	llm         llm.LLMClient
	prompt      string
	limiter     *rate.Limiter
	maxAttempts int
	log         *zap.Logger
}

func NewLLMOracle(client llm.LLMClient, cfg config.InferenceConfig, log *zap.Logger) *LLMOracle {
	if log == nil {
		log = zap.NewNop()
	}
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = defaultOraclePrompt
	}
	return &LLMOracle{
		llm:         client,
		prompt:      prompt,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		maxAttempts: cfg.MaxAttempts,
		log:         log,
	}
}

func (o *LLMOracle) Infer(ctx context.Context, claimTexts []string) (*model.OracleProposal, error) {
	var lines []string
	for i, text := range claimTexts {
		lines = append(lines, fmt.Sprintf("Claim %d: %s", i+1, text))
	}
	prompt := fmt.Sprintf(o.prompt, strings.Join(lines, "\n\n"))

	backoff := 200 * time.Millisecond
	var lastErr error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		proposal, err := o.infer(ctx, prompt)
		if err == nil {
			return proposal, nil
		}
		lastErr = err
		o.log.Warn("oracle attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < o.maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > retryBackoffCap {
				backoff = retryBackoffCap
			}
		}
	}
	return nil, fmt.Errorf("oracle failed after %d attempts: %w", o.maxAttempts, lastErr)
}

func (o *LLMOracle) infer(ctx context.Context, prompt string) (*model.OracleProposal, error) {
	response, err := o.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	proposal, err := common.ParseJSON[model.OracleProposal](response)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(proposal.Text) == "" {
		return nil, fmt.Errorf("oracle returned empty hypothesis text")
	}
	if proposal.Confidence < 0 || proposal.Confidence > 1 {
		return nil, fmt.Errorf("oracle confidence %v outside [0,1]", proposal.Confidence)
	}
	return &proposal, nil
}
