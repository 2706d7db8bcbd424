package transport

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultMaxTokens = 8192
	defaultRateLimit = 1.0
	defaultBurst     = 2
)

// Config contains configuration for creating an AnthropicDelegator.
type Config struct {
	// Model is the Claude model to use.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string
	// MaxTokens caps each reply. Zero uses 8192.
	MaxTokens int64
	// RateLimit is the sustained requests per second. Zero uses 1.
	RateLimit float64
	// Burst is the limiter burst size. Zero uses 2.
	Burst int
	// UseAWSBedrock indicates whether to use AWS Bedrock instead of direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
}

// AnthropicDelegator sends delegation prompts to Claude, playing the
// requested agent through the system prompt.
type AnthropicDelegator struct {
	inner     anthropic.Client
	model     anthropic.Model
	maxTokens int64
	limiter   *rate.Limiter
	usage     *UsageLedger
	logger    *zap.Logger
}

// NewAnthropic creates a delegator backed by the Anthropic API or Bedrock.
func NewAnthropic(cfg Config, logger *zap.Logger) (*AnthropicDelegator, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, ErrNoAPIKey
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_5_20250929
	}
	if cfg.UseAWSBedrock {
		model = BedrockModel(model)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AnthropicDelegator{
		inner:     anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		limiter:   rate.NewLimiter(rate.Limit(limit), burst),
		usage:     NewUsageLedger(),
		logger:    logger,
	}, nil
}

// BedrockModel converts standard Anthropic model names to Bedrock
// cross-region inference profile IDs. Unknown names pass through.
func BedrockModel(model anthropic.Model) anthropic.Model {
	if strings.HasPrefix(string(model), "us.anthropic.") {
		return model
	}
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaudeOpus4_5_20251101:   "us.anthropic.claude-opus-4-5-20251101-v1:0",
		anthropic.ModelClaude3_7Sonnet20250219:  "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}
	if m, ok := bedrockModels[model]; ok {
		return anthropic.Model(m)
	}
	return model
}

// Model returns the configured model name.
func (d *AnthropicDelegator) Model() anthropic.Model {
	return d.model
}

// Usage returns the per-attempt token ledger for this delegator.
func (d *AnthropicDelegator) Usage() *UsageLedger {
	return d.usage
}

// Delegate sends the prompt and concatenates the text blocks of the reply.
func (d *AnthropicDelegator) Delegate(ctx context.Context, req Request) (Response, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return Response{}, fmt.Errorf("%w: rate limiter: %v", ErrTransport, err)
	}

	resp, err := d.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     d.model,
		MaxTokens: d.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: SystemPrompt(req.AgentName)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	d.usage.Record(req, resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var out strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			if out.Len() > 0 {
				out.WriteString("\n")
			}
			out.WriteString(text.Text)
		}
	}

	d.logger.Debug("delegation reply",
		zap.String("agent", req.AgentName),
		zap.Int("attempt", req.Attempt),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
	)

	return Response{
		Output:       out.String(),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// SystemPrompt is the system prompt casting Claude as the named agent.
func SystemPrompt(agentName string) string {
	return fmt.Sprintf(`You are @%s, a specialist subagent receiving a delegated task.

Address every EARS acceptance criterion in the request explicitly. For each
criterion, state how the trigger or condition is handled and what the system
does in response. Use the criterion IDs. Describe validation and error
handling for each behavioral contract.`, agentName)
}
