// Package bedrock adapts the AWS Bedrock Converse API for chat.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/papercomputeco/genrelay/pkg/llm"
)

const (
	Name = "bedrock"

	DefaultRegion = "us-east-1"
	DefaultModel  = "us.anthropic.claude-haiku-4-5-20251001-v1:0"
)

// ConverseAPI is the slice of the Bedrock runtime client the adapter uses.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type Options struct {
	Region string
	Model  string
	Logger *zap.Logger
}

// Provider sends chat requests through Bedrock Converse.
type Provider struct {
	api    ConverseAPI
	opts   Options
	logger *zap.Logger
}

// New loads the default AWS credential chain for the configured region and
// creates a Bedrock runtime client.
func New(ctx context.Context, opts Options) (*Provider, error) {
	if opts.Region == "" {
		opts.Region = DefaultRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return NewWithClient(bedrockruntime.NewFromConfig(cfg), opts), nil
}

// NewWithClient creates an adapter around an existing Converse client.
func NewWithClient(api ConverseAPI, opts Options) *Provider {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{api: api, opts: opts, logger: logger.With(zap.String("provider", Name))}
}

func (p *Provider) Name() string {
	return Name
}

func toRole(r llm.Role) types.ConversationRole {
	switch r {
	case llm.RoleAssistant:
		return types.ConversationRoleAssistant
	default:
		return types.ConversationRoleUser
	}
}

func fromRole(r types.ConversationRole) llm.Role {
	switch r {
	case types.ConversationRoleAssistant:
		return llm.RoleAssistant
	default:
		return llm.RoleUser
	}
}

func toMessages(turns []llm.Turn) []types.Message {
	messages := make([]types.Message, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, types.Message{
			Role:    toRole(t.Role),
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: t.Text}},
		})
	}
	return messages
}

func fromMessage(m types.Message) llm.Turn {
	return llm.NewTurn(fromRole(m.Role), blockText(m.Content))
}

func blockText(blocks []types.ContentBlock) string {
	var b strings.Builder
	for _, block := range blocks {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			b.WriteString(text.Value)
		}
	}
	return b.String()
}

func (p *Provider) converseInput(req *llm.ChatRequest) *bedrockruntime.ConverseInput {
	model := req.Model
	if model == "" {
		model = p.opts.Model
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(model),
		Messages: toMessages(req.Turns()),
	}
	if req.System != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: req.System}}
	}
	if req.Temperature != nil || req.MaxTokens != nil {
		ic := &types.InferenceConfiguration{}
		if req.Temperature != nil {
			ic.Temperature = aws.Float32(float32(*req.Temperature))
		}
		if req.MaxTokens != nil {
			ic.MaxTokens = aws.Int32(int32(*req.MaxTokens))
		}
		input.InferenceConfig = ic
	}
	return input
}

// Chat calls Converse once.
func (p *Provider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.Reply, error) {
	input := p.converseInput(req)

	out, err := p.api.Converse(ctx, input)
	if err != nil {
		p.logger.Error("converse failed", zap.String("model", aws.ToString(input.ModelId)), zap.Error(err))
		return nil, classifyError(err)
	}

	var text string
	switch o := out.Output.(type) {
	case *types.ConverseOutputMemberMessage:
		text = blockText(o.Value.Content)
	default:
		return nil, llm.NewMalformedError(Name, nil, fmt.Errorf("unexpected output type %T", out.Output))
	}

	if strings.TrimSpace(text) == "" {
		switch out.StopReason {
		case types.StopReasonContentFiltered, types.StopReasonGuardrailIntervened:
			return nil, llm.NewEmptyResponseError(Name, "stopReason: "+string(out.StopReason), nil)
		default:
			return nil, llm.NewEmptyResponseError(Name, "no text in output", nil)
		}
	}

	reply := &llm.Reply{
		Text:         text,
		Model:        aws.ToString(input.ModelId),
		FinishReason: string(out.StopReason),
	}
	if u := out.Usage; u != nil {
		reply.Usage = &llm.Usage{
			PromptTokens:     int(aws.ToInt32(u.InputTokens)),
			CompletionTokens: int(aws.ToInt32(u.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(u.TotalTokens)),
		}
	}
	return reply, nil
}

// classifyError maps SDK exceptions onto upstream errors with the closest
// HTTP status. Errors that never reached the service are unavailability.
func classifyError(err error) error {
	var (
		accessDenied *types.AccessDeniedException
		validation   *types.ValidationException
		notFound     *types.ResourceNotFoundException
		throttling   *types.ThrottlingException
		quota        *types.ServiceQuotaExceededException
		timeout      *types.ModelTimeoutException
		apiErr       smithy.APIError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &accessDenied):
		status = http.StatusForbidden
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &throttling), errors.As(err, &quota):
		status = http.StatusTooManyRequests
	case errors.As(err, &timeout):
		status = http.StatusGatewayTimeout
	case errors.As(err, &apiErr):
	default:
		return llm.NewUnavailableError(Name, err)
	}

	e := llm.NewUpstreamError(Name, status, []byte(err.Error()))
	e.Cause = err
	return e
}
