package bedrock_test

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/genrelay/pkg/llm"
	"github.com/papercomputeco/genrelay/pkg/llm/provider/bedrock"
)

type fakeConverse struct {
	calls []*bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (f *fakeConverse) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.calls = append(f.calls, in)
	return f.out, f.err
}

func textOutput(text string, stop types.StopReason) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{Value: types.Message{
			Role:    types.ConversationRoleAssistant,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: text}},
		}},
		StopReason: stop,
		Usage: &types.TokenUsage{
			InputTokens:  aws.Int32(10),
			OutputTokens: aws.Int32(5),
			TotalTokens:  aws.Int32(15),
		},
	}
}

var _ = Describe("Bedrock Provider", func() {
	var (
		ctx  context.Context
		fake *fakeConverse
		p    *bedrock.Provider
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = &fakeConverse{}
		p = bedrock.NewWithClient(fake, bedrock.Options{Model: "test-model"})
	})

	It("builds a converse input with system prompt and mapped roles", func() {
		fake.out = textOutput("Welcome back.", types.StopReasonEndTurn)
		temp := 0.7

		reply, err := p.Chat(ctx, &llm.ChatRequest{
			System:      "You are a narrator.",
			History:     []llm.Turn{{Role: llm.RoleUser, Text: "start"}, {Role: llm.RoleAssistant, Text: "Hello."}},
			Message:     "continue",
			Temperature: &temp,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Text).To(Equal("Welcome back."))
		Expect(reply.Usage.TotalTokens).To(Equal(15))

		Expect(fake.calls).To(HaveLen(1))
		in := fake.calls[0]
		Expect(aws.ToString(in.ModelId)).To(Equal("test-model"))
		Expect(in.System).To(HaveLen(1))
		Expect(in.Messages).To(HaveLen(3))
		Expect(in.Messages[1].Role).To(Equal(types.ConversationRoleAssistant))
		Expect(in.Messages[2].Role).To(Equal(types.ConversationRoleUser))
		Expect(*in.InferenceConfig.Temperature).To(BeNumerically("~", 0.7, 0.001))
	})

	It("reports guardrail interventions without text as empty responses", func() {
		fake.out = textOutput("", types.StopReasonGuardrailIntervened)

		_, err := p.Chat(ctx, &llm.ChatRequest{Message: "x"})
		e, ok := llm.AsError(err)
		Expect(ok).To(BeTrue())
		Expect(e.Kind).To(Equal(llm.ErrEmptyResponse))
		Expect(e.Detail).To(ContainSubstring("guardrail_intervened"))
	})

	It("maps throttling to a 429 upstream error", func() {
		fake.err = &types.ThrottlingException{Message: aws.String("slow down")}

		_, err := p.Chat(ctx, &llm.ChatRequest{Message: "x"})
		e, ok := llm.AsError(err)
		Expect(ok).To(BeTrue())
		Expect(e.Kind).To(Equal(llm.ErrUpstream))
		Expect(e.Status).To(Equal(429))
		Expect(fake.calls).To(HaveLen(1))
	})

	It("maps validation failures to a 400 upstream error", func() {
		fake.err = &types.ValidationException{Message: aws.String("bad input")}

		_, err := p.Chat(ctx, &llm.ChatRequest{Message: "x"})
		e, _ := llm.AsError(err)
		Expect(e.Status).To(Equal(400))
	})

	It("treats non-service errors as unavailability", func() {
		fake.err = errors.New("dial tcp: no route to host")

		_, err := p.Chat(ctx, &llm.ChatRequest{Message: "x"})
		Expect(llm.IsKind(err, llm.ErrUnavailable)).To(BeTrue())
	})

	It("reports unknown output members as malformed", func() {
		fake.out = &bedrockruntime.ConverseOutput{Output: &types.UnknownUnionMember{Tag: "mystery"}}

		_, err := p.Chat(ctx, &llm.ChatRequest{Message: "x"})
		Expect(llm.IsKind(err, llm.ErrMalformed)).To(BeTrue())
	})
})
