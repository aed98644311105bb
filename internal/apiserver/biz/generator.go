package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/hanq-io/hanq/internal/pkg/quality"
	"github.com/hanq-io/hanq/internal/pkg/textutil"
	"github.com/hanq-io/hanq/pkg/llm"
)

// AnswerNotFound is the answer returned when the model cannot locate the
// requested information in the provided passages. The prompt instructs the
// model to emit exactly this string.
const AnswerNotFound = "제공된 문서에서 해당 정보를 찾을 수 없습니다."

// defaultSystemPrompt steers the model toward short extractive answers in
// Korean, KorQuAD style.
const defaultSystemPrompt = `당신은 한국어 질의응답 시스템입니다. 제공된 문서의 내용만을 근거로 질문에 답하세요.

규칙:
1. 답변은 문서에서 찾은 핵심 내용만 간결하게 작성하세요.
2. 문서에 없는 내용을 추측하거나 지어내지 마세요.
3. 문서에서 답을 찾을 수 없으면 정확히 "제공된 문서에서 해당 정보를 찾을 수 없습니다."라고 답하세요.
4. 답변은 한국어로 작성하세요.`

// GeneratorConfig configures answer generation.
type GeneratorConfig struct {
	// SystemPrompt overrides the default instruction. Empty uses the default.
	SystemPrompt string
	// MaxAnswerRunes caps the answer length; longer answers are cut to
	// their first sentence.
	MaxAnswerRunes int
}

// Generator produces answers from retrieved passages.
type Generator struct {
	chatProvider llm.ChatProvider
	config       *GeneratorConfig
}

// NewGenerator creates a generator.
func NewGenerator(chatProvider llm.ChatProvider, config *GeneratorConfig) *Generator {
	if config == nil {
		config = &GeneratorConfig{}
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = defaultSystemPrompt
	}
	if config.MaxAnswerRunes <= 0 {
		config.MaxAnswerRunes = 200
	}
	return &Generator{
		chatProvider: chatProvider,
		config:       config,
	}
}

// BuildContext joins the retrieved passages into the prompt context block.
func BuildContext(results []quality.Result) string {
	var sb strings.Builder
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("[문서 %d] %s\n%s\n\n", i+1, r.Title, r.Content))
	}
	return sb.String()
}

// GenerateAnswer asks the chat model to answer the question from the given
// context and post-processes the reply.
func (g *Generator) GenerateAnswer(ctx context.Context, question, contextText string) (string, error) {
	if strings.TrimSpace(contextText) == "" {
		return AnswerNotFound, nil
	}

	if ctx.Err() != nil {
		return "", fmt.Errorf("context cancelled before generation: %w", ctx.Err())
	}

	prompt := fmt.Sprintf("문서:\n%s\n질문: %s\n\n답변:", contextText, question)

	answer, err := g.chatProvider.Generate(ctx, prompt, g.config.SystemPrompt)
	if err != nil {
		logger.Warnw("answer generation failed", "error", err.Error())
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	refined := g.refineAnswer(answer)
	logger.Debugw("answer generated",
		"answer_runes", len([]rune(refined)),
		"raw_runes", len([]rune(answer)),
	)
	return refined, nil
}

// refineAnswer trims whitespace and cuts overlong replies back to their
// first sentence. KorQuAD answers are short spans; a multi-paragraph reply
// means the model ignored the instruction.
func (g *Generator) refineAnswer(answer string) string {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return answer
	}

	if len([]rune(answer)) > g.config.MaxAnswerRunes {
		if first := strings.TrimSpace(textutil.FirstSentence(answer)); first != "" {
			answer = first
		}
	}

	return answer
}
