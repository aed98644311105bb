package biz

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAnswerEmptyContext(t *testing.T) {
	g := NewGenerator(&fakeChat{reply: "무시됨"}, nil)

	answer, err := g.GenerateAnswer(context.Background(), "질문입니다", "   ")
	require.NoError(t, err)
	assert.Equal(t, AnswerNotFound, answer)
}

func TestGenerateAnswerUsesSystemPrompt(t *testing.T) {
	chat := &fakeChat{reply: "서울이다"}
	g := NewGenerator(chat, nil)

	answer, err := g.GenerateAnswer(context.Background(), "한국의 수도는 어디인가요?", "한국의 수도는 서울이다.")
	require.NoError(t, err)
	assert.Equal(t, "서울이다", answer)
	require.Len(t, chat.prompts, 1)
	assert.Contains(t, chat.prompts[0], "한국의 수도는 어디인가요?")
	assert.Contains(t, chat.prompts[0], "한국의 수도는 서울이다.")
}

func TestGenerateAnswerCancelledContext(t *testing.T) {
	g := NewGenerator(&fakeChat{reply: "서울"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.GenerateAnswer(ctx, "질문", "컨텍스트 내용입니다")
	require.Error(t, err)
}

func TestRefineAnswerCutsOverlongReplies(t *testing.T) {
	g := NewGenerator(&fakeChat{}, &GeneratorConfig{MaxAnswerRunes: 200})

	first := "조선 왕조는 1392년에 건국되었다."
	long := first + " " + strings.Repeat("부연 설명이 길게 이어진다. ", 30)
	require.Greater(t, len([]rune(long)), 200)

	assert.Equal(t, first, g.refineAnswer(long))
}

func TestRefineAnswerKeepsShortReplies(t *testing.T) {
	g := NewGenerator(&fakeChat{}, nil)

	assert.Equal(t, "서울이다", g.refineAnswer("  서울이다  "))
	assert.Equal(t, "", g.refineAnswer("   "))
}
