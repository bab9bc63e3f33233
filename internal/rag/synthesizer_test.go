package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"handbook-ai/internal/llm"
	"handbook-ai/internal/vectorstore"
)

type stubChat struct {
	answer   string
	err      error
	messages []llm.Message
	params   llm.ChatParams
}

func (s *stubChat) ChatWithMessages(_ context.Context, messages []llm.Message, params llm.ChatParams) (string, error) {
	s.messages = messages
	s.params = params
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func retrievedChunks() []vectorstore.ScoredPoint {
	return []vectorstore.ScoredPoint{
		{ID: "a", Score: 0.92, Source: "handbook.pdf", ChunkIndex: 3, Text: "Students must register by the end of the second week."},
		{ID: "b", Score: 0.81, Source: "handbook.pdf", ChunkIndex: 7, Text: "Late registration requires advisor approval."},
	}
}

func TestSynthesizePromptAssembly(t *testing.T) {
	chat := &stubChat{answer: "Register by the end of the second week."}
	synth := NewSynthesizer(chat, GroundingStrict)

	answer, sources := synth.Synthesize(context.Background(), "When do I register?", retrievedChunks())
	if answer != chat.answer {
		t.Errorf("expected answer %q, got %q", chat.answer, answer)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}

	if len(chat.messages) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(chat.messages))
	}
	system := chat.messages[0]
	if system.Role != "system" {
		t.Errorf("expected first message role system, got %q", system.Role)
	}
	if !strings.Contains(system.Content, RefusalSentence) {
		t.Error("system prompt should contain the refusal sentence")
	}
	if !strings.Contains(system.Content, "ONLY on the provided context") {
		t.Error("strict system prompt should restrict answers to the context")
	}
	for _, chunk := range retrievedChunks() {
		if !strings.Contains(system.Content, chunk.Text) {
			t.Errorf("system prompt missing chunk text %q", chunk.Text)
		}
	}
	if chat.messages[1].Role != "user" || chat.messages[1].Content != "When do I register?" {
		t.Errorf("unexpected user message: %+v", chat.messages[1])
	}

	if chat.params.MaxTokens != answerMaxTokens {
		t.Errorf("expected max tokens %d, got %d", answerMaxTokens, chat.params.MaxTokens)
	}
	if chat.params.Temperature != answerTemperature {
		t.Errorf("expected temperature %v, got %v", answerTemperature, chat.params.Temperature)
	}
}

func TestSynthesizeLooseMode(t *testing.T) {
	chat := &stubChat{answer: "ok"}
	synth := NewSynthesizer(chat, GroundingLoose)

	synth.Synthesize(context.Background(), "q", retrievedChunks())

	system := chat.messages[0].Content
	if !strings.Contains(system, RefusalSentence) {
		t.Error("loose prompt should still lead with the refusal sentence")
	}
	if !strings.Contains(system, "general knowledge") {
		t.Error("loose prompt should permit a marked general-knowledge answer")
	}
}

func TestSynthesizeEmptyContext(t *testing.T) {
	chat := &stubChat{answer: RefusalSentence}
	synth := NewSynthesizer(chat, GroundingStrict)

	answer, sources := synth.Synthesize(context.Background(), "q", nil)
	if answer != RefusalSentence {
		t.Errorf("unexpected answer %q", answer)
	}
	if len(sources) != 0 {
		t.Errorf("expected no sources, got %d", len(sources))
	}
	if !strings.Contains(chat.messages[0].Content, "(no context retrieved)") {
		t.Error("empty context should be marked in the prompt")
	}
}

func TestSynthesizeBackendError(t *testing.T) {
	chat := &stubChat{err: errors.New("upstream timeout")}
	synth := NewSynthesizer(chat, GroundingStrict)

	answer, sources := synth.Synthesize(context.Background(), "q", retrievedChunks())
	if !strings.HasPrefix(answer, "An error occurred:") {
		t.Errorf("expected error text answer, got %q", answer)
	}
	if !strings.Contains(answer, "upstream timeout") {
		t.Errorf("answer should carry the backend error, got %q", answer)
	}
	if sources != nil {
		t.Errorf("expected nil sources on backend error, got %v", sources)
	}
}
