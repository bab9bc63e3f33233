package rag

import (
	"context"
	"fmt"
	"strings"

	"handbook-ai/internal/contextutil"
	"handbook-ai/internal/llm"
	"handbook-ai/internal/vectorstore"
)

// RefusalSentence is the fixed reply the model is instructed to give when
// the answer is not in the retrieved context. Tests treat it as a
// behavioral contract of the prompt, not a code path: the synthesizer
// never verifies groundedness itself.
const RefusalSentence = "I'm sorry, I cannot find the answer to that in the graduate student handbook."

// GroundingMode selects how the system prompt constrains the model.
type GroundingMode string

const (
	// GroundingStrict only ever answers from the retrieved context.
	GroundingStrict GroundingMode = "strict"
	// GroundingLoose refuses first, then may add a clearly marked
	// general-knowledge answer.
	GroundingLoose GroundingMode = "loose"
)

const strictSystemPrompt = "You are a factual, helpful assistant for the MANE department, focused on answering questions about the graduate program.\n" +
	"By strict instructions, you must answer based ONLY on the provided context below.\n" +
	"If the answer is not in the context, say '" + RefusalSentence + "'\n" +
	"Do not fabricate or infer information.\n" +
	"\n" +
	"Context:\n%s"

const looseSystemPrompt = "You are a factual, helpful assistant for the MANE department, focused on answering questions about the graduate program.\n" +
	"Answer based on the provided context below whenever possible.\n" +
	"If the answer is not in the context, first say '" + RefusalSentence + "'\n" +
	"and only then you may add an answer from general knowledge, clearly marked as not coming from the handbook.\n" +
	"\n" +
	"Context:\n%s"

const (
	answerMaxTokens   = 1024
	answerTemperature = 0.3
)

// Synthesizer turns a question plus retrieved chunks into a grounded
// answer. Backend failures never propagate: callers always get a
// (text, sources) pair, with the error rendered as the text.
type Synthesizer struct {
	chat ChatClient
	mode GroundingMode
}

// NewSynthesizer creates a Synthesizer in the given grounding mode.
func NewSynthesizer(chat ChatClient, mode GroundingMode) *Synthesizer {
	if mode == "" {
		mode = GroundingStrict
	}
	return &Synthesizer{chat: chat, mode: mode}
}

// Synthesize generates an answer from the question and its retrieved
// chunks, returning the answer text and the chunks used for citation.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, chunks []vectorstore.ScoredPoint) (string, []vectorstore.ScoredPoint) {
	logger := contextutil.LoggerFromContext(ctx)

	template := strictSystemPrompt
	if s.mode == GroundingLoose {
		template = looseSystemPrompt
	}

	messages := []llm.Message{
		{Role: "system", Content: fmt.Sprintf(template, formatContext(chunks))},
		{Role: "user", Content: question},
	}

	answer, err := s.chat.ChatWithMessages(ctx, messages, llm.ChatParams{
		MaxTokens:   answerMaxTokens,
		Temperature: answerTemperature,
	})
	if err != nil {
		logger.ErrorContext(ctx, "chat backend failed", "error", err)
		return fmt.Sprintf("An error occurred: %v", err), nil
	}

	return answer, chunks
}

// formatContext concatenates chunk texts in retrieval order, separated so
// the model can tell the passages apart.
func formatContext(chunks []vectorstore.ScoredPoint) string {
	if len(chunks) == 0 {
		return "(no context retrieved)"
	}

	var b strings.Builder
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "--- Passage %d (source: %s, section %d) ---\n", i+1, chunk.Source, chunk.ChunkIndex)
		b.WriteString(chunk.Text)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
