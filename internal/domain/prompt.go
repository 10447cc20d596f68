package domain

import "strings"

// PromptKind distinguishes answer prompts from quiz prompts.
type PromptKind string

const (
	PromptAnswer PromptKind = "answer"
	PromptQuiz   PromptKind = "quiz"
)

// Prompt is a structured prompt: role framing, retrieved context, the
// question and output formatting instructions.
type Prompt struct {
	Kind         PromptKind
	Role         string
	Context      string
	Question     string
	Instructions string
}

// Body renders everything except the role framing.
func (p Prompt) Body() string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	sb.WriteString(p.Context)
	sb.WriteString("\n\n")
	if p.Question != "" {
		sb.WriteString("Question: ")
		sb.WriteString(p.Question)
		sb.WriteString("\n\n")
	}
	if p.Instructions != "" {
		sb.WriteString(p.Instructions)
		sb.WriteString("\n\n")
	}
	if p.Kind == PromptAnswer {
		sb.WriteString("Answer:")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// String renders the complete prompt text handed to the generation backend.
func (p Prompt) String() string {
	if p.Role == "" {
		return p.Body()
	}
	return p.Role + "\n\n" + p.Body()
}
