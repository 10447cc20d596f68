// Package quiz builds multiple-choice quiz prompts and validates the
// completions that come back.
package quiz

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"chapterqa/internal/domain"
)

const (
	// DefaultCount is the number of questions requested when none is given.
	DefaultCount = 5
	// MaxCount bounds a single quiz request.
	MaxCount = 20
	// OptionCount is the number of options every question must carry.
	OptionCount = 4
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty accepts easy, medium or hard in any case; empty means medium.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return Medium, nil
	case Easy, Medium, Hard:
		return d, nil
	default:
		return "", fmt.Errorf("%w: difficulty %q (want easy, medium or hard)", domain.ErrInvalidRequest, s)
	}
}

func (d Difficulty) guidance() string {
	switch d {
	case Easy:
		return "Easy questions test recall of definitions and facts stated in the context."
	case Hard:
		return "Hard questions require analysis, comparison or multi-step reasoning over the context."
	default:
		return "Medium questions test understanding and application of the ideas in the context."
	}
}

// Question is one validated multiple-choice item. Answer is the zero-based
// index of the correct option.
type Question struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      int      `json:"answer"`
	Explanation string   `json:"explanation"`
	Topic       string   `json:"topic"`
}

// Prompt builds the structured quiz prompt over the given context. An empty
// topic lets the model cover the whole context.
func Prompt(context, topic string, d Difficulty, count int) domain.Prompt {
	if count <= 0 {
		count = DefaultCount
	}
	if d == "" {
		d = Medium
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write %d multiple-choice questions at %s difficulty based only on the context above", count, d)
	if topic = strings.TrimSpace(topic); topic != "" {
		fmt.Fprintf(&sb, ", focusing on %q", topic)
	}
	sb.WriteString(".\n")
	sb.WriteString(d.guidance())
	sb.WriteString("\n")
	sb.WriteString("Each question must have exactly 4 options and exactly one correct answer.\n")
	sb.WriteString("Respond with only a JSON array and no other text. Each item must have these fields:\n")
	sb.WriteString(`- "question": the question text` + "\n")
	sb.WriteString(`- "options": an array of 4 option strings` + "\n")
	sb.WriteString(`- "answer": the zero-based index (0-3) of the correct option` + "\n")
	sb.WriteString(`- "explanation": why the correct option is right` + "\n")
	sb.WriteString(`- "topic": the topic the question tests`)

	return domain.Prompt{
		Kind:         domain.PromptQuiz,
		Role:         "You are an expert educational assistant who writes multiple-choice quiz questions for students.",
		Context:      context,
		Instructions: sb.String(),
	}
}

// Parse extracts the question array from a completion and returns the well
// formed items. Code fences, surrounding prose and a {"questions": [...]}
// wrapper are tolerated; malformed items are dropped.
func Parse(completion string) []Question {
	arr, ok := extractArray(completion)
	if !ok {
		return nil
	}
	var out []Question
	arr.ForEach(func(_, item gjson.Result) bool {
		if q, ok := validate(item); ok {
			out = append(out, q)
		}
		return true
	})
	return out
}

func extractArray(s string) (gjson.Result, bool) {
	s = strings.TrimSpace(s)
	if gjson.Valid(s) {
		r := gjson.Parse(s)
		if r.IsArray() {
			return r, true
		}
		if q := r.Get("questions"); q.IsArray() {
			return q, true
		}
	}
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end <= start {
		return gjson.Result{}, false
	}
	candidate := s[start : end+1]
	if !gjson.Valid(candidate) {
		return gjson.Result{}, false
	}
	r := gjson.Parse(candidate)
	return r, r.IsArray()
}

func validate(item gjson.Result) (Question, bool) {
	if !item.IsObject() {
		return Question{}, false
	}
	q := Question{
		Question:    nonEmpty(item.Get("question")),
		Explanation: nonEmpty(item.Get("explanation")),
		Topic:       nonEmpty(item.Get("topic")),
	}
	if q.Question == "" || q.Explanation == "" || q.Topic == "" {
		return Question{}, false
	}

	opts := item.Get("options")
	if !opts.IsArray() {
		return Question{}, false
	}
	for _, o := range opts.Array() {
		text := nonEmpty(o)
		if text == "" {
			return Question{}, false
		}
		q.Options = append(q.Options, text)
	}
	if len(q.Options) != OptionCount {
		return Question{}, false
	}

	ans := item.Get("answer")
	if ans.Type != gjson.Number || ans.Num != float64(int(ans.Num)) {
		return Question{}, false
	}
	q.Answer = int(ans.Num)
	if q.Answer < 0 || q.Answer >= OptionCount {
		return Question{}, false
	}
	return q, true
}

func nonEmpty(r gjson.Result) string {
	if r.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(r.Str)
}
