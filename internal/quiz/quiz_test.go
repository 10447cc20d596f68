package quiz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chapterqa/internal/domain"
)

const good = `{"question":"What is the powerhouse of the cell?",
 "options":["Nucleus","Mitochondria","Ribosome","Golgi body"],
 "answer":1,"explanation":"Mitochondria produce ATP.","topic":"Cell organelles"}`

func TestParse_FencedWithProse(t *testing.T) {
	completion := "Here is your quiz:\n```json\n[" + good + "]\n```\nGood luck!"
	got := Parse(completion)
	require.Len(t, got, 1)
	assert.Equal(t, Question{
		Question:    "What is the powerhouse of the cell?",
		Options:     []string{"Nucleus", "Mitochondria", "Ribosome", "Golgi body"},
		Answer:      1,
		Explanation: "Mitochondria produce ATP.",
		Topic:       "Cell organelles",
	}, got[0])
}

func TestParse_QuestionsWrapper(t *testing.T) {
	got := Parse(`{"questions":[` + good + `]}`)
	assert.Len(t, got, 1)
}

func TestParse_DropsMalformedItems(t *testing.T) {
	bad := []string{
		`{"question":"three options","options":["a","b","c"],"answer":0,"explanation":"e","topic":"t"}`,
		`{"question":"five options","options":["a","b","c","d","e"],"answer":0,"explanation":"e","topic":"t"}`,
		`{"question":"answer too big","options":["a","b","c","d"],"answer":4,"explanation":"e","topic":"t"}`,
		`{"question":"negative answer","options":["a","b","c","d"],"answer":-1,"explanation":"e","topic":"t"}`,
		`{"question":"fractional answer","options":["a","b","c","d"],"answer":1.5,"explanation":"e","topic":"t"}`,
		`{"question":"string answer","options":["a","b","c","d"],"answer":"2","explanation":"e","topic":"t"}`,
		`{"question":"blank option","options":["a"," ","c","d"],"answer":0,"explanation":"e","topic":"t"}`,
		`{"question":"no explanation","options":["a","b","c","d"],"answer":0,"topic":"t"}`,
		`{"question":"no topic","options":["a","b","c","d"],"answer":0,"explanation":"e"}`,
		`{"question":"","options":["a","b","c","d"],"answer":0,"explanation":"e","topic":"t"}`,
		`"just a string"`,
	}
	completion := "[" + strings.Join(append(bad, good), ",") + "]"
	got := Parse(completion)
	require.Len(t, got, 1)
	assert.Equal(t, "What is the powerhouse of the cell?", got[0].Question)
}

func TestParse_Garbage(t *testing.T) {
	assert.Empty(t, Parse("I cannot write a quiz about this."))
	assert.Empty(t, Parse("[not json"))
	assert.Empty(t, Parse(`{"answer": 1}`))
	assert.Empty(t, Parse(""))
}

func TestParseDifficulty(t *testing.T) {
	for in, want := range map[string]Difficulty{"": Medium, "easy": Easy, " HARD ": Hard, "Medium": Medium} {
		got, err := ParseDifficulty(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseDifficulty("impossible")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestPrompt(t *testing.T) {
	p := Prompt("Cells divide by mitosis.", "mitosis", Hard, 3)
	assert.Equal(t, domain.PromptQuiz, p.Kind)
	assert.Equal(t, "Cells divide by mitosis.", p.Context)
	assert.Empty(t, p.Question)

	text := p.String()
	assert.Contains(t, text, "Write 3 multiple-choice questions at hard difficulty")
	assert.Contains(t, text, `focusing on "mitosis"`)
	assert.Contains(t, text, "exactly 4 options")
	assert.Contains(t, text, "JSON array")
	assert.NotContains(t, text, "Answer:")

	def := Prompt("ctx", "", "", 0)
	assert.Contains(t, def.Instructions, "Write 5 multiple-choice questions at medium difficulty")
	assert.NotContains(t, def.Instructions, "focusing on")
}
