package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chapterqa/internal/domain"
	"chapterqa/internal/service"
)

type fakeAsker struct {
	questions []string
	answer    *service.Answer
	err       error
}

func (f *fakeAsker) Ask(_ context.Context, _, question string) (*service.Answer, error) {
	f.questions = append(f.questions, question)
	return f.answer, f.err
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return next.(Model)
}

func TestModel_EnterAsksQuestion(t *testing.T) {
	asker := &fakeAsker{answer: &service.Answer{
		Text: "ATP is made in mitochondria.",
		Sources: []domain.ScoredChunk{
			{Chunk: domain.Chunk{Index: 4, Text: "Cells need energy. Mitochondria make ATP."}, Score: 0.8},
			{Chunk: domain.Chunk{Index: 1, Text: "Plants photosynthesise."}, Score: 0.2},
		},
	}}
	m := sized(t, New(context.Background(), asker, "store://b/bio/ch1.pdf", 7))
	m.input.SetValue("  where is ATP made?  ")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Empty(t, m.input.Value())

	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.False(t, m.busy)
	assert.Equal(t, []string{"where is ATP made?"}, asker.questions)
	assert.Equal(t, "ATP is made in mitochondria.", m.render())
	assert.Contains(t, m.View(), "store://b/bio/ch1.pdf (7 chunks)")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	assert.Contains(t, m.render(), "Source 1/2  chunk=4")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Contains(t, m.render(), "Source 2/2  chunk=1")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Contains(t, m.render(), "Source 1/2")
}

func TestModel_ErrorShownInStatus(t *testing.T) {
	asker := &fakeAsker{err: errors.New("document not found")}
	m := sized(t, New(context.Background(), asker, "store://b/bio/ch1.pdf", 0))
	m.input.SetValue("anything")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.True(t, strings.HasPrefix(m.status, "Error: document not found"))
	assert.Equal(t, "No answer yet.", m.render())
}

func TestModel_QuitKeys(t *testing.T) {
	m := New(context.Background(), &fakeAsker{}, "loc", 0)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestHighlightBestSentence(t *testing.T) {
	text := "Cells need energy. Mitochondria make ATP. Plants grow"
	got := highlightBestSentence(text, "who makes ATP")
	want := "Cells need energy. " + highlightStyle.Render("Mitochondria make ATP.") + " Plants grow"
	assert.Equal(t, want, got)

	assert.Equal(t, "Cells need energy. Plants grow", highlightBestSentence("Cells need energy.  Plants grow", ""))
	assert.Equal(t, "  ", highlightBestSentence("  ", "x"))
}

func TestTokenOverlapScore(t *testing.T) {
	q := toTokenSet("mitochondria ATP")
	assert.Equal(t, 2, tokenOverlapScore(q, "Mitochondria make ATP, ATP and more ATP"))
	assert.Equal(t, 0, tokenOverlapScore(q, "nothing relevant"))
}
