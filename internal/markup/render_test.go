package markup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classboard/board-stream/internal/domain"
	"github.com/classboard/board-stream/internal/markup"
)

var (
	members = []domain.MemberRef{
		{ID: "u1", DisplayName: "Ada"},
		{ID: "u2", DisplayName: "Ada Lovelace"},
	}
	sections = []domain.SectionRef{
		{ID: "s1", Title: "A"},
		{ID: "s2", Title: "A B"},
	}
)

func TestRenderPlainOnly(t *testing.T) {
	runs := markup.Render("nothing special here", members, sections)
	require.Len(t, runs, 1)
	assert.Equal(t, markup.RunPlain, runs[0].Kind)
}

func TestRenderLongestMentionWins(t *testing.T) {
	runs := markup.Render("hi @Ada Lovelace", members, sections)
	require.Len(t, runs, 2)
	assert.Equal(t, markup.RunPlain, runs[0].Kind)
	assert.Equal(t, "hi ", runs[0].Text)
	assert.Equal(t, markup.RunMention, runs[1].Kind)
	assert.Equal(t, "@Ada Lovelace", runs[1].Text)
	assert.Equal(t, "u2", runs[1].RefID)
}

func TestRenderLongestSectionWinsAtSameOffset(t *testing.T) {
	runs := markup.Render("see #A B now", members, sections)
	require.Len(t, runs, 3)
	assert.Equal(t, markup.RunSection, runs[1].Kind)
	assert.Equal(t, "#A B", runs[1].Text)
	assert.Equal(t, "s2", runs[1].RefID)
	assert.Equal(t, " now", runs[2].Text)
}

func TestRenderEarliestMatchWinsRegardlessOfLength(t *testing.T) {
	// "#A" starts before "@Ada Lovelace": offset beats length
	runs := markup.Render("#A then @Ada Lovelace", members, sections)
	require.Len(t, runs, 3)
	assert.Equal(t, markup.RunSection, runs[0].Kind)
	assert.Equal(t, "#A", runs[0].Text)
	assert.Equal(t, markup.RunMention, runs[2].Kind)
	assert.Equal(t, "@Ada Lovelace", runs[2].Text)
}

func TestRenderURLFirstPass(t *testing.T) {
	runs := markup.Render("go to https://example.com/@Ada now", members, sections)
	require.Len(t, runs, 3)
	assert.Equal(t, markup.RunURL, runs[1].Kind)
	assert.Equal(t, "https://example.com/@Ada", runs[1].Text)
	// the mention-like substring inside the URL is not highlighted
	for _, r := range runs {
		assert.NotEqual(t, markup.RunMention, r.Kind)
	}
}

func TestRenderBroadcastMention(t *testing.T) {
	runs := markup.Render("@everyone meeting at 5", members, sections)
	require.NotEmpty(t, runs)
	assert.Equal(t, markup.RunMention, runs[0].Kind)
	assert.Equal(t, "broadcast:everyone", runs[0].RefID)
}

func TestRenderIdempotent(t *testing.T) {
	texts := []string{
		"hi @Ada Lovelace see #A B and https://x.io/@Ada",
		"plain",
		"",
		"@Ada@Ada#A#A B",
	}
	for _, text := range texts {
		first := markup.Render(text, members, sections)
		again := markup.Render(markup.PlainText(first), members, sections)
		assert.Equal(t, first, again, text)
		assert.Equal(t, text, markup.PlainText(first))
	}
}
