package mention_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classboard/board-stream/internal/mention"
)

func TestScanFindsMentionToken(t *testing.T) {
	text := "hello @Ad"
	tok, ok := mention.Scan(text, len(text))
	require.True(t, ok)
	assert.Equal(t, mention.TriggerMention, tok.Kind)
	assert.Equal(t, 6, tok.TriggerIndex)
	assert.Equal(t, "Ad", tok.Query)
}

func TestScanFindsSectionToken(t *testing.T) {
	text := "see #Home work"
	tok, ok := mention.Scan(text, len(text))
	require.True(t, ok)
	assert.Equal(t, mention.TriggerSection, tok.Kind)
	assert.Equal(t, 4, tok.TriggerIndex)
	assert.Equal(t, "Home work", tok.Query)
}

func TestScanSectionWinsOverMention(t *testing.T) {
	// both triggers behind the caret: the section scanner runs last, so it wins
	text := "@Ada #Sec"
	tok, ok := mention.Scan(text, len(text))
	require.True(t, ok)
	assert.Equal(t, mention.TriggerSection, tok.Kind)
}

func TestScanSectionStaysActiveOverLaterMention(t *testing.T) {
	// precedence is positional: an "@" typed inside an active "#" query does
	// not switch the active trigger
	text := "#notes foo @me"
	tok, ok := mention.Scan(text, len(text))
	require.True(t, ok)
	assert.Equal(t, mention.TriggerSection, tok.Kind)
	assert.Equal(t, "notes foo @me", tok.Query)
}

func TestScanNoToken(t *testing.T) {
	cases := map[string]struct {
		text  string
		caret int
	}{
		"no trigger":                {"hello world", 11},
		"whitespace breaks mention": {"@Ada L", 6},
		"caret at zero":             {"@abc", 0},
		"trigger then space closes": {"# done", 6},
		"escaped trigger":           {`mail\@host`, 10},
		"beyond mention lookback":   {"@" + "abcdefghijklmnopqrstuvwxyz", 27},
		"caret before trigger":      {"hi @ab", 2},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := mention.Scan(tc.text, tc.caret)
			assert.False(t, ok)
		})
	}
}

func TestScanEmptyQueryAtTrigger(t *testing.T) {
	tok, ok := mention.Scan("hi @", 4)
	require.True(t, ok)
	assert.Equal(t, "", tok.Query)
}

func TestSpliceReplacesSpanAndMovesCaret(t *testing.T) {
	text := "hi @Ad there"
	tok, ok := mention.Scan(text, 6)
	require.True(t, ok)

	out, caret := mention.Splice(text, tok, "Ada")
	assert.Equal(t, "hi @Ada  there", out)
	assert.Equal(t, len("hi @Ada "), caret)
}

// The inserted trailing space always closes the token: re-scanning at the
// new caret must come back empty.
func TestSpliceThenRescanYieldsNoToken(t *testing.T) {
	inputs := []struct {
		text  string
		caret int
		name  string
	}{
		{"hi @Ad", 6, "Ada Lovelace"},
		{"#Hom", 4, "Homework"},
		{"@", 1, "everyone"},
	}
	for _, in := range inputs {
		tok, ok := mention.Scan(in.text, in.caret)
		require.True(t, ok, in.text)

		out, caret := mention.Splice(in.text, tok, in.name)
		_, active := mention.Scan(out, caret)
		assert.False(t, active, "token must be closed after splice: %q", out)
	}
}
