package mention

// Trigger kinds for in-progress autocomplete tokens.
type TriggerKind int

const (
	TriggerMention TriggerKind = iota // "@"
	TriggerSection                    // "#"
)

const (
	mentionLookback = 20
	sectionLookback = 30
)

// Token is an in-progress "@" or "#" token detected behind the caret.
// Offsets are byte offsets into the input string.
type Token struct {
	Kind         TriggerKind
	TriggerIndex int
	Query        string
}

// Scan looks backward from caret for an active autocomplete token. The two
// trigger kinds are mutually exclusive per keystroke: the section scanner
// runs second, so an active "#" token wins over an "@" one. The scan is
// stateless, so precedence is positional rather than temporal: typing "@"
// inside an active "#" query keeps the "#" token active instead of
// switching to the most recently typed trigger.
//
// Member queries are single tokens, so any whitespace between "@" and the
// caret aborts detection. Section titles may contain spaces, so "#" only
// bounds the scan by its lookback window.
func Scan(text string, caret int) (Token, bool) {
	if caret < 0 || caret > len(text) {
		return Token{}, false
	}
	if tok, ok := scanSection(text, caret); ok {
		return tok, true
	}
	return scanMention(text, caret)
}

func scanMention(text string, caret int) (Token, bool) {
	for i := caret - 1; i >= 0 && caret-i <= mentionLookback; i-- {
		c := text[i]
		if isSpace(c) {
			return Token{}, false
		}
		if c == '@' {
			if escaped(text, i) {
				return Token{}, false
			}
			return Token{Kind: TriggerMention, TriggerIndex: i, Query: text[i+1 : caret]}, true
		}
	}
	return Token{}, false
}

func scanSection(text string, caret int) (Token, bool) {
	for i := caret - 1; i >= 0 && caret-i <= sectionLookback; i-- {
		if text[i] != '#' || escaped(text, i) {
			continue
		}
		q := text[i+1 : caret]
		// interior spaces are fine (section titles contain them), but a
		// leading space means the trigger was closed and a trailing space
		// means a finalized splice: either way the token is not active
		if len(q) > 0 && (isSpace(q[0]) || isSpace(q[len(q)-1])) {
			return Token{}, false
		}
		return Token{Kind: TriggerSection, TriggerIndex: i, Query: q}, true
	}
	return Token{}, false
}

func escaped(text string, i int) bool {
	return i > 0 && text[i-1] == '\\'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n'
}

// Splice replaces the scanned token span with the finalized reference and a
// trailing space, returning the new text and the caret position immediately
// after that space. The trailing space is what closes the token: re-scanning
// at the new caret yields no active token.
func Splice(text string, tok Token, name string) (string, int) {
	trigger := "@"
	if tok.Kind == TriggerSection {
		trigger = "#"
	}
	inserted := trigger + name + " "
	end := tok.TriggerIndex + 1 + len(tok.Query)
	out := text[:tok.TriggerIndex] + inserted + text[end:]
	return out, tok.TriggerIndex + len(inserted)
}
