package session

import (
	"github.com/classboard/board-stream/internal/domain"
	"github.com/classboard/board-stream/internal/mention"
)

// composer holds the draft state of the one message being written: text,
// caret, the active autocomplete token, staged attachments and the frozen
// reply target.
type composer struct {
	text  string
	caret int

	token    mention.Token
	hasToken bool

	attachments []domain.PendingAttachment

	replyToID      string
	replyToAuthor  string
	replyToContent string
}

// setDraft records the new text and caret and re-scans for an active
// token. Only one trigger kind is active at a time; a fresh scan replaces
// whatever was active before.
func (c *composer) setDraft(text string, caret int) (mention.Token, bool) {
	c.text = text
	c.caret = caret
	c.token, c.hasToken = mention.Scan(text, caret)
	return c.token, c.hasToken
}

// selectSuggestion splices the chosen name over the scanned span. The
// trailing space inserted by Splice closes the token, so the follow-up
// re-scan always comes back empty.
func (c *composer) selectSuggestion(name string) (string, int, bool) {
	if !c.hasToken {
		return c.text, c.caret, false
	}
	c.text, c.caret = mention.Splice(c.text, c.token, name)
	c.hasToken = false
	return c.text, c.caret, true
}

func (c *composer) addAttachment(att domain.PendingAttachment) {
	c.attachments = append(c.attachments, att)
}

// removeAttachment drops the staged file at i and returns its preview URL
// so the caller can release it.
func (c *composer) removeAttachment(i int) (string, bool) {
	if i < 0 || i >= len(c.attachments) {
		return "", false
	}
	preview := c.attachments[i].PreviewURL
	c.attachments = append(c.attachments[:i], c.attachments[i+1:]...)
	return preview, true
}

func (c *composer) setReplyTarget(m *domain.Message) {
	c.replyToID = m.ID
	c.replyToAuthor = m.SenderName
	c.replyToContent = m.Content
}

func (c *composer) clearReplyTarget() {
	c.replyToID = ""
	c.replyToAuthor = ""
	c.replyToContent = ""
}

// reset clears the composer after submit and returns the preview URLs of
// the consumed attachments for release.
func (c *composer) reset() []string {
	previews := make([]string, 0, len(c.attachments))
	for _, a := range c.attachments {
		if a.PreviewURL != "" {
			previews = append(previews, a.PreviewURL)
		}
	}
	*c = composer{}
	return previews
}
