package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/classboard/board-stream/internal/domain"
	"github.com/classboard/board-stream/internal/gesture"
	"github.com/classboard/board-stream/internal/markup"
	"github.com/classboard/board-stream/internal/mention"
	"github.com/classboard/board-stream/internal/preview"
	"github.com/classboard/board-stream/internal/stream"
	"github.com/classboard/board-stream/internal/timers"
	"github.com/classboard/board-stream/internal/upload"
)

// TypingQuietPeriod is how long after the last keystroke the
// stopped-typing signal fires.
const TypingQuietPeriod = 2000 * time.Millisecond

const nearBottomPx = 100

// ErrPermissionDenied is surfaced inline before any backend round-trip is
// attempted.
var ErrPermissionDenied = errors.New("permission denied")

// View is the command surface of the rendering layer. The session never
// touches the screen; it only issues these directives, which keeps the
// reconciliation logic testable in isolation.
type View interface {
	RenderSnapshot(buckets []stream.Bucket)
	RenderRuns(messageID string, runs []markup.Run)
	ScrollToBottom(smooth bool)
	ScrollToItem(id string)
	ShowBadge(count int)
	ClearBadge()
	Highlight(id string, window time.Duration)
	ShowMemberSuggestions(s mention.Suggestions)
	ShowSectionSuggestions(s []domain.SectionRef)
	HideSuggestions()
	SetDraft(text string, caret int)
	FocusInput()
	SwipeOffset(itemID string, offset float64)
	ReplyIntent(itemID string)
	TypingNames(names []string)
	UploadProgress(done, total int)
	LinkPreview(p *preview.Preview)
	PlayAudio(id string)
	PauseAudio(id string)
	ReleasePreviewURL(url string)
	Error(msg string)
}

// Store is the slice of the repository the session writes through.
type Store interface {
	GetByID(ctx context.Context, messageID string) (*domain.Message, error)
	Append(ctx context.Context, m *domain.Message) error
	Edit(ctx context.Context, messageID, newContent string) error
	Delete(ctx context.Context, messageID string) error
	SetPinned(ctx context.Context, messageID string, pinned bool) error
	Like(ctx context.Context, messageID, userID string) error
	Unlike(ctx context.Context, messageID, userID string) error
	Clear(ctx context.Context, streamID string) error
	ListMembers(ctx context.Context, boardID string) ([]domain.MemberRef, error)
	ListSections(ctx context.Context, boardID string) ([]domain.SectionRef, error)
}

// Feed delivers full ordered snapshots, one well-ordered sequence per
// stream.
type Feed interface {
	Subscribe(ctx context.Context, streamKey string, cb func(items []domain.Message)) (func(), error)
	Touch(ctx context.Context, streamKey string)
}

type Presence interface {
	SetTyping(ctx context.Context, streamKey, userID, displayName string, isTyping bool) error
	SubscribeTyping(ctx context.Context, streamKey string, cb func(names []string)) (func(), error)
}

type Publisher interface {
	MessageCreated(ctx context.Context, streamKey string, m *domain.Message) error
	BroadcastMention(ctx context.Context, streamKey, audience string, m *domain.Message) error
}

type User struct {
	ID          string
	DisplayName string
	Photo       string
	Role        string // "owner", "teacher", "student"
}

type Options struct {
	StreamKey         string
	BoardID           string
	User              User
	HighlightID       string // from a notification tap, may be empty
	UploadConcurrency int

	// Dispatch serializes asynchronous callbacks (subscription snapshots,
	// debounce timers) onto the same event loop that calls the public
	// methods. Defaults to immediate invocation for single-goroutine use.
	Dispatch func(fn func())
}

// Session owns the view state of one open conversation: reconciler,
// composer, gesture tracker, typing debounce and the single active audio
// handle. It is not goroutine-safe: all entry points must run on one
// dispatcher goroutine, cooperative interleaving only, the way a UI event
// loop would. The transport provides that loop via Options.Dispatch.
type Session struct {
	opts  Options
	view  View
	store Store
	feed  Feed
	pres  Presence
	pub   Publisher
	up    upload.Uploader
	lp    *preview.Fetcher
	log   *zap.Logger

	newID func() string

	rec       *stream.Reconciler
	hl        *stream.Highlighter
	swipe     *gesture.Tracker
	comp      composer
	typingDeb *timers.Debouncer

	members  []domain.MemberRef
	sections []domain.SectionRef

	nearBottom   bool
	typingActive bool
	audioPlaying string

	unsubFeed   func()
	unsubTyping func()
	closed      bool
}

func New(opts Options, view View, store Store, feed Feed, pres Presence, pub Publisher, up upload.Uploader, lp *preview.Fetcher, newID func() string, log *zap.Logger) *Session {
	if opts.UploadConcurrency < 1 {
		opts.UploadConcurrency = 3
	}
	if opts.Dispatch == nil {
		opts.Dispatch = func(fn func()) { fn() }
	}
	return &Session{
		opts:       opts,
		view:       view,
		store:      store,
		feed:       feed,
		pres:       pres,
		pub:        pub,
		up:         up,
		lp:         lp,
		log:        log,
		newID:      newID,
		rec:        stream.NewReconciler(opts.User.ID),
		hl:         stream.NewHighlighter(opts.HighlightID),
		swipe:      gesture.NewTracker(),
		typingDeb:  timers.NewDebouncer(),
		nearBottom: true,
	}
}

// Open loads the reference projections and wires the subscriptions. The
// feed delivers the first snapshot immediately after.
func (s *Session) Open(ctx context.Context) error {
	members, err := s.store.ListMembers(ctx, s.opts.BoardID)
	if err != nil {
		return err
	}
	sections, err := s.store.ListSections(ctx, s.opts.BoardID)
	if err != nil {
		return err
	}
	s.members, s.sections = members, sections

	unsubFeed, err := s.feed.Subscribe(ctx, s.opts.StreamKey, func(items []domain.Message) {
		s.opts.Dispatch(func() { s.onSnapshot(items) })
	})
	if err != nil {
		return err
	}
	s.unsubFeed = unsubFeed

	unsubTyping, err := s.pres.SubscribeTyping(ctx, s.opts.StreamKey, func(names []string) {
		s.opts.Dispatch(func() { s.view.TypingNames(names) })
	})
	if err != nil {
		unsubFeed()
		return err
	}
	s.unsubTyping = unsubTyping
	return nil
}

// Close tears the session down. Every timer started by this session has a
// matching cancel here so nothing fires after the view is gone.
func (s *Session) Close(ctx context.Context) {
	if s.closed {
		return
	}
	s.closed = true
	if s.unsubFeed != nil {
		s.unsubFeed()
	}
	if s.unsubTyping != nil {
		s.unsubTyping()
	}
	s.typingDeb.Cancel()
	if s.lp != nil {
		s.lp.Cancel()
	}
	if s.typingActive {
		_ = s.pres.SetTyping(ctx, s.opts.StreamKey, s.opts.User.ID, s.opts.User.DisplayName, false)
	}
	for _, url := range s.comp.reset() {
		s.view.ReleasePreviewURL(url)
	}
}

// onSnapshot is the subscription callback: merge, repaint, then move the
// viewport (or not) per the reconciliation policy.
func (s *Session) onSnapshot(items []domain.Message) {
	outcome := s.rec.Apply(items, s.nearBottom)

	s.view.RenderSnapshot(stream.GroupByDay(items))
	for i := range items {
		s.view.RenderRuns(items[i].ID, markup.Render(items[i].Content, s.members, s.sections))
	}

	switch outcome.Kind {
	case stream.OutcomeScrollBottom:
		s.view.ScrollToBottom(outcome.Smooth)
	case stream.OutcomeBadge:
		s.view.ShowBadge(outcome.Badge)
	}

	if id, ok := s.hl.Check(items); ok {
		s.view.ScrollToItem(id)
		s.view.Highlight(id, stream.DefaultHighlightWindow)
	}
}

// UpdateScroll feeds the scroll-container metrics back in. Reaching the
// bottom clears the pending-new badge.
func (s *Session) UpdateScroll(distanceFromBottom float64) {
	s.nearBottom = distanceFromBottom < nearBottomPx
	if s.nearBottom && s.rec.Badge() > 0 {
		s.rec.ClearBadge()
		s.view.ClearBadge()
	}
}

// DraftChanged handles one keystroke/caret move: typing indicator, token
// scan, suggestion matching and debounced link preview.
func (s *Session) DraftChanged(ctx context.Context, text string, caret int) {
	tok, active := s.comp.setDraft(text, caret)

	if !s.typingActive {
		s.typingActive = true
		if err := s.pres.SetTyping(ctx, s.opts.StreamKey, s.opts.User.ID, s.opts.User.DisplayName, true); err != nil {
			s.log.Warn("typing signal failed", zap.Error(err))
		}
	}
	s.typingDeb.Schedule(TypingQuietPeriod, func() {
		s.opts.Dispatch(func() {
			s.typingActive = false
			if err := s.pres.SetTyping(ctx, s.opts.StreamKey, s.opts.User.ID, s.opts.User.DisplayName, false); err != nil {
				s.log.Warn("typing signal failed", zap.Error(err))
			}
		})
	})

	if active {
		switch tok.Kind {
		case mention.TriggerSection:
			s.view.ShowSectionSuggestions(mention.MatchSections(tok.Query, s.sections))
		default:
			s.view.ShowMemberSuggestions(mention.MatchMembers(tok.Query, s.members))
		}
	} else {
		s.view.HideSuggestions()
	}

	if s.lp != nil {
		s.lp.OnDraftChanged(ctx, text, func(p *preview.Preview) {
			s.opts.Dispatch(func() { s.view.LinkPreview(p) })
		})
	}
}

// SelectSuggestion splices the picked name into the draft and pushes the
// new text and caret back to the input.
func (s *Session) SelectSuggestion(name string) {
	text, caret, ok := s.comp.selectSuggestion(name)
	if !ok {
		return
	}
	s.view.SetDraft(text, caret)
	s.view.HideSuggestions()
	s.view.FocusInput()
}

func (s *Session) AddAttachment(att domain.PendingAttachment) {
	s.comp.addAttachment(att)
}

func (s *Session) RemoveAttachment(i int) {
	if url, ok := s.comp.removeAttachment(i); ok && url != "" {
		s.view.ReleasePreviewURL(url)
	}
}

// StartReply freezes a snapshot of the target into the composer. Editing
// or deleting the original later never touches this snapshot.
func (s *Session) StartReply(ctx context.Context, messageID string) {
	m, err := s.store.GetByID(ctx, messageID)
	if err != nil {
		s.view.Error("could not load the message to reply to")
		return
	}
	s.comp.setReplyTarget(m)
	s.view.ReplyIntent(messageID)
	s.view.FocusInput()
}

func (s *Session) CancelReply() { s.comp.clearReplyTarget() }

// Submit uploads staged attachments, then writes the message(s). Text and
// each attachment become separate items, the reply snapshot rides on the
// first one written. The write path is not optimistic: on failure the user
// is told and the next snapshot remains the single source of truth.
func (s *Session) Submit(ctx context.Context) {
	text := strings.TrimSpace(s.comp.text)
	atts := s.comp.attachments
	if text == "" && len(atts) == 0 {
		return
	}

	urls, err := upload.UploadMany(ctx, s.up, atts, s.opts.UploadConcurrency, s.view.UploadProgress)
	if err != nil {
		s.log.Error("attachment batch failed", zap.Error(err))
		s.view.Error(err.Error())
		return
	}

	first := true
	sendOne := func(m *domain.Message) bool {
		if first {
			m.ReplyToID = s.comp.replyToID
			m.ReplyToAuthor = s.comp.replyToAuthor
			m.ReplyToContent = s.comp.replyToContent
			first = false
		}
		if err := s.store.Append(ctx, m); err != nil {
			s.log.Error("send failed", zap.String("stream", s.opts.StreamKey), zap.Error(err))
			s.view.Error("message could not be sent")
			return false
		}
		if err := s.pub.MessageCreated(ctx, s.opts.StreamKey, m); err != nil {
			s.log.Warn("message event publish failed", zap.Error(err))
		}
		s.notifyBroadcasts(ctx, m)
		return true
	}

	if text != "" {
		if !sendOne(s.newMessage(domain.KindText, text)) {
			return
		}
	}
	for i, att := range atts {
		m := s.newMessage(att.Kind, "")
		switch att.Kind {
		case domain.KindImage:
			m.ImageURL = urls[i]
		case domain.KindVideo:
			m.VideoURL = urls[i]
		case domain.KindAudio:
			m.AudioURL = urls[i]
		default:
			m.Kind = domain.KindFile
			m.FileURL = urls[i]
			m.FileName = att.Name
		}
		if !sendOne(m) {
			return
		}
	}

	s.feed.Touch(ctx, s.opts.StreamKey)
	s.typingDeb.Cancel()
	if s.typingActive {
		s.typingActive = false
		_ = s.pres.SetTyping(ctx, s.opts.StreamKey, s.opts.User.ID, s.opts.User.DisplayName, false)
	}
	for _, url := range s.comp.reset() {
		s.view.ReleasePreviewURL(url)
	}
	s.view.SetDraft("", 0)
	s.view.HideSuggestions()
}

func (s *Session) newMessage(kind domain.Kind, content string) *domain.Message {
	return &domain.Message{
		ID:          s.newID(),
		StreamID:    s.opts.StreamKey,
		SenderID:    s.opts.User.ID,
		SenderName:  s.opts.User.DisplayName,
		SenderPhoto: s.opts.User.Photo,
		Content:     content,
		Kind:        kind,
		CreatedAt:   time.Now().UTC(),
		Likes:       []string{},
	}
}

func (s *Session) notifyBroadcasts(ctx context.Context, m *domain.Message) {
	for _, b := range domain.BroadcastMembers {
		if strings.Contains(m.Content, "@"+b.DisplayName) {
			if err := s.pub.BroadcastMention(ctx, s.opts.StreamKey, b.DisplayName, m); err != nil {
				s.log.Warn("broadcast publish failed", zap.String("audience", b.DisplayName), zap.Error(err))
			}
		}
	}
}

// Edit rewrites one of the user's own messages.
func (s *Session) Edit(ctx context.Context, messageID, newContent string) {
	if !s.ownsOrModerates(ctx, messageID, false) {
		s.view.Error(ErrPermissionDenied.Error())
		return
	}
	if err := s.store.Edit(ctx, messageID, newContent); err != nil {
		s.log.Error("edit failed", zap.String("message", messageID), zap.Error(err))
		s.view.Error("message could not be edited")
		return
	}
	s.feed.Touch(ctx, s.opts.StreamKey)
}

// Delete removes a message. Owners and teachers may delete anyone's.
func (s *Session) Delete(ctx context.Context, messageID string) {
	if !s.ownsOrModerates(ctx, messageID, true) {
		s.view.Error(ErrPermissionDenied.Error())
		return
	}
	if err := s.store.Delete(ctx, messageID); err != nil {
		s.log.Error("delete failed", zap.String("message", messageID), zap.Error(err))
		s.view.Error("message could not be deleted")
		return
	}
	s.feed.Touch(ctx, s.opts.StreamKey)
}

// Pin toggles pin state. Moderators only.
func (s *Session) Pin(ctx context.Context, messageID string, pinned bool) {
	if !s.moderates() {
		s.view.Error(ErrPermissionDenied.Error())
		return
	}
	if err := s.store.SetPinned(ctx, messageID, pinned); err != nil {
		s.log.Error("pin failed", zap.String("message", messageID), zap.Error(err))
		s.view.Error("pin state could not be changed")
		return
	}
	s.feed.Touch(ctx, s.opts.StreamKey)
}

// ToggleLike flips the user's like on a comment.
func (s *Session) ToggleLike(ctx context.Context, messageID string) {
	m, err := s.store.GetByID(ctx, messageID)
	if err != nil {
		s.view.Error("message not found")
		return
	}
	if m.LikedBy(s.opts.User.ID) {
		err = s.store.Unlike(ctx, messageID, s.opts.User.ID)
	} else {
		err = s.store.Like(ctx, messageID, s.opts.User.ID)
	}
	if err != nil {
		s.log.Error("like failed", zap.String("message", messageID), zap.Error(err))
		s.view.Error("like could not be saved")
		return
	}
	s.feed.Touch(ctx, s.opts.StreamKey)
}

// Clear wipes the whole stream. The role check happens before any
// round-trip; students get the inline denial immediately.
func (s *Session) Clear(ctx context.Context) {
	if !s.moderates() {
		s.view.Error(ErrPermissionDenied.Error())
		return
	}
	if err := s.store.Clear(ctx, s.opts.StreamKey); err != nil {
		s.log.Error("clear failed", zap.String("stream", s.opts.StreamKey), zap.Error(err))
		s.view.Error("stream could not be cleared")
		return
	}
	s.feed.Touch(ctx, s.opts.StreamKey)
}

// TouchStart/TouchMove/TouchEnd drive the swipe-to-reply gesture.
func (s *Session) TouchStart(itemID string, x float64) {
	s.swipe.Start(itemID, x)
}

func (s *Session) TouchMove(x float64) {
	if id := s.swipe.ActiveID(); id != "" {
		s.view.SwipeOffset(id, s.swipe.Move(x))
	}
}

func (s *Session) TouchEnd(ctx context.Context) {
	id, committed := s.swipe.End()
	if id != "" {
		s.view.SwipeOffset(id, 0)
	}
	if committed {
		s.StartReply(ctx, id)
	}
}

// PlayAudio switches the single playback handle. Starting a second item
// pauses the first before the new one starts; the reference is replaced
// whole within one dispatch.
func (s *Session) PlayAudio(id string) {
	if s.audioPlaying != "" && s.audioPlaying != id {
		s.view.PauseAudio(s.audioPlaying)
	}
	s.audioPlaying = id
	s.view.PlayAudio(id)
}

func (s *Session) StopAudio() {
	if s.audioPlaying != "" {
		s.view.PauseAudio(s.audioPlaying)
		s.audioPlaying = ""
	}
}

func (s *Session) moderates() bool {
	return s.opts.User.Role == "owner" || s.opts.User.Role == "teacher"
}

// ownsOrModerates checks ownership of messageID; moderators pass when
// allowModerator is set.
func (s *Session) ownsOrModerates(ctx context.Context, messageID string, allowModerator bool) bool {
	if allowModerator && s.moderates() {
		return true
	}
	m, err := s.store.GetByID(ctx, messageID)
	if err != nil {
		return false
	}
	return m.SenderID == s.opts.User.ID
}
