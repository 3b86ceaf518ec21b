package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classboard/board-stream/internal/auth"
	"github.com/classboard/board-stream/internal/config"
	"github.com/classboard/board-stream/internal/domain"
	"github.com/classboard/board-stream/internal/events"
	"github.com/classboard/board-stream/internal/markup"
	"github.com/classboard/board-stream/internal/mention"
	"github.com/classboard/board-stream/internal/preview"
	"github.com/classboard/board-stream/internal/pubsub"
	"github.com/classboard/board-stream/internal/repository"
	"github.com/classboard/board-stream/internal/session"
	"github.com/classboard/board-stream/internal/stream"
	"github.com/classboard/board-stream/internal/upload"
)

// WSHandler upgrades a client into a live conversation view session. The
// wire is thin: raw input events in, view directives out; all view state
// lives server-side in the session.
type WSHandler struct {
	repo *repository.MongoRepository
	feed *pubsub.Feed
	pres *pubsub.Presence
	pub  *events.Publisher
	up   upload.Uploader
	cfg  *config.Config
	log  *zap.Logger
}

func NewWSHandler(repo *repository.MongoRepository, feed *pubsub.Feed, pres *pubsub.Presence, pub *events.Publisher, up upload.Uploader, cfg *config.Config, log *zap.Logger) *WSHandler {
	return &WSHandler{repo: repo, feed: feed, pres: pres, pub: pub, up: up, cfg: cfg, log: log}
}

// inputEvent is one raw client event. Fields are a union over event types.
type inputEvent struct {
	Type string `json:"type"`

	Text  string `json:"text,omitempty"`
	Caret int    `json:"caret,omitempty"`

	Name string `json:"name,omitempty"`

	DistanceFromBottom float64 `json:"distance_from_bottom,omitempty"`

	ItemID string  `json:"item_id,omitempty"`
	X      float64 `json:"x,omitempty"`

	Content string `json:"content,omitempty"`
	Pinned  bool   `json:"pinned,omitempty"`

	Kind        string `json:"kind,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"data,omitempty"` // base64 on the wire
	Index       int    `json:"index,omitempty"`
}

// Handle runs one connection. The event loop goroutine is the only place
// session methods execute; the read pump and subscription callbacks both
// funnel into it.
func (h *WSHandler) Handle(wsConn *websocket.Conn) {
	claims, ok := wsConn.Locals("claims").(*auth.Claims)
	if !ok || claims == nil {
		_ = wsConn.Close()
		return
	}
	streamKey := wsConn.Params("stream_key")
	boardID := wsConn.Query("board_id", streamKey)
	highlightID := wsConn.Query("highlight")
	if streamKey == "" {
		_ = wsConn.Close()
		return
	}

	view := &wsView{send: make(chan any, 256)}
	loop := make(chan func(), 256)
	dispatch := func(fn func()) {
		select {
		case loop <- fn:
		default:
			// client hopelessly behind; drop rather than block the feed
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := session.New(session.Options{
		StreamKey: streamKey,
		BoardID:   boardID,
		User: session.User{
			ID:          claims.UserID,
			DisplayName: claims.DisplayName,
			Role:        claims.Role,
		},
		HighlightID:       highlightID,
		UploadConcurrency: h.cfg.Upload.Concurrency,
		Dispatch:          dispatch,
	}, view, h.repo, h.feed, h.pres, h.pub, h.up, preview.NewFetcher(nil), uuid.NewString, h.log)

	if err := sess.Open(ctx); err != nil {
		h.log.Error("session open failed", zap.String("stream", streamKey), zap.Error(err))
		_ = wsConn.Close()
		return
	}

	done := make(chan struct{})
	go view.writePump(wsConn, h.cfg.PingInterval, h.cfg.WriteDeadline, done)
	go func() {
		for {
			select {
			case <-done:
				return
			case fn := <-loop:
				fn()
			}
		}
	}()

	h.readPump(ctx, wsConn, sess, dispatch)

	// teardown runs on the loop so it cannot race a late snapshot
	finished := make(chan struct{})
	loop <- func() {
		sess.Close(context.Background())
		close(finished)
	}
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
	}
	close(done)
	_ = wsConn.Close()
}

func (h *WSHandler) readPump(ctx context.Context, wsConn *websocket.Conn, sess *session.Session, dispatch func(func())) {
	wsConn.SetReadLimit(h.cfg.WS.MaxMessageSizeBytes)
	_ = wsConn.SetReadDeadline(time.Now().Add(60 * time.Second))
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			return
		}
		var ev inputEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		dispatch(func() { h.apply(ctx, sess, ev) })
	}
}

func (h *WSHandler) apply(ctx context.Context, sess *session.Session, ev inputEvent) {
	switch ev.Type {
	case "draft":
		sess.DraftChanged(ctx, ev.Text, ev.Caret)
	case "select":
		sess.SelectSuggestion(ev.Name)
	case "scroll":
		sess.UpdateScroll(ev.DistanceFromBottom)
	case "attach":
		kind := domain.Kind(ev.Kind)
		switch kind {
		case domain.KindImage, domain.KindVideo, domain.KindAudio, domain.KindFile:
		default:
			kind = domain.KindFile
		}
		sess.AddAttachment(domain.PendingAttachment{
			Kind:        kind,
			Name:        ev.FileName,
			ContentType: ev.ContentType,
			Data:        ev.Data,
		})
	case "detach":
		sess.RemoveAttachment(ev.Index)
	case "submit":
		sess.Submit(ctx)
	case "reply":
		sess.StartReply(ctx, ev.ItemID)
	case "cancel_reply":
		sess.CancelReply()
	case "edit":
		sess.Edit(ctx, ev.ItemID, ev.Content)
	case "delete":
		sess.Delete(ctx, ev.ItemID)
	case "pin":
		sess.Pin(ctx, ev.ItemID, ev.Pinned)
	case "like":
		sess.ToggleLike(ctx, ev.ItemID)
	case "clear":
		sess.Clear(ctx)
	case "touch_start":
		sess.TouchStart(ev.ItemID, ev.X)
	case "touch_move":
		sess.TouchMove(ev.X)
	case "touch_end":
		sess.TouchEnd(ctx)
	case "play_audio":
		sess.PlayAudio(ev.ItemID)
	case "stop_audio":
		sess.StopAudio()
	}
}

// wsView maps session.View directives onto outbound JSON frames.
type wsView struct {
	send chan any
}

func (v *wsView) push(d any) {
	select {
	case v.send <- d:
	default:
		// slow consumer, drop the directive
	}
}

func (v *wsView) writePump(wsConn *websocket.Conn, pingInterval, writeDeadline time.Duration, done chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = wsConn.Close()
	}()
	for {
		select {
		case <-done:
			return
		case d := <-v.send:
			_ = wsConn.SetWriteDeadline(time.Now().Add(writeDeadline))
			b, err := json.Marshal(d)
			if err != nil {
				continue
			}
			if err := wsConn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = wsConn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := wsConn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}

type directive struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func (v *wsView) RenderSnapshot(buckets []stream.Bucket) {
	v.push(directive{Type: "snapshot", Data: buckets})
}

func (v *wsView) RenderRuns(messageID string, runs []markup.Run) {
	v.push(directive{Type: "runs", Data: map[string]any{"message_id": messageID, "runs": runs}})
}

func (v *wsView) ScrollToBottom(smooth bool) {
	v.push(directive{Type: "scroll_bottom", Data: map[string]any{"smooth": smooth}})
}

func (v *wsView) ScrollToItem(id string) {
	v.push(directive{Type: "scroll_item", Data: map[string]any{"item_id": id}})
}

func (v *wsView) ShowBadge(count int) {
	v.push(directive{Type: "badge", Data: map[string]any{"count": count}})
}

func (v *wsView) ClearBadge() {
	v.push(directive{Type: "badge", Data: map[string]any{"count": 0}})
}

func (v *wsView) Highlight(id string, window time.Duration) {
	v.push(directive{Type: "highlight", Data: map[string]any{"item_id": id, "window_ms": window.Milliseconds()}})
}

func (v *wsView) ShowMemberSuggestions(s mention.Suggestions) {
	v.push(directive{Type: "member_suggestions", Data: s})
}

func (v *wsView) ShowSectionSuggestions(s []domain.SectionRef) {
	v.push(directive{Type: "section_suggestions", Data: s})
}

func (v *wsView) HideSuggestions() {
	v.push(directive{Type: "hide_suggestions"})
}

func (v *wsView) SetDraft(text string, caret int) {
	v.push(directive{Type: "set_draft", Data: map[string]any{"text": text, "caret": caret}})
}

func (v *wsView) FocusInput() {
	v.push(directive{Type: "focus_input"})
}

func (v *wsView) SwipeOffset(itemID string, offset float64) {
	v.push(directive{Type: "swipe_offset", Data: map[string]any{"item_id": itemID, "offset": offset}})
}

func (v *wsView) ReplyIntent(itemID string) {
	v.push(directive{Type: "reply_intent", Data: map[string]any{"item_id": itemID}})
}

func (v *wsView) TypingNames(names []string) {
	v.push(directive{Type: "typing", Data: names})
}

func (v *wsView) UploadProgress(doneCount, total int) {
	v.push(directive{Type: "upload_progress", Data: map[string]any{"done": doneCount, "total": total}})
}

func (v *wsView) LinkPreview(p *preview.Preview) {
	v.push(directive{Type: "link_preview", Data: p})
}

func (v *wsView) PlayAudio(id string) {
	v.push(directive{Type: "play_audio", Data: map[string]any{"item_id": id}})
}

func (v *wsView) PauseAudio(id string) {
	v.push(directive{Type: "pause_audio", Data: map[string]any{"item_id": id}})
}

func (v *wsView) ReleasePreviewURL(url string) {
	v.push(directive{Type: "release_preview", Data: map[string]any{"url": url}})
}

func (v *wsView) Error(msg string) {
	v.push(directive{Type: "error", Data: map[string]any{"message": msg}})
}
