package api

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classboard/board-stream/internal/auth"
	"github.com/classboard/board-stream/internal/domain"
	"github.com/classboard/board-stream/internal/events"
	"github.com/classboard/board-stream/internal/pubsub"
	"github.com/classboard/board-stream/internal/repository"
	"github.com/classboard/board-stream/internal/stream"
	"github.com/classboard/board-stream/internal/upload"
)

// Handlers is the REST surface over board streams. The websocket view
// sessions cover the live path; these endpoints serve one-shot clients.
type Handlers struct {
	repo *repository.MongoRepository
	feed *pubsub.Feed
	pres *pubsub.Presence
	pub  *events.Publisher
	up   upload.Uploader
	log  *zap.Logger
}

func NewHandlers(repo *repository.MongoRepository, feed *pubsub.Feed, pres *pubsub.Presence, pub *events.Publisher, up upload.Uploader, log *zap.Logger) *Handlers {
	return &Handlers{repo: repo, feed: feed, pres: pres, pub: pub, up: up, log: log}
}

func claimsOf(c *fiber.Ctx) *auth.Claims {
	return c.Locals("claims").(*auth.Claims)
}

func moderates(cl *auth.Claims) bool {
	return cl.Role == "owner" || cl.Role == "teacher"
}

func (h *Handlers) listStream(c *fiber.Ctx) error {
	streamKey := c.Params("stream_key")
	items, err := h.repo.List(c.Context(), streamKey)
	if err != nil {
		h.log.Error("list failed", zap.String("stream", streamKey), zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "could not load stream"})
	}
	return c.JSON(fiber.Map{"status": "ok", "data": stream.GroupByDay(items)})
}

func (h *Handlers) sendMessage(c *fiber.Ctx) error {
	var req struct {
		Content       string `json:"content"`
		Kind          string `json:"kind"`
		ImageURL      string `json:"image_url"`
		VideoURL      string `json:"video_url"`
		AudioURL      string `json:"audio_url"`
		AudioDuration int    `json:"audio_duration"`
		FileURL       string `json:"file_url"`
		FileName      string `json:"file_name"`
		ReplyToID     string `json:"reply_to_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	streamKey := c.Params("stream_key")
	cl := claimsOf(c)

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	m := &domain.Message{
		ID:            uuid.NewString(),
		StreamID:      streamKey,
		SenderID:      cl.UserID,
		SenderName:    cl.DisplayName,
		Content:       req.Content,
		Kind:          domain.KindText,
		CreatedAt:     time.Now().UTC(),
		ImageURL:      req.ImageURL,
		VideoURL:      req.VideoURL,
		AudioURL:      req.AudioURL,
		AudioDuration: req.AudioDuration,
		FileURL:       req.FileURL,
		FileName:      req.FileName,
		Likes:         []string{},
	}
	switch domain.Kind(req.Kind) {
	case domain.KindImage, domain.KindVideo, domain.KindAudio, domain.KindFile:
		m.Kind = domain.Kind(req.Kind)
	}

	if req.ReplyToID != "" {
		// freeze the reply snapshot at send time
		if orig, err := h.repo.GetByID(ctx, req.ReplyToID); err == nil {
			m.ReplyToID = orig.ID
			m.ReplyToAuthor = orig.SenderName
			m.ReplyToContent = orig.Content
		}
	}

	if err := h.repo.Append(ctx, m); err != nil {
		h.log.Error("send failed", zap.String("stream", streamKey), zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "message could not be sent"})
	}
	if err := h.pub.MessageCreated(ctx, streamKey, m); err != nil {
		h.log.Warn("message event publish failed", zap.Error(err))
	}
	for _, b := range domain.BroadcastMembers {
		if strings.Contains(m.Content, "@"+b.DisplayName) {
			if err := h.pub.BroadcastMention(ctx, streamKey, b.DisplayName, m); err != nil {
				h.log.Warn("broadcast publish failed", zap.Error(err))
			}
		}
	}
	h.feed.Touch(ctx, streamKey)
	return c.Status(201).JSON(fiber.Map{"status": "ok", "data": m})
}

func (h *Handlers) editMessage(c *fiber.Ctx) error {
	var body struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	msgID := c.Params("msg_id")
	cl := claimsOf(c)

	m, err := h.repo.GetByID(c.Context(), msgID)
	if err != nil {
		return h.notFoundOr500(c, err, "edit")
	}
	if m.SenderID != cl.UserID {
		return c.Status(403).JSON(fiber.Map{"error": "permission denied"})
	}
	if err := h.repo.Edit(c.Context(), msgID, body.Content); err != nil {
		return h.notFoundOr500(c, err, "edit")
	}
	h.feed.Touch(c.Context(), m.StreamID)
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handlers) deleteMessage(c *fiber.Ctx) error {
	msgID := c.Params("msg_id")
	cl := claimsOf(c)

	m, err := h.repo.GetByID(c.Context(), msgID)
	if err != nil {
		return h.notFoundOr500(c, err, "delete")
	}
	if m.SenderID != cl.UserID && !moderates(cl) {
		return c.Status(403).JSON(fiber.Map{"error": "permission denied"})
	}
	if err := h.repo.Delete(c.Context(), msgID); err != nil {
		return h.notFoundOr500(c, err, "delete")
	}
	h.feed.Touch(c.Context(), m.StreamID)
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handlers) pinMessage(pinned bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		msgID := c.Params("msg_id")
		if !moderates(claimsOf(c)) {
			return c.Status(403).JSON(fiber.Map{"error": "permission denied"})
		}
		m, err := h.repo.GetByID(c.Context(), msgID)
		if err != nil {
			return h.notFoundOr500(c, err, "pin")
		}
		if err := h.repo.SetPinned(c.Context(), msgID, pinned); err != nil {
			return h.notFoundOr500(c, err, "pin")
		}
		h.feed.Touch(c.Context(), m.StreamID)
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

func (h *Handlers) toggleLike(c *fiber.Ctx) error {
	msgID := c.Params("msg_id")
	cl := claimsOf(c)

	m, err := h.repo.GetByID(c.Context(), msgID)
	if err != nil {
		return h.notFoundOr500(c, err, "like")
	}
	if m.LikedBy(cl.UserID) {
		err = h.repo.Unlike(c.Context(), msgID, cl.UserID)
	} else {
		err = h.repo.Like(c.Context(), msgID, cl.UserID)
	}
	if err != nil {
		return h.notFoundOr500(c, err, "like")
	}
	h.feed.Touch(c.Context(), m.StreamID)
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handlers) clearStream(c *fiber.Ctx) error {
	streamKey := c.Params("stream_key")
	if !moderates(claimsOf(c)) {
		return c.Status(403).JSON(fiber.Map{"error": "permission denied"})
	}
	if err := h.repo.Clear(c.Context(), streamKey); err != nil {
		h.log.Error("clear failed", zap.String("stream", streamKey), zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "stream could not be cleared"})
	}
	h.feed.Touch(c.Context(), streamKey)
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handlers) setTyping(c *fiber.Ctx) error {
	var body struct {
		IsTyping bool `json:"is_typing"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	cl := claimsOf(c)
	streamKey := c.Params("stream_key")
	if err := h.pres.SetTyping(c.Context(), streamKey, cl.UserID, cl.DisplayName, body.IsTyping); err != nil {
		h.log.Warn("typing signal failed", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "typing signal failed"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// uploadAttachment takes one multipart file and returns its storage URL,
// for clients composing over REST instead of a live session.
func (h *Handlers) uploadAttachment(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "file missing"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "file unreadable"})
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "file unreadable"})
	}

	kind := domain.Kind(c.FormValue("kind", string(domain.KindFile)))
	url, err := h.up.Upload(c.Context(), domain.PendingAttachment{
		Kind:        kind,
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		h.log.Error("upload failed", zap.String("file", fh.Filename), zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "upload failed: " + fh.Filename})
	}
	return c.JSON(fiber.Map{"status": "ok", "url": url})
}

func (h *Handlers) notFoundOr500(c *fiber.Ctx, err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "not found"})
	}
	h.log.Error(op+" failed", zap.Error(err))
	return c.Status(500).JSON(fiber.Map{"error": op + " failed"})
}
