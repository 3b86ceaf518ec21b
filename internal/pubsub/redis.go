package pubsub

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/classboard/board-stream/internal/domain"
)

// Lister fetches the ordered full snapshot for a stream. The feed never
// diffs; every invalidation triggers a fresh full read.
type Lister interface {
	List(ctx context.Context, streamID string) ([]domain.Message, error)
}

// Feed delivers full-snapshot subscription callbacks per stream over Redis
// pub/sub. Writers call Touch after any mutation; every subscriber then
// refetches and receives the new snapshot. Callbacks for one stream arrive
// in a single well-ordered sequence; nothing is guaranteed across streams.
type Feed struct {
	rdb    *redis.Client
	lister Lister
	prefix string
	log    *zap.Logger
}

func NewFeed(rdb *redis.Client, lister Lister, prefix string, log *zap.Logger) *Feed {
	return &Feed{rdb: rdb, lister: lister, prefix: prefix, log: log}
}

func (f *Feed) streamChannel(streamKey string) string {
	return fmt.Sprintf("%s:stream:%s", f.prefix, streamKey)
}

// Touch signals that streamKey changed.
func (f *Feed) Touch(ctx context.Context, streamKey string) {
	if err := f.rdb.Publish(ctx, f.streamChannel(streamKey), "1").Err(); err != nil {
		f.log.Warn("feed touch failed", zap.String("stream", streamKey), zap.Error(err))
	}
}

// Subscribe delivers the current snapshot once, then again after every
// Touch, until the returned teardown function is called. The callback is
// never invoked concurrently with itself.
func (f *Feed) Subscribe(ctx context.Context, streamKey string, cb func(items []domain.Message)) (func(), error) {
	sub := f.rdb.Subscribe(ctx, f.streamChannel(streamKey))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	deliver := func() {
		items, err := f.lister.List(ctx, streamKey)
		if err != nil {
			f.log.Warn("feed snapshot fetch failed", zap.String("stream", streamKey), zap.Error(err))
			return
		}
		cb(items)
	}

	done := make(chan struct{})
	go func() {
		deliver()
		ch := sub.Channel()
		for {
			select {
			case <-done:
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				deliver()
			}
		}
	}()

	var once bool
	return func() {
		if once {
			return
		}
		once = true
		close(done)
		_ = sub.Close()
	}, nil
}

const typingTTL = 6 * time.Second

// Presence tracks who is typing in a stream. The quiet-period debounce
// lives with the caller; the TTL here is only a safety net against clients
// that vanish without sending the stopped-typing signal.
type Presence struct {
	rdb    *redis.Client
	prefix string
	log    *zap.Logger
}

func NewPresence(rdb *redis.Client, prefix string, log *zap.Logger) *Presence {
	return &Presence{rdb: rdb, prefix: prefix, log: log}
}

func (p *Presence) typingKey(streamKey, userID string) string {
	return fmt.Sprintf("%s:typing:%s:%s", p.prefix, streamKey, userID)
}

func (p *Presence) typingChannel(streamKey string) string {
	return fmt.Sprintf("%s:typing-ch:%s", p.prefix, streamKey)
}

func (p *Presence) SetTyping(ctx context.Context, streamKey, userID, displayName string, isTyping bool) error {
	if isTyping {
		if err := p.rdb.Set(ctx, p.typingKey(streamKey, userID), displayName, typingTTL).Err(); err != nil {
			return err
		}
	} else {
		if err := p.rdb.Del(ctx, p.typingKey(streamKey, userID)).Err(); err != nil {
			return err
		}
	}
	return p.rdb.Publish(ctx, p.typingChannel(streamKey), userID).Err()
}

// ActiveNames lists display names currently marked typing in streamKey.
func (p *Presence) ActiveNames(ctx context.Context, streamKey string) ([]string, error) {
	pattern := fmt.Sprintf("%s:typing:%s:*", p.prefix, streamKey)
	var names []string
	iter := p.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		name, err := p.rdb.Get(ctx, iter.Val()).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, err
		}
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	return names, iter.Err()
}

// SubscribeTyping delivers the active-typers name list after every typing
// signal until torn down.
func (p *Presence) SubscribeTyping(ctx context.Context, streamKey string, cb func(names []string)) (func(), error) {
	sub := p.rdb.Subscribe(ctx, p.typingChannel(streamKey))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-done:
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				names, err := p.ActiveNames(ctx, streamKey)
				if err != nil {
					p.log.Warn("typing scan failed", zap.String("stream", streamKey), zap.Error(err))
					continue
				}
				cb(names)
			}
		}
	}()

	var once bool
	return func() {
		if once {
			return
		}
		once = true
		close(done)
		_ = sub.Close()
	}, nil
}
