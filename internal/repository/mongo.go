package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/classboard/board-stream/internal/domain"
)

var ErrNotFound = errors.New("not found")

type MongoRepository struct {
	db      *mongo.Database
	msgColl *mongo.Collection
	memColl *mongo.Collection
	secColl *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	r := &MongoRepository{
		db:      db,
		msgColl: db.Collection("messages"),
		memColl: db.Collection("members"),
		secColl: db.Collection("sections"),
	}
	_, _ = r.msgColl.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "stream_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return r
}

// List returns the full ordered snapshot of a stream, oldest first.
// Soft-deleted items are excluded.
func (r *MongoRepository) List(ctx context.Context, streamID string) ([]domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"stream_id": streamID, "deleted": bson.M{"$ne": true}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.msgColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []domain.Message{}
	for cur.Next(ctx) {
		var m domain.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		// documents without an identity never reach callers
		if err := m.Normalize(); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, cur.Err()
}

func (r *MongoRepository) Append(ctx context.Context, m *domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if m.Likes == nil {
		m.Likes = []string{}
	}
	filter := bson.M{"_id": m.ID}
	update := bson.M{"$setOnInsert": m}
	_, err := r.msgColl.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// Edit replaces content and flags the message edited. Reply snapshots on
// quoting children are left untouched.
func (r *MongoRepository) Edit(ctx context.Context, messageID, newContent string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.msgColl.UpdateOne(ctx,
		bson.M{"_id": messageID},
		bson.M{"$set": bson.M{"content": newContent, "is_edited": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete soft-deletes: the item drops out of List but the document stays,
// so frozen reply snapshots keep meaning something.
func (r *MongoRepository) Delete(ctx context.Context, messageID string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.msgColl.UpdateOne(ctx,
		bson.M{"_id": messageID},
		bson.M{"$set": bson.M{"deleted": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) SetPinned(ctx context.Context, messageID string, pinned bool) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"is_pinned": pinned, "pinned_at": time.Now().UTC()}}
	if !pinned {
		update = bson.M{"$set": bson.M{"is_pinned": false}, "$unset": bson.M{"pinned_at": ""}}
	}
	res, err := r.msgColl.UpdateOne(ctx, bson.M{"_id": messageID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) Like(ctx context.Context, messageID, userID string) error {
	return r.updateLikes(ctx, messageID, bson.M{"$addToSet": bson.M{"likes": userID}})
}

func (r *MongoRepository) Unlike(ctx context.Context, messageID, userID string) error {
	return r.updateLikes(ctx, messageID, bson.M{"$pull": bson.M{"likes": userID}})
}

func (r *MongoRepository) updateLikes(ctx context.Context, messageID string, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.msgColl.UpdateOne(ctx, bson.M{"_id": messageID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear soft-deletes every message in a stream. Caller enforces the
// owner/teacher role check before getting here.
func (r *MongoRepository) Clear(ctx context.Context, streamID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.msgColl.UpdateMany(ctx,
		bson.M{"stream_id": streamID},
		bson.M{"$set": bson.M{"deleted": true}},
	)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, messageID string) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var m domain.Message
	if err := r.msgColl.FindOne(ctx, bson.M{"_id": messageID}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := m.Normalize(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMembers returns the board membership projection used for mention
// autocomplete. The list is owned elsewhere; this layer only reads it.
func (r *MongoRepository) ListMembers(ctx context.Context, boardID string) ([]domain.MemberRef, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	cur, err := r.memColl.Find(ctx, bson.M{"board_id": boardID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []domain.MemberRef{}
	for cur.Next(ctx) {
		var m domain.MemberRef
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, cur.Err()
}

func (r *MongoRepository) ListSections(ctx context.Context, boardID string) ([]domain.SectionRef, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	cur, err := r.secColl.Find(ctx, bson.M{"board_id": boardID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []domain.SectionRef{}
	for cur.Next(ctx) {
		var s domain.SectionRef
		if err := cur.Decode(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, cur.Err()
}
