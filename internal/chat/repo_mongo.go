package chat

import (
	"context"
	"slices"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	mongostore "research-backend/internal/shared/storage/mongo"
)

// MongoRepo implements Repo on the chats collection.
type MongoRepo struct {
	coll *mongo.Collection
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{coll: db.Collection(mongostore.ChatMessagesCollection)}
}

func (r *MongoRepo) Append(ctx context.Context, msg Message) error {
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

func (r *MongoRepo) History(ctx context.Context, ownerID, documentID string, limit int) ([]Message, error) {
	return r.find(ctx, ownerID, documentID, 1, limit)
}

func (r *MongoRepo) Latest(ctx context.Context, ownerID, documentID string, limit int) ([]Message, error) {
	out, err := r.find(ctx, ownerID, documentID, -1, limit)
	if err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

func (r *MongoRepo) find(ctx context.Context, ownerID, documentID string, order, limit int) ([]Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: order}, {Key: "_id", Value: order}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.coll.Find(ctx, bson.M{"document_id": documentID, "user_id": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	out := []Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepo) DeleteByDocument(ctx context.Context, ownerID, documentID string) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"document_id": documentID, "user_id": ownerID})
	return err
}

func (r *MongoRepo) Count(ctx context.Context, ownerID string) (Counts, error) {
	total, err := r.coll.CountDocuments(ctx, bson.M{"user_id": ownerID})
	if err != nil {
		return Counts{}, err
	}
	questions, err := r.coll.CountDocuments(ctx, bson.M{"user_id": ownerID, "role": RoleUser})
	if err != nil {
		return Counts{}, err
	}
	return Counts{Messages: total, Questions: questions}, nil
}

var _ Repo = (*MongoRepo)(nil)
