package documents

import (
	"context"
	"errors"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	mongostore "research-backend/internal/shared/storage/mongo"
)

// MongoRepo implements Repo on the documents collection.
type MongoRepo struct {
	coll *mongo.Collection
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{coll: db.Collection(mongostore.DocumentsCollection)}
}

func (r *MongoRepo) Create(ctx context.Context, doc Document) error {
	_, err := r.coll.InsertOne(ctx, doc)
	return err
}

func (r *MongoRepo) Get(ctx context.Context, ownerID, id string) (Document, error) {
	var doc Document
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "user_id": ownerID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (r *MongoRepo) List(ctx context.Context, ownerID string, f Filter, limit int) ([]Document, error) {
	return r.find(ctx, filterDoc(ownerID, f), limit)
}

func (r *MongoRepo) Search(ctx context.Context, ownerID, query string, f Filter, limit int) ([]Document, error) {
	filter := filterDoc(ownerID, f)
	if query != "" {
		filter["$or"] = bson.A{
			bson.M{"title": mongostore.ContainsFold(query)},
			bson.M{"text_content": mongostore.ContainsFold(query)},
		}
	}
	return r.find(ctx, filter, limit)
}

func (r *MongoRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "user_id": ownerID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepo) Summarize(ctx context.Context, ownerID string) (Summary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": ownerID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"count": bson.M{"$sum": 1},
			"pages": bson.M{"$sum": "$page_count"},
		}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return Summary{}, err
	}
	var totals []struct {
		Count int64 `bson:"count"`
		Pages int64 `bson:"pages"`
	}
	if err := cur.All(ctx, &totals); err != nil {
		return Summary{}, err
	}

	var sum Summary
	if len(totals) > 0 {
		sum.TotalDocuments = totals[0].Count
		sum.TotalPages = totals[0].Pages
	}
	if sum.Companies, err = r.distinct(ctx, "company", ownerID); err != nil {
		return Summary{}, err
	}
	if sum.Industries, err = r.distinct(ctx, "industry", ownerID); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

func (r *MongoRepo) distinct(ctx context.Context, field, ownerID string) ([]string, error) {
	var values []string
	res := r.coll.Distinct(ctx, field, bson.M{"user_id": ownerID, field: bson.M{"$ne": nil}})
	if err := res.Decode(&values); err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	sort.Strings(values)
	return values, nil
}

func (r *MongoRepo) find(ctx context.Context, filter bson.M, limit int) ([]Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "upload_date", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	docs := []Document{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func filterDoc(ownerID string, f Filter) bson.M {
	filter := bson.M{"user_id": ownerID}
	if f.Company != "" {
		filter["company"] = mongostore.ContainsFold(f.Company)
	}
	if f.Industry != "" {
		filter["industry"] = mongostore.ContainsFold(f.Industry)
	}
	return filter
}

var _ Repo = (*MongoRepo)(nil)
