package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/biolink/pkg/analytics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// eventDoc is the projection shared by every collection the graphs read.
type eventDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	CreatedAt  time.Time          `bson:"createdAt"`
	Amount     float64            `bson:"amount,omitempty"`
	MerchantID string             `bson:"merchantId,omitempty"`
	UserID     string             `bson:"userId,omitempty"`
	ReferredBy string             `bson:"referredBy,omitempty"`
}

type kindSpec struct {
	collection    string
	base          bson.M
	merchantField string
	sumAmount     bool
	owner         func(doc eventDoc, scoped bool) string
}

func docID(doc eventDoc, _ bool) string { return doc.ID.Hex() }

func trackerOwner(doc eventDoc, scoped bool) string {
	if scoped {
		return doc.UserID
	}
	return doc.MerchantID
}

var kindSpecs = map[analytics.EventKind]kindSpec{
	analytics.KindUserSignup: {
		collection:    UsersCollection,
		merchantField: "referredBy",
		owner:         docID,
	},
	analytics.KindMerchantSignup: {
		collection: MerchantsCollection,
		owner:      docID,
	},
	analytics.KindOfferCreated: {
		collection:    OffersCollection,
		merchantField: "merchantId",
		owner:         func(doc eventDoc, _ bool) string { return doc.MerchantID },
	},
	analytics.KindClick: {
		collection:    TrackersCollection,
		base:          bson.M{"type": "click"},
		merchantField: "merchantId",
		owner:         trackerOwner,
	},
	analytics.KindEarning: {
		collection:    TrackersCollection,
		base:          bson.M{"type": "earning"},
		merchantField: "merchantId",
		sumAmount:     true,
		owner:         trackerOwner,
	},
}

func specFor(kind analytics.EventKind) (kindSpec, error) {
	spec, ok := kindSpecs[kind]
	if !ok {
		return kindSpec{}, fmt.Errorf("unknown event kind %q", kind)
	}
	return spec, nil
}

func (sp kindSpec) filter(q analytics.EventQuery) bson.M {
	filter := bson.M{}
	for k, v := range sp.base {
		filter[k] = v
	}
	if q.MerchantID != "" && sp.merchantField != "" {
		filter[sp.merchantField] = q.MerchantID
	}

	window := bson.M{}
	if !q.From.IsZero() {
		window["$gte"] = q.From
	}
	if !q.To.IsZero() {
		window["$lte"] = q.To
	}
	if len(window) > 0 {
		filter["createdAt"] = window
	}
	return filter
}

// Events returns the dated events matching q.
func (s *Store) Events(ctx context.Context, q analytics.EventQuery) ([]analytics.TimedEvent, error) {
	spec, err := specFor(q.Kind)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetProjection(bson.M{
		"createdAt": 1, "amount": 1, "merchantId": 1, "userId": 1, "referredBy": 1,
	})
	cursor, err := s.collection(spec.collection).Find(ctx, spec.filter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", spec.collection, err)
	}
	defer cursor.Close(ctx)

	var docs []eventDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", spec.collection, err)
	}

	scoped := q.MerchantID != ""
	events := make([]analytics.TimedEvent, 0, len(docs))
	for _, doc := range docs {
		value := 1.0
		if spec.sumAmount {
			value = doc.Amount
		}
		events = append(events, analytics.TimedEvent{
			OccurredAt: doc.CreatedAt,
			Value:      value,
			OwnerID:    spec.owner(doc, scoped),
		})
	}
	return events, nil
}

// Total counts the documents matching q, or sums their amount for earnings.
func (s *Store) Total(ctx context.Context, q analytics.EventQuery) (float64, error) {
	spec, err := specFor(q.Kind)
	if err != nil {
		return 0, err
	}
	coll := s.collection(spec.collection)
	filter := spec.filter(q)

	if !spec.sumAmount {
		n, err := coll.CountDocuments(ctx, filter)
		if err != nil {
			return 0, fmt.Errorf("failed to count %s: %w", spec.collection, err)
		}
		return float64(n), nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$amount"}}},
		}}},
	}
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum %s: %w", spec.collection, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("failed to decode %s total: %w", spec.collection, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

// OwnerNames resolves user or merchant display names. Unknown and malformed
// IDs are left out of the result.
func (s *Store) OwnerNames(ctx context.Context, kind analytics.OwnerKind, ids []string) (map[string]string, error) {
	coll := UsersCollection
	if kind == analytics.OwnerMerchant {
		coll = MerchantsCollection
	}

	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	names := make(map[string]string, len(oids))
	if len(oids) == 0 {
		return names, nil
	}

	opts := options.Find().SetProjection(bson.M{"name": 1, "email": 1})
	cursor, err := s.collection(coll).Find(ctx, bson.M{"_id": bson.M{"$in": oids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s names: %w", coll, err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Name  string             `bson:"name"`
		Email string             `bson:"email"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s names: %w", coll, err)
	}
	for _, d := range docs {
		name := d.Name
		if name == "" {
			name = d.Email
		}
		names[d.ID.Hex()] = name
	}
	return names, nil
}
