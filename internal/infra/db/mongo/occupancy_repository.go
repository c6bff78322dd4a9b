package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainoccupancy "rentcal/internal/domain/occupancy"
	"rentcal/internal/domain/shared/daterange"
)

var ErrConcurrentUpdate = fmt.Errorf("mongo: %w", domainoccupancy.ErrConcurrentUpdate)

type OccupancyRepository struct {
	col *mongo.Collection
}

func NewOccupancyRepository(ctx context.Context, db *mongo.Database) *OccupancyRepository {
	col := db.Collection("agg_occupancy")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "range.start", Value: 1}}}
	_, _ = col.Indexes().CreateOne(ctx, idx)
	return &OccupancyRepository{col: col}
}

func (r *OccupancyRepository) ByID(ctx context.Context, id domainoccupancy.ID) (*domainoccupancy.Occupancy, error) {
	var doc occupancyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainoccupancy.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

// Save upserts o guarded by its version. A document that moved on since o was
// loaded makes the filter miss and the upsert collide on _id.
func (r *OccupancyRepository) Save(ctx context.Context, o *domainoccupancy.Occupancy) error {
	doc := newOccupancyDocument(o)
	filter := bson.M{"_id": doc.ID, "version": o.Version}
	doc.Version = o.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	o.Version = doc.Version
	return nil
}

func (r *OccupancyRepository) ListByProperty(ctx context.Context, propertyID domainoccupancy.PropertyID, window daterange.DateRange) ([]*domainoccupancy.Occupancy, error) {
	filter := bson.M{
		"property_id": string(propertyID),
		"range.start": bson.M{"$lte": window.End.UnixMilli()},
		"range.end":   bson.M{"$gte": window.Start.UnixMilli()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "range.start", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*domainoccupancy.Occupancy, 0)
	for cur.Next(ctx) {
		var doc occupancyDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		agg, err := doc.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	return out, cur.Err()
}

type occupancyDocument struct {
	ID         string        `bson:"_id"`
	PropertyID string        `bson:"property_id"`
	Kind       string        `bson:"kind"`
	TenantName string        `bson:"tenant_name"`
	Range      rangeDocument `bson:"range"`
	Status     string        `bson:"status"`
	CreatedAt  int64         `bson:"created_at"`
	UpdatedAt  int64         `bson:"updated_at"`
	Version    int64         `bson:"version"`
}

type rangeDocument struct {
	Start int64 `bson:"start"`
	End   int64 `bson:"end"`
}

func newOccupancyDocument(o *domainoccupancy.Occupancy) occupancyDocument {
	return occupancyDocument{
		ID:         string(o.ID),
		PropertyID: string(o.PropertyID),
		Kind:       string(o.Kind),
		TenantName: o.TenantName,
		Range:      rangeDocument{Start: o.Span.Start.UnixMilli(), End: o.Span.End.UnixMilli()},
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt.UnixMilli(),
		UpdatedAt:  o.UpdatedAt.UnixMilli(),
		Version:    o.Version,
	}
}

func (d occupancyDocument) toAggregate() (*domainoccupancy.Occupancy, error) {
	status, err := domainoccupancy.ParseStatus(d.Status)
	if err != nil {
		return nil, fmt.Errorf("mongo: occupancy %s: %w", d.ID, err)
	}
	kind, err := domainoccupancy.ParseKind(d.Kind)
	if err != nil {
		return nil, fmt.Errorf("mongo: occupancy %s: %w", d.ID, err)
	}
	return &domainoccupancy.Occupancy{
		ID:         domainoccupancy.ID(d.ID),
		PropertyID: domainoccupancy.PropertyID(d.PropertyID),
		Kind:       kind,
		TenantName: d.TenantName,
		Span:       daterange.DateRange{Start: timestampToTime(d.Range.Start), End: timestampToTime(d.Range.End)},
		Status:     status,
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
		Version:    d.Version,
	}, nil
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
