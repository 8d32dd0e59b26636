package tracestore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type mongoStore struct {
	dsn        string
	client     *mongo.Client
	collection *mongo.Collection
}

func newMongoStore(dsn string) *mongoStore {
	return &mongoStore{dsn: dsn}
}

func (s *mongoStore) Connect(ctx context.Context) error {
	client, err := mongo.Connect(options.Client().ApplyURI(s.dsn))
	if err != nil {
		return fmt.Errorf("tracestore/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return fmt.Errorf("tracestore/mongo: ping: %w", err)
	}

	s.client = client
	s.collection = client.Database("qrt").Collection("runs")
	return nil
}

func (s *mongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

type mongoRun struct {
	ID         string `bson:"_id"`
	RunID      string `bson:"run_id"`
	StartedAt  int64  `bson:"started_at_unix_ms"`
	DurationMS int64  `bson:"duration_ms"`
	ProgramLen int    `bson:"program_len"`
	Outcome    string `bson:"outcome"`
	ErrorKind  string `bson:"error_kind"`
	Offset     int    `bson:"offset"`
	Line       int    `bson:"line"`
}

func (s *mongoStore) RecordRun(ctx context.Context, run Run) error {
	doc := mongoRun{
		ID:         run.ID,
		RunID:      run.RunID,
		StartedAt:  run.StartedAt.UnixMilli(),
		DurationMS: run.DurationMS,
		ProgramLen: run.ProgramLen,
		Outcome:    run.Outcome,
		ErrorKind:  run.ErrorKind,
		Offset:     run.Offset,
		Line:       run.Line,
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("tracestore/mongo: insert: %w", err)
	}
	return nil
}

func (s *mongoStore) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at_unix_ms", Value: -1}}).SetLimit(int64(limit))
	cursor, err := s.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("tracestore/mongo: find: %w", err)
	}
	defer cursor.Close(ctx)

	var out []Run
	for cursor.Next(ctx) {
		var doc mongoRun
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("tracestore/mongo: decode: %w", err)
		}
		out = append(out, Run{
			ID:         doc.ID,
			RunID:      doc.RunID,
			StartedAt:  time.UnixMilli(doc.StartedAt),
			DurationMS: doc.DurationMS,
			ProgramLen: doc.ProgramLen,
			Outcome:    doc.Outcome,
			ErrorKind:  doc.ErrorKind,
			Offset:     doc.Offset,
			Line:       doc.Line,
		})
	}
	return out, cursor.Err()
}
