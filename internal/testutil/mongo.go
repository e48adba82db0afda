// Package testutil holds helpers for tests that need a live MongoDB.
package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
	"tourbook/pkg/client"
	"tourbook/pkg/config"
	"tourbook/pkg/logger"
	"tourbook/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	EnvMongoURI       = "TEST_MONGO_URI"
	ConnectionTimeout = 10 * time.Second
)

type MongoHelper struct {
	Client   *mongo.Client
	Database *mongo.Database
	DBName   string
}

// NewMongoHelper connects to TEST_MONGO_URI and gives the test its own
// database, dropped on cleanup. The test is skipped when the variable is unset.
func NewMongoHelper(t *testing.T) *MongoHelper {
	t.Helper()

	uri := os.Getenv(EnvMongoURI)
	if uri == "" {
		t.Skipf("%s not set, skipping Mongo integration test", EnvMongoURI)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := mc.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	dbName := databaseName(t.Name())
	h := &MongoHelper{
		Client:   mc,
		Database: mc.Database(dbName),
		DBName:   dbName,
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
		defer cancel()
		if err := h.Database.Drop(ctx); err != nil {
			t.Logf("warning: failed to drop %s: %v", dbName, err)
		}
		if err := mc.Disconnect(ctx); err != nil {
			t.Logf("warning: failed to disconnect from MongoDB: %v", err)
		}
	})
	return h
}

// Config returns a configuration wired to the helper's database.
func (m *MongoHelper) Config() *config.Config {
	return &config.Config{
		MongoDatabaseName: m.DBName,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		Log:               logger.Discard(),
		Metrics:           metrics.NewNop(),
		Client:            &client.Client{Mongo: m.Client},
	}
}

func (m *MongoHelper) CountDocuments(t *testing.T, collectionName string) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := m.Database.Collection(collectionName).CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("failed to count documents in %s: %v", collectionName, err)
	}
	return count
}

// Database names are capped at 63 bytes and may not contain '/', '.' or spaces.
func databaseName(testName string) string {
	name := "tourbook_" + strings.NewReplacer("/", "_", ".", "_", " ", "_").Replace(testName)
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}
