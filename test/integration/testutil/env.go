//go:build integration

package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lanesched/pkg/client"
	"lanesched/pkg/config"
	"lanesched/pkg/model"
)

const (
	DefaultServerURL  = "http://localhost:8080"
	ConnectionTimeout = 10 * time.Second
	HealthWait        = 30 * time.Second
)

// Env points the tests at a running lanes service and its Mongo database.
type Env struct {
	Client *client.AllocationClient
	Mongo  *mongo.Database
	conn   *mongo.Client
}

func Setup(t *testing.T) *Env {
	t.Helper()

	serverURL := os.Getenv("TEST_SERVER_URL")
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	cfg := config.FromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	conn, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := conn.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	c := client.NewAllocationClient(serverURL)
	if err := c.HTTP().WaitForHealthy(context.Background(), HealthWait); err != nil {
		t.Fatalf("service not healthy: %v", err)
	}

	env := &Env{Client: c, Mongo: conn.Database(cfg.MongoDatabaseName), conn: conn}
	t.Cleanup(func() { env.teardown(t) })
	return env
}

// SeedReservations inserts reservations for AllocateDay tests.
func (e *Env) SeedReservations(t *testing.T, reservations ...model.Reservation) {
	t.Helper()
	docs := make([]any, len(reservations))
	for i, r := range reservations {
		docs[i] = r
	}
	if _, err := e.Mongo.Collection("Reservations").InsertMany(context.Background(), docs); err != nil {
		t.Fatalf("failed to seed reservations: %v", err)
	}
}

func (e *Env) teardown(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	for _, name := range []string{"Reservations", "AllocationRuns"} {
		if _, err := e.Mongo.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			t.Logf("failed to clear %s: %v", name, err)
		}
	}
	if err := e.conn.Disconnect(ctx); err != nil {
		t.Logf("failed to disconnect: %v", err)
	}
}

func AssertStatusCode(t *testing.T, resp *client.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d: %s", expected, resp.StatusCode, client.GetErrorMessage(resp))
	}
}
