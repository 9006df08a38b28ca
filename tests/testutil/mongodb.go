package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	mongoCtxTimeout              = 10 * time.Second
	mongoContainerStartupTimeout = 90 * time.Second
	mongoPingTimeout             = 2 * time.Second
	mongoPingRetryDelay          = 500 * time.Millisecond
	maxTestDBNameLength          = 40
)

var (
	mongoOnce      sync.Once
	mongoURI       string
	errMongoStart  error
	mongoContainer testcontainers.Container
)

// MongoURI starts the shared MongoDB container once per test binary and returns its URI.
func MongoURI(ctx context.Context) (string, error) {
	mongoOnce.Do(func() {
		req := testcontainers.ContainerRequest{
			Image:        "mongo:8",
			ExposedPorts: []string{"27017/tcp"},
			Env: map[string]string{
				"MONGO_INITDB_ROOT_USERNAME": "admin",
				"MONGO_INITDB_ROOT_PASSWORD": "admin123",
			},
			WaitingFor: wait.ForLog("Waiting for connections").WithStartupTimeout(mongoContainerStartupTimeout),
		}

		cont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			errMongoStart = fmt.Errorf("failed to start MongoDB container: %w", err)
			return
		}
		mongoContainer = cont

		host, err := cont.Host(ctx)
		if err != nil {
			errMongoStart = fmt.Errorf("failed to get container host: %w", err)
			return
		}
		port, err := cont.MappedPort(ctx, "27017")
		if err != nil {
			errMongoStart = fmt.Errorf("failed to get container port: %w", err)
			return
		}
		mongoURI = "mongodb://admin:admin123@" + net.JoinHostPort(host, port.Port())
	})
	return mongoURI, errMongoStart
}

// SetupTestMongoDB returns an isolated database in the shared container.
// The database is dropped when the test finishes.
func SetupTestMongoDB(t *testing.T) *mongo.Database {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), mongoContainerStartupTimeout)
	defer cancel()

	uri, err := MongoURI(ctx)
	if err != nil {
		t.Fatalf("Failed to get shared MongoDB container: %v", err)
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	maxRetries := 5
	for i := range maxRetries {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), mongoPingTimeout)
		err = client.Ping(pingCtx, nil)
		pingCancel()
		if err == nil {
			break
		}
		if i < maxRetries-1 {
			time.Sleep(mongoPingRetryDelay)
		}
	}
	if err != nil {
		t.Fatalf("Failed to ping MongoDB after %d retries: %v", maxRetries, err)
	}

	db := client.Database(testDBName(t.Name()))
	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), mongoCtxTimeout)
		defer cleanupCancel()
		_ = db.Drop(cleanupCtx)
		_ = client.Disconnect(cleanupCtx)
	})

	return db
}

// testDBName keeps database names under the MongoDB length limit.
func testDBName(testName string) string {
	name := strings.NewReplacer("/", "_", " ", "_", ".", "_").Replace(testName)
	if len(name) > maxTestDBNameLength {
		hash := sha256.Sum256([]byte(testName))
		name = name[:20] + "_" + hex.EncodeToString(hash[:])[:12]
	}
	return "threadline_test_" + name
}

// CleanupMongoContainer terminates the shared container. Call it from TestMain.
func CleanupMongoContainer() {
	if mongoContainer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoCtxTimeout)
	defer cancel()
	_ = mongoContainer.Terminate(ctx)
}
