package testutil

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	redisCtxTimeout              = 10 * time.Second
	redisContainerStartupTimeout = 60 * time.Second
	redisContainerMemoryLimit    = 128 * 1024 * 1024 // 128MB
	redisTestPoolSize            = 10
)

var (
	redisOnce      sync.Once
	redisAddr      string
	errRedisStart  error
	redisContainer testcontainers.Container
)

// RedisAddr starts the shared Redis container once per test binary and returns its address.
func RedisAddr(ctx context.Context) (string, error) {
	redisOnce.Do(func() {
		req := testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			HostConfigModifier: func(hc *container.HostConfig) {
				hc.Memory = redisContainerMemoryLimit
				hc.MemorySwap = redisContainerMemoryLimit
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("Ready to accept connections").WithStartupTimeout(redisContainerStartupTimeout),
				wait.ForListeningPort("6379/tcp").WithStartupTimeout(redisContainerStartupTimeout),
			),
		}

		cont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			errRedisStart = fmt.Errorf("failed to start Redis container: %w", err)
			return
		}
		redisContainer = cont

		host, err := cont.Host(ctx)
		if err != nil {
			errRedisStart = fmt.Errorf("failed to get container host: %w", err)
			return
		}
		port, err := cont.MappedPort(ctx, "6379")
		if err != nil {
			errRedisStart = fmt.Errorf("failed to get container port: %w", err)
			return
		}
		redisAddr = net.JoinHostPort(host, port.Port())
	})
	return redisAddr, errRedisStart
}

// SetupTestRedis returns a client for the shared container and a key prefix unique to the test.
// Keys under the prefix are removed when the test finishes.
func SetupTestRedis(t *testing.T) (*redis.Client, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), redisContainerStartupTimeout)
	defer cancel()

	addr, err := RedisAddr(ctx)
	if err != nil {
		t.Fatalf("Failed to get shared Redis container: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: addr, PoolSize: redisTestPoolSize})
	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		t.Fatalf("Failed to ping Redis: %v", pingErr)
	}

	prefix := fmt.Sprintf("test:%s:", t.Name())
	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), redisCtxTimeout)
		defer cleanupCancel()
		iter := client.Scan(cleanupCtx, 0, prefix+"*", 0).Iterator()
		for iter.Next(cleanupCtx) {
			_ = client.Del(cleanupCtx, iter.Val()).Err()
		}
		_ = client.Close()
	})

	return client, prefix
}

// CleanupRedisContainer terminates the shared container. Call it from TestMain.
func CleanupRedisContainer() {
	if redisContainer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisCtxTimeout)
	defer cancel()
	_ = redisContainer.Terminate(ctx)
}
