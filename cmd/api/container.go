// Package main provides the API server entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	channelapp "github.com/lllypuk/threadline/internal/application/channel"
	messageapp "github.com/lllypuk/threadline/internal/application/message"
	"github.com/lllypuk/threadline/internal/config"
	"github.com/lllypuk/threadline/internal/domain/event"
	httphandler "github.com/lllypuk/threadline/internal/handler/http"
	wshandler "github.com/lllypuk/threadline/internal/handler/websocket"
	"github.com/lllypuk/threadline/internal/infrastructure/auth"
	"github.com/lllypuk/threadline/internal/infrastructure/eventbus"
	"github.com/lllypuk/threadline/internal/infrastructure/gate"
	"github.com/lllypuk/threadline/internal/infrastructure/httpserver"
	"github.com/lllypuk/threadline/internal/infrastructure/metrics"
	mongodbinfra "github.com/lllypuk/threadline/internal/infrastructure/mongodb"
	"github.com/lllypuk/threadline/internal/infrastructure/repository/memory"
	"github.com/lllypuk/threadline/internal/infrastructure/repository/mongodb"
	"github.com/lllypuk/threadline/internal/infrastructure/websocket"
	"github.com/lllypuk/threadline/internal/middleware"
	"github.com/lllypuk/threadline/internal/service"
)

// Container initialization timeouts.
const (
	containerInitTimeout   = 30 * time.Second
	redisPingTimeout       = 5 * time.Second
	mongoDisconnectTimeout = 10 * time.Second
)

// WebSocket client configuration constants.
const (
	defaultWSWriteWait      = 10 * time.Second
	defaultWSMaxMessageSize = 4096
)

// FeedBus publishes message events and lets the broadcaster subscribe to them.
type FeedBus interface {
	event.Bus
	Subscribe(eventType string, handler eventbus.EventHandler) error
}

// Container holds all application dependencies and manages their lifecycle.
// It implements httpserver.HealthChecker for unified health endpoint support.
type Container struct {
	// Configuration
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	MongoDB     *mongo.Client
	MongoDBName string
	Redis       *redis.Client
	Store       *memory.Store // mock mode only
	EventBus    FeedBus
	RedisBus    *eventbus.RedisEventBus // real mode only
	Hub         *websocket.Hub
	Broadcaster *websocket.Broadcaster

	// Metrics
	Registry *prometheus.Registry
	Metrics  *metrics.FeedMetrics

	// Repositories
	ChannelRepo  channelapp.Repository
	MessageRepo  messageapp.MessageRepository
	ReactionRepo messageapp.ReactionRepository

	// Write gate and read limiter
	WriteGate   *gate.Gate
	ReadLimiter middleware.RateLimiter

	// Services
	ChannelService *service.ChannelService
	MessageService *service.MessageService

	// HTTP Handlers
	ChannelHandler *httphandler.ChannelHandler
	MessageHandler *httphandler.MessageHandler
	WSHandler      *wshandler.Handler

	// Auth
	TokenValidator middleware.TokenValidator
	JWTValidator   *auth.JWTValidator // for cleanup on shutdown
}

// Ensure Container implements httpserver.HealthChecker.
var _ httpserver.HealthChecker = (*Container)(nil)

// ContainerOption configures the Container.
type ContainerOption func(*Container)

// WithLogger sets a custom logger for the container.
func WithLogger(logger *slog.Logger) ContainerOption {
	return func(c *Container) {
		c.Logger = logger
	}
}

// WithTokenValidator replaces the JWT validator built from configuration.
func WithTokenValidator(validator middleware.TokenValidator) ContainerOption {
	return func(c *Container) {
		c.TokenValidator = validator
	}
}

// NewContainer creates a new dependency injection container.
// The wiring mode (real/mock) is determined by config.App.Mode.
func NewContainer(cfg *config.Config, opts ...ContainerOption) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	c.logWiringMode()
	c.setupMetrics()

	if err := c.setupInfrastructure(); err != nil {
		// Clean up any partially initialized resources
		_ = c.Close()
		return nil, fmt.Errorf("failed to setup infrastructure: %w", err)
	}

	if err := c.setupTokenValidator(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to setup token validator: %w", err)
	}

	c.setupLimiters()
	c.setupServices()
	c.setupHTTPHandlers()

	if err := c.validateWiring(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("wiring validation failed: %w", err)
	}

	return c, nil
}

func (c *Container) logWiringMode() {
	mode := c.Config.App.Mode
	if mode == "" {
		mode = config.AppModeReal
	}

	if c.Config.App.IsMockMode() {
		c.Logger.Warn("container starting in MOCK mode",
			slog.String("mode", string(mode)),
			slog.Bool("is_development", c.Config.IsDevelopment()),
			slog.Bool("is_production", c.Config.IsProduction()),
		)
	} else {
		c.Logger.Info("container starting in REAL mode",
			slog.String("mode", string(mode)),
			slog.Bool("is_development", c.Config.IsDevelopment()),
			slog.Bool("is_production", c.Config.IsProduction()),
		)
	}
}

// validateWiring ensures all required dependencies are properly initialized.
func (c *Container) validateWiring() error {
	var errs []error

	if c.Config.App.IsRealMode() {
		if c.MongoDB == nil {
			errs = append(errs, errors.New("mongodb client not initialized"))
		}
		if c.Redis == nil {
			errs = append(errs, errors.New("redis client not initialized"))
		}
	}
	if c.EventBus == nil {
		errs = append(errs, errors.New("event bus not initialized"))
	}
	if c.Hub == nil {
		errs = append(errs, errors.New("websocket hub not initialized"))
	}
	if c.TokenValidator == nil {
		errs = append(errs, errors.New("token validator not initialized"))
	}
	if c.MessageHandler == nil || c.ChannelHandler == nil || c.WSHandler == nil {
		errs = append(errs, errors.New("http handlers not initialized"))
	}

	return errors.Join(errs...)
}

// setupInfrastructure initializes the store, the event bus and the hub.
func (c *Container) setupInfrastructure() error {
	ctx, cancel := context.WithTimeout(context.Background(), containerInitTimeout)
	defer cancel()

	if c.Config.App.IsMockMode() {
		c.setupMemoryStore()
	} else {
		if err := c.setupMongoDB(ctx); err != nil {
			return fmt.Errorf("mongodb: %w", err)
		}
		if err := c.setupRedis(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		c.setupRepositories()
	}

	c.setupEventBus()
	c.setupHub()

	return nil
}

func (c *Container) setupMemoryStore() {
	c.Store = memory.NewStore()
	c.ChannelRepo = c.Store.Channels()
	c.MessageRepo = c.Store.Messages()
	c.ReactionRepo = c.Store.Reactions()

	c.Logger.Debug("in-memory store initialized")
}

// setupMongoDB initializes the MongoDB client and ensures indexes.
func (c *Container) setupMongoDB(ctx context.Context) error {
	clientOpts := options.Client().
		ApplyURI(c.Config.MongoDB.URI).
		SetMaxPoolSize(c.Config.MongoDB.MaxPoolSize)

	client, connectErr := mongo.Connect(clientOpts)
	if connectErr != nil {
		return fmt.Errorf("failed to connect: %w", connectErr)
	}
	c.MongoDB = client

	pingCtx, cancel := context.WithTimeout(ctx, c.Config.MongoDB.Timeout)
	defer cancel()

	if pingErr := client.Ping(pingCtx, nil); pingErr != nil {
		return fmt.Errorf("failed to ping: %w", pingErr)
	}

	c.MongoDBName = c.Config.MongoDB.Database

	c.Logger.InfoContext(ctx, "connected to MongoDB",
		slog.String("database", c.Config.MongoDB.Database),
	)

	db := client.Database(c.Config.MongoDB.Database)
	indexCtx, indexCancel := context.WithTimeout(ctx, c.Config.MongoDB.Timeout)
	defer indexCancel()

	if indexErr := mongodbinfra.CreateAllIndexes(indexCtx, db); indexErr != nil {
		return fmt.Errorf("failed to create indexes: %w", indexErr)
	}

	c.Logger.InfoContext(ctx, "MongoDB indexes created successfully")

	return nil
}

// setupRedis initializes the Redis client.
func (c *Container) setupRedis(ctx context.Context) error {
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
		PoolSize: c.Config.Redis.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if pingErr := c.Redis.Ping(pingCtx).Err(); pingErr != nil {
		return fmt.Errorf("failed to ping: %w", pingErr)
	}

	c.Logger.InfoContext(ctx, "connected to Redis",
		slog.String("addr", c.Config.Redis.Addr),
	)

	return nil
}

func (c *Container) setupRepositories() {
	db := c.MongoDB.Database(c.MongoDBName)

	c.ChannelRepo = mongodb.NewMongoChannelRepository(db.Collection(mongodbinfra.CollectionChannels))
	c.MessageRepo = mongodb.NewMongoMessageRepository(db.Collection(mongodbinfra.CollectionMessages))
	c.ReactionRepo = mongodb.NewMongoReactionRepository(db.Collection(mongodbinfra.CollectionReactions))

	c.Logger.Debug("mongodb repositories initialized")
}

// setupEventBus picks the Redis bus when Redis is available and configured,
// otherwise the in-process bus.
func (c *Container) setupEventBus() {
	if c.Redis != nil && c.Config.EventBus.Type == "redis" {
		c.RedisBus = eventbus.NewRedisEventBus(
			c.Redis,
			eventbus.WithLogger(c.Logger),
			eventbus.WithChannelPrefix(c.Config.EventBus.RedisChannelPrefix),
		)
		c.EventBus = c.RedisBus
	} else {
		c.EventBus = eventbus.NewLocalEventBus(eventbus.WithLocalLogger(c.Logger))
	}

	c.Logger.Debug("event bus initialized",
		slog.String("type", c.Config.EventBus.Type),
		slog.Bool("redis", c.RedisBus != nil),
	)
}

func (c *Container) setupHub() {
	c.Hub = websocket.NewHub(
		websocket.WithHubLogger(c.Logger),
		websocket.WithHubRecorder(c.Metrics),
	)

	c.Logger.Debug("websocket hub initialized")
}

// setupTokenValidator builds the JWT validator unless one was injected.
func (c *Container) setupTokenValidator() error {
	if c.TokenValidator != nil {
		return nil
	}

	validator, err := auth.NewJWTValidator(auth.Config{
		JWKSURL:         c.Config.Auth.JWKSURL,
		HMACSecret:      c.Config.Auth.JWTSecret,
		Issuer:          c.Config.Auth.Issuer,
		Audience:        c.Config.Auth.Audience,
		Leeway:          c.Config.Auth.Leeway,
		RefreshInterval: c.Config.Auth.RefreshInterval,
		Logger:          c.Logger,
	})
	if err != nil {
		return err
	}

	c.JWTValidator = validator
	c.TokenValidator = validator
	return nil
}

// setupMetrics registers feed and runtime collectors on a private registry.
func (c *Container) setupMetrics() {
	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = metrics.NewFeedMetrics(c.Registry)
}

// setupLimiters builds the write gate and the read limiter.
// Redis-backed counters are shared by all replicas; mock mode counts in process.
func (c *Container) setupLimiters() {
	feed := c.Config.Feed
	limits := c.Config.RateLimit

	var writeLimiter gate.Limiter
	if c.Redis != nil {
		writeLimiter = gate.NewRedisLimiter(c.Redis, limits.KeyPrefix, feed.WriteLimit, feed.WriteWindow)
	} else {
		writeLimiter = gate.NewLocalLimiter(feed.WriteLimit, feed.WriteWindow)
	}

	var detector *gate.Detector
	if feed.SensitiveCheck {
		detector = gate.NewDetector()
	}

	c.WriteGate = gate.New(writeLimiter, detector,
		gate.WithLogger(c.Logger),
		gate.WithRecorder(c.Metrics),
	)

	if !limits.Enabled {
		return
	}
	if c.Redis != nil {
		c.ReadLimiter = gate.NewRedisLimiter(c.Redis, limits.KeyPrefix, limits.ReadLimit, limits.Window)
	} else {
		c.ReadLimiter = gate.NewLocalLimiter(limits.ReadLimit, limits.Window)
	}
}

func (c *Container) setupServices() {
	c.ChannelService = service.NewChannelService(service.ChannelServiceConfig{
		CreateUC: channelapp.NewCreateChannelUseCase(c.ChannelRepo, c.Logger),
		ListUC:   channelapp.NewListChannelsUseCase(c.ChannelRepo),
		GetUC:    channelapp.NewGetChannelUseCase(c.ChannelRepo),
	})

	opts := []messageapp.Option{
		messageapp.WithLogger(c.Logger),
		messageapp.WithMetrics(c.Metrics),
		messageapp.WithEventBus(c.EventBus),
	}
	c.MessageService = service.NewMessageService(service.MessageServiceConfig{
		ListUC:   messageapp.NewListMessagesUseCase(c.ChannelRepo, c.MessageRepo, c.ReactionRepo, opts...),
		ThreadUC: messageapp.NewListThreadUseCase(c.MessageRepo, c.ReactionRepo),
		CreateUC: messageapp.NewCreateMessageUseCase(c.ChannelRepo, c.MessageRepo, c.WriteGate, opts...),
		UpdateUC: messageapp.NewUpdateMessageUseCase(c.MessageRepo, c.ReactionRepo, c.WriteGate, opts...),
		ToggleUC: messageapp.NewToggleReactionUseCase(c.MessageRepo, c.ReactionRepo, c.WriteGate, opts...),
	})

	c.Logger.Debug("feed services initialized")
}

func (c *Container) setupHTTPHandlers() {
	c.ChannelHandler = httphandler.NewChannelHandler(c.ChannelService)
	c.MessageHandler = httphandler.NewMessageHandler(c.MessageService)

	clientConfig := websocket.DefaultClientConfig()
	clientConfig.ReadBufferSize = c.Config.WebSocket.ReadBufferSize
	clientConfig.WriteBufferSize = c.Config.WebSocket.WriteBufferSize
	clientConfig.PingInterval = c.Config.WebSocket.PingInterval
	clientConfig.PongWait = c.Config.WebSocket.PongTimeout
	clientConfig.WriteWait = defaultWSWriteWait
	clientConfig.MaxMessageSize = defaultWSMaxMessageSize

	c.WSHandler = wshandler.NewHandler(c.Hub, wshandler.WithHandlerConfig(wshandler.HandlerConfig{
		ReadBufferSize:  c.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: c.Config.WebSocket.WriteBufferSize,
		AllowedOrigins:  c.Config.Server.AllowedOrigins,
		Logger:          c.Logger,
		ClientConfig:    clientConfig,
	}))
}

// Close gracefully closes all container resources.
// Resources are closed in reverse order of initialization.
func (c *Container) Close() error {
	c.Logger.Info("closing container resources...")

	var errs []error

	if c.JWTValidator != nil {
		if err := c.JWTValidator.Close(); err != nil {
			errs = append(errs, fmt.Errorf("jwt validator close: %w", err))
		}
	}

	if c.Hub != nil {
		c.Hub.Stop()
		c.Logger.Debug("websocket hub stopped")
	}

	if c.RedisBus != nil && c.RedisBus.IsRunning() {
		if err := c.RedisBus.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("event bus shutdown: %w", err))
		} else {
			c.Logger.Debug("event bus stopped")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		} else {
			c.Logger.Debug("redis connection closed")
		}
	}

	if c.MongoDB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
		defer cancel()

		if err := c.MongoDB.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb disconnect: %w", err))
		} else {
			c.Logger.Debug("mongodb connection closed")
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.Logger.Info("all container resources closed")
	return nil
}

// StartEventBus subscribes the broadcaster and starts consuming events.
// This should be called before the HTTP server starts accepting requests.
func (c *Container) StartEventBus(ctx context.Context) error {
	c.Broadcaster = websocket.NewBroadcaster(
		c.Hub,
		c.EventBus,
		websocket.WithBroadcasterLogger(c.Logger),
		websocket.WithBroadcastRecorder(c.Metrics),
	)
	if err := c.Broadcaster.Start(ctx); err != nil {
		return fmt.Errorf("failed to start broadcaster: %w", err)
	}

	if c.RedisBus != nil {
		go func() {
			if err := c.RedisBus.Start(ctx); err != nil {
				c.Logger.Error("event bus error", slog.String("error", err.Error()))
			}
		}()
	}

	c.Logger.InfoContext(ctx, "event bus started")
	return nil
}

// StartHub starts the WebSocket hub.
// This should be called before the HTTP server starts accepting requests.
func (c *Container) StartHub(ctx context.Context) {
	go c.Hub.Run(ctx)
	c.Logger.InfoContext(ctx, "websocket hub started")
}

// IsReady implements httpserver.HealthChecker.
func (c *Container) IsReady(ctx context.Context) bool {
	for _, status := range c.GetHealthStatus(ctx) {
		if status.Status == httpserver.StatusUnhealthy {
			c.Logger.WarnContext(ctx, "component not ready",
				slog.String("component", status.Name),
				slog.String("message", status.Message),
			)
			return false
		}
	}
	return true
}

// GetHealthStatus implements httpserver.HealthChecker.
func (c *Container) GetHealthStatus(ctx context.Context) []httpserver.ComponentStatus {
	return c.dependencies().GetHealthStatus(ctx)
}

// dependencies lists what the feed relies on. Storage is only checked in real mode.
func (c *Container) dependencies() *httpserver.Dependencies {
	var deps []httpserver.Dependency

	if c.Config == nil || c.Config.App.IsRealMode() {
		deps = append(deps,
			httpserver.Dependency{Name: "mongodb", Critical: true, Check: c.pingMongoDB},
			httpserver.Dependency{Name: "redis", Critical: true, Check: c.pingRedis},
		)
	}

	deps = append(deps,
		httpserver.Dependency{Name: "websocket_hub", Critical: true, Check: c.checkHub},
		// Without a bus nothing is pushed; a stopped Redis subscription only delays pushes.
		httpserver.Dependency{Name: "eventbus", Critical: c.EventBus == nil, Check: c.checkEventBus},
	)

	return httpserver.NewDependencies(httpserver.DefaultCheckTimeout, deps...)
}

func (c *Container) pingMongoDB(ctx context.Context) error {
	if c.MongoDB == nil {
		return errors.New("client not initialized")
	}
	return c.MongoDB.Ping(ctx, nil)
}

func (c *Container) pingRedis(ctx context.Context) error {
	if c.Redis == nil {
		return errors.New("client not initialized")
	}
	return c.Redis.Ping(ctx).Err()
}

func (c *Container) checkHub(context.Context) error {
	switch {
	case c.Hub == nil:
		return errors.New("hub not initialized")
	case !c.Hub.IsRunning():
		return errors.New("hub not running")
	}
	return nil
}

func (c *Container) checkEventBus(context.Context) error {
	switch {
	case c.EventBus == nil:
		return errors.New("event bus not initialized")
	case c.RedisBus != nil && !c.RedisBus.IsRunning():
		return errors.New("event bus not running")
	}
	return nil
}
