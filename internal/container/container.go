package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/herzod/shelfview-cinema/internal/config"
	"github.com/herzod/shelfview-cinema/internal/logger"
	"github.com/herzod/shelfview-cinema/internal/repository"
	"github.com/herzod/shelfview-cinema/internal/services"
	"github.com/herzod/shelfview-cinema/internal/session"
	"github.com/herzod/shelfview-cinema/internal/sync"
)

type Container struct {
	DB            *pgxpool.Pool
	Redis         *redis.Client
	Logger        *logrus.Logger
	Syncer        *sync.Syncer
	Notifier      *session.Notifier
	CatalogClient *services.CatalogClient
	ShelfService  *services.ShelfService
	AuthService   *services.AuthService

	unsubscribe func()
}

func New(ctx context.Context) (*Container, error) {
	// Initialize logger first
	logger := logger.Get()

	// Initialize database
	db, err := newDatabase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize Redis
	redisClient, err := newRedis(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	baseURL, apiKey := config.CatalogConfig()
	if apiKey == "" {
		redisClient.Close()
		db.Close()
		return nil, fmt.Errorf("TMDB_API_KEY is required. Set it in .env file or as environment variable")
	}

	syncer := sync.New(logger)
	notifier := session.NewNotifier()

	catalogClient := services.NewCatalogClient(&services.CatalogConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Timeout: 30 * time.Second,
		Logger:  logger,
		Redis:   redisClient,
	})

	shelfService := services.NewShelfService(&services.ShelfConfig{
		Repo:   repository.NewShelfRepository(db),
		Syncer: syncer,
		Logger: logger,
	})

	secret, sessionTTL := config.AuthConfig()
	authService, err := services.NewAuthService(&services.AuthServiceConfig{
		Accounts:   repository.NewAccountRepository(db),
		Notifier:   notifier,
		Logger:     logger,
		Secret:     secret,
		SessionTTL: sessionTTL,
	})
	if err != nil {
		redisClient.Close()
		db.Close()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}

	// Sign-out drops the user's cached reads; the next sign-in starts cold.
	unsubscribe := notifier.Subscribe(func(ev session.Event) {
		if !ev.SignedIn {
			syncer.Drop(services.UserGroup(ev.UserID))
		}
	})

	return &Container{
		DB:            db,
		Redis:         redisClient,
		Logger:        logger,
		Syncer:        syncer,
		Notifier:      notifier,
		CatalogClient: catalogClient,
		ShelfService:  shelfService,
		AuthService:   authService,
		unsubscribe:   unsubscribe,
	}, nil
}

func (c *Container) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	if c.ShelfService != nil {
		c.ShelfService.Close()
	}
	if c.Redis != nil {
		c.Redis.Close()
		c.Logger.Info("Redis connection closed")
	}
	if c.DB != nil {
		c.DB.Close()
		c.Logger.Info("Database connection closed")
	}
}

func newDatabase(ctx context.Context) (*pgxpool.Pool, error) {
	host, port, user, password, databaseName := config.DatabaseConfig()

	if host == "" || port == "" || user == "" || password == "" || databaseName == "" {
		return nil, fmt.Errorf("missing required database configuration")
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, databaseName)

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Better pool configuration
	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30
	config.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Get().Info("Database connection successful")
	return pool, nil
}

func newRedis(ctx context.Context) (*redis.Client, error) {
	host, port, password := config.RedisConfig()

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Get().Info("Redis connection successful")
	return client, nil
}
