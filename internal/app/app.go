// Package app arma los componentes compartidos por cmd/api y cmd/quiz.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"character-quiz/internal/config"
	"character-quiz/internal/db"
	"character-quiz/internal/domain"
	"character-quiz/internal/repository"
	"character-quiz/internal/service"
)

// Components agrupa el motor de sesion y el clasificador listos para usar.
type Components struct {
	Registry   *domain.TraitRegistry
	Catalog    *service.ScenarioCatalog
	Engine     *service.SessionEngine
	Classifier *service.ProfileClassifier
}

// Build carga catalogo y reglas una sola vez. Cualquier error de integridad aborta el arranque.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	registry := domain.DefaultTraitRegistry()

	catalog, source, err := loadCatalog(ctx, cfg, registry)
	if err != nil {
		return nil, err
	}
	logger.Info("scenario catalog loaded", zap.String("source", source), zap.Int("scenarios", catalog.Len()))

	rules := service.DefaultClassifierRules()
	if cfg.RulesPath != "" {
		rules, err = service.LoadClassifierRules(cfg.RulesPath)
		if err != nil {
			return nil, err
		}
		logger.Info("classifier rules loaded", zap.String("path", cfg.RulesPath))
	}

	engine, err := service.NewSessionEngine(registry, catalog, cfg.SessionLength, service.NewIndexSource(cfg.RandomSeed))
	if err != nil {
		return nil, err
	}
	classifier, err := service.NewProfileClassifier(registry, rules)
	if err != nil {
		return nil, err
	}

	if catalog.Len() < cfg.SessionLength {
		logger.Warn("catalog smaller than session length; sessions will end early",
			zap.Int("scenarios", catalog.Len()),
			zap.Int("session_length", cfg.SessionLength),
		)
	}

	return &Components{
		Registry:   registry,
		Catalog:    catalog,
		Engine:     engine,
		Classifier: classifier,
	}, nil
}

func loadCatalog(ctx context.Context, cfg *config.Config, registry *domain.TraitRegistry) (*service.ScenarioCatalog, string, error) {
	switch {
	case cfg.DatabaseURL != "":
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, "", fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()
		if err := db.Ping(ctx, pool); err != nil {
			return nil, "", fmt.Errorf("db ping: %w", err)
		}
		catalog, err := service.LoadCatalogFromSource(ctx, repository.NewPgScenarioRepository(pool), registry)
		if err != nil {
			return nil, "", err
		}
		return catalog, "postgres", nil
	case cfg.CatalogPath != "":
		catalog, err := service.LoadCatalogFile(cfg.CatalogPath, registry)
		if err != nil {
			return nil, "", err
		}
		return catalog, cfg.CatalogPath, nil
	default:
		catalog, err := service.DefaultCatalog(registry)
		if err != nil {
			return nil, "", err
		}
		return catalog, "embedded", nil
	}
}

// NewSessionStore usa Redis si esta configurado y responde; si no, memoria.
// Devuelve el cliente de Redis (o nil) para que el caller lo cierre.
func NewSessionStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.SessionStore, *redis.Client) {
	if cfg.RedisAddr == "" {
		return service.NewMemorySessionStore(cfg.SessionRetention), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		logger.Warn("redis ping failed, using in-memory session store", zap.Error(err))
		_ = client.Close()
		return service.NewMemorySessionStore(cfg.SessionRetention), nil
	}
	return service.NewRedisSessionStore(client, cfg.SessionRetention), client
}

// NewRateLimiter arma el limite de creacion de sesiones por IP. Devuelve nil
// cuando SESSION_CREATE_LIMIT es 0; con Redis el conteo se comparte entre replicas.
func NewRateLimiter(cfg *config.Config, client *redis.Client) service.RateLimiter {
	if cfg.SessionCreateLimit <= 0 {
		return nil
	}
	if client != nil {
		return service.NewRedisRateLimiter(client, cfg.SessionCreateWindow, cfg.SessionCreateLimit)
	}
	return service.NewMemoryRateLimiter(cfg.SessionCreateWindow, cfg.SessionCreateLimit)
}
