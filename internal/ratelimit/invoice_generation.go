package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/leadbilling/internal/config"
	obsmetrics "github.com/smallbiznis/leadbilling/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	generationEndpoint = "invoice_generation"

	keyGenerationPartner = "leadbilling:invoice:generate:rate:%s"
	keyGenerationLock    = "leadbilling:invoice:generate:lock:%s:%s"
)

// InvoiceGenerationGuard throttles invoice generation per partner and holds
// a short lock per (partner, period) so double submits cannot both reach
// the store. A nil guard allows everything.
type InvoiceGenerationGuard struct {
	bucket  *TokenBucket
	locker  *Locker
	rate    float64
	burst   int
	lockTTL time.Duration
	log     *zap.Logger
	metrics *obsmetrics.Metrics
}

type GuardParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       config.Config
	Log       *zap.Logger
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

func NewInvoiceGenerationGuard(p GuardParams) (*InvoiceGenerationGuard, error) {
	if !p.Cfg.Redis.Enabled {
		return nil, nil
	}
	addr := strings.TrimSpace(p.Cfg.Redis.Addr)
	if addr == "" {
		return nil, errors.New("redis addr is required when redis is enabled")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: p.Cfg.Redis.Password,
		DB:       p.Cfg.Redis.DB,
	})
	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
	}

	return NewGuard(client, p.Cfg.InvoiceGeneration, p.Log, p.Metrics)
}

// NewGuard builds a guard on an existing client.
func NewGuard(client redis.UniversalClient, cfg config.InvoiceGenerationConfig, log *zap.Logger, metrics *obsmetrics.Metrics) (*InvoiceGenerationGuard, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if cfg.Rate <= 0 || cfg.Burst <= 0 {
		return nil, errors.New("invoice generation rate limit must be positive")
	}
	if cfg.LockTTLSeconds <= 0 {
		return nil, errors.New("invoice generation lock ttl must be positive")
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &InvoiceGenerationGuard{
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		rate:    cfg.Rate,
		burst:   cfg.Burst,
		lockTTL: time.Duration(cfg.LockTTLSeconds) * time.Second,
		log:     log.Named("ratelimit.invoice_generation"),
		metrics: metrics,
	}, nil
}

// Allow reports whether partnerID may submit another invoice now. Redis
// failures let the request through.
func (g *InvoiceGenerationGuard) Allow(ctx context.Context, partnerID string) (Result, error) {
	if g == nil {
		return Result{Allowed: true}, nil
	}

	res, err := g.bucket.Allow(ctx, fmt.Sprintf(keyGenerationPartner, strings.TrimSpace(partnerID)), g.rate, g.burst)
	if err != nil {
		g.log.Warn("invoice generation rate check failed, allowing", zap.String("partner_id", partnerID), zap.Error(err))
		return Result{Allowed: true}, nil
	}
	if !res.Allowed {
		g.metrics.RecordGuardDecision(ctx, generationEndpoint, "rate")
		return res, nil
	}
	g.metrics.RecordGuardDecision(ctx, generationEndpoint, "")
	return res, nil
}

// Acquire takes the generation lock for one partner period. The returned
// release func is always safe to call.
func (g *InvoiceGenerationGuard) Acquire(ctx context.Context, partnerID, period string) (func(), bool) {
	noop := func() {}
	if g == nil {
		return noop, true
	}

	key := fmt.Sprintf(keyGenerationLock, strings.TrimSpace(partnerID), strings.TrimSpace(period))
	lease, err := g.locker.TryAcquire(ctx, key, g.lockTTL)
	if err != nil {
		g.log.Warn("invoice generation lock failed, continuing unlocked", zap.String("lock_key", key), zap.Error(err))
		return noop, true
	}
	if lease == nil {
		g.metrics.RecordGuardDecision(ctx, generationEndpoint, "locked")
		return noop, false
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		released, err := lease.Release(releaseCtx)
		if err != nil {
			g.log.Warn("invoice generation lock release failed", zap.String("lock_key", key), zap.Error(err))
			return
		}
		if !released {
			g.log.Warn("invoice generation lock expired before release", zap.String("lock_key", key), zap.Duration("ttl", g.lockTTL))
		}
	}, true
}
