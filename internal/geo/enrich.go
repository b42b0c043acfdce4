package geo

import (
	"context"
	"encoding/json"
	"fmt"

	"node-api/internal/cache"
	"node-api/internal/logger"
)

// Provider：反地理编码提供方抽象，便于测试注入桩实现
type Provider interface {
	Reverse(ctx context.Context, lat, lon float64) (*Record, error)
}

// BucketKey：坐标量化为缓存桶键
// 背景：两位小数约合 0.5 英里网格，牺牲定位精度换取地理缓存命中率；
// 消费方是看板与标签展示，不是导航，精度损失可以接受
func BucketKey(lat, lon float64) string {
	return fmt.Sprintf("%.2f_%.2f", lat, lon)
}

// Enricher：地理增强器
// 约束：坐标缺失、管理开关关闭或未配置提供方凭据时整体退化为 no-op
type Enricher struct {
	enabled  bool
	store    *cache.Store
	provider Provider
}

func NewEnricher(store *cache.Store, provider Provider, enabled bool) *Enricher {
	return &Enricher{enabled: enabled, store: store, provider: provider}
}

// Enrich：按桶查缓存，未命中时调用提供方并回填
// 背景：提供方失败不落缓存——空记录一旦写入会在 30 天内屏蔽重试，宁可下次再打一次提供方
func (e *Enricher) Enrich(ctx context.Context, lat, lon *float64) *Record {
	if !e.enabled || e.provider == nil || lat == nil || lon == nil {
		return nil
	}
	key := BucketKey(*lat, *lon)
	if out, payload := e.store.Get(ctx, key); out == cache.Valid {
		var rec Record
		if err := json.Unmarshal(payload, &rec); err == nil {
			logger.L().Debug("geo_cache_hit", "bucket", key)
			return &rec
		}
	}
	rec, err := e.provider.Reverse(ctx, *lat, *lon)
	if err != nil || rec == nil {
		logger.L().Debug("geo_enrich_fail", "bucket", key, "err", err)
		return nil
	}
	if b, err := json.Marshal(rec); err == nil {
		_ = e.store.Put(ctx, key, b)
	}
	return rec
}
