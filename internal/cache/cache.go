// 包 cache：带 TTL 的文件缓存，按命名空间分目录，每条记录一个 JSON 文件；
// 可选 Redis 作为热层（与教科书式的持久层前置缓存同构），未配置时仅走文件
package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"node-api/internal/logger"
	"node-api/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// Outcome：一次读取的三态结果
// 背景：过期与缺失目前在调用侧同等对待（都视为未命中），但接口层面保持区分，
// 以便将来引入软过期时无需改动调用点
type Outcome int

const (
	Miss Outcome = iota
	Expired
	Valid
)

// envelope：落盘结构，payload 原样保存，written_at 决定有效性
type envelope struct {
	WrittenAt int64           `json:"written_at"`
	Payload   json.RawMessage `json:"payload"`
}

// Store：单命名空间缓存
// 约束：写入持互斥锁并经由临时文件改名落盘，避免并发写交错产生半截文件；
// 读取无锁，允许读到稍旧的整文件内容
type Store struct {
	ns  string
	dir string
	ttl time.Duration
	rc  *redis.Client
	mu  sync.Mutex
}

func NewStore(baseDir, ns string, ttl time.Duration, rc *redis.Client) (*Store, error) {
	dir := filepath.Join(baseDir, ns)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	logger.L().Debug("cache_store_init", "ns", ns, "dir", dir, "ttl_h", ttl.Hours())
	return &Store{ns: ns, dir: dir, ttl: ttl, rc: rc}, nil
}

// Sanitize：缓存键净化，字母数字与 . - _ 之外的字符一律替换为下划线
func Sanitize(key string) string {
	b := []byte(key)
	for i, ch := range b {
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9':
		case ch == '.' || ch == '-' || ch == '_':
		default:
			b[i] = '_'
		}
	}
	return string(b)
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, Sanitize(key)+".json")
}

// Get：三态读取
// 背景：Redis 热层命中直接返回（其过期由 Redis 自身 TTL 保证）；否则读文件并按
// written_at 判定；损坏或不可读的文件一律按 Miss 处理，不向上暴露
func (s *Store) Get(ctx context.Context, key string) (Outcome, []byte) {
	if s.rc != nil {
		if v, err := s.rc.Get(ctx, s.ns+":"+Sanitize(key)).Bytes(); err == nil && len(v) > 0 {
			metrics.CacheHitsTotal.WithLabelValues(s.ns, "redis").Inc()
			logger.L().Debug("cache_redis_hit", "ns", s.ns, "key", Sanitize(key))
			return Valid, v
		}
	}
	b, err := os.ReadFile(s.path(key))
	if err != nil {
		metrics.CacheMissesTotal.WithLabelValues(s.ns).Inc()
		return Miss, nil
	}
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil || env.WrittenAt == 0 {
		logger.L().Debug("cache_file_malformed", "ns", s.ns, "key", Sanitize(key))
		metrics.CacheMissesTotal.WithLabelValues(s.ns).Inc()
		return Miss, nil
	}
	age := time.Since(time.Unix(env.WrittenAt, 0))
	if age > s.ttl {
		logger.L().Debug("cache_file_expired", "ns", s.ns, "key", Sanitize(key), "age_h", age.Hours())
		metrics.CacheMissesTotal.WithLabelValues(s.ns).Inc()
		return Expired, nil
	}
	metrics.CacheHitsTotal.WithLabelValues(s.ns, "file").Inc()
	return Valid, env.Payload
}

// Put：整条覆盖写入
// 约束：不做删除与淘汰，冷存储体量只随不同键的数量增长
func (s *Store) Put(ctx context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	env := envelope{WrittenAt: time.Now().Unix(), Payload: payload}
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	fp := s.path(key)
	tmp := fp + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, fp); err != nil {
		return err
	}
	if s.rc != nil {
		_ = s.rc.Set(ctx, s.ns+":"+Sanitize(key), payload, s.ttl).Err()
	}
	logger.L().Debug("cache_put", "ns", s.ns, "key", Sanitize(key), "bytes", len(payload))
	return nil
}
