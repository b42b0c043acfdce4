// 包 store: 提供与 PostgreSQL 的数据访问层，负责查询统计与最近查询记录
package store

import (
	"context"
	"database/sql"

	"node-api/internal/logger"
	"node-api/internal/subnet"

	_ "github.com/lib/pq"
)

// Store: 数据库访问入口，持有连接池并提供统计读写接口
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// IncrStats: 成功查询后递增总计与当日计数；访客存在时递增访客计数
func (s *Store) IncrStats(ctx context.Context, visitor string) error {
	_, _ = s.db.ExecContext(ctx, "UPDATE _node_stats_total SET total_queries=total_queries+1 WHERE id=1")
	_, _ = s.db.ExecContext(ctx, "INSERT INTO _node_stats_daily(day, queries) VALUES(current_date, 1) ON CONFLICT (day) DO UPDATE SET queries=_node_stats_daily.queries+1")
	if visitor != "" {
		_, _ = s.db.ExecContext(ctx, "UPDATE _node_stats_total SET total_visitors=total_visitors+1 WHERE id=1")
		_, _ = s.db.ExecContext(ctx, "INSERT INTO _node_stats_daily(day, visitors) VALUES(current_date, 1) ON CONFLICT (day) DO UPDATE SET visitors=_node_stats_daily.visitors+1")
	}
	logger.L().Debug("stats_incr", "visitor", visitor)
	return nil
}

// Totals: 统计返回结构，包含累计与当日查询次数
type Totals struct {
	Total int64
	Today int64
}

// GetTotals: 读取累计与当日查询次数，用于接口返回
func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	var t Totals
	row := s.db.QueryRowContext(ctx, "SELECT total_queries FROM _node_stats_total WHERE id=1")
	_ = row.Scan(&t.Total)
	row2 := s.db.QueryRowContext(ctx, "SELECT queries FROM _node_stats_daily WHERE day=current_date")
	_ = row2.Scan(&t.Today)
	logger.L().Debug("stats_totals", "total", t.Total, "today", t.Today)
	return &t, nil
}

// 文档注释：记录最近查询的客户端地址（去重累加）
// 背景：保留最近被查询的网内地址及次数与时间，便于观察网段活跃度；不影响主查询逻辑
// 约束：非法地址静默跳过；仅更新 last_seen 与计数
func (s *Store) RecordRecent(ctx context.Context, ip string) error {
	val, err := subnet.ParseIPv4(ip)
	if err != nil {
		return nil
	}
	_, _ = s.db.ExecContext(ctx, `INSERT INTO _node_recent_lookups(ip_int, last_seen, queries)
        VALUES($1, now(), 1)
        ON CONFLICT (ip_int) DO UPDATE SET last_seen=now(), queries=_node_recent_lookups.queries+1`, int64(val))
	return nil
}
