// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"node-api/internal/cache"
	"node-api/internal/config"
	"node-api/internal/geo"
	"node-api/internal/logger"
	"node-api/internal/metrics"
	"node-api/internal/resolver"
	"node-api/internal/store"
	"node-api/internal/subnet"
	"node-api/internal/version"
)

// GatewayResolver / GeoEnricher / PTRLookup：查询编排依赖的协作方抽象
// 背景：便于测试注入桩实现；生产侧分别由 resolver.Resolver、geo.Enricher、rdns.Client 满足
type GatewayResolver interface {
	Resolve(ctx context.Context, client string) (*resolver.GatewayRecord, error)
}

type GeoEnricher interface {
	Enrich(ctx context.Context, lat, lon *float64) *geo.Record
}

type PTRLookup interface {
	Lookup(ctx context.Context, addr string) *string
}

type service struct {
	cfg    *config.Config
	ccache *cache.Store
	res    GatewayResolver
	enr    GeoEnricher
	ptr    PTRLookup
	st     *store.Store
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 /api 前缀
func BuildRoutes(cfg *config.Config, ccache *cache.Store, res GatewayResolver, enr GeoEnricher, ptr PTRLookup, st *store.Store) *http.ServeMux {
	s := &service{cfg: cfg, ccache: ccache, res: res, enr: enr, ptr: ptr, st: st}
	mux := http.NewServeMux()

	mux.HandleFunc("/lookup", func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		metrics.RequestsTotal.Inc()
		ip := r.URL.Query().Get("ip")
		if ip == "" {
			ip = getClientIP(r)
		}
		res := s.lookup(r.Context(), ip)
		metrics.LookupStatusTotal.WithLabelValues(res.Status).Inc()
		if s.st != nil && res.Status == StatusOK {
			_ = s.st.IncrStats(r.Context(), getClientIP(r))
			_ = s.st.RecordRecent(r.Context(), ip)
		}
		writeJSON(w, res)
		metrics.RequestDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		m := map[string]any{"total": int64(0), "today": int64(0)}
		if s.st != nil {
			if t, err := s.st.GetTotals(r.Context()); err == nil && t != nil {
				m["total"] = t.Total
				m["today"] = t.Today
			}
		}
		writeJSON(w, m)
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"status": "ok", "commit": version.Commit})
	})

	return mux
}

// lookup：单次查询编排
// 背景：校验 → 客户端缓存 → 网关解析 → 地理增强 → 反向 DNS → 组装与回填缓存；
// 缓存只收录成功的解析结果，终态错误不落盘，下次查询重新尝试
func (s *service) lookup(ctx context.Context, ip string) *LookupResult {
	if _, err := subnet.ParseIPv4(ip); err != nil {
		logger.L().Debug("lookup_invalid_ip", "ip", ip)
		return terminal(StatusInvalidIP, "invalid IPv4 address", ip)
	}
	if !s.cfg.MeshNet.Contains(net.ParseIP(ip)) {
		logger.L().Debug("lookup_not_mesh_ip", "ip", ip, "mesh", s.cfg.MeshNet.String())
		return terminal(StatusNotMeshIP, "address is outside the mesh network", ip)
	}
	if out, payload := s.ccache.Get(ctx, ip); out == cache.Valid {
		var res LookupResult
		if err := json.Unmarshal(payload, &res); err == nil {
			logger.L().Debug("lookup_cache_hit", "ip", ip)
			return &res
		}
	}
	rec, err := s.res.Resolve(ctx, ip)
	if err != nil {
		logger.L().Info("lookup_router_unreachable", "ip", ip)
		return terminal(StatusRouterUnreachable, "no mesh gateway responded for this address", ip)
	}
	res := &LookupResult{
		Status:      StatusOK,
		IP:          strPtr(ip),
		RouterIP:    strPtr(rec.RouterIP),
		NetmaskCIDR: rec.Bits,
		Netmask:     rec.Netmask,
		Node:        rec.Node,
		Lat:         rec.Lat,
		Lon:         rec.Lon,
		Gridsquare:  rec.Gridsquare,
	}
	if g := s.enr.Enrich(ctx, rec.Lat, rec.Lon); g != nil {
		res.Country = g.Country
		res.State = g.State
		res.StateCode = g.StateCode
		res.City = g.City
		res.County = g.County
	}
	if s.ptr != nil {
		res.Hostname = s.ptr.Lookup(ctx, ip)
		res.RouterHostname = s.ptr.Lookup(ctx, rec.RouterIP)
	}
	if b, err := json.Marshal(res); err == nil {
		_ = s.ccache.Put(ctx, ip, b)
	}
	logger.L().Debug("lookup_done", "ip", ip, "router_ip", rec.RouterIP)
	return res
}

func terminal(status, msg, ip string) *LookupResult {
	res := &LookupResult{Status: status, Error: strPtr(msg)}
	if ip != "" {
		res.IP = strPtr(ip)
	}
	return res
}

func strPtr(s string) *string { return &s }

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	_ = json.NewEncoder(w).Encode(v)
}
