// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"node-api/internal/api"
	"node-api/internal/cache"
	"node-api/internal/config"
	"node-api/internal/geo"
	"node-api/internal/logger"
	"node-api/internal/metrics"
	"node-api/internal/middleware"
	"node-api/internal/migrate"
	"node-api/internal/probe"
	"node-api/internal/rdns"
	"node-api/internal/resolver"
	"node-api/internal/store"
	"node-api/internal/utils"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	l.Debug("log_init_ok")
	cfg := config.Load()

	// 统计存储（可选）：仅在显式开启时连接数据库
	var st *store.Store
	if os.Getenv("STATS_ENABLED") == "true" {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			l.Error("db_ping_error", "err", err)
		} else {
			l.Info("db_ping_ok")
		}
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		st = store.AttachDB(db)
		l.Info("stats_enabled")
	} else {
		l.Info("stats_disabled")
	}

	// Redis 热层（可选）：未配置时两级缓存退化为纯文件
	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		if err := rc.Ping(context.Background()).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
	}

	clientCache, err := cache.NewStore(cfg.CacheDir, "client", cfg.ClientTTL, rc)
	if err != nil {
		l.Error("cache_init_error", "ns", "client", "err", err)
		os.Exit(1)
	}
	geoCache, err := cache.NewStore(cfg.CacheDir, "geo", cfg.GeoTTL, rc)
	if err != nil {
		l.Error("cache_init_error", "ns", "geo", "err", err)
		os.Exit(1)
	}

	res := resolver.New(probe.New(cfg.ProbeTimeout, cfg.ProbePort))

	var provider geo.Provider
	if cfg.GeoapifyKey != "" {
		provider = geo.NewGeoapifyClient(cfg.GeoapifyKey, &http.Client{Timeout: 5 * time.Second})
		l.Info("geocoder_ready")
	} else {
		l.Info("geocoder_no_key")
	}
	enr := geo.NewEnricher(geoCache, provider, cfg.GeocodeEnabled)

	ptr := rdns.New(cfg.RDNSEnabled)

	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(cfg, clientCache, res, enr, ptr, st)
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, apiMux))
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())

	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: cfg.Addr, Handler: handler}
	if os.Getenv("TLS_ENABLE") == "true" {
		certPath := os.Getenv("TLS_CERT_PATH")
		keyPath := os.Getenv("TLS_KEY_PATH")
		if certPath == "" {
			certPath = filepath.Join("data", "certs", "server.crt")
		}
		if keyPath == "" {
			keyPath = filepath.Join("data", "certs", "server.key")
		}
		_ = utils.EnsureSelfSignedCert(certPath, keyPath, "node-api.local")
		l.Info("listening_tls", "addr", cfg.Addr, "cert", certPath)
		_ = s.ListenAndServeTLS(certPath, keyPath)
		return
	}
	l.Info("listening", "addr", cfg.Addr)
	_ = s.ListenAndServe()
}
