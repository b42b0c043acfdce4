// 包 config：集中加载环境变量为不可变配置结构；各组件在构造时注入，避免散落的全局状态
package config

import (
	"net"
	"os"
	"strconv"
	"time"

	"node-api/internal/logger"
)

// Config：进程级配置快照
// 背景：入口处一次性读取环境变量并固化；运行期只读，组件不得回读环境
type Config struct {
	Addr    string
	APIBase string

	// MeshNet：可接受的客户端地址网段，网段外的查询直接拒绝
	MeshNet *net.IPNet

	CacheDir  string
	ClientTTL time.Duration
	GeoTTL    time.Duration

	ProbeTimeout time.Duration
	ProbePort    int

	GeocodeEnabled bool
	GeoapifyKey    string

	RDNSEnabled bool
}

// Load：从环境变量构建配置，未设置时使用内置默认值
// 约束：MESH_CIDR 解析失败回退到 10.0.0.0/8 并记录告警，不中断启动
func Load() *Config {
	c := &Config{
		Addr:           envStr("ADDR", ":8080"),
		APIBase:        envStr("API_BASE", "/api"),
		CacheDir:       envStr("CACHE_DIR", "data/cache"),
		ClientTTL:      time.Duration(envInt("CLIENT_CACHE_TTL_HOURS", 24)) * time.Hour,
		GeoTTL:         time.Duration(envInt("GEO_CACHE_TTL_HOURS", 720)) * time.Hour,
		ProbeTimeout:   time.Duration(envInt("PROBE_TIMEOUT_MS", 1500)) * time.Millisecond,
		ProbePort:      envInt("PROBE_PORT", 80),
		GeocodeEnabled: envBool("GEOCODE_ENABLED", true),
		GeoapifyKey:    os.Getenv("GEOAPIFY_KEY"),
		RDNSEnabled:    envBool("RDNS_ENABLED", true),
	}
	cidr := envStr("MESH_CIDR", "10.0.0.0/8")
	_, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		logger.L().Warn("config_mesh_cidr_invalid", "value", cidr)
		_, ipnet, _ = net.ParseCIDR("10.0.0.0/8")
	}
	c.MeshNet = ipnet
	logger.L().Debug("config_loaded",
		"addr", c.Addr,
		"api_base", c.APIBase,
		"mesh_cidr", c.MeshNet.String(),
		"cache_dir", c.CacheDir,
		"client_ttl_h", c.ClientTTL.Hours(),
		"geo_ttl_h", c.GeoTTL.Hours(),
		"probe_timeout_ms", c.ProbeTimeout.Milliseconds(),
		"geocode_enabled", c.GeocodeEnabled,
		"rdns_enabled", c.RDNSEnabled,
	)
	return c
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "true":
		return true
	case "false":
		return false
	}
	return def
}
