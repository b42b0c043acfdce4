// 包 probe：抓取候选网关的自述状态文档
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"node-api/internal/logger"
	"node-api/internal/metrics"
)

// 状态文档的固定路径：网状网节点固件在该路径上报自身标识与坐标
const statusPath = "/cgi-bin/sysinfo.json"

// ErrTransport / ErrBadPayload：出站调用的两类失败
// 背景：区分传输层失败与畸形载荷，便于日志归因；调用侧统一折叠为“非此网关”
var (
	ErrTransport  = errors.New("probe transport failure")
	ErrBadPayload = errors.New("probe bad payload")
)

// Status：网关自述文档中被消费的字段，均为可缺省
type Status struct {
	Node       *string
	Lat        *float64
	Lon        *float64
	Gridsquare *string
}

// Prober：短超时 HTTP 探测器
// 约束：超时必须足够短（默认 1.5s），保证顺序扫描四个候选仍在交互延迟预算内；
// 端口可注入，便于测试指向本地桩服务
type Prober struct {
	client *http.Client
	port   int
}

func New(timeout time.Duration, port int) *Prober {
	if timeout <= 0 {
		timeout = 1500 * time.Millisecond
	}
	if port <= 0 {
		port = 80
	}
	return &Prober{client: &http.Client{Timeout: timeout}, port: port}
}

// Probe：对单个地址做一次明文 HTTP 状态抓取
// 背景：超时、连接拒绝、非 2xx、非对象 JSON 一律视为失败；失败之间的差异只进日志与指标，
// 不改变调用侧行为
func (p *Prober) Probe(ctx context.Context, addr string) (*Status, error) {
	t0 := time.Now()
	metrics.ProbeRequestsTotal.Inc()
	u := "http://" + net.JoinHostPort(addr, strconv.Itoa(p.port)) + statusPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		metrics.ProbeFailTotal.Inc()
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	resp, err := p.client.Do(req)
	ms := float64(time.Since(t0).Milliseconds())
	if err != nil {
		metrics.ProbeFailTotal.Inc()
		metrics.ProbeDurationMs.Observe(ms)
		logger.L().Debug("probe_transport_error", "addr", addr, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ProbeFailTotal.Inc()
		metrics.ProbeDurationMs.Observe(ms)
		logger.L().Debug("probe_bad_status", "addr", addr, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: http %d", ErrTransport, resp.StatusCode)
	}
	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil || doc == nil {
		metrics.ProbeFailTotal.Inc()
		metrics.ProbeDurationMs.Observe(ms)
		logger.L().Debug("probe_decode_error", "addr", addr, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	st := &Status{
		Node:       getString(doc, "node"),
		Lat:        getFloat(doc, "lat"),
		Lon:        getFloat(doc, "lon"),
		Gridsquare: getString(doc, "gridsquare"),
	}
	metrics.ProbeSuccessTotal.Inc()
	metrics.ProbeDurationMs.Observe(ms)
	logger.L().Debug("probe_ok", "addr", addr, "duration_ms", int64(ms))
	return st, nil
}

func getString(m map[string]any, k string) *string {
	if v, ok := m[k].(string); ok && v != "" {
		return &v
	}
	return nil
}

// getFloat：坐标字段容错提取
// 背景：部分节点固件把经纬度编码为 JSON 字符串而非数值，这里两种形态都接受
func getFloat(m map[string]any, k string) *float64 {
	switch v := m[k].(type) {
	case float64:
		return &v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return &f
		}
	}
	return nil
}
