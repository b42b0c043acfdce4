// 包 geo：坐标桶化、反地理编码提供方调用与地理缓存
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"node-api/internal/logger"
	"node-api/internal/metrics"
)

// Record：反地理编码结果，五个字段各自独立可空
// 约束：即使提供方返回 country_code / county_code 也不提取，这是刻意排除而非遗漏
type Record struct {
	Country   *string `json:"country"`
	State     *string `json:"state"`
	StateCode *string `json:"state_code"`
	City      *string `json:"city"`
	County    *string `json:"county"`
}

// providerResponse：对齐 Geoapify 反地理编码 REST 返回，仅解析被消费的字段
type providerResponse struct {
	Features []struct {
		Properties struct {
			Country   string `json:"country"`
			State     string `json:"state"`
			StateCode string `json:"state_code"`
			City      string `json:"city"`
			County    string `json:"county"`
		} `json:"properties"`
	} `json:"features"`
}

// GeoapifyClient：反地理编码提供方客户端
type GeoapifyClient struct {
	key     string
	client  *http.Client
	baseURL string
}

func NewGeoapifyClient(key string, client *http.Client) *GeoapifyClient {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &GeoapifyClient{key: key, client: client, baseURL: "https://api.geoapify.com/v1/geocode/reverse"}
}

// Reverse：按量化后的坐标发起一次反地理编码
// 背景：请求参数固定两位小数（与缓存桶粒度一致），同桶内的重复调用产生字节级相同的
// 请求，进而得到一致的缓存内容
// 返回：五字段记录；传输失败、畸形响应或五字段全空视为错误，由调用侧降级
func (c *GeoapifyClient) Reverse(ctx context.Context, lat, lon float64) (*Record, error) {
	if c.key == "" {
		return nil, errors.New("missing key")
	}
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.2f", lat))
	q.Set("lon", fmt.Sprintf("%.2f", lon))
	q.Set("apiKey", c.key)
	u := c.baseURL + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	t0 := time.Now()
	metrics.GeocodeRequestsTotal.Inc()
	logger.L().Debug("geocode_req", "lat", fmt.Sprintf("%.2f", lat), "lon", fmt.Sprintf("%.2f", lon))
	resp, err := c.client.Do(req)
	if err != nil {
		logger.L().Error("geocode_http_error", "err", err)
		metrics.GeocodeFailTotal.Inc()
		return nil, err
	}
	defer resp.Body.Close()
	ms := float64(time.Since(t0).Milliseconds())
	metrics.GeocodeDurationMs.Observe(ms)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.L().Error("geocode_bad_status", "status", resp.StatusCode)
		metrics.GeocodeFailTotal.Inc()
		return nil, errors.New("geocode provider error")
	}
	var r providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		logger.L().Error("geocode_decode_error", "err", err)
		metrics.GeocodeFailTotal.Inc()
		return nil, err
	}
	if len(r.Features) == 0 {
		metrics.GeocodeFailTotal.Inc()
		return nil, errors.New("geocode empty result")
	}
	p := r.Features[0].Properties
	rec := &Record{
		Country:   nonEmpty(p.Country),
		State:     nonEmpty(p.State),
		StateCode: nonEmpty(p.StateCode),
		City:      nonEmpty(p.City),
		County:    nonEmpty(p.County),
	}
	if rec.Country == nil && rec.State == nil && rec.StateCode == nil && rec.City == nil && rec.County == nil {
		metrics.GeocodeFailTotal.Inc()
		return nil, errors.New("geocode no usable properties")
	}
	metrics.GeocodeSuccessTotal.Inc()
	logger.L().Debug("geocode_resp", "duration_ms", int64(ms))
	return rec, nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
