// 包 rdns：反向 DNS（PTR）查询辅助，纯透传，仅做路由器特有的主机名归一化
package rdns

import (
	"context"
	"net"
	"strings"
	"time"
)

type Client struct {
	enabled  bool
	timeout  time.Duration
	resolver *net.Resolver
}

func New(enabled bool) *Client {
	return &Client{enabled: enabled, timeout: time.Second, resolver: net.DefaultResolver}
}

// Lookup：查询地址的 PTR 记录
// 背景：失败或关闭时返回空指针，调用侧把它当普通的空字段；不向上传播错误
func (c *Client) Lookup(ctx context.Context, addr string) *string {
	if c == nil || !c.enabled {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	names, err := c.resolver.LookupAddr(ctx, addr)
	if err != nil || len(names) == 0 {
		return nil
	}
	h := NormalizeHost(names[0])
	if h == "" {
		return nil
	}
	return &h
}

// NormalizeHost：去掉尾部点，并剥离路由器附加的一个 lan. 前导段
func NormalizeHost(name string) string {
	h := strings.TrimSuffix(name, ".")
	h = strings.TrimPrefix(h, "lan.")
	return h
}
