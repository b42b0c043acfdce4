// 包 resolver：编排候选生成与探测，给出客户端的上游网关记录
package resolver

import (
	"context"
	"errors"

	"node-api/internal/logger"
	"node-api/internal/probe"
	"node-api/internal/subnet"
)

// ErrNoGateway：所有推导候选与自探测回退均失败
var ErrNoGateway = errors.New("no gateway responded")

// Prober：探测抽象，便于测试注入桩实现
type Prober interface {
	Probe(ctx context.Context, addr string) (*probe.Status, error)
}

// GatewayRecord：一次解析的结果，构造后不再修改
// 约束：Lat/Lon 各自独立透传自述文档，文档只给其中之一时按原样携带，
// 由消费方容忍这种不一致（保持上游行为，不做修正）
type GatewayRecord struct {
	RouterIP   string
	Bits       *int
	Netmask    *string
	Node       *string
	Lat        *float64
	Lon        *float64
	Gridsquare *string
}

type Resolver struct {
	prober Prober
}

func New(p Prober) *Resolver { return &Resolver{prober: p} }

// Resolve：顺序探测候选网关，首个成功者即胜出
// 背景：探测是只读操作，失败直接推进到下一候选；全部失败后把客户端自身当作
// 网关再试一次（NAT 拓扑下客户端在服务端看来就是网关），仍失败才算无法触达
// 约束：候选间严格串行，候选 N+1 仅在候选 N 完成或超时后发起
func (r *Resolver) Resolve(ctx context.Context, client string) (*GatewayRecord, error) {
	cands, err := subnet.Candidates(client)
	if err != nil {
		return nil, err
	}
	for _, c := range cands {
		st, err := r.prober.Probe(ctx, c.Gateway)
		if err != nil {
			logger.L().Debug("resolve_candidate_fail", "client", client, "gateway", c.Gateway, "bits", c.Bits)
			continue
		}
		rec := newRecord(client, c.Gateway, st)
		logger.L().Debug("resolve_candidate_hit", "client", client, "gateway", c.Gateway)
		return rec, nil
	}
	st, err := r.prober.Probe(ctx, client)
	if err != nil {
		logger.L().Debug("resolve_exhausted", "client", client)
		return nil, ErrNoGateway
	}
	// 自探测模式：掩码校验不会给出结果，前缀固定为 /32
	rec := newRecord(client, client, st)
	bits := 32
	mask := subnet.MaskString(32)
	rec.Bits = &bits
	rec.Netmask = &mask
	logger.L().Debug("resolve_self_mode", "client", client)
	return rec, nil
}

// newRecord：由确认的 (客户端, 网关) 与状态文档组装记录
// 背景：掩码复核独立于候选生成——命中候选所用的前缀未必最紧，这里统一重推；
// 无前缀满足约束时掩码字段留空
func newRecord(client, gateway string, st *probe.Status) *GatewayRecord {
	rec := &GatewayRecord{
		RouterIP:   gateway,
		Node:       st.Node,
		Lat:        st.Lat,
		Lon:        st.Lon,
		Gridsquare: st.Gridsquare,
	}
	if bits, ok := subnet.VerifyBits(client, gateway); ok {
		mask := subnet.MaskString(bits)
		rec.Bits = &bits
		rec.Netmask = &mask
	}
	return rec
}
