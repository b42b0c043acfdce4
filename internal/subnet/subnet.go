// 包 subnet：网关候选地址推导与掩码校验，纯整数运算，无任何副作用
package subnet

import (
	"errors"
	"fmt"
	"net"
)

// Candidate：一个候选网关及其来源前缀长度
type Candidate struct {
	Bits    int
	Gateway string
}

// 候选前缀集合：由粗到细尝试；网状网的接入子网只会出现这几档
var candidateBits = []int{27, 28, 29, 30}

// 校验前缀集合：在候选基础上附加 /32，用于确认阶段独立复核
var verifyBits = []int{27, 28, 29, 30, 32}

// ParseIPv4：IPv4 文本转无符号整数，IPv6 与非法文本返回错误
func ParseIPv4(s string) (uint32, error) {
	p := net.ParseIP(s)
	if p == nil {
		return 0, errors.New("bad ip")
	}
	v := p.To4()
	if v == nil {
		return 0, errors.New("not ipv4")
	}
	return uint32(v[0])<<24 | uint32(v[1])<<16 | uint32(v[2])<<8 | uint32(v[3]), nil
}

// FormatIPv4：无符号整数转点分文本
func FormatIPv4(v uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", (v>>24)&0xff, (v>>16)&0xff, (v>>8)&0xff, v&0xff)
}

func mask(bits int) uint32 {
	return ^uint32(0) << (32 - uint(bits))
}

// MaskString：前缀长度转点分掩码文本
func MaskString(bits int) string {
	return FormatIPv4(mask(bits))
}

// Candidates：由客户端地址推导候选网关序列
// 背景：每档前缀取网络基址加一（首个可用主机位）作为网关猜测；不同前缀可能推出同一地址，
// 去重后仅保留最先出现的前缀以保持探测顺序稳定
func Candidates(client string) ([]Candidate, error) {
	c, err := ParseIPv4(client)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(candidateBits))
	seen := make(map[uint32]bool, len(candidateBits))
	for _, bits := range candidateBits {
		gw := (c & mask(bits)) + 1
		if seen[gw] {
			continue
		}
		seen[gw] = true
		out = append(out, Candidate{Bits: bits, Gateway: FormatIPv4(gw)})
	}
	return out, nil
}

// VerifyBits：对已确认的 (客户端, 网关) 重新推导最贴合的前缀长度
// 背景：命中候选时所用的前缀未必是最紧的子网；这里独立复核，取第一个同时满足
// “网关恰为网络基址加一”且“客户端同网段且不是网关本身”的前缀
// 约束：自探测（客户端即网关）等场景可能无任何前缀满足，此时 ok 为 false
func VerifyBits(client, gateway string) (int, bool) {
	c, err := ParseIPv4(client)
	if err != nil {
		return 0, false
	}
	g, err := ParseIPv4(gateway)
	if err != nil {
		return 0, false
	}
	for _, bits := range verifyBits {
		m := mask(bits)
		base := g & m
		if g == base+1 && c&m == base && c != g {
			return bits, true
		}
	}
	return 0, false
}
