package resolver

import (
	"context"
	"errors"
	"testing"

	"node-api/internal/probe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProber 按预置表应答，并记录探测顺序
type fakeProber struct {
	docs   map[string]*probe.Status
	probed []string
}

func (f *fakeProber) Probe(ctx context.Context, addr string) (*probe.Status, error) {
	f.probed = append(f.probed, addr)
	if st, ok := f.docs[addr]; ok {
		return st, nil
	}
	return nil, errors.New("not this gateway")
}

func strPtr(s string) *string   { return &s }
func f64Ptr(v float64) *float64 { return &v }

func TestResolveFirstMatchWins(t *testing.T) {
	fp := &fakeProber{docs: map[string]*probe.Status{
		"10.190.71.225": {
			Node:       strPtr("K9RCP-Edge"),
			Lat:        f64Ptr(45.2755),
			Lon:        f64Ptr(-123.01778),
			Gridsquare: strPtr("CN85lg"),
		},
	}}
	rec, err := New(fp).Resolve(context.Background(), "10.190.71.239")
	require.NoError(t, err)
	assert.Equal(t, "10.190.71.225", rec.RouterIP)
	require.NotNil(t, rec.Bits)
	assert.Equal(t, 27, *rec.Bits)
	require.NotNil(t, rec.Netmask)
	assert.Equal(t, "255.255.255.224", *rec.Netmask)
	assert.Equal(t, "K9RCP-Edge", *rec.Node)
	assert.InDelta(t, 45.2755, *rec.Lat, 1e-9)
	assert.InDelta(t, -123.01778, *rec.Lon, 1e-9)
	assert.Equal(t, "CN85lg", *rec.Gridsquare)
	// 239 的 /27 候选即 .225，首发命中后不再探测其余候选
	assert.Equal(t, []string{"10.190.71.225"}, fp.probed)
}

func TestResolveAdvancesToNextCandidate(t *testing.T) {
	// 客户端 10.1.2.37：候选为 /27 的 .33 与 /30 的 .37，仅后者应答
	fp := &fakeProber{docs: map[string]*probe.Status{
		"10.1.2.37": {Node: strPtr("N0CALL-GW")},
	}}
	rec, err := New(fp).Resolve(context.Background(), "10.1.2.37")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.1.2.33", "10.1.2.37"}, fp.probed)
	assert.Equal(t, "10.1.2.37", rec.RouterIP)
}

func TestResolveSelfFallback(t *testing.T) {
	fp := &fakeProber{docs: map[string]*probe.Status{
		"10.190.71.239": {Node: strPtr("X")},
	}}
	rec, err := New(fp).Resolve(context.Background(), "10.190.71.239")
	require.NoError(t, err)
	assert.Equal(t, "10.190.71.239", rec.RouterIP)
	require.NotNil(t, rec.Bits)
	assert.Equal(t, 32, *rec.Bits)
	assert.Equal(t, "255.255.255.255", *rec.Netmask)
	assert.Equal(t, "X", *rec.Node)
	// 所有推导候选失败后才轮到自探测
	assert.Equal(t, []string{"10.190.71.225", "10.190.71.233", "10.190.71.237", "10.190.71.239"}, fp.probed)
}

func TestResolveAllFail(t *testing.T) {
	fp := &fakeProber{docs: map[string]*probe.Status{}}
	_, err := New(fp).Resolve(context.Background(), "10.190.71.239")
	assert.ErrorIs(t, err, ErrNoGateway)
	// 去重后的三个候选 + 自探测回退
	assert.Len(t, fp.probed, 4)
}

func TestResolveVerifyRunsIndependently(t *testing.T) {
	fp := &fakeProber{docs: map[string]*probe.Status{
		"10.0.0.1": {},
	}}
	rec, err := New(fp).Resolve(context.Background(), "10.0.0.6")
	require.NoError(t, err)
	require.NotNil(t, rec.Bits)
	assert.Equal(t, 27, *rec.Bits)
	assert.Equal(t, "255.255.255.224", *rec.Netmask)
}

func TestResolveNoFittingPrefixLeavesMaskNull(t *testing.T) {
	// 客户端 10.0.0.5 的 /30 候选恰为其自身；常规候选命中自身时复核无解，掩码留空
	fp := &fakeProber{docs: map[string]*probe.Status{
		"10.0.0.5": {Node: strPtr("SELF-GW")},
	}}
	rec, err := New(fp).Resolve(context.Background(), "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.5"}, fp.probed)
	assert.Equal(t, "10.0.0.5", rec.RouterIP)
	assert.Nil(t, rec.Bits)
	assert.Nil(t, rec.Netmask)
}

func TestResolveBadClientAddress(t *testing.T) {
	fp := &fakeProber{}
	_, err := New(fp).Resolve(context.Background(), "nope")
	assert.Error(t, err)
	assert.Empty(t, fp.probed)
}

func TestResolvePartialCoordinatesCarriedThrough(t *testing.T) {
	// 文档只给 lat：按原样携带，不补全也不清空
	fp := &fakeProber{docs: map[string]*probe.Status{
		"10.1.2.33": {Lat: f64Ptr(45.28)},
	}}
	rec, err := New(fp).Resolve(context.Background(), "10.1.2.37")
	require.NoError(t, err)
	require.NotNil(t, rec.Lat)
	assert.Nil(t, rec.Lon)
}
