package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "10.190.71.239", Sanitize("10.190.71.239"))
	assert.Equal(t, "45.28_-123.02", Sanitize("45.28_-123.02"))
	assert.Equal(t, "a_b_c.d-e_f", Sanitize("a/b:c.d-e f"))
}

func TestPutThenGetValid(t *testing.T) {
	s, err := NewStore(t.TempDir(), "client", 24*time.Hour, nil)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "10.1.2.3", []byte(`{"status":"ok"}`)))
	out, payload := s.Get(ctx, "10.1.2.3")
	assert.Equal(t, Valid, out)
	assert.JSONEq(t, `{"status":"ok"}`, string(payload))
}

func TestGetMissingIsMiss(t *testing.T) {
	s, err := NewStore(t.TempDir(), "client", 24*time.Hour, nil)
	require.NoError(t, err)
	out, payload := s.Get(context.Background(), "10.9.9.9")
	assert.Equal(t, Miss, out)
	assert.Nil(t, payload)
}

func TestMalformedFileIsMiss(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, "client", 24*time.Hour, nil)
	require.NoError(t, err)
	fp := filepath.Join(dir, "client", "10.1.2.3.json")
	require.NoError(t, os.WriteFile(fp, []byte("{not json"), 0o644))
	out, _ := s.Get(context.Background(), "10.1.2.3")
	assert.Equal(t, Miss, out)
}

// rewriteWrittenAt 将已落盘条目的写入时间改为指定值，用于测试 TTL 边界
func rewriteWrittenAt(t *testing.T, dir, ns, key string, at time.Time) {
	t.Helper()
	fp := filepath.Join(dir, ns, key+".json")
	b, err := os.ReadFile(fp)
	require.NoError(t, err)
	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &env))
	env["written_at"] = json.RawMessage([]byte(jsonInt(at.Unix())))
	out, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(fp, out, 0o644))
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestTTLBoundary(t *testing.T) {
	dir := t.TempDir()
	ttl := 24 * time.Hour
	s, err := NewStore(dir, "client", ttl, nil)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "10.1.2.3", []byte(`{"a":1}`)))

	// 写入时刻回拨到 TTL 边界内一秒：仍有效
	rewriteWrittenAt(t, dir, "client", "10.1.2.3", time.Now().Add(-ttl+time.Second))
	out, _ := s.Get(ctx, "10.1.2.3")
	assert.Equal(t, Valid, out)

	// 回拨到 TTL 边界外一秒：过期
	rewriteWrittenAt(t, dir, "client", "10.1.2.3", time.Now().Add(-ttl-time.Second))
	out, payload := s.Get(ctx, "10.1.2.3")
	assert.Equal(t, Expired, out)
	assert.Nil(t, payload)
}

func TestOverwriteAfterExpiry(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, "geo", time.Hour, nil)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "45.28_-123.02", []byte(`{"city":"old"}`)))
	rewriteWrittenAt(t, dir, "geo", "45.28_-123.02", time.Now().Add(-2*time.Hour))
	out, _ := s.Get(ctx, "45.28_-123.02")
	require.Equal(t, Expired, out)
	require.NoError(t, s.Put(ctx, "45.28_-123.02", []byte(`{"city":"new"}`)))
	out, payload := s.Get(ctx, "45.28_-123.02")
	assert.Equal(t, Valid, out)
	assert.JSONEq(t, `{"city":"new"}`, string(payload))
}
