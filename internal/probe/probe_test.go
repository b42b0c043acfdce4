package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestProber 启动一个本地状态文档桩服务，返回指向其端口的探测器
func newTestProber(t *testing.T, handler http.HandlerFunc) (*Prober, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return New(time.Second, port), host
}

func TestProbeParsesFullDocument(t *testing.T) {
	p, host := newTestProber(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cgi-bin/sysinfo.json", r.URL.Path)
		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(`{"node":"K9RCP-Edge","lat":45.2755,"lon":-123.01778,"gridsquare":"CN85lg"}`))
	})
	st, err := p.Probe(context.Background(), host)
	require.NoError(t, err)
	require.NotNil(t, st.Node)
	assert.Equal(t, "K9RCP-Edge", *st.Node)
	require.NotNil(t, st.Lat)
	assert.InDelta(t, 45.2755, *st.Lat, 1e-9)
	require.NotNil(t, st.Lon)
	assert.InDelta(t, -123.01778, *st.Lon, 1e-9)
	require.NotNil(t, st.Gridsquare)
	assert.Equal(t, "CN85lg", *st.Gridsquare)
}

func TestProbeStringCoordinates(t *testing.T) {
	p, host := newTestProber(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"node":"X","lat":"45.28","lon":"-123.02"}`))
	})
	st, err := p.Probe(context.Background(), host)
	require.NoError(t, err)
	require.NotNil(t, st.Lat)
	assert.InDelta(t, 45.28, *st.Lat, 1e-9)
	assert.Nil(t, st.Gridsquare)
}

func TestProbeMissingFieldsAreNil(t *testing.T) {
	p, host := newTestProber(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	st, err := p.Probe(context.Background(), host)
	require.NoError(t, err)
	assert.Nil(t, st.Node)
	assert.Nil(t, st.Lat)
	assert.Nil(t, st.Lon)
	assert.Nil(t, st.Gridsquare)
}

func TestProbeNonObjectPayloadFails(t *testing.T) {
	p, host := newTestProber(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[1,2,3]`))
	})
	_, err := p.Probe(context.Background(), host)
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestProbeNon2xxFails(t *testing.T) {
	p, host := newTestProber(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := p.Probe(context.Background(), host)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestProbeConnectionRefusedFails(t *testing.T) {
	// 端口已关闭的地址：传输失败
	srv := httptest.NewServer(http.NotFoundHandler())
	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	srv.Close()
	port, _ := strconv.Atoi(portStr)
	p := New(200*time.Millisecond, port)
	_, err = p.Probe(context.Background(), host)
	assert.ErrorIs(t, err, ErrTransport)
}
