/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package metricsserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-cachebatcher/log/logtest"
	"github.com/acronis/go-cachebatcher/testutil"
)

func TestMetricsServer_Start(t *testing.T) {
	addr := testutil.GetLocalAddrWithFreeTCPPort()

	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_lookups_total", Help: "Lookups."})
	registry.MustRegister(counter)
	counter.Add(3)

	logRecorder := logtest.NewRecorder()
	srv := New(&Config{Enabled: true, Address: addr}, registry, logRecorder)
	fatalErr := make(chan error, 1)
	go srv.Start(fatalErr)
	require.NoError(t, testutil.WaitListeningServer(addr, time.Second*3))
	defer func() {
		require.NoError(t, srv.Stop())
		testutil.RequireNoErrorInChannel(t, fatalErr)
	}()

	getBody := func(path string) string {
		req, err := http.NewRequest(http.MethodGet, srv.URL+path, http.NoBody)
		require.NoError(t, err)
		req.Header.Set("X-Request-ID", "req-"+path)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, "req-"+path, resp.Header.Get("X-Request-ID"))
		defer func() { require.NoError(t, resp.Body.Close()) }()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		respBody, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(respBody)
	}

	require.Contains(t, getBody("/metrics"), "test_lookups_total 3")
	require.NotEmpty(t, getBody("/debug/pprof/"))

	entry, found := logRecorder.FindEntry("request handled")
	require.True(t, found)
	uri, ok := entry.StringField("uri")
	require.True(t, ok)
	require.Equal(t, "/metrics", uri)
	reqID, ok := entry.StringField("request_id")
	require.True(t, ok)
	require.Equal(t, "req-/metrics", reqID)
}

func TestRequestID(t *testing.T) {
	var gotID string
	handler := requestID(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotID = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NotEmpty(t, gotID)
	require.Equal(t, gotID, rec.Header().Get("X-Request-ID"))
	_, err := xid.FromString(gotID)
	require.NoError(t, err)
}
