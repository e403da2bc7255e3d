package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewPusherDisabled(t *testing.T) {
	log := zap.NewNop()

	assert.Nil(t, NewPusher(PushConfig{}, log))
	assert.Nil(t, NewPusher(PushConfig{Exporter: PushExporterRemoteWrite}, log))
	assert.Nil(t, NewPusher(PushConfig{Exporter: PushExporterRemoteWrite, Endpoint: "not a url"}, log))
	assert.Nil(t, NewPusher(PushConfig{Exporter: "statsd", Endpoint: "http://localhost:9125"}, log))

	assert.IsType(t, &RemoteWritePusher{}, NewPusher(PushConfig{Exporter: PushExporterRemoteWrite, Endpoint: "http://localhost:9090/api/v1/write"}, log))
	assert.IsType(t, &PushgatewayPusher{}, NewPusher(PushConfig{Exporter: PushExporterPushgateway, Endpoint: "http://localhost:9091"}, log))
}

func TestRemoteWritePusher(t *testing.T) {
	registry := prometheus.NewRegistry()
	released := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweeper_tickets_released_total",
		Help: "test",
	}, []string{"raffle"})
	lag := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "sweeper_lag_seconds", Help: "test"})
	registry.MustRegister(released, lag)
	released.WithLabelValues("12").Add(3)
	lag.Observe(0.2)

	var got prompb.WriteRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		decoded, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, got.Unmarshal(decoded))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pusher := NewRemoteWritePusher(srv.URL, "secret")
	pusher.now = func() time.Time { return time.UnixMilli(1700000000000) }

	require.NoError(t, pusher.Push(context.Background(), registry))

	assert.Equal(t, "snappy", headers.Get("Content-Encoding"))
	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))
	require.Len(t, got.Timeseries, 1)

	series := got.Timeseries[0]
	require.Len(t, series.Labels, 2)
	assert.Equal(t, "__name__", series.Labels[0].Name)
	assert.Equal(t, "sweeper_tickets_released_total", series.Labels[0].Value)
	assert.Equal(t, "raffle", series.Labels[1].Name)
	require.Len(t, series.Samples, 1)
	assert.Equal(t, 3.0, series.Samples[0].Value)
	assert.Equal(t, int64(1700000000000), series.Samples[0].Timestamp)
}

func TestRemoteWritePusherRejectedStatus(t *testing.T) {
	registry := prometheus.NewRegistry()
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "sweeper_up", Help: "test"})
	registry.MustRegister(gauge)
	gauge.Set(1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewRemoteWritePusher(srv.URL, "").Push(context.Background(), registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestPushgatewayPusher(t *testing.T) {
	registry := prometheus.NewRegistry()
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "sweeper_up", Help: "test"})
	registry.MustRegister(gauge)
	gauge.Set(1)

	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pusher := NewPushgatewayPusher(srv.URL, "", map[string]string{"environment": "prod"})
	require.NoError(t, pusher.Push(context.Background(), registry))

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/sorteos-scheduler/environment/prod", path)
}

func TestPushLoopLogsFirstFailureOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	pusher := NewMockPusher(ctrl)
	core, logs := observer.New(zap.InfoLevel)

	gomock.InOrder(
		pusher.EXPECT().Push(gomock.Any(), gomock.Any()).Return(errors.New("connection refused")),
		pusher.EXPECT().Push(gomock.Any(), gomock.Any()).Return(errors.New("connection refused")),
		pusher.EXPECT().Push(gomock.Any(), gomock.Any()).Return(nil),
	)

	loop := &pushLoop{pusher: pusher, gatherer: prometheus.NewRegistry(), interval: time.Hour, log: zap.New(core)}
	loop.pushOnce(context.Background())
	loop.pushOnce(context.Background())
	loop.pushOnce(context.Background())

	require.Equal(t, 1, logs.FilterMessage("metrics push failed").Len())
	require.Equal(t, 1, logs.FilterMessage("metrics push recovered").Len())
}

func TestPushLoopFlushesOnStop(t *testing.T) {
	ctrl := gomock.NewController(t)
	pusher := NewMockPusher(ctrl)
	pusher.EXPECT().Push(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	loop := &pushLoop{pusher: pusher, gatherer: prometheus.NewRegistry(), interval: time.Hour, log: zap.NewNop()}
	loop.start()
	require.NoError(t, loop.stop(context.Background()))
}
