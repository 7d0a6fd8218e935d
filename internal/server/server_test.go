package server

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/aiox-platform/contextflow/internal/config"
)

func checkHealth(t *testing.T, s *Server) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := s.health.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestUpdateHealth_MirrorsReadiness(t *testing.T) {
	var readyErr error
	s := New(config.ServerConfig{Host: "127.0.0.1"}, config.GRPCConfig{Host: "127.0.0.1"}, http.NotFoundHandler(),
		func(context.Context) error { return readyErr })

	s.updateHealth(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkHealth(t, s))

	readyErr = errors.New("redis down")
	s.updateHealth(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkHealth(t, s))
}

func TestUpdateHealth_NoCheckServes(t *testing.T) {
	s := New(config.ServerConfig{}, config.GRPCConfig{}, http.NotFoundHandler(), nil)
	s.updateHealth(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkHealth(t, s))
}
