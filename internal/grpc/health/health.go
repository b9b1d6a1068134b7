// Package health exposes the scoring service status over the standard gRPC
// health protocol.
package health

import (
	"context"
	"sort"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"ransomguard/pkg/logger"
)

// ServiceName is the service reported alongside the server-wide "" entry
const ServiceName = "ransomguard.v1.ScoringService"

// DefaultInterval between background checks
const DefaultInterval = 10 * time.Second

// Probe reports whether one dependency is usable
type Probe func(ctx context.Context) error

// Monitor runs probes and publishes the combined result as the serving status
type Monitor struct {
	server   *grpchealth.Server
	probes   map[string]Probe
	interval time.Duration
	logger   *logger.Logger
}

// NewMonitor creates a monitor. Until the first check runs every service
// reports NOT_SERVING.
func NewMonitor(probes map[string]Probe, interval time.Duration, log *logger.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	m := &Monitor{
		server:   grpchealth.NewServer(),
		probes:   probes,
		interval: interval,
		logger:   log.WithComponent("grpc-health"),
	}
	m.setStatus(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	return m
}

// Register registers the gRPC health check service
func (m *Monitor) Register(grpcServer *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(grpcServer, m.server)
}

// Run checks immediately and then every interval until ctx is done
func (m *Monitor) Run(ctx context.Context) {
	m.CheckNow(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.server.Shutdown()
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

// CheckNow runs every probe and updates the serving status. It returns the
// names of the failing probes.
func (m *Monitor) CheckNow(ctx context.Context) []string {
	var failing []string
	for name, probe := range m.probes {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := probe(checkCtx)
		cancel()
		if err != nil {
			m.logger.Warn().Err(err).Str("probe", name).Msg("health probe failed")
			failing = append(failing, name)
		}
	}
	sort.Strings(failing)

	if len(failing) == 0 {
		m.setStatus(grpc_health_v1.HealthCheckResponse_SERVING)
	} else {
		m.setStatus(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}
	return failing
}

func (m *Monitor) setStatus(status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	m.server.SetServingStatus("", status)
	m.server.SetServingStatus(ServiceName, status)
}
