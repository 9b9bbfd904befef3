// Package metrics implements a prometheus metrics service.
package metrics

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/oasisprotocol/chainfuzz/common/logging"
)

const (
	// CfgMetricsMode is the flag used to select the metrics mode.
	CfgMetricsMode = "metrics.mode"
	// CfgMetricsAddr is the flag used to specify the pull mode listen
	// address.
	CfgMetricsAddr = "metrics.address"

	// MetricsModeNone disables metrics.
	MetricsModeNone = "none"
	// MetricsModePull serves metrics over HTTP for a Prometheus scraper.
	MetricsModePull = "pull"
)

// Flags has the metrics flags.
var Flags = flag.NewFlagSet("", flag.ContinueOnError)

// Service is a metrics service.
type Service interface {
	// Start starts the service.
	Start() error
	// Stop halts the service.
	Stop()
}

type stubService struct{}

func (s *stubService) Start() error {
	return nil
}

func (s *stubService) Stop() {}

type pullService struct {
	logger *logging.Logger

	ln net.Listener
	s  *http.Server

	errCh chan error
}

func (s *pullService) Start() error {
	go func() {
		if err := s.s.Serve(s.ln); err != nil && err != http.ErrServerClosed {
			s.errCh <- err
		}
		close(s.errCh)
	}()
	return nil
}

func (s *pullService) Stop() {
	_ = s.s.Close()
	if err := <-s.errCh; err != nil {
		s.logger.Error("metrics terminated uncleanly",
			"err", err,
		)
	}
}

func newPullService(addr string) (Service, error) {
	logger := logging.GetLogger("chainfuzz/metrics")
	logger.Debug("metrics server params",
		"mode", MetricsModePull,
		"addr", addr,
	)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	return &pullService{
		logger: logger,
		ln:     ln,
		s:      &http.Server{Handler: promhttp.Handler(), ReadTimeout: 5 * time.Second},
		errCh:  make(chan error, 1),
	}, nil
}

// New constructs a new metrics service.
func New() (Service, error) {
	mode := strings.ToLower(viper.GetString(CfgMetricsMode))
	switch mode {
	case MetricsModeNone:
		return &stubService{}, nil
	case MetricsModePull:
		return newPullService(viper.GetString(CfgMetricsAddr))
	default:
		return nil, fmt.Errorf("metrics: unsupported mode: '%v'", mode)
	}
}

func init() {
	Flags.String(CfgMetricsMode, MetricsModeNone, "metrics mode: none, pull")
	Flags.String(CfgMetricsAddr, "127.0.0.1:3000", "metrics pull mode listen address")
	_ = viper.BindPFlags(Flags)
}
