/*
Package metrics implements HTTP services exposing harness runtime metrics.
*/
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nspcc-dev/contract-harness/pkg/config"
	"go.uber.org/zap"
)

const readHeaderTimeout = 5 * time.Second

// Service serves metrics.
type Service struct {
	http        []*http.Server
	config      config.BasicService
	log         *zap.Logger
	serviceType string

	mtx       sync.Mutex
	listeners []net.Listener
	wg        sync.WaitGroup
}

// NewService configures logger and returns a new service instance.
func NewService(name string, httpServers []*http.Server, cfg config.BasicService, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		http:        httpServers,
		config:      cfg,
		serviceType: name,
		log:         log.With(zap.String("service", name)),
	}
}

// newHTTPService creates a service with one server per unique configured
// address, all sharing the handler.
func newHTTPService(name string, cfg config.BasicService, h http.Handler, log *zap.Logger) *Service {
	addrs := cfg.GetAddresses()
	srvs := make([]*http.Server, len(addrs))
	for i, addr := range addrs {
		srvs[i] = &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: readHeaderTimeout,
		}
	}
	return NewService(name, srvs, cfg, log)
}

// Start runs http service with the exposed endpoint on the configured port.
// It returns an error if any of the addresses can't be listened on.
func (ms *Service) Start() error {
	if !ms.config.Enabled {
		ms.log.Info("service hasn't started since it's disabled")
		return nil
	}
	ms.mtx.Lock()
	defer ms.mtx.Unlock()
	for _, srv := range ms.http {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			ms.closeListeners()
			return err
		}
		ms.listeners = append(ms.listeners, ln)
		ms.log.Info("service is running", zap.String("endpoint", ln.Addr().String()))
	}
	for i, srv := range ms.http {
		ms.wg.Add(1)
		go func(srv *http.Server, ln net.Listener) {
			defer ms.wg.Done()
			err := srv.Serve(ln)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				ms.log.Error("failed to serve", zap.String("endpoint", srv.Addr), zap.Error(err))
			}
		}(srv, ms.listeners[i])
	}
	return nil
}

func (ms *Service) closeListeners() {
	for _, ln := range ms.listeners {
		_ = ln.Close()
	}
	ms.listeners = nil
}

// Addresses returns the addresses the service listens on.
func (ms *Service) Addresses() []string {
	ms.mtx.Lock()
	defer ms.mtx.Unlock()
	res := make([]string, len(ms.listeners))
	for i, ln := range ms.listeners {
		res[i] = ln.Addr().String()
	}
	return res
}

// ShutDown stops the service.
func (ms *Service) ShutDown() {
	if !ms.config.Enabled {
		return
	}
	ms.mtx.Lock()
	started := len(ms.listeners) != 0
	ms.listeners = nil
	ms.mtx.Unlock()
	if !started {
		return
	}
	for _, srv := range ms.http {
		ms.log.Info("shutting down service", zap.String("endpoint", srv.Addr))
		err := srv.Shutdown(context.Background())
		if err != nil {
			ms.log.Error("can't shut service down", zap.String("endpoint", srv.Addr), zap.Error(err))
		}
	}
	ms.wg.Wait()
}
