package metrics

import (
	"net/http"
	"net/http/pprof"

	"github.com/nspcc-dev/contract-harness/pkg/config"
	"go.uber.org/zap"
)

var pprofHandlers = map[string]http.HandlerFunc{
	"/debug/pprof/":        pprof.Index,
	"/debug/pprof/cmdline": pprof.Cmdline,
	"/debug/pprof/profile": pprof.Profile,
	"/debug/pprof/symbol":  pprof.Symbol,
	"/debug/pprof/trace":   pprof.Trace,
}

// NewPprofService creates a service exposing runtime profiles of the harness
// process, useful for long stress runs.
func NewPprofService(cfg config.BasicService, log *zap.Logger) *Service {
	mux := http.NewServeMux()
	for path, h := range pprofHandlers {
		mux.HandleFunc(path, h)
	}
	return newHTTPService("Pprof", cfg, mux, log)
}
