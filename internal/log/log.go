package log

import (
	"flag"

	"github.com/go-logr/logr"
	"go.uber.org/zap/zapcore"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// BuildZapOptions binds the zap flags to fs. The returned options reflect the
// flags once fs is parsed.
func BuildZapOptions(fs *flag.FlagSet, development bool) *zap.Options {
	opts := &zap.Options{
		Development: development,
		TimeEncoder: zapcore.ISO8601TimeEncoder,
	}
	opts.BindFlags(fs)
	return opts
}

// New builds a logger from options whose flags have been parsed.
func New(opts *zap.Options) logr.Logger {
	return zap.New(zap.UseFlagOptions(opts))
}
