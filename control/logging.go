// control/logging.go
// Author: momentics <momentics@gmail.com>

package control

import (
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/momentics/hioload-sync/api"
)

// NewLogger returns a logfmt logger writing to w, filtered at levelName and
// annotated with a UTC timestamp and the caller.
func NewLogger(levelName string, w io.Writer) (log.Logger, error) {
	opt, err := levelOption(levelName)
	if err != nil {
		return nil, err
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = level.NewFilter(logger, opt)
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller), nil
}

func levelOption(name string) (level.Option, error) {
	switch name {
	case "debug":
		return level.AllowDebug(), nil
	case "info", "":
		return level.AllowInfo(), nil
	case "warn":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	default:
		return nil, errors.Wrapf(api.ErrInvalidArgument, "unknown log level %q", name)
	}
}
