package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// logLevelFlag is the --logging value
type logLevelFlag struct {
	level string
}

var _ pflag.Value = (*logLevelFlag)(nil)

func (f *logLevelFlag) String() string {
	return f.level
}

func (f *logLevelFlag) Set(s string) error {
	level := strings.ToLower(s)
	switch level {
	case "none", "off", "warn", "info", "debug", "trace":
		f.level = level
		return nil
	}
	return fmt.Errorf("unknown log level %q (none, warn, info, debug, trace)", s)
}

func (f *logLevelFlag) Type() string {
	return "level"
}

// configureLogging routes logrus output for the requested level.
// "none" and "off" discard everything.
func configureLogging(level string, out io.Writer) {
	switch level {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	default:
		logrus.SetOutput(io.Discard)
		return
	}
	logrus.SetOutput(out)
}
