package launcher

import (
	"fmt"
	"os"
	"time"

	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
)

// verbosityLevel maps 0=fatal .. 5=trace onto logrus levels.
func verbosityLevel(v int) logrus.Level {
	switch {
	case v <= 0:
		return logrus.FatalLevel
	case v >= 5:
		return logrus.TraceLevel
	}
	return logrus.Level(v + 1)
}

func setupLogging(cfg LoggingConfig, sentryDSN string) (*logrus.Logger, error) {
	log := logrus.New()
	log.Out = os.Stderr
	log.SetLevel(verbosityLevel(cfg.Verbosity))

	switch cfg.Format {
	case "json":
		log.Formatter = &logrus.JSONFormatter{}
	case "text", "":
		log.Formatter = &logrus.TextFormatter{
			ForceColors:   cfg.Color,
			DisableColors: !cfg.Color,
			FullTimestamp: true,
		}
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	if sentryDSN != "" {
		hook, err := logrus_sentry.NewSentryHook(sentryDSN, []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		})
		if err != nil {
			return nil, fmt.Errorf("sentry hook: %w", err)
		}
		hook.Timeout = 5 * time.Second
		log.AddHook(hook)
	}
	return log, nil
}
