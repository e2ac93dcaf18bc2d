package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"sigs.k8s.io/yaml"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/sinks/slogsink"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/sinks/zapsink"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/trpclog"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/util"
)

type Result struct {
	fx.Out

	HTTP      *HTTP
	Logging   *Logging
	Redis     *Redis
	Nats      *Nats
	Session   *Session
	Ratelimit *RateLimit
	Security  *Security
	Telemetry *Telemetry
	Metrics   *Metrics
	Users     []*User

	Log      *slog.Logger
	Registry *trpclog.Registry
}

func FileParser(file string) func() (Result, error) {
	return func() (Result, error) {
		bts, err := os.ReadFile(file)
		if err != nil {
			return Result{}, err
		}

		var cfg *Config
		cfg, err = ParseConfig(file, bts)
		if err != nil {
			return Result{}, err
		}

		level := cfg.Logging.Level
		if ll := os.Getenv("SLOG_LEVEL"); ll != "" {
			switch strings.ToLower(ll) {
			case "debug", "0":
				level = slog.LevelDebug
			}
		}
		logFormat := cfg.Logging.Format
		if lf := os.Getenv("SLOG_FORMAT"); lf != "" {
			logFormat = lf
		}
		// containers get machine-readable logs unless told otherwise
		if logFormat == "" {
			if isContainerEnvironment() {
				logFormat = "json"
			} else {
				logFormat = "tint"
			}
		}
		var logger *slog.Logger
		switch logFormat {
		case "json":
			logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				AddSource: true,
				Level:     level,
			}))
		case "pretty", "tint":
			fallthrough
		default:
			logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{
				AddSource: true,
				Level:     level,
			}))
		}
		logger.Info("config loaded", "file", file)

		registry := trpclog.NewRegistry()
		switch cfg.Logging.Backend {
		case "zap":
			registry.Configure(trpclog.Config{Logger: zapsink.NewConsole(zapLevel(level))})
		default:
			registry.Configure(trpclog.Config{Logger: slogsink.New(logger)})
		}

		res := Result{
			HTTP:      &cfg.HTTP,
			Logging:   &cfg.Logging,
			Redis:     cfg.Redis,
			Nats:      cfg.Nats,
			Session:   cfg.Session,
			Ratelimit: cfg.Ratelimit,
			Security:  cfg.Security,
			Telemetry: cfg.Telemetry,
			Metrics:   cfg.Metrics,
			Users:     cfg.Users,
			Log:       logger,
			Registry:  registry,
		}
		return res, nil
	}
}

func ParseConfig(file string, data []byte) (*Config, error) {
	c := &Config{}

	err := yaml.Unmarshal(data, c)
	if err != nil {
		return nil, err
	}

	if c.Redis == nil {
		c.Redis = &Redis{}
	}
	c.Redis.URI = util.Coa(c.Redis.URI, "embedded")
	c.Redis.Namespace = util.Coa(c.Redis.Namespace, "tinyland")

	if c.Nats == nil {
		c.Nats = &Nats{}
	}
	c.Nats.URI = util.Coa(c.Nats.URI, "embedded")

	if c.Session == nil {
		c.Session = &Session{}
	}
	c.Session.Header = util.Coa(c.Session.Header, "x-tinyland-session")
	if c.Session.TTL.Duration == 0 {
		c.Session.TTL = Duration{24 * time.Hour}
	}

	if c.Ratelimit != nil {
		c.Ratelimit.BucketSize = util.Coa(c.Ratelimit.BucketSize, 200)
		c.Ratelimit.BucketDrip = util.Coa(c.Ratelimit.BucketDrip, 100)
		c.Ratelimit.BucketCycleSeconds = util.Coa(c.Ratelimit.BucketCycleSeconds, 10)
	}

	if c.Security == nil {
		c.Security = &Security{}
	}

	if c.Telemetry == nil {
		c.Telemetry = &Telemetry{}
	}
	if c.Telemetry.Enabled {
		c.Telemetry.Stream = util.Coa(c.Telemetry.Stream, "TINYLAND_USAGE")
	}

	var verr error
	if c.HTTP.Bind == "" {
		verr = multierr.Append(verr, fmt.Errorf("%s: http.bind is required", file))
	}
	if c.Ratelimit != nil {
		for idx, v := range c.Ratelimit.Abuse {
			if v.Id == "" {
				verr = multierr.Append(verr, fmt.Errorf("abuse limit %d has no id", idx))
			}
			if v.Total <= 0 {
				verr = multierr.Append(verr, fmt.Errorf("abuse limit %q has no total", v.Id))
			}
			if v.Window.Duration <= 0 {
				verr = multierr.Append(verr, fmt.Errorf("abuse limit %q has no window", v.Id))
			}
		}
	}
	seen := make(map[string]struct{}, len(c.Users))
	for idx, u := range c.Users {
		if u.Username == "" {
			verr = multierr.Append(verr, fmt.Errorf("user %d has no username", idx))
			continue
		}
		if u.ID == "" {
			verr = multierr.Append(verr, fmt.Errorf("user %q has no id", u.Username))
		}
		if u.Password == "" {
			verr = multierr.Append(verr, fmt.Errorf("user %q has no password", u.Username))
		}
		if _, ok := seen[u.Username]; ok {
			verr = multierr.Append(verr, fmt.Errorf("user defined multiple times: %s", u.Username))
		}
		seen[u.Username] = struct{}{}
	}
	if verr != nil {
		return nil, verr
	}

	return c, nil
}

func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level <= slog.LevelDebug:
		return zapcore.DebugLevel
	case level <= slog.LevelInfo:
		return zapcore.InfoLevel
	case level <= slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func isContainerEnvironment() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return os.Getenv("KUBERNETES_SERVICE_HOST") != ""
}
