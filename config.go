package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	aiCount          int
	assets           string
	backgrounds      int
	bind             string
	dbPath           string
	fetchTimeout     time.Duration
	pairs            int
	port             int
	prefix           string
	probeFloor       int
	probeLimit       int
	profile          bool
	publicURL        string
	realCount        int
	redisAddr        string
	rotationInterval time.Duration
	sessionTimeout   time.Duration
	store            string
	tlsCert          string
	tlsKey           string
	verbose          bool
	version          bool

	log *zap.Logger
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.pairs < 1 {
		return fmt.Errorf("invalid pair count (must be at least 1): %d", c.pairs)
	}
	if c.aiCount != 0 && c.aiCount < c.pairs {
		return fmt.Errorf("--ai-count (%d) must be at least --pairs (%d)", c.aiCount, c.pairs)
	}
	if c.realCount != 0 && c.realCount < c.pairs {
		return fmt.Errorf("--real-count (%d) must be at least --pairs (%d)", c.realCount, c.pairs)
	}
	if c.aiCount < 0 || c.realCount < 0 || c.backgrounds < 0 {
		return errors.New("asset counts must not be negative")
	}
	if c.probeFloor < 0 || c.probeLimit < 0 {
		return errors.New("--probe-floor and --probe-limit must not be negative")
	}
	switch c.store {
	case "memory":
	case "sqlite":
		if c.dbPath == "" {
			return errors.New("--db-path is required with --store sqlite")
		}
	case "redis":
		if c.redisAddr == "" {
			return errors.New("--redis-addr is required with --store redis")
		}
	default:
		return fmt.Errorf("invalid store backend (must be memory, sqlite or redis): %q", c.store)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("AIORNOT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "aiornot",
		Short:         "Spot the AI-generated image, served as a single webapp.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}

			log, err := newLogger(cfg.verbose)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			cfg.log = log

			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.IntVar(&cfg.aiCount, "ai-count", 20, "number of ai images available, 0 to probe (env: AIORNOT_AI_COUNT)")
	fs.StringVarP(&cfg.assets, "assets", "a", "assets", "directory or http(s) url holding game images (env: AIORNOT_ASSETS)")
	fs.IntVar(&cfg.backgrounds, "backgrounds", 4, "number of background images, 0 to probe (env: AIORNOT_BACKGROUNDS)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: AIORNOT_BIND)")
	fs.StringVar(&cfg.dbPath, "db-path", "aiornot.db", "sqlite database path (env: AIORNOT_DB_PATH)")
	fs.DurationVar(&cfg.fetchTimeout, "fetch-timeout", 10*time.Second, "timeout for each asset fetch and store call (env: AIORNOT_FETCH_TIMEOUT)")
	fs.IntVarP(&cfg.pairs, "pairs", "n", 10, "number of image pairs per game (env: AIORNOT_PAIRS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: AIORNOT_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: AIORNOT_PREFIX)")
	fs.IntVar(&cfg.probeFloor, "probe-floor", 0, "minimum count assumed when probing assets, defaults to --pairs (env: AIORNOT_PROBE_FLOOR)")
	fs.IntVar(&cfg.probeLimit, "probe-limit", 100, "maximum index probed when counting assets (env: AIORNOT_PROBE_LIMIT)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: AIORNOT_PROFILE)")
	fs.StringVar(&cfg.publicURL, "public-url", "", "base url used in share links, derived from requests if empty (env: AIORNOT_PUBLIC_URL)")
	fs.IntVar(&cfg.realCount, "real-count", 20, "number of real images available, 0 to probe (env: AIORNOT_REAL_COUNT)")
	fs.StringVar(&cfg.redisAddr, "redis-addr", "", "redis address for --store redis (env: AIORNOT_REDIS_ADDR)")
	fs.DurationVar(&cfg.rotationInterval, "rotation-interval", 20*time.Second, "time between background changes (env: AIORNOT_ROTATION_INTERVAL)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions are ended (env: AIORNOT_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.store, "store", "memory", "statistics backend: memory, sqlite or redis (env: AIORNOT_STORE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: AIORNOT_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: AIORNOT_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: AIORNOT_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: AIORNOT_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("aiornot v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
