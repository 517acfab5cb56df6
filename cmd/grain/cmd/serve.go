package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/common/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/psantana5/grain/internal/config"
	"github.com/psantana5/grain/internal/graph"
	"github.com/psantana5/grain/internal/shop"
	"github.com/psantana5/grain/pkg/api"
	"github.com/psantana5/grain/pkg/auth"
	"github.com/psantana5/grain/pkg/cleanup"
	"github.com/psantana5/grain/pkg/logging"
	"github.com/psantana5/grain/pkg/metrics"
	"github.com/psantana5/grain/pkg/ratelimit"
	"github.com/psantana5/grain/pkg/shutdown"
	"github.com/psantana5/grain/pkg/store"
	tlsutil "github.com/psantana5/grain/pkg/tls"
	"github.com/psantana5/grain/pkg/tracing"
)

// limiterSweep is how often idle per-IP limiters are dropped
const limiterSweep = 10 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Grain API server",
	Long: `Run the GraphQL API, the public shared-project endpoint and the metrics server.

Settings come from grain.yaml, GRAIN_* environment variables and the flags below,
with flags taking precedence.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// serverFlags maps flags shared by the server side commands to config keys
var serverFlags = map[string]string{
	"db-type": "database.type",
	"db":      "database.dsn",
}

var serveFlags = map[string]string{
	"addr":         "server.addr",
	"metrics-addr": "server.metrics_addr",
	"tls":          "server.tls.enabled",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
}

func init() {
	addDatabaseFlags(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "API listen address")
	serveCmd.Flags().String("metrics-addr", ":9090", "metrics listen address")
	serveCmd.Flags().Bool("tls", false, "serve HTTPS")
	serveCmd.Flags().String("log-level", "info", "log level: debug, info, warn, error")
	serveCmd.Flags().String("log-format", "json", "log format: json or console")
	rootCmd.AddCommand(serveCmd)
}

func addDatabaseFlags(c *cobra.Command) {
	c.Flags().String("db-type", "sqlite", "database type: sqlite, sqlite-pure, postgres or memory")
	c.Flags().String("db", "grain.db", "database file or PostgreSQL DSN")
}

// loadServerConfig reads the server config with the command's flags bound on top
func loadServerConfig(cmd *cobra.Command, flagSets ...map[string]string) (*config.Config, *viper.Viper, error) {
	v := config.New(cfgFile)
	for _, flags := range flagSets {
		if err := config.BindFlags(v, cmd.Flags(), flags); err != nil {
			return nil, nil, err
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, v, err := loadServerConfig(cmd, serverFlags, serveFlags)
	if err != nil {
		return err
	}

	log, level, err := logging.New(cfg.LoggingConfig())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	config.Watch(v, level, log)

	log.Info("Starting Grain",
		zap.String("version", version.Version),
		zap.String("revision", version.Revision),
		zap.String("config", v.ConfigFileUsed()))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sd := shutdown.New(cfg.Server.ShutdownTimeout, log.Named("shutdown"))

	tracer, err := tracing.InitTracer(ctx, cfg.TracingConfig(version.Version), log.Named("tracing"))
	if err != nil {
		return err
	}
	sd.Register("tracing", tracer.Shutdown)

	log.Info("Opening database", zap.String("type", cfg.Database.Type))
	st, err := store.NewStore(ctx, cfg.StoreConfig())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	sd.Register("database", shutdown.CloseResource(st, "database"))

	authManager := auth.NewManager(st, auth.Options{BcryptCost: cfg.Auth.BcryptCost, SessionTTL: cfg.Auth.SessionTTL})
	svc := shop.New(st, log.Named("shop"))

	loginLimiter := ratelimit.NewLimiter(cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst)
	var apiLimiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		apiLimiter = ratelimit.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	go sweepLimiters(ctx, log, loginLimiter, apiLimiter)

	schema, err := graph.NewResolver(svc, authManager, loginLimiter, log.Named("graph")).Schema()
	if err != nil {
		return fmt.Errorf("failed to build GraphQL schema: %w", err)
	}

	clientIP, err := cfg.ClientIP()
	if err != nil {
		return err
	}

	m := metrics.New(st, log)
	router := api.NewRouter(api.Options{
		Shop:          svc,
		Schema:        schema,
		Authenticator: authManager,
		Metrics:       m,
		Limiter:       apiLimiter,
		Tracing:       tracer,
		ClientIP:      clientIP,
		DataDir:       dataDir(cfg),
		Log:           log,
	})

	cleaner := cleanup.New(cfg.CleanupConfig(), st, log)
	cleaner.Start(ctx)
	sd.Register("cleanup", func(context.Context) error {
		cleaner.Stop()
		return nil
	})

	metricsServer := &http.Server{
		Addr:         cfg.Server.MetricsAddr,
		Handler:      api.MetricsRouter(m),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	sd.Register("metrics server", shutdown.StopHTTPServer(metricsServer, "metrics"))
	go func() {
		log.Info("Metrics server listening", zap.String("addr", cfg.Server.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", zap.Error(err))
		}
	}()

	server := api.NewServer(cfg.Server.Addr, router)
	if cfg.Server.TLS.Enabled {
		if err := ensureCertificate(cfg, log); err != nil {
			return err
		}
		tlsConfig, err := tlsutil.LoadServerConfig(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		if err != nil {
			return err
		}
		server.TLSConfig = tlsConfig
	}
	sd.Register("api server", shutdown.StopHTTPServer(server, "api"))

	go func() {
		log.Info("API server listening",
			zap.String("addr", cfg.Server.Addr),
			zap.Bool("tls", cfg.Server.TLS.Enabled))
		var err error
		if cfg.Server.TLS.Enabled {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("API server failed", zap.Error(err))
			sd.Trigger()
		}
	}()

	sd.Wait(ctx)
	return nil
}

// ensureCertificate generates a self-signed certificate when TLS is on and none exists yet
func ensureCertificate(cfg *config.Config, log *zap.Logger) error {
	tlsCfg := cfg.Server.TLS
	_, certErr := os.Stat(tlsCfg.CertFile)
	_, keyErr := os.Stat(tlsCfg.KeyFile)
	if certErr == nil && keyErr == nil {
		return nil
	}
	if !tlsCfg.AutoGenerate {
		return fmt.Errorf("TLS certificate %s or key %s is missing", tlsCfg.CertFile, tlsCfg.KeyFile)
	}

	log.Info("Generating self-signed certificate",
		zap.String("cert", tlsCfg.CertFile),
		zap.Strings("hosts", tlsCfg.Hosts))
	if err := tlsutil.GenerateSelfSignedCert(tlsCfg.CertFile, tlsCfg.KeyFile, tlsutil.CertOptions{
		CommonName: "grain",
		Hosts:      tlsCfg.Hosts,
	}); err != nil {
		return fmt.Errorf("failed to generate certificate: %w", err)
	}
	return nil
}

func sweepLimiters(ctx context.Context, log *zap.Logger, limiters ...*ratelimit.Limiter) {
	ticker := time.NewTicker(limiterSweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := 0
			for _, l := range limiters {
				if l != nil {
					removed += l.CleanupOldLimiters(time.Hour)
				}
			}
			if removed > 0 {
				log.Debug("Dropped idle rate limiters", zap.Int("count", removed))
			}
		}
	}
}

// dataDir is the directory /health reports disk usage for
func dataDir(cfg *config.Config) string {
	if cfg.Database.Type != "sqlite" && cfg.Database.Type != "sqlite-pure" {
		return "."
	}
	path := strings.TrimPrefix(cfg.Database.DSN, "file:")
	path, _, _ = strings.Cut(path, "?")
	return filepath.Dir(path)
}
