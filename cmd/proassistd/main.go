package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"proassistd/internal/common/fsutil"
	"proassistd/internal/config"
	"proassistd/internal/httpapi"
	"proassistd/internal/llm"
	"proassistd/internal/registry"
	"proassistd/internal/runtime/ort"
	"proassistd/pkg/types"
)

// appName decides the platform data directory, e.g. ~/.config/proassist.
const appName = "proassist"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "proassistd",
		Short:         "Local text-generation service over downloaded ONNX models",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd)
		},
	}
	// Environment variables provide flag defaults; flags win when set.
	root.Flags().String("config", envStr("PROASSISTD_CONFIG", ""), "Config file (.yaml/.json/.toml)")
	root.Flags().String("addr", envStr("PROASSISTD_ADDR", ""), "HTTP listen address, e.g. :8080")
	root.Flags().String("data-dir", envStr("PROASSISTD_DATA_DIR", ""), "App data directory holding offline-models/")
	root.Flags().String("default-model", envStr("PROASSISTD_DEFAULT_MODEL", ""), "Model reference to load at startup")
	root.Flags().String("log-level", envStr("PROASSISTD_LOG_LEVEL", ""), "Log level: debug|info|warn|error")
	root.Flags().String("log-format", envStr("PROASSISTD_LOG_FORMAT", ""), "Log format: console|json")
	root.Flags().Int("max-new-tokens", envInt("PROASSISTD_MAX_NEW_TOKENS", 0), "Per-generation token cap (0=default)")
	root.Flags().Bool("cors", envStr("PROASSISTD_CORS", "") == "1", "Enable CORS")
	root.Flags().String("cors-origins", envStr("PROASSISTD_CORS_ORIGINS", ""), "Comma-separated allowed origins")
	return root
}

func run(cmd *cobra.Command) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir, err = fsutil.DataDir(appName)
		if err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
	}
	dataDir, err = fsutil.ExpandHome(dataDir)
	if err != nil {
		return err
	}

	svc := llm.New(
		ort.New(),
		func() (string, error) { return dataDir, nil },
		llm.WithLogger(logger),
		llm.WithMaxNewTokens(cfg.MaxNewTokens),
	)
	a := &app{Service: svc, modelsDir: llm.ModelsDir(dataDir), log: logger}

	httpapi.SetLogger(logger)
	if cfg.CORSEnabled {
		httpapi.SetCORSOptions(true, cfg.CORSOrigins,
			[]string{"GET", "POST", "OPTIONS"}, []string{"Content-Type", "X-Log-Level"})
	}

	// Shutdown cancels in-flight loads and generations too.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	if cfg.DefaultModel != "" {
		if err := svc.Load(baseCtx, cfg.DefaultModel, nil); err != nil {
			logger.Warn().Err(err).Str("model", cfg.DefaultModel).Msg("startup model load failed")
		}
	}

	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: httpapi.NewMux(a)}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("models_dir", a.modelsDir).Msg("proassistd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

// resolveConfig merges the optional config file with command-line flags;
// flags take precedence over file values.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		cfg.Addr = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("default-model"); v != "" {
		cfg.DefaultModel = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}
	if v, _ := cmd.Flags().GetInt("max-new-tokens"); v > 0 {
		cfg.MaxNewTokens = v
	}
	if v, _ := cmd.Flags().GetBool("cors"); v {
		cfg.CORSEnabled = true
	}
	if v, _ := cmd.Flags().GetString("cors-origins"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
	return cfg, nil
}

func buildLogger(level, format string) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("log level %q: %w", level, err)
		}
		lvl = parsed
	}
	var logger zerolog.Logger
	if format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(lvl).With().Timestamp().Logger(), nil
}

// app wires the engine and the on-disk model registry into the HTTP layer.
// Models are rescanned per request so new downloads show up without restart.
type app struct {
	*llm.Service
	modelsDir string
	log       zerolog.Logger
}

func (a *app) ListModels() []types.Model {
	models, err := registry.LoadDir(a.modelsDir)
	if err != nil {
		a.log.Warn().Err(err).Str("dir", a.modelsDir).Msg("model scan failed")
		return nil
	}
	return models
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
