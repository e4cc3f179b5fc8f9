package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/utilitywarehouse/git-backup/provider"
	"github.com/utilitywarehouse/git-backup/repopool"
	"github.com/utilitywarehouse/git-backup/repository"
)

const metricsNamespace = "git_backup"

var (
	loggerLevel = new(slog.LevelVar)
	logger      *slog.Logger

	levelStrings = map[string]slog.Level{
		"trace": slog.Level(-8),
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}

	// envs passed on to git so that ssh auth works as for the user
	gitEnvs = []string{"PATH", "HOME", "SSH_AUTH_SOCK", "GIT_SSH_COMMAND", "GIT_SSH", "SSH_KNOWN_HOSTS"}

	flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Sources: cli.EnvVars("GIT_BACKUP_CONFIG"),
			Value:   "./git_sync_config.yaml",
			Usage:   "Path to the config file.",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Sources: cli.EnvVars("LOG_LEVEL"),
			Value:   "info",
			Usage:   "Log level",
		},
		&cli.StringFlag{
			Name:    "log-format",
			Sources: cli.EnvVars("LOG_FORMAT"),
			Value:   "text",
			Usage:   "Log format, one of text, json or pretty",
		},
		&cli.StringFlag{
			Name:    "log-file",
			Sources: cli.EnvVars("LOG_FILE"),
			Usage:   "Optional path of rotated log file, logs are written to stderr if not set",
		},
		&cli.StringFlag{
			Name:    "http-bind-address",
			Sources: cli.EnvVars("HTTP_BIND_ADDRESS"),
			Usage:   "Address to serve /metrics and /github-webhook on, ie ':9001'. server is disabled if not set",
		},
		&cli.StringFlag{
			Name:    "github-webhook-secret",
			Sources: cli.EnvVars("GITHUB_WEBHOOK_SECRET"),
			Usage:   "Secret used to validate GitHub webhook payloads, webhook is disabled if not set",
		},
		&cli.BoolFlag{
			Name:    "one-shot",
			Sources: cli.EnvVars("GIT_BACKUP_ONE_SHOT"),
			Usage:   "Run a single backup cycle and exit",
		},
	}
)

func init() {
	loggerLevel.Set(slog.LevelInfo)
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: loggerLevel,
	}))
}

// newLogHandler returns slog handler for given format
func newLogHandler(format string, w io.Writer) (slog.Handler, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: loggerLevel}), nil
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: loggerLevel}), nil
	case "pretty", "tint":
		return tint.NewHandler(w, &tint.Options{
			Level:      loggerLevel,
			TimeFormat: time.RFC3339,
		}), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func gitEnv() []string {
	var envs []string
	for _, key := range gitEnvs {
		if v, ok := os.LookupEnv(key); ok {
			envs = append(envs, fmt.Sprintf("%s=%s", key, v))
		}
	}
	return envs
}

func main() {
	cmd := &cli.Command{
		Name:  "git-backup",
		Usage: "git-backup discovers repositories of users, orgs and groups and keeps local mirrors of all of them.",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// set log level according to argument
			if v, ok := levelStrings[strings.ToLower(c.String("log-level"))]; ok {
				loggerLevel.Set(v)
			}

			var w io.Writer = os.Stderr
			if path := c.String("log-file"); path != "" {
				lumber := &lumberjack.Logger{
					Filename: path,
					Compress: true,
				}
				defer lumber.Close()
				w = lumber
			}
			handler, err := newLogHandler(c.String("log-format"), w)
			if err != nil {
				return err
			}
			logger = slog.New(handler)
			slog.SetDefault(logger)

			conf, err := loadConfig(c.String("config"))
			if err != nil {
				logger.Error("unable to load config file", "err", err)
				os.Exit(1)
			}

			repository.EnableMetrics(metricsNamespace, prometheus.DefaultRegisterer)
			provider.EnableMetrics(metricsNamespace, prometheus.DefaultRegisterer)
			repopool.EnableMetrics(metricsNamespace, prometheus.DefaultRegisterer)
			prometheus.MustRegister(configSuccess, configSuccessTime)

			log := logger.With("logger", "git-backup")
			exec := repository.NewGitExecutor("", gitEnv(), log)

			repos, err := repopool.New(*conf, exec, log)
			if err != nil {
				logger.Error("could not create repository pool", "err", err)
				os.Exit(1)
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if c.Bool("one-shot") {
				report := repos.RunCycle(ctx)
				if report.Failed() > 0 {
					logger.Warn("backup cycle completed with failures", "failed", report.Failed())
				}
				return nil
			}

			server := newServer(c.String("http-bind-address"), c.String("github-webhook-secret"), repos)
			if server != nil {
				go func() {
					logger.Info("starting web server", "addr", server.Addr)
					if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("could not start web server", "err", err)
					}
				}()
			}

			go repos.StartLoop(ctx)

			//listenForShutdown
			<-ctx.Done()
			logger.Info("Shutting down")

			if server != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				server.Shutdown(shutdownCtx)
			}

			// wait for running git operations to be cancelled
			select {
			case <-repos.Stopped:
			case <-time.After(time.Minute):
				logger.Warn("timed out waiting for mirror loop to stop")
			}

			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Error("failed to run app", "err", err)
		os.Exit(1)
	}
}

// newServer returns http server for metrics and webhook or nil if bind
// address is not set
func newServer(addr, webhookSecret string, repos CycleQueuer) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	if webhookSecret != "" {
		mux.Handle("/github-webhook", &GithubWebhookHandler{
			repoPool: repos,
			secret:   webhookSecret,
			log:      logger.With("logger", "github-webhook"),
		})
	}

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
