package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/guardian"
	"github.com/absmach/guardian/monitor"
	"github.com/absmach/guardian/monitor/api"
	"github.com/absmach/guardian/monitor/middleware"
	"github.com/absmach/guardian/pkg/cron"
	"github.com/absmach/guardian/pkg/dispatch"
	"github.com/absmach/guardian/pkg/jaeger"
	"github.com/absmach/guardian/pkg/locks"
	"github.com/absmach/guardian/pkg/mqtt"
	"github.com/absmach/guardian/pkg/privilege"
	"github.com/absmach/guardian/pkg/prometheus"
	"github.com/absmach/guardian/pkg/scheduler"
	"github.com/absmach/guardian/pkg/server"
	httpserver "github.com/absmach/guardian/pkg/server/http"
	"github.com/absmach/guardian/pkg/source"
	"github.com/absmach/guardian/pkg/storage"
	"github.com/absmach/guardian/pkg/threshold"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const (
	svcName       = "guardian"
	defHTTPPort   = "7070"
	envPrefixHTTP = "GUARDIAN_HTTP_"
	pathEnv       = ".env"
)

type envConfig struct {
	LogLevel     string        `env:"GUARDIAN_LOG_LEVEL"            envDefault:"info"`
	InstanceID   string        `env:"GUARDIAN_INSTANCE_ID"`
	ConfigPath   string        `env:"GUARDIAN_CONFIG_PATH"`
	SourceType   string        `env:"GUARDIAN_SOURCE_TYPE"          envDefault:"procfs"`
	ProcRoot     string        `env:"GUARDIAN_PROC_ROOT"            envDefault:"/proc"`
	ShellPath    string        `env:"GUARDIAN_SHELL_PATH"`
	ShellTimeout time.Duration `env:"GUARDIAN_SHELL_TIMEOUT"        envDefault:"10s"`
	AutoStart    bool          `env:"GUARDIAN_AUTO_START"           envDefault:"true"`
	MQTTAddress  string        `env:"GUARDIAN_MQTT_ADDRESS"`
	MQTTQoS      uint8         `env:"GUARDIAN_MQTT_QOS"             envDefault:"1"`
	MQTTTimeout  time.Duration `env:"GUARDIAN_MQTT_TIMEOUT"         envDefault:"30s"`
	MQTTUsername string        `env:"GUARDIAN_MQTT_USERNAME"`
	MQTTPassword string        `env:"GUARDIAN_MQTT_PASSWORD"`
	MQTTPrefix   string        `env:"GUARDIAN_MQTT_PREFIX"          envDefault:"guardian"`
	LocksTopic   string        `env:"GUARDIAN_LOCKS_TOPIC"          envDefault:"guardian/locks"`
	ReleaseTopic string        `env:"GUARDIAN_RELEASE_TOPIC"        envDefault:"guardian/locks/release"`
	ClassesTopic string        `env:"GUARDIAN_CLASSIFICATION_TOPIC" envDefault:"guardian/classification"`
	AlertsTopic  string        `env:"GUARDIAN_ALERTS_TOPIC"         envDefault:"guardian/alerts"`
	NoticesTopic string        `env:"GUARDIAN_NOTICES_TOPIC"        envDefault:"guardian/notices"`
	OTELURL      url.URL       `env:"GUARDIAN_OTEL_URL"`
	TraceRatio   float64       `env:"GUARDIAN_TRACE_RATIO"          envDefault:"0"`
	Storage      storage.Config
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, cfg.InstanceID, cfg.TraceRatio)
		if err != nil {
			logger.Error("failed to initialize opentelemetry", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := sdktp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	settings, err := guardian.LoadConfig(cfg.ConfigPath)
	if err != nil {
		logger.Error("failed to load policy", slog.String("error", err.Error()))

		return
	}

	repos, err := storage.NewRepositories(cfg.Storage)
	if err != nil {
		logger.Error("failed to initialize storage", slog.String("error", err.Error()))

		return
	}
	if repos.Closer != nil {
		defer repos.Closer.Close()
	}
	for _, name := range settings.Whitelist {
		if err := repos.Whitelist.Add(ctx, name); err != nil {
			logger.Error("failed to seed whitelist", slog.String("name", name), slog.String("error", err.Error()))

			return
		}
	}

	var (
		pubsub     mqtt.PubSub
		accounting *locks.Accounting
		classifier *monitor.Classifier
	)
	if cfg.MQTTAddress != "" {
		pubsub, err = mqtt.NewPubSub(cfg.MQTTAddress, cfg.MQTTQoS, svcName+"-"+cfg.InstanceID, cfg.MQTTUsername, cfg.MQTTPassword, cfg.MQTTPrefix, cfg.MQTTTimeout, logger)
		if err != nil {
			logger.Error("failed to initialize mqtt pubsub", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := pubsub.Disconnect(context.Background()); err != nil {
				logger.Warn("failed to disconnect mqtt pubsub", slog.Any("error", err))
			}
		}()

		accounting = locks.New(locks.WithReleaser(locks.NewMQTTReleaser(pubsub, cfg.ReleaseTopic)))
		if err := locks.NewFeed(accounting, pubsub, cfg.LocksTopic, logger).Subscribe(ctx); err != nil {
			logger.Error("failed to subscribe to lock events", slog.String("error", err.Error()))

			return
		}

		classifier = monitor.NewClassifier(pubsub, cfg.ClassesTopic, logger)
		if err := classifier.Subscribe(ctx); err != nil {
			logger.Error("failed to subscribe to classifications", slog.String("error", err.Error()))

			return
		}
	}

	notifier := monitor.NewNotifier(pubsub, cfg.AlertsTopic, cfg.NoticesTopic, logger)

	dispatchOpts := []dispatch.Option{
		dispatch.WithFallback(privilege.NewFallback()),
	}
	if settings.Dispatch.Root {
		shell := privilege.NewShellOpener(cfg.ShellPath, logger)
		shell.Timeout = cfg.ShellTimeout
		dispatchOpts = append(dispatchOpts, dispatch.WithOpener(shell))
	}
	if accounting != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithReleaser(accounting))
	}
	dispatcher := dispatch.New(settings.Dispatch, repos.Alerts, notifier, logger, dispatchOpts...)

	var src source.Source
	switch cfg.SourceType {
	case "gopsutil":
		src = source.NewGopsutil()
	default:
		src = source.NewProcFS(cfg.ProcRoot)
	}

	engine := threshold.NewEngine(settings.Threshold, logger)
	workerOpts := []monitor.WorkerOption{
		monitor.WithMetrics(prometheus.MakeCycleMetrics(svcName, "monitor")),
	}
	if accounting != nil {
		workerOpts = append(workerOpts, monitor.WithAccounting(accounting))
	}
	if classifier != nil {
		workerOpts = append(workerOpts, monitor.WithFilters(classifier))
	}
	worker := monitor.NewWorker(src, engine, dispatcher, repos.Whitelist, logger, workerOpts...)

	runner, err := newRunner(settings)
	if err != nil {
		logger.Error("failed to initialize monitor engine", slog.String("error", err.Error()))

		return
	}

	controller := scheduler.NewController(
		runner,
		worker.Cycle,
		logger,
		scheduler.WithWatchdog(settings.Watchdog),
		scheduler.WithTimeoutHandler(func(msg string) {
			if err := notifier.Notice(context.Background(), msg); err != nil {
				logger.Warn("failed to send notice", slog.Any("error", err))
			}
		}),
	)
	defer controller.Close()

	if settings.PersistentNotify {
		states := controller.Subscribe()
		g.Go(func() error {
			monitor.NotifyRunning(ctx, states, notifier, logger)

			return nil
		})
	}

	svc := monitor.NewService(ctx, controller, worker, engine, repos.Alerts, repos.Whitelist, accounting, settings.Engine, logger)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	if cfg.AutoStart {
		if _, err := svc.Start(ctx); err != nil {
			logger.Error("failed to start monitor", slog.String("error", err.Error()))

			return
		}
	}

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err.Error()))

		return
	}

	hs := httpserver.NewServer(ctx, cancel, svcName, httpServerConfig, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}
}

func newRunner(settings guardian.Settings) (scheduler.Runner, error) {
	if settings.Engine != monitor.EngineScheduled {
		return scheduler.Persistent{}, nil
	}

	runner := scheduler.Scheduled{
		Alarm:    scheduler.NewTimerAlarm(),
		Interval: settings.Threshold.Interval,
	}
	if settings.Cron != "" {
		schedule, err := cron.Parse(settings.Cron, settings.Timezone)
		if err != nil {
			return nil, err
		}
		runner.Schedule = schedule
	}

	return runner, nil
}
