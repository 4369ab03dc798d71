package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kode4food/timebox"

	app "github.com/docketry/docket"
	"github.com/docketry/docket/internal/archive"
	"github.com/docketry/docket/internal/config"
	"github.com/docketry/docket/internal/engine"
	"github.com/docketry/docket/internal/notify"
	"github.com/docketry/docket/internal/server"
	"github.com/docketry/docket/internal/subject"
	"github.com/docketry/docket/internal/template"
	"github.com/docketry/docket/pkg/log"
)

type docket struct {
	cfg           *config.Config
	timebox       *timebox.Timebox
	registryStore *timebox.Store
	instanceStore *timebox.Store
	engine        *engine.Engine
	apiServer     *server.Server
	httpServer    *http.Server
	archiver      *archive.Archiver
	quit          chan os.Signal
}

var (
	ErrCreateTimebox       = errors.New("failed to create timebox")
	ErrCreateRegistryStore = errors.New("failed to create registry store")
	ErrCreateInstanceStore = errors.New("failed to create instance store")
	ErrOpenArchiveBucket   = errors.New("failed to open archive bucket")
	ErrLoadTemplates       = errors.New("failed to load templates")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &docket{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *docket) run() error {
	if err := s.initializeStores(); err != nil {
		return err
	}

	if err := s.initializeEngine(); err != nil {
		return err
	}
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *docket) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Docket Engine starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("registry_redis_addr", s.cfg.RegistryStore.Addr),
		slog.Int("registry_redis_db", s.cfg.RegistryStore.DB),
		slog.String("instance_redis_addr", s.cfg.InstanceStore.Addr),
		slog.Int("instance_redis_db", s.cfg.InstanceStore.DB),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *docket) initializeStores() error {
	var err error

	s.timebox, err = timebox.NewTimebox(timebox.Config{
		MaxRetries: timebox.DefaultMaxRetries,
		CacheSize:  s.cfg.InstanceCacheSize,
		Workers:    true,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateTimebox, err)
	}

	s.registryStore, err = s.timebox.NewStore(s.cfg.RegistryStore)
	if err != nil {
		_ = s.timebox.Close()
		return fmt.Errorf("%w: %w", ErrCreateRegistryStore, err)
	}

	s.instanceStore, err = s.timebox.NewStore(s.cfg.InstanceStore)
	if err != nil {
		_ = s.timebox.Close()
		return fmt.Errorf("%w: %w", ErrCreateInstanceStore, err)
	}

	return nil
}

func (s *docket) initializeEngine() error {
	templates := template.NewStore()
	if s.cfg.TemplateDir != "" {
		count, err := template.LoadDir(templates, s.cfg.TemplateDir)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLoadTemplates, err)
		}
		slog.Info("Templates loaded",
			slog.String("dir", s.cfg.TemplateDir),
			slog.Int("count", count))
	}

	var notifier notify.Sender = &notify.LogSender{}
	if s.cfg.NoticeWebhookURL != "" {
		notifier = notify.NewWebhookSender(
			s.cfg.NoticeWebhookURL, s.cfg.EffectTimeout,
		)
	}

	var subjects subject.Updater = &subject.NullUpdater{}
	if s.cfg.SubjectEndpoint != "" {
		subjects = subject.NewHTTPUpdater(
			s.cfg.SubjectEndpoint, s.cfg.EffectTimeout,
		)
	}

	if s.cfg.ArchiveBucket != "" {
		archiver, err := archive.New(
			context.Background(), s.cfg.ArchiveBucket, app.Name+"/",
		)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrOpenArchiveBucket, err)
		}
		s.archiver = archiver
	}

	s.engine = engine.New(
		s.registryStore, s.instanceStore, s.timebox.GetHub(),
		&engine.Deps{
			Templates: templates,
			Notifier:  notifier,
			Subjects:  subjects,
			Archiver:  s.archiver,
		},
		s.cfg,
	)
	s.engine.Start()
	return nil
}

func (s *docket) startServer() {
	s.apiServer = server.NewServer(s.engine, s.timebox.GetHub())
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *docket) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()

	if err := s.engine.Stop(); err != nil {
		slog.Error("Engine shutdown failed", log.Error(err))
	}

	if s.archiver != nil {
		_ = s.archiver.Close()
	}

	_ = s.timebox.Close()

	slog.Info("Server exited")
}
