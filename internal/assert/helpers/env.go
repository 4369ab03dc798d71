// Package helpers provides a ready-made engine environment for tests,
// backed by an in-memory Redis and recording side-effect doubles
package helpers

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kode4food/timebox"
	"github.com/stretchr/testify/assert"

	"github.com/docketry/docket/internal/config"
	"github.com/docketry/docket/internal/engine"
	"github.com/docketry/docket/internal/notify"
	"github.com/docketry/docket/internal/subject"
	"github.com/docketry/docket/internal/template"
)

// TestEngineEnv holds all the components needed for engine testing
type TestEngineEnv struct {
	Engine        *engine.Engine
	Redis         *miniredis.Miniredis
	Notices       *notify.Recorder
	Subjects      *subject.Recorder
	Templates     *template.Store
	Config        *config.Config
	EventHub      *timebox.EventHub
	Deps          *engine.Deps
	Cleanup       func()
	registryStore *timebox.Store
	instanceStore *timebox.Store
}

// NewTestConfig creates a default configuration with debug logging enabled
func NewTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.LogLevel = "debug"
	cfg.ShutdownTimeout = 2 * time.Second
	return cfg
}

// NewTestEngine creates a fully configured test engine environment with an
// in-memory Redis backend and recording side-effect doubles
func NewTestEngine(t *testing.T, deps *engine.Deps) *TestEngineEnv {
	t.Helper()

	server, err := miniredis.Run()
	assert.NoError(t, err)

	tb, err := timebox.NewTimebox(timebox.Config{
		MaxRetries: timebox.DefaultMaxRetries,
		CacheSize:  100,
		Workers:    true,
	})
	assert.NoError(t, err)

	cfg := NewTestConfig()
	cfg.RegistryStore.Addr = server.Addr()
	cfg.RegistryStore.Prefix = "test-registry"
	cfg.InstanceStore.Addr = server.Addr()
	cfg.InstanceStore.Prefix = "test-instance"
	cfg.Activity.InitBackoff = 1
	cfg.Activity.MaxBackoff = 10

	registryStore, err := tb.NewStore(cfg.RegistryStore)
	assert.NoError(t, err)

	instanceStore, err := tb.NewStore(cfg.InstanceStore)
	assert.NoError(t, err)

	if deps == nil {
		deps = &engine.Deps{}
	}
	notices := notify.NewRecorder()
	subjects := subject.NewRecorder()
	if deps.Notifier == nil {
		deps.Notifier = notices
	}
	if deps.Subjects == nil {
		deps.Subjects = subjects
	}
	if deps.Templates == nil {
		deps.Templates = template.NewStore()
		RegisterFixtures(t, deps.Templates)
	}

	hub := tb.GetHub()
	eng := engine.New(registryStore, instanceStore, hub, deps, cfg)

	cleanup := func() {
		_ = eng.Stop()
		_ = tb.Close()
		server.Close()
	}

	return &TestEngineEnv{
		Engine:        eng,
		Redis:         server,
		Notices:       notices,
		Subjects:      subjects,
		Templates:     deps.Templates,
		Config:        cfg,
		EventHub:      hub,
		Deps:          deps,
		Cleanup:       cleanup,
		registryStore: registryStore,
		instanceStore: instanceStore,
	}
}

// NewEngineInstance creates a new engine sharing the same stores and
// collaborators. Used to simulate process restart after crash
func (e *TestEngineEnv) NewEngineInstance() *engine.Engine {
	return engine.New(
		e.registryStore, e.instanceStore, e.EventHub, e.Deps, e.Config,
	)
}

// WithTestEnv creates a test engine environment, executes the provided
// function with it, and ensures cleanup happens automatically
func WithTestEnv(t *testing.T, fn func(*TestEngineEnv)) {
	t.Helper()
	WithTestEnvDeps(t, nil, fn)
}

// WithTestEnvDeps creates a test environment with custom engine
// dependencies, typically a fixed clock and fake timers
func WithTestEnvDeps(
	t *testing.T, deps *engine.Deps, fn func(*TestEngineEnv),
) {
	t.Helper()
	testEnv := NewTestEngine(t, deps)
	defer testEnv.Cleanup()
	fn(testEnv)
}

// WithStartedEngine creates a test environment, starts the engine, executes
// the provided function, and ensures cleanup happens automatically
func WithStartedEngine(t *testing.T, fn func(*TestEngineEnv)) {
	t.Helper()
	WithTestEnv(t, func(env *TestEngineEnv) {
		env.Engine.Start()
		fn(env)
	})
}
