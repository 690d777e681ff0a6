package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"github.com/aretw0/cohort"
	"github.com/aretw0/cohort/internal/config"
	"github.com/aretw0/cohort/internal/logging"
	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/observability"
	"github.com/aretw0/cohort/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrUnknownExperiment is returned when a command names an experiment the definitions file lacks.
var ErrUnknownExperiment = errors.New("experiment not defined")

// Options contains the configuration shared by every command.
type Options struct {
	ConfigPath string
	Debug      bool
	Out        io.Writer
}

// App wires definitions, the store, and the action registry for one CLI invocation.
type App struct {
	Env         config.Env
	Definitions *config.File
	Backend     *Backend
	Actions     *registry.Registry
	Metrics     *observability.Metrics
	Registry    *prometheus.Registry
	Logger      *slog.Logger
	Out         io.Writer
	Now         func() time.Time
}

// NewApp loads the environment and definitions and opens the store.
// A missing definitions file is tolerated so that inspect and reset work without one.
func NewApp(opts Options) (*App, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	return NewAppWithEnv(env, opts)
}

// NewAppWithEnv is NewApp with an explicit environment.
func NewAppWithEnv(env config.Env, opts Options) (*App, error) {
	logger := createLogger(opts.Debug, env.LogLevel)

	defs, err := config.LoadDefinitions(opts.ConfigPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		logger.Debug("No definitions file", "path", opts.ConfigPath)
		defs = &config.File{}
	}

	backend, err := OpenBackend(env, logger)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	return &App{
		Env:         env,
		Definitions: defs,
		Backend:     backend,
		Actions:     NewActionRegistry(opts.Out),
		Metrics:     observability.NewMetrics(reg),
		Registry:    reg,
		Logger:      logger,
		Out:         opts.Out,
		Now:         time.Now,
	}, nil
}

// createLogger configures the application logger.
// Debug forces debug level; otherwise the level comes from COHORT_LOG_LEVEL.
func createLogger(debug bool, level string) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	return logging.New(lvl)
}

// Close releases the store.
func (a *App) Close() error {
	return a.Backend.Close()
}

// Experiment builds the named experiment from its definition.
func (a *App) Experiment(ctx context.Context, id string) (*cohort.Experiment, error) {
	def, ok := a.Definitions.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExperiment, id)
	}

	opts := []cohort.Option{
		cohort.WithStore(a.Backend.Store),
		cohort.WithDescription(def.Description),
		cohort.WithSampleSize(def.SampleSizeOrDefault()),
		cohort.WithExpiry(def.Expiry),
		cohort.WithClock(a.Now),
		cohort.WithLogger(a.Logger),
		cohort.WithLifecycleHooks(observability.Combine(
			a.Metrics.Hooks(),
			observability.DebugHooks(a.Logger),
		)),
	}
	if a.Backend.Locker != nil {
		opts = append(opts, cohort.WithLocker(a.Backend.Locker))
	}

	exp, err := cohort.New(ctx, def.ID, opts...)
	if err != nil {
		return nil, err
	}

	for _, v := range def.Variants {
		var action domain.Action
		if v.Action != "" {
			action, err = a.Actions.Resolve(v.Action)
			if err != nil {
				return nil, fmt.Errorf("experiment %q variant %q: %w", def.ID, v.ID, err)
			}
		}
		if err := exp.AddVariant(v.ID, withPayload(action, v.Payload), cohort.WithWeight(v.WeightOrDefault())); err != nil {
			return nil, err
		}
	}
	return exp, nil
}

// Inspector returns a read-only view over the definitions and the store.
func (a *App) Inspector() *Inspector {
	return NewInspector(a.Backend.Store, a.Definitions, a.Now)
}

// Segment segments the user into the named experiment and returns its snapshot.
func (a *App) Segment(ctx context.Context, id string) (*domain.Snapshot, error) {
	exp, err := a.Experiment(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := exp.Segment(ctx); err != nil {
		return nil, err
	}
	return a.Inspector().Experiment(ctx, id)
}

// Start runs the assigned variant's action with args.
func (a *App) Start(ctx context.Context, id string, args []string) error {
	exp, err := a.Experiment(ctx, id)
	if err != nil {
		return err
	}
	anyArgs := make([]any, len(args))
	for i, arg := range args {
		anyArgs[i] = arg
	}
	return exp.Start(ctx, anyArgs...)
}

// Complete records the conversion and returns the assignment it cleared, if any.
func (a *App) Complete(ctx context.Context, id string) (*domain.Assignment, error) {
	exp, err := a.Experiment(ctx, id)
	if err != nil {
		return nil, err
	}
	var cleared *domain.Assignment
	if err := exp.On(domain.EventComplete, func(_ context.Context, as *domain.Assignment) error {
		cleared = as
		return nil
	}); err != nil {
		return nil, err
	}
	if err := exp.Complete(ctx); err != nil {
		return nil, err
	}
	return cleared, nil
}

// Reset removes the assignments of the given experiments, and the identity when asked.
func (a *App) Reset(ctx context.Context, ids []string, identity bool) error {
	for _, id := range ids {
		if domain.CollidesWithIdentity(id) {
			return domain.NewValidationError("id", fmt.Sprintf("%q is reserved for the user identity record, use the identity flag", id))
		}
	}
	for _, id := range ids {
		if err := a.Backend.Store.Remove(ctx, domain.AssignmentKey(id)); err != nil {
			return fmt.Errorf("failed to reset %q: %w", id, err)
		}
		a.Logger.Debug("Assignment removed", "experiment", id)
	}
	if identity {
		if err := a.Backend.Store.Remove(ctx, domain.UserIdentityKey); err != nil {
			return fmt.Errorf("failed to reset identity: %w", err)
		}
		a.Logger.Debug("Identity removed")
	}
	return nil
}
