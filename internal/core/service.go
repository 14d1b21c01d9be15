package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service is the entry point used by the web handlers and the CLI. It ties
// together the mapping provider, the config store, the generation limiter
// and metrics.
type Service struct {
	provider *Provider
	store    *ConfigStore
	limiter  *Limiter
	recorder Recorder
	logger   *slog.Logger

	limits        Limits
	maxCategories int
	maxTests      int

	newSeed func() int64
}

// ServiceConfig holds the Service dependencies. Zero values select
// defaults: no default config file, ./configs, the hard limits and no
// metrics.
type ServiceConfig struct {
	Provider      *Provider
	Store         *ConfigStore
	Limiter       *Limiter
	Recorder      Recorder
	Logger        *slog.Logger
	Limits        Limits
	MaxCategories int
	MaxTests      int
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		provider:      cfg.Provider,
		store:         cfg.Store,
		limiter:       cfg.Limiter,
		recorder:      cfg.Recorder,
		logger:        cfg.Logger,
		limits:        cfg.Limits,
		maxCategories: cfg.MaxCategories,
		maxTests:      cfg.MaxTests,
		newSeed:       NewSeed,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.provider == nil {
		s.provider = NewProvider(WithProviderLogger(s.logger), WithRecorder(s.recorder))
	}
	if s.store == nil {
		s.store = NewConfigStore("configs")
	}
	if s.limiter == nil {
		s.limiter = NewLimiter(DefaultMaxConcurrent, DefaultMaxWait)
	}
	if s.limits == (Limits{}) {
		s.limits = DefaultLimits()
	}
	if s.maxCategories <= 0 {
		s.maxCategories = 20
	}
	if s.maxTests <= 0 {
		s.maxTests = 10
	}
	return s
}

// Limits returns the limits applied to generation requests.
func (s *Service) Limits() Limits {
	return s.limits
}

// RandomLimits returns the maximum categories and tests per category of a
// random configuration.
func (s *Service) RandomLimits() (categories, tests int) {
	return s.maxCategories, s.maxTests
}

// Provider returns the mapping provider.
func (s *Service) Provider() *Provider {
	return s.provider
}

// LimiterStatus reports generation slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// ResolveMapping returns the mapping for a request: upload if it parses,
// else the default file, else a random configuration sized by opts and
// seeded with seed (0 picks one).
func (s *Service) ResolveMapping(ctx context.Context, upload io.Reader, opts RandomOptions, seed int64) (Resolution, error) {
	if err := opts.Validate(s.maxCategories, s.maxTests); err != nil {
		return Resolution{}, err
	}
	if seed == 0 {
		seed = s.newSeed()
	}
	return s.provider.Resolve(ctx, upload, opts, NewRand(seed)), nil
}

// ResolveMissing returns the random fallback for a configuration file that
// does not exist. cause is reported in the resolution's warning.
func (s *Service) ResolveMissing(ctx context.Context, cause error, opts RandomOptions, seed int64) (Resolution, error) {
	if err := opts.Validate(s.maxCategories, s.maxTests); err != nil {
		return Resolution{}, err
	}
	if seed == 0 {
		seed = s.newSeed()
	}
	return s.provider.ResolveMissing(ctx, cause, opts, NewRand(seed)), nil
}

// RandomConfig synthesizes a random configuration.
func (s *Service) RandomConfig(opts RandomOptions, seed int64) (*Mapping, error) {
	if err := opts.Validate(s.maxCategories, s.maxTests); err != nil {
		return nil, err
	}
	if seed == 0 {
		seed = s.newSeed()
	}
	return RandomMapping(NewRand(seed), opts)
}

// Generate validates p against the service limits and runs the generator.
// A zero p.Seed is replaced with a fresh seed, which is recorded on the
// returned Dataset so the same rows can be produced again.
func (s *Service) Generate(ctx context.Context, m *Mapping, p GenerateParams) (*Dataset, error) {
	if m == nil || m.Len() == 0 {
		return nil, ErrEmptyMapping
	}
	if err := p.Validate(s.limits); err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	if p.Seed == 0 {
		p.Seed = s.newSeed()
	}

	start := time.Now()
	d, err := Generate(NewRand(p.Seed), m, p)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	d.ID = uuid.New()

	s.recorder.RecordGeneration(d.Len(), elapsed)
	s.logger.InfoContext(ctx, "dataset generated",
		"dataset_id", d.ID.String(),
		"rows", d.Len(),
		"subjects", p.Subjects,
		"categories", m.Len(),
		"columns", len(p.Columns),
		"seed", p.Seed,
		"duration_ms", elapsed.Milliseconds(),
	)
	return d, nil
}

// Export writes d to w in format (csv, xlsx or json).
func (s *Service) Export(ctx context.Context, w io.Writer, d *Dataset, format string) error {
	var err error
	switch format {
	case FormatCSV:
		err = d.WriteCSV(w)
	case FormatXLSX:
		err = d.WriteXLSX(w)
	case FormatJSON:
		var b []byte
		if b, err = d.MarshalJSON(); err == nil {
			_, err = w.Write(b)
		}
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidParams, format)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "export failed", "dataset_id", d.ID.String(), "format", format, "error", err)
		return fmt.Errorf("export %s: %w", format, err)
	}
	s.recorder.RecordExport(format)
	return nil
}

// SaveConfig stores m under name and returns the stored name.
func (s *Service) SaveConfig(ctx context.Context, name string, m *Mapping) (string, error) {
	saved, err := s.store.Save(name, m)
	if err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "config saved", "name", saved, "categories", m.Len(), "pairs", m.PairCount())
	return saved, nil
}

// ListConfigs returns the saved configuration names.
func (s *Service) ListConfigs() ([]string, error) {
	return s.store.List()
}

// LoadConfig reads a saved configuration.
func (s *Service) LoadConfig(name string) (*Mapping, error) {
	return s.store.Load(name)
}

// ConfigPath returns the file backing a saved configuration.
func (s *Service) ConfigPath(name string) (string, error) {
	return s.store.Path(name)
}
