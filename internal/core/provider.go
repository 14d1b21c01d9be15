package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"sync"
)

// Source records where a resolved mapping came from.
type Source string

const (
	SourceUpload  Source = "upload"
	SourceDefault Source = "default"
	SourceRandom  Source = "random"
)

// Fallback reasons reported to the Recorder.
const (
	FallbackUploadInvalid  = "upload_invalid"
	FallbackNoConfig       = "no_config"
	FallbackDefaultInvalid = "default_invalid"
	FallbackFileMissing    = "file_missing"
)

// Resolution is the outcome of Provider.Resolve. Warning is set when a
// supplied configuration could not be used and the random fallback was
// substituted; Err holds the underlying cause.
type Resolution struct {
	Mapping *Mapping `json:"mapping"`
	Source  Source   `json:"source"`
	Warning string   `json:"warning,omitempty"`
	Err     error    `json:"-"`
}

// Provider produces the mapping for a generation request: an uploaded file,
// else the default configuration file, else a random configuration.
//
// The default mapping is replaced as a whole under mu, so readers never see
// a partially loaded file.
type Provider struct {
	mu        sync.RWMutex
	def       *Mapping
	defErr    error
	path      string
	logger    *slog.Logger
	recorder  Recorder
	maxUpload int64
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithDefaultPath sets the default configuration file.
func WithDefaultPath(path string) ProviderOption {
	return func(p *Provider) { p.path = path }
}

// WithProviderLogger sets the logger.
func WithProviderLogger(l *slog.Logger) ProviderOption {
	return func(p *Provider) { p.logger = l }
}

// WithRecorder reports fallbacks to r.
func WithRecorder(r Recorder) ProviderOption {
	return func(p *Provider) { p.recorder = r }
}

// WithMaxUpload caps the bytes read from an uploaded configuration.
func WithMaxUpload(n int64) ProviderOption {
	return func(p *Provider) { p.maxUpload = n }
}

// NewProvider returns a provider. Call LoadDefault to read the default file.
func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DefaultPath returns the configured default file, or "".
func (p *Provider) DefaultPath() string {
	return p.path
}

// LoadDefault reads the default configuration file. A missing file is not
// an error: the provider simply has no default. A file that fails to parse
// keeps the previous default and returns the error.
func (p *Provider) LoadDefault() error {
	if p.path == "" {
		return nil
	}

	f, err := os.Open(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		p.logger.Warn("default config not found, using random fallback", "path", p.path)
		p.SetDefault(nil)
		return nil
	}
	if err != nil {
		return p.defaultFailed(fmt.Errorf("open default config: %w", err))
	}
	defer f.Close()

	m, err := ReadMapping(f)
	if err != nil {
		return p.defaultFailed(fmt.Errorf("read default config %s: %w", p.path, err))
	}

	p.mu.Lock()
	p.def, p.defErr = m, nil
	p.mu.Unlock()

	p.logger.Info("default config loaded",
		"path", p.path,
		"categories", m.Len(),
		"pairs", m.PairCount(),
	)
	return nil
}

func (p *Provider) defaultFailed(err error) error {
	p.mu.Lock()
	p.defErr = err
	p.mu.Unlock()
	p.logger.Warn("default config unusable", "path", p.path, "error", err)
	return err
}

// SetDefault replaces the default mapping. nil clears it.
func (p *Provider) SetDefault(m *Mapping) {
	p.mu.Lock()
	p.def, p.defErr = m, nil
	p.mu.Unlock()
}

// Default returns the current default mapping, or nil.
func (p *Provider) Default() *Mapping {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.def
}

// Resolve picks the mapping for one request. upload may be nil. It never
// fails: an unreadable upload yields the random fallback with a warning.
func (p *Provider) Resolve(ctx context.Context, upload io.Reader, opts RandomOptions, rng *rand.Rand) Resolution {
	if upload != nil {
		m, err := p.readUpload(upload)
		if err == nil {
			return Resolution{Mapping: m, Source: SourceUpload}
		}
		p.logger.WarnContext(ctx, "uploaded config rejected, using random fallback", "error", err)
		return p.fallback(FallbackUploadInvalid, err, opts, rng)
	}

	p.mu.RLock()
	def, defErr := p.def, p.defErr
	p.mu.RUnlock()

	if def != nil {
		return Resolution{Mapping: def, Source: SourceDefault}
	}
	if defErr != nil {
		return p.fallback(FallbackDefaultInvalid, defErr, opts, rng)
	}

	return p.fallback(FallbackNoConfig, nil, opts, rng)
}

// ResolveMissing returns the random fallback for a configuration file that
// could not be opened, with cause in the warning.
func (p *Provider) ResolveMissing(ctx context.Context, cause error, opts RandomOptions, rng *rand.Rand) Resolution {
	p.logger.WarnContext(ctx, "config file missing, using random fallback", "error", cause)
	return p.fallback(FallbackFileMissing, cause, opts, rng)
}

// readUpload parses an upload of at most maxUpload bytes. A larger upload
// is rejected rather than parsed partially.
func (p *Provider) readUpload(upload io.Reader) (*Mapping, error) {
	if p.maxUpload <= 0 {
		return ReadMapping(upload)
	}
	data, err := io.ReadAll(io.LimitReader(upload, p.maxUpload+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > p.maxUpload {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, p.maxUpload)
	}
	return ReadMapping(bytes.NewReader(data))
}

func (p *Provider) fallback(reason string, cause error, opts RandomOptions, rng *rand.Rand) Resolution {
	p.recorder.RecordFallback(reason)

	if opts.Categories < 1 || opts.Tests < 1 {
		opts = DefaultRandomOptions()
	}
	m, err := RandomMapping(rng, opts)
	if err != nil {
		panic(err) // unreachable: opts checked above
	}

	res := Resolution{Mapping: m, Source: SourceRandom, Err: cause}
	if cause != nil {
		res.Warning = fmt.Sprintf("Could not use the configuration file: %s. Using a random configuration instead.",
			FormatUserError(cause))
	}
	return res
}
