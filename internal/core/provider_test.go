package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu        sync.Mutex
	rows      int
	runs      int
	exports   []string
	fallbacks []string
}

func (r *fakeRecorder) RecordGeneration(rows int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows += rows
	r.runs++
}

func (r *fakeRecorder) RecordExport(format string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exports = append(r.exports, format)
}

func (r *fakeRecorder) RecordFallback(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = append(r.fallbacks, reason)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProvider_ResolveUpload(t *testing.T) {
	rec := &fakeRecorder{}
	p := NewProvider(WithProviderLogger(quietLogger()), WithRecorder(rec))

	res := p.Resolve(context.Background(), strings.NewReader("Category,Test\nA,t1\n"), DefaultRandomOptions(), NewRand(1))
	assert.Equal(t, SourceUpload, res.Source)
	assert.Empty(t, res.Warning)
	assert.Equal(t, []string{"t1"}, res.Mapping.Tests("A"))
	assert.Empty(t, rec.fallbacks)
}

func TestProvider_ResolveBadUploadFallsBack(t *testing.T) {
	rec := &fakeRecorder{}
	p := NewProvider(WithProviderLogger(quietLogger()), WithRecorder(rec))

	res := p.Resolve(context.Background(), strings.NewReader("Name\nx\n"), RandomOptions{Categories: 2, Tests: 4}, NewRand(1))
	assert.Equal(t, SourceRandom, res.Source)
	assert.ErrorIs(t, res.Err, ErrMissingColumn)
	assert.Contains(t, res.Warning, "CFG001")
	assert.Equal(t, 2, res.Mapping.Len())
	assert.Equal(t, []string{FallbackUploadInvalid}, rec.fallbacks)
}

func TestProvider_ResolveUploadTooLarge(t *testing.T) {
	body := "Category,Test\nA,t1\nB,testname\n"
	rec := &fakeRecorder{}
	// The cut falls after the complete A,t1 pair, inside "testname".
	p := NewProvider(WithProviderLogger(quietLogger()), WithRecorder(rec), WithMaxUpload(int64(len(body)-6)))

	res := p.Resolve(context.Background(), strings.NewReader(body), DefaultRandomOptions(), NewRand(1))
	assert.Equal(t, SourceRandom, res.Source)
	assert.ErrorIs(t, res.Err, ErrFileTooLarge)
	assert.Contains(t, res.Warning, "FILE001")
	assert.False(t, res.Mapping.Has("B", "tes"))
	assert.Equal(t, []string{FallbackUploadInvalid}, rec.fallbacks)
}

func TestProvider_ResolveUploadAtLimit(t *testing.T) {
	body := "Category,Test\nA,t1\nB,testname\n"
	p := NewProvider(WithProviderLogger(quietLogger()), WithMaxUpload(int64(len(body))))

	res := p.Resolve(context.Background(), strings.NewReader(body), DefaultRandomOptions(), NewRand(1))
	assert.Equal(t, SourceUpload, res.Source)
	assert.Empty(t, res.Warning)
	assert.Equal(t, []string{"testname"}, res.Mapping.Tests("B"))
}

func TestProvider_ResolveMissing(t *testing.T) {
	rec := &fakeRecorder{}
	p := NewProvider(WithProviderLogger(quietLogger()), WithRecorder(rec))

	cause := fmt.Errorf("%w: nope.csv", ErrFileMissing)
	res := p.ResolveMissing(context.Background(), cause, RandomOptions{Categories: 2, Tests: 2}, NewRand(4))
	assert.Equal(t, SourceRandom, res.Source)
	assert.Equal(t, 2, res.Mapping.Len())
	assert.Contains(t, res.Warning, "CFG005")
	assert.Equal(t, []string{FallbackFileMissing}, rec.fallbacks)
}

func TestProvider_FallbackWarningSentences(t *testing.T) {
	p := NewProvider(WithProviderLogger(quietLogger()))

	res := p.Resolve(context.Background(), strings.NewReader("Name\nx\n"), DefaultRandomOptions(), NewRand(1))
	assert.Equal(t,
		"Could not use the configuration file: The configuration file is missing a required column (Code: CFG001). "+
			"Provide a CSV with the headers Category and Test. Using a random configuration instead.",
		res.Warning)
}

func TestProvider_ResolveWithoutUpload(t *testing.T) {
	rec := &fakeRecorder{}
	p := NewProvider(WithProviderLogger(quietLogger()), WithRecorder(rec))

	res := p.Resolve(context.Background(), nil, RandomOptions{}, NewRand(3))
	assert.Equal(t, SourceRandom, res.Source)
	assert.Empty(t, res.Warning)
	assert.Equal(t, DefaultRandomCategories, res.Mapping.Len())
	assert.Equal(t, []string{FallbackNoConfig}, rec.fallbacks)
}

func TestProvider_DefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.csv")
	require.NoError(t, os.WriteFile(path, []byte("Category,Test\nD,d1\n"), 0o644))

	p := NewProvider(WithDefaultPath(path), WithProviderLogger(quietLogger()))
	require.NoError(t, p.LoadDefault())

	res := p.Resolve(context.Background(), nil, DefaultRandomOptions(), NewRand(1))
	assert.Equal(t, SourceDefault, res.Source)
	assert.True(t, res.Mapping.Has("D", "d1"))

	// An upload still wins over the default.
	res = p.Resolve(context.Background(), strings.NewReader("Category,Test\nU,u1\n"), DefaultRandomOptions(), NewRand(1))
	assert.Equal(t, SourceUpload, res.Source)

	// A broken rewrite keeps the previous default.
	require.NoError(t, os.WriteFile(path, []byte("oops\n"), 0o644))
	assert.Error(t, p.LoadDefault())
	assert.True(t, p.Default().Has("D", "d1"))
}

func TestProvider_MissingDefaultFile(t *testing.T) {
	p := NewProvider(WithDefaultPath(filepath.Join(t.TempDir(), "nope.csv")), WithProviderLogger(quietLogger()))
	require.NoError(t, p.LoadDefault())
	assert.Nil(t, p.Default())

	res := p.Resolve(context.Background(), nil, DefaultRandomOptions(), NewRand(1))
	assert.Equal(t, SourceRandom, res.Source)
	assert.Empty(t, res.Warning)
}

func TestProvider_InvalidDefaultFileWarns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.csv")
	require.NoError(t, os.WriteFile(path, []byte("Category,Test\n"), 0o644))

	rec := &fakeRecorder{}
	var logs bytes.Buffer
	p := NewProvider(WithDefaultPath(path), WithRecorder(rec),
		WithProviderLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	assert.ErrorIs(t, p.LoadDefault(), ErrEmptyFile)
	assert.Contains(t, logs.String(), "default config unusable")

	res := p.Resolve(context.Background(), nil, DefaultRandomOptions(), NewRand(1))
	assert.Equal(t, SourceRandom, res.Source)
	assert.Contains(t, res.Warning, "CFG003")
	assert.Equal(t, []string{FallbackDefaultInvalid}, rec.fallbacks)
}
