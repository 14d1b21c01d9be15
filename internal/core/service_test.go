package core

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, rec *fakeRecorder) *Service {
	t.Helper()
	return NewService(ServiceConfig{
		Store:    NewConfigStore(t.TempDir()),
		Recorder: rec,
		Logger:   quietLogger(),
		Limits:   Limits{MaxRows: 500, MaxSubjects: 50, MaxColumns: 5},
	})
}

func TestService_GenerateFillsSeed(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestService(t, rec)
	m := testMapping(t)

	p := DefaultParams()
	p.Rows, p.Subjects = 100, 10

	d, err := s.Generate(context.Background(), m, p)
	require.NoError(t, err)
	assert.NotZero(t, d.Seed)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", d.ID.String())
	assert.Equal(t, 100, rec.rows)

	// The recorded seed reproduces the rows.
	p.Seed = d.Seed
	again, err := s.Generate(context.Background(), m, p)
	require.NoError(t, err)
	assert.Equal(t, d.Rows, again.Rows)
	assert.NotEqual(t, d.ID, again.ID)
}

func TestService_GenerateEnforcesLimits(t *testing.T) {
	s := newTestService(t, &fakeRecorder{})
	p := DefaultParams()
	p.Subjects = 10

	p.Rows = 501
	_, err := s.Generate(context.Background(), testMapping(t), p)
	assert.ErrorIs(t, err, ErrTooManyRows)

	p.Rows = 10
	_, err = s.Generate(context.Background(), nil, p)
	assert.ErrorIs(t, err, ErrEmptyMapping)
}

func TestService_GenerateBusy(t *testing.T) {
	s := NewService(ServiceConfig{
		Logger:  quietLogger(),
		Limiter: NewLimiter(1, 20*time.Millisecond),
	})
	require.NoError(t, s.limiter.Acquire(context.Background()))
	defer s.limiter.Release()

	_, err := s.Generate(context.Background(), testMapping(t), DefaultParams())
	assert.ErrorIs(t, err, ErrBusy)
}

func TestService_Export(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestService(t, rec)
	p := DefaultParams()
	p.Rows, p.Subjects, p.Seed = 20, 5, 11
	d, err := s.Generate(context.Background(), testMapping(t), p)
	require.NoError(t, err)

	for _, format := range []string{FormatCSV, FormatXLSX, FormatJSON} {
		var buf bytes.Buffer
		require.NoError(t, s.Export(context.Background(), &buf, d, format), format)
		assert.NotZero(t, buf.Len(), format)
	}
	assert.Equal(t, []string{FormatCSV, FormatXLSX, FormatJSON}, rec.exports)

	err = s.Export(context.Background(), &bytes.Buffer{}, d, "pdf")
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestService_ResolveMapping(t *testing.T) {
	s := newTestService(t, &fakeRecorder{})

	_, err := s.ResolveMapping(context.Background(), nil, RandomOptions{Categories: 99, Tests: 1}, 0)
	assert.ErrorIs(t, err, ErrInvalidParams)

	a, err := s.ResolveMapping(context.Background(), nil, RandomOptions{Categories: 4, Tests: 2}, 5)
	require.NoError(t, err)
	b, err := s.ResolveMapping(context.Background(), nil, RandomOptions{Categories: 4, Tests: 2}, 5)
	require.NoError(t, err)
	assert.Equal(t, a.Mapping.Pairs(), b.Mapping.Pairs())
	assert.Equal(t, 4, a.Mapping.Len())

	res, err := s.ResolveMapping(context.Background(), strings.NewReader("Category,Test\nA,t\n"), DefaultRandomOptions(), 0)
	require.NoError(t, err)
	assert.Equal(t, SourceUpload, res.Source)
}

func TestService_ResolveMissing(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestService(t, rec)
	cause := fmt.Errorf("%w: labs.csv", ErrFileMissing)

	_, err := s.ResolveMissing(context.Background(), cause, RandomOptions{Categories: 0, Tests: 1}, 1)
	assert.ErrorIs(t, err, ErrInvalidParams)

	res, err := s.ResolveMissing(context.Background(), cause, RandomOptions{Categories: 3, Tests: 2}, 9)
	require.NoError(t, err)
	assert.Equal(t, SourceRandom, res.Source)
	assert.ErrorIs(t, res.Err, ErrFileMissing)
	assert.Contains(t, res.Warning, "CFG005")
	assert.Equal(t, 6, res.Mapping.PairCount())
	assert.Equal(t, []string{FallbackFileMissing}, rec.fallbacks)
}

func TestService_Configs(t *testing.T) {
	s := newTestService(t, &fakeRecorder{})
	ctx := context.Background()

	m, err := s.RandomConfig(RandomOptions{Categories: 2, Tests: 3}, 8)
	require.NoError(t, err)

	name, err := s.SaveConfig(ctx, "", m)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "generated_config_"))

	names, err := s.ListConfigs()
	require.NoError(t, err)
	assert.Equal(t, []string{name}, names)

	back, err := s.LoadConfig(name)
	require.NoError(t, err)
	assert.Equal(t, m.Pairs(), back.Pairs())

	_, err = s.RandomConfig(RandomOptions{Categories: 1, Tests: 11}, 0)
	assert.ErrorIs(t, err, ErrInvalidParams)
}
