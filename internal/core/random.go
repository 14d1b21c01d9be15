package core

import (
	"fmt"
	"math/rand"
	"strconv"
)

// Defaults and form limits for randomly synthesized configurations.
const (
	DefaultRandomCategories = 3
	DefaultRandomTests      = 5
)

// RandomOptions sizes a random configuration.
type RandomOptions struct {
	Categories int `json:"categories"`
	Tests      int `json:"tests"`
}

// DefaultRandomOptions returns 3 categories with 5 tests each.
func DefaultRandomOptions() RandomOptions {
	return RandomOptions{Categories: DefaultRandomCategories, Tests: DefaultRandomTests}
}

// Validate checks the sizes against the configured maxima.
func (o RandomOptions) Validate(maxCategories, maxTests int) error {
	if o.Categories < 1 || o.Categories > maxCategories {
		return fmt.Errorf("%w: categories must be 1-%d, got %d", ErrInvalidParams, maxCategories, o.Categories)
	}
	if o.Tests < 1 || o.Tests > maxTests {
		return fmt.Errorf("%w: tests per category must be 1-%d, got %d", ErrInvalidParams, maxTests, o.Tests)
	}
	return nil
}

// RandomMapping synthesizes a configuration of opts.Categories categories
// named Category_1..N. Each category receives opts.Tests distinct tests
// sampled without replacement from a shared pool Test_1..N*M; samples are
// independent per category, so two categories may share a test name.
func RandomMapping(rng *rand.Rand, opts RandomOptions) (*Mapping, error) {
	if opts.Categories < 1 || opts.Tests < 1 {
		return nil, fmt.Errorf("%w: random configuration needs at least 1 category and 1 test", ErrInvalidParams)
	}

	poolSize := opts.Categories * opts.Tests
	pool := make([]string, poolSize)
	for j := range pool {
		pool[j] = "Test_" + strconv.Itoa(j+1)
	}

	m := NewMapping()
	for i := 0; i < opts.Categories; i++ {
		category := "Category_" + strconv.Itoa(i+1)
		for _, idx := range rng.Perm(poolSize)[:opts.Tests] {
			if err := m.Add(category, pool[idx]); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}
