// Package core generates synthetic lab datasets.
//
// It holds all domain logic independent of any UI or transport layer, so the
// web handlers, the CLI and tests use it the same way.
//
// # Configuration
//
// A [Mapping] groups lab test names under categories. It comes from a
// two-column Category,Test CSV ([ReadMapping]), a default file watched on
// disk ([Provider], [Watcher]) or, when neither is usable, a random
// configuration ([RandomMapping]) of N categories with M tests each drawn
// from a shared pool of N*M names.
//
// # Generation
//
// [Generate] is a pure function of a seeded *rand.Rand, a mapping and
// [GenerateParams]. Each row draws a subject ID, a category, a test from
// that category and one value per custom column, all independently and
// uniformly:
//
//	cols, err := core.NewColumns().
//	    Int("AGE", 18, 90).
//	    Float("RESULT", 0, 10).
//	    String("SEX", "F", "M").
//	    Date("VISIT_DATE", start, end).
//	    Build()
//
//	p := core.DefaultParams()
//	p.Columns = cols
//	ds, err := core.Generate(core.NewRand(42), mapping, p)
//
// The same seed and inputs always produce the same [Dataset], which can be
// written as CSV, XLSX or JSON.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a code for support reference:
//
//   - CFG001-CFG004: configuration file errors
//   - GEN001-GEN004: generation parameter and capacity errors
//   - STO001-STO002: saved configuration errors
//   - FILE001, FILE004, REQ001, RATE001: request errors
package core
