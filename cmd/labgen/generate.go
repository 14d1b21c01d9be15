package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/labgen/internal/core"
)

type generateOptions struct {
	configFile  string
	savedConfig string
	random      core.RandomOptions
	configSeed  int64
	columnsFile string
	params      core.GenerateParams
	out         string
	format      string
}

func newGenerateCmd(opts *cliOptions) *cobra.Command {
	g := &generateOptions{
		params: core.DefaultParams(),
		random: core.DefaultRandomOptions(),
	}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a dataset and write it as CSV, XLSX or JSON",
		Example: `  labgen generate --config tests.csv --rows 500 --out labs.csv
  labgen generate --columns columns.yaml --seed 42 --out labs.xlsx
  labgen generate --categories 4 --tests 3 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.build(cmd)
			if err != nil {
				return err
			}
			return g.run(cmd, c.Service)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&g.configFile, "config", "c", "", "category/test CSV (header Category,Test)")
	f.StringVar(&g.savedConfig, "saved", "", "name of a saved configuration")
	f.IntVar(&g.random.Categories, "categories", g.random.Categories, "categories in a random configuration")
	f.IntVar(&g.random.Tests, "tests", g.random.Tests, "tests per category in a random configuration")
	f.Int64Var(&g.configSeed, "config-seed", 0, "seed of the random configuration (0 picks one)")
	f.StringVar(&g.columnsFile, "columns", "", "YAML file of custom columns")
	f.IntVarP(&g.params.Rows, "rows", "n", g.params.Rows, "number of rows")
	f.IntVar(&g.params.Subjects, "subjects", g.params.Subjects, "number of distinct subject IDs")
	f.StringVar(&g.params.SubjectPrefix, "prefix", g.params.SubjectPrefix, "subject ID prefix")
	f.IntVar(&g.params.SubjectStart, "start", g.params.SubjectStart, "first subject number")
	f.StringVar(&g.params.CategoryColumn, "category-column", g.params.CategoryColumn, "header of the category column")
	f.StringVar(&g.params.TestColumn, "test-column", g.params.TestColumn, "header of the test column")
	f.Int64Var(&g.params.Seed, "seed", 0, "generation seed (0 picks one)")
	f.StringVarP(&g.out, "out", "o", "", "output file (default stdout)")
	f.StringVarP(&g.format, "format", "f", "", "csv, xlsx or json (default from --out extension, else csv)")
	cmd.MarkFlagsMutuallyExclusive("config", "saved")
	return cmd
}

func (g *generateOptions) run(cmd *cobra.Command, svc *core.Service) error {
	ctx := cmd.Context()

	format, err := g.outputFormat()
	if err != nil {
		return err
	}

	if g.columnsFile != "" {
		specs, err := readColumnsFile(g.columnsFile, core.SubjectColumn, g.params.CategoryColumn, g.params.TestColumn)
		if err != nil {
			return err
		}
		g.params.Columns = specs
	}

	m, err := g.mapping(cmd, svc)
	if err != nil {
		return err
	}

	d, err := svc.Generate(ctx, m, g.params)
	if err != nil {
		return userError(err)
	}

	if g.out == "" {
		return svc.Export(ctx, cmd.OutOrStdout(), d, format)
	}
	if err := writeFile(g.out, func(w io.Writer) error {
		return svc.Export(ctx, w, d, format)
	}); err != nil {
		return err
	}
	slog.InfoContext(ctx, "dataset written", "path", g.out, "rows", d.Len(), "seed", d.Seed)
	return nil
}

// mapping resolves the configuration: --saved, then --config, then the
// default file, then a random configuration.
func (g *generateOptions) mapping(cmd *cobra.Command, svc *core.Service) (*core.Mapping, error) {
	ctx := cmd.Context()

	if g.savedConfig != "" {
		m, err := svc.LoadConfig(g.savedConfig)
		if err != nil {
			return nil, userError(err)
		}
		return m, nil
	}

	var (
		res core.Resolution
		err error
	)
	switch f, openErr := g.openConfig(); {
	case errors.Is(openErr, fs.ErrNotExist):
		cause := fmt.Errorf("%w: %s", core.ErrFileMissing, g.configFile)
		res, err = svc.ResolveMissing(ctx, cause, g.random, g.configSeed)
	case openErr != nil:
		return nil, fmt.Errorf("open config: %w", openErr)
	case f != nil:
		defer f.Close()
		res, err = svc.ResolveMapping(ctx, f, g.random, g.configSeed)
	default:
		res, err = svc.ResolveMapping(ctx, nil, g.random, g.configSeed)
	}
	if err != nil {
		return nil, userError(err)
	}
	if res.Warning != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", res.Warning)
	}
	slog.DebugContext(ctx, "configuration resolved",
		"source", string(res.Source),
		"categories", res.Mapping.Len(),
		"pairs", res.Mapping.PairCount(),
	)
	return res.Mapping, nil
}

// openConfig opens --config. It returns a nil file when the flag is unset.
func (g *generateOptions) openConfig() (*os.File, error) {
	if g.configFile == "" {
		return nil, nil
	}
	return os.Open(g.configFile)
}

func (g *generateOptions) outputFormat() (string, error) {
	format := strings.ToLower(g.format)
	if format == "" && g.out != "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(g.out)), ".")
	}
	if format == "" {
		format = core.FormatCSV
	}
	if !core.ValidFormat(format) {
		return "", fmt.Errorf("unsupported output format %q (use csv, xlsx or json)", format)
	}
	return format, nil
}

func readColumnsFile(path string, reserved ...string) ([]core.ColumnSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open columns: %w", err)
	}
	defer f.Close()

	specs, err := core.ReadColumnsYAML(f, reserved...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return specs, nil
}

// writeFile creates path and passes it to write. A failed write removes the
// partial file.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
