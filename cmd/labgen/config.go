package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/labgen/internal/core"
)

func newConfigCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage category/test configurations",
	}
	cmd.AddCommand(
		newConfigRandomCmd(opts),
		newConfigSaveCmd(opts),
		newConfigListCmd(opts),
		newConfigShowCmd(opts),
	)
	return cmd
}

func newConfigRandomCmd(opts *cliOptions) *cobra.Command {
	var (
		random = core.DefaultRandomOptions()
		seed   int64
		out    string
	)

	cmd := &cobra.Command{
		Use:   "random",
		Short: "Write a random configuration as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.build(cmd)
			if err != nil {
				return err
			}
			m, err := c.Service.RandomConfig(random, seed)
			if err != nil {
				return userError(err)
			}
			if out == "" {
				return core.WriteMapping(cmd.OutOrStdout(), m)
			}
			return writeFile(out, func(w io.Writer) error {
				return core.WriteMapping(w, m)
			})
		},
	}

	cmd.Flags().IntVar(&random.Categories, "categories", random.Categories, "number of categories")
	cmd.Flags().IntVar(&random.Tests, "tests", random.Tests, "tests per category")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 picks one)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newConfigSaveCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save NAME FILE",
		Short: "Validate a configuration CSV and store it under NAME",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.build(cmd)
			if err != nil {
				return err
			}

			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			m, err := core.ReadMapping(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], userError(err))
			}
			name, err := c.Service.SaveConfig(cmd.Context(), args[0], m)
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d categories, %d pairs)\n", name, m.Len(), m.PairCount())
			return nil
		},
	}
}

func newConfigListCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved configurations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.build(cmd)
			if err != nil {
				return err
			}
			names, err := c.Service.ListConfigs()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newConfigShowCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Print a saved configuration as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.build(cmd)
			if err != nil {
				return err
			}
			m, err := c.Service.LoadConfig(args[0])
			if err != nil {
				return userError(err)
			}
			return core.WriteMapping(cmd.OutOrStdout(), m)
		},
	}
}
