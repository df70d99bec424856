package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cadastre-cli/internal/export"
)

var runXLSXPath string

var runCmd = &cobra.Command{
	Use:   "run <cad-number> [cad-number...]",
	Short: "Resolve cadastral numbers and print the result table",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runner, err := buildRunner(st)
		if err != nil {
			return err
		}

		if err := runner.Initialize(ctx); err != nil {
			return eris.Wrap(err, "initialize")
		}

		table, err := processTask(ctx, st, runner, "run", args)
		if err != nil {
			return err
		}

		if table.Empty() {
			fmt.Fprintln(os.Stderr, "No records found.")
			return nil
		}

		out, err := export.RenderConsole(table)
		if err != nil {
			return err
		}
		fmt.Println(out)

		if runXLSXPath != "" {
			if err := export.WriteXLSX(table, runXLSXPath); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Saved %s\n", runXLSXPath)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runXLSXPath, "xlsx", "", "also write the table to this XLSX file")
	rootCmd.AddCommand(runCmd)
}
