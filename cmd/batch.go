package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cadastre-cli/internal/export"
	"github.com/sells-group/cadastre-cli/internal/tasks"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process every task file in the input directory",
	Long:  "Reads each file in the input directory as one task (one cadastral number per line) and writes one XLSX per task to the output directory.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		taskList, err := tasks.ReadDir(cfg.Input.Dir)
		if err != nil {
			return err
		}
		if len(taskList) == 0 {
			fmt.Fprintf(os.Stderr, "No task files in %s.\n", cfg.Input.Dir)
			return nil
		}

		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return eris.Wrapf(err, "create output dir %s", cfg.Output.Dir)
		}

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

		for _, task := range taskList {
			table, err := processTask(ctx, st, runner, task.Name, task.CadNumbers)
			if err != nil {
				return err
			}
			if table.Empty() {
				zap.L().Warn("task produced no records", zap.String("task", task.Name))
				continue
			}

			path := filepath.Join(cfg.Output.Dir, task.Name+".xlsx")
			if err := export.WriteXLSX(table, path); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Saved %s\n", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
}
