package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded task runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(ctx, runsLimit)
		if err != nil {
			return eris.Wrap(err, "list runs")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs recorded.")
			return nil
		}

		data := pterm.TableData{{"ID", "Task", "Status", "Numbers", "Records", "Started", "Error"}}
		for _, run := range runs {
			data = append(data, []string{
				shortID(run.ID),
				run.Task,
				string(run.Status),
				strconv.Itoa(len(run.CadNumbers)),
				strconv.Itoa(run.Records),
				run.StartedAt.Local().Format("2006-01-02 15:04:05"),
				truncateRunes(run.Error, 60),
			})
		}

		out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return eris.Wrap(err, "render runs table")
		}
		fmt.Println(out)
		return nil
	},
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// truncateRunes shortens s to max runes, never splitting a multibyte
// character in error text.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}
