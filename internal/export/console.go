package export

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cadastre-cli/internal/model"
)

// consoleWrapWidth caps cell width in the console rendering.
const consoleWrapWidth = 50

// RenderConsole renders the table transposed: one row per field, one column
// per record. Property records are tall and narrow, so the transposed layout
// survives ordinary terminal widths.
func RenderConsole(table model.Table) (string, error) {
	if table.Empty() {
		return "", nil
	}

	data := make(pterm.TableData, 0, len(table.Columns))
	for i, col := range table.Columns {
		row := make([]string, 0, len(table.Rows)+1)
		row = append(row, col)
		for _, cells := range table.Rows {
			value := ""
			if i < len(cells) {
				value = cells[i]
			}
			row = append(row, wrap(value, consoleWrapWidth))
		}
		data = append(data, row)
	}

	out, err := pterm.DefaultTable.WithData(data).WithBoxed().Srender()
	if err != nil {
		return "", eris.Wrap(err, "export: render console table")
	}
	return out, nil
}

// wrap breaks long lines on word boundaries; existing newlines are kept.
func wrap(s string, width int) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		out = append(out, wrapLine(line, width)...)
	}
	return strings.Join(out, "\n")
}

func wrapLine(line string, width int) []string {
	words := strings.Fields(line)
	if len(words) == 0 {
		return []string{line}
	}

	// Widths are counted in runes: cell text is mostly Cyrillic, where byte
	// length is twice the display width.
	var (
		lines  []string
		cur    []string
		curLen int
	)
	for _, word := range words {
		wordLen := len([]rune(word))
		if curLen > 0 && curLen+1+wordLen > width {
			lines = append(lines, strings.Join(cur, " "))
			cur, curLen = nil, 0
		}
		if curLen > 0 {
			curLen++
		}
		cur = append(cur, word)
		curLen += wordLen
	}
	if len(cur) > 0 {
		lines = append(lines, strings.Join(cur, " "))
	}
	return lines
}
