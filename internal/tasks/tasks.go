// Package tasks loads batch task files: each file in the input directory is
// one task, one cadastral number per line.
package tasks

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Task is one named batch of cadastral numbers. The name comes from the file
// name without extension and keys the output spreadsheet.
type Task struct {
	Name       string
	CadNumbers []string
}

// ReadDir loads every regular file in dir as a task. Blank lines are
// skipped; surrounding whitespace is trimmed. Files that end up with no
// numbers are dropped.
func ReadDir(dir string) ([]Task, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "tasks: read dir %s", dir)
	}

	var out []Task
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "tasks: read %s", path)
		}

		var cads []string
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			cads = append(cads, line)
		}
		if len(cads) == 0 {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		out = append(out, Task{Name: name, CadNumbers: cads})
	}

	return out, nil
}
