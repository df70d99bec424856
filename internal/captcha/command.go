package captcha

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

// CommandRecognizer invokes an external recognizer binary: challenge image
// on stdin, recognized text on stdout. The trained model stays a black box
// behind a process boundary.
type CommandRecognizer struct {
	binPath string
}

// NewCommandRecognizer creates a CommandRecognizer. If binPath is empty,
// "captcha-recognizer" is used.
func NewCommandRecognizer(binPath string) *CommandRecognizer {
	if binPath == "" {
		binPath = "captcha-recognizer"
	}
	return &CommandRecognizer{binPath: binPath}
}

// Recognize runs the binary and returns the trimmed stdout. An empty output
// is reported as ErrNoResult.
func (r *CommandRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	cmd := exec.CommandContext(ctx, r.binPath)
	cmd.Stdin = bytes.NewReader(image)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "captcha: %s failed: %s", r.binPath, stderr.String())
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return "", ErrNoResult
	}
	return text, nil
}
