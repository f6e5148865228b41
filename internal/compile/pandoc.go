package compile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Converter turns the Markdown manuscript at input into output in format.
type Converter interface {
	Convert(ctx context.Context, input, output, format string, extraArgs []string) error
}

// ErrConverterNotFound is returned when the converter binary is not installed.
var ErrConverterNotFound = errors.New("converter not found")

// Pandoc runs the pandoc binary.
type Pandoc struct {
	// Path is the binary name or path; empty means "pandoc".
	Path string
}

func (p Pandoc) binary() string {
	if strings.TrimSpace(p.Path) == "" {
		return "pandoc"
	}
	return p.Path
}

// Args returns the command line arguments for one conversion.
func (p Pandoc) Args(input, output, format string, extraArgs []string) []string {
	args := []string{input, "--from", "markdown", "--to", format, "--output", output}
	if format == "epub" || format == "docx" {
		args = append(args, "--toc")
	}
	return append(args, extraArgs...)
}

// Convert implements Converter.
func (p Pandoc) Convert(ctx context.Context, input, output, format string, extraArgs []string) error {
	bin := p.binary()
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConverterNotFound, bin, err)
	}

	cmd := exec.CommandContext(ctx, bin, p.Args(input, output, format, extraArgs)...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("pandoc %s: %w", format, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("pandoc %s: %w", format, err)
		}
		return fmt.Errorf("pandoc %s: %w: %s", format, err, msg)
	}
	return nil
}
