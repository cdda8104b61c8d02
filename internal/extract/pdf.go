package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes an external command with the given stdin. Split
// out so tests can stub the pdftotext binary.
type CommandRunner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)

	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w (%s)", name, err, strings.TrimSpace(errOut.String()))
	}

	return out.Bytes(), nil
}

// PDFExtractor extracts text from PDF bytes via the poppler pdftotext
// binary, reading from stdin and writing to stdout. Page breaks come back
// as form feeds and are rewritten as newline separators.
type PDFExtractor struct {
	runner CommandRunner
}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{runner: execRunner{}}
}

func NewPDFExtractorWithRunner(runner CommandRunner) *PDFExtractor {
	return &PDFExtractor{runner: runner}
}

func (p *PDFExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	out, err := p.runner.Run(ctx, data, "pdftotext", "-layout", "-", "-")
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	return strings.ReplaceAll(string(out), "\f", "\n"), nil
}
