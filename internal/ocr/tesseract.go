// Package ocr adapts an external OCR command to the receipt upload path.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// DefaultCommand is the tesseract binary looked up on PATH.
const DefaultCommand = "tesseract"

// ErrImageNotFound is returned when the image path does not exist.
var ErrImageNotFound = errors.New("image not found")

// Tesseract runs "<command> <image> stdout" and returns what it prints.
type Tesseract struct {
	command string
	args    []string
}

// NewTesseract returns an engine using command, or DefaultCommand when empty.
// Extra args are passed after the image path and output target, e.g. "-l eng".
func NewTesseract(command string, args ...string) *Tesseract {
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}
	return &Tesseract{command: command, args: args}
}

// ImageToText runs a single OCR attempt. The caller bounds it through ctx.
func (t *Tesseract) ImageToText(ctx context.Context, imagePath string) (string, error) {
	if _, err := os.Stat(imagePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrImageNotFound, imagePath)
		}
		return "", fmt.Errorf("stat image: %w", err)
	}

	args := append([]string{imagePath, "stdout"}, t.args...)
	cmd := exec.CommandContext(ctx, t.command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%s: %w", t.command, ctxErr)
		}
		return "", fmt.Errorf("%s: %w: %s", t.command, err, strings.TrimSpace(stderr.String()))
	}

	slog.DebugContext(ctx, "OCR completed",
		"command", t.command,
		"path", imagePath,
		"bytes", stdout.Len())

	return stdout.String(), nil
}
