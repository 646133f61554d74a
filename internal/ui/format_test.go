package ui

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = oldStdout

	buf := make([]byte, 4096)
	n, _ := r.Read(buf)
	return string(buf[:n])
}

func TestColorFunc(t *testing.T) {
	originalSupportsColor := supportsColor
	defer func() {
		supportsColor = originalSupportsColor
	}()

	tests := []struct {
		name          string
		supportsColor bool
		expectColored bool
	}{
		{"with color support", true, true},
		{"without color support", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			supportsColor = tt.supportsColor

			funcs := []func(string) string{
				ColorSuccess,
				ColorError,
				ColorWarning,
				ColorInfo,
				ColorProgress,
				ColorBold,
				ColorDim,
			}

			for _, colorFunc := range funcs {
				result := colorFunc("test text")

				if tt.expectColored && result == "test text" {
					t.Error("Expected colored output, got plain text")
				}
				if !tt.expectColored && result != "test text" {
					t.Error("Expected plain text, got colored output")
				}
			}
		})
	}
}

func TestShowHeader(t *testing.T) {
	output := captureStdout(t, func() {
		ShowHeader("Test Title")
	})

	if !strings.Contains(output, "+") || !strings.Contains(output, "-") {
		t.Error("Header missing border")
	}
	if !strings.Contains(output, "Test Title") {
		t.Error("Header missing title")
	}
}

func TestShowError(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"single line error", errors.New("connection refused")},
		{"multiline error", errors.New("error occurred\ndetailed message\nadditional info")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureStdout(t, func() {
				ShowError(tt.err)
			})

			if !strings.Contains(output, "ERROR:") {
				t.Error("Error label not found in output")
			}
			// Every line of the error must be displayed.
			for _, line := range strings.Split(tt.err.Error(), "\n") {
				if !strings.Contains(output, line) {
					t.Errorf("Error line %q not found in output", line)
				}
			}
		})
	}
}

func TestShowSuccess(t *testing.T) {
	output := captureStdout(t, func() {
		ShowSuccess("Operation completed")
	})

	if !strings.Contains(output, "SUCCESS:") {
		t.Error("Success label not found")
	}
	if !strings.Contains(output, "Operation completed") {
		t.Error("Success message not found")
	}
}

func TestShowWarningAndInfo(t *testing.T) {
	output := captureStdout(t, func() {
		ShowWarning("careful now")
		ShowInfo("for the record")
	})

	if !strings.Contains(output, "WARNING:") || !strings.Contains(output, "careful now") {
		t.Error("Warning output incomplete")
	}
	if !strings.Contains(output, "INFO:") || !strings.Contains(output, "for the record") {
		t.Error("Info output incomplete")
	}
}
