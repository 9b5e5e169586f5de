package vcs

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestParseLines(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected []string
	}{
		{
			name:     "empty input",
			input:    []byte(""),
			expected: nil,
		},
		{
			name:     "single line",
			input:    []byte("line1"),
			expected: []string{"line1"},
		},
		{
			name:     "multiple lines",
			input:    []byte("line1\nline2\nline3"),
			expected: []string{"line1", "line2", "line3"},
		},
		{
			name:     "lines with whitespace",
			input:    []byte("  line1  \n  line2  \n  line3  "),
			expected: []string{"line1", "line2", "line3"},
		},
		{
			name:     "empty lines filtered",
			input:    []byte("line1\n\nline2\n\n\nline3"),
			expected: []string{"line1", "line2", "line3"},
		},
		{
			name:     "trailing newline",
			input:    []byte("line1\nline2\n"),
			expected: []string{"line1", "line2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseLines(tt.input)

			if len(result) != len(tt.expected) {
				t.Errorf("Expected %d lines, got %d", len(tt.expected), len(result))
				return
			}

			for i, line := range result {
				if line != tt.expected[i] {
					t.Errorf("Line %d: expected '%s', got '%s'", i, tt.expected[i], line)
				}
			}
		})
	}
}

func TestRepoRelative(t *testing.T) {
	tests := []struct {
		name    string
		root    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "relative path", root: "/repo", path: "tasks/abc", want: "tasks/abc"},
		{name: "absolute path", root: "/repo", path: "/repo/pending", want: "pending"},
		{name: "unclean path", root: "/repo/", path: "tasks/../ids", want: "ids"},
		{name: "root itself", root: "/repo", path: "/repo", want: "."},
		{name: "outside root", root: "/repo", path: "/other/file", wantErr: true},
		{name: "escaping relative", root: "/repo", path: "../file", wantErr: true},
		{name: "empty", root: "/repo", path: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RepoRelative(tt.root, tt.path)
			if tt.wantErr {
				if err == nil {
					t.Errorf("RepoRelative(%q, %q) = %q, want error", tt.root, tt.path, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("RepoRelative(%q, %q) failed: %v", tt.root, tt.path, err)
			}
			if got != tt.want {
				t.Errorf("RepoRelative(%q, %q) = %q, want %q", tt.root, tt.path, got, tt.want)
			}
		})
	}
}

func TestExecContext(t *testing.T) {
	ctx := context.Background()

	// Test successful execution
	output, err := ExecContext(ctx, 5*time.Second, t.TempDir(), "echo", "test")
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	result := strings.TrimSpace(string(output))
	if result != "test" {
		t.Errorf("Expected 'test', got '%s'", result)
	}
}

func TestExecContextTimeout(t *testing.T) {
	ctx := context.Background()

	// Test timeout - sleep for 2 seconds with 100ms timeout
	_, err := ExecContext(ctx, 100*time.Millisecond, t.TempDir(), "sleep", "2")
	if err == nil {
		t.Error("Expected timeout error")
	}
}

func TestExecContextExitError(t *testing.T) {
	_, err := ExecContext(context.Background(), 5*time.Second, t.TempDir(), "sh", "-c", "echo oops >&2; exit 3")
	if err == nil {
		t.Fatal("Expected error")
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 3 {
		t.Errorf("Expected wrapped exit code 3, got %v", err)
	}
	if !strings.Contains(err.Error(), "oops") {
		t.Errorf("Expected stderr in error, got %v", err)
	}
}
