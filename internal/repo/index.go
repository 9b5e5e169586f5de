package repo

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/natefinch/atomic"
)

// Repository layout, relative to the root.
const (
	VersionFile = "version"
	PendingFile = "pending"
	IDsFile     = "ids"
	TasksDir    = "tasks"
)

// SupportedVersion is the only repository schema version this build reads.
const SupportedVersion = 0

func recordPath(id string) string {
	return TasksDir + "/" + id
}

// writeFile durably replaces path with data: the content goes to a temp
// file in the same directory, is fsynced and renamed over path.
func writeFile(path string, data []byte) error {
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	// atomic.WriteFile leaves new files with the temp file's 0600
	if err := os.Chmod(path, 0644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readList reads a newline-separated UUID list such as pending or ids.
// Blank lines are skipped.
func readList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var list []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			list = append(list, line)
		}
	}
	return list, nil
}

// encodeList renders a UUID list with one entry per line.
func encodeList(list []string) []byte {
	var b bytes.Buffer
	for _, id := range list {
		b.WriteString(id)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// uuidList is an ordered UUID index as held in memory during a Modify.
type uuidList struct {
	items []string
	dirty bool
}

func (l *uuidList) contains(id string) bool {
	return slices.Contains(l.items, id)
}

func (l *uuidList) add(id string) {
	l.items = append(l.items, id)
	l.dirty = true
}

func (l *uuidList) remove(id string) bool {
	i := slices.Index(l.items, id)
	if i < 0 {
		return false
	}
	l.items = slices.Delete(l.items, i, i+1)
	l.dirty = true
	return true
}
