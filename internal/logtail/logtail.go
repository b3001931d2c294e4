package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Entry is one line of the coach log with its slog level, when present.
type Entry struct {
	Level string // DEBUG, INFO, WARN, ERROR or empty
	Text  string
}

// Tail returns at most maxLines entries from the end of the log at path.
// A missing file yields no entries.
func Tail(path string, maxLines int) ([]Entry, error) {
	if maxLines <= 0 || strings.TrimSpace(path) == "" {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count, next := 0, 0
	for scanner.Scan() {
		ring[next] = scanner.Text()
		next = (next + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	start := 0
	if count == maxLines {
		start = next
	}
	entries := make([]Entry, count)
	for i := range entries {
		line := ring[(start+i)%maxLines]
		entries[i] = Entry{Level: ParseLevel(line), Text: line}
	}
	return entries, nil
}

// ParseLevel extracts the level=... attribute written by slog's text handler.
func ParseLevel(line string) string {
	for _, field := range strings.Fields(line) {
		if value, ok := strings.CutPrefix(field, "level="); ok {
			return strings.ToUpper(value)
		}
	}
	return ""
}
