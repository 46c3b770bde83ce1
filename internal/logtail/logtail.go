package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// TimeLayout is the timestamp layout the application logger writes.
const TimeLayout = "2006-01-02 15:04:05"

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file is not an error.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one parsed log line.
type Entry struct {
	Time    time.Time
	Level   zapcore.Level
	Caller  string
	Message string
	Fields  string
	// Raw is the line as read. Lines that do not parse keep only Raw and
	// report InfoLevel.
	Raw string
}

// Parse splits a console-encoded zap line into its columns.
func Parse(line string) Entry {
	e := Entry{Raw: line, Level: zapcore.InfoLevel, Message: line}
	cols := strings.Split(line, "\t")
	if len(cols) < 3 {
		return e
	}
	ts, err := time.ParseInLocation(TimeLayout, cols[0], time.Local)
	if err != nil {
		return e
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cols[1]))); err != nil {
		return e
	}
	e.Time = ts
	e.Level = level

	rest := cols[2:]
	if len(rest) > 1 && strings.Contains(rest[0], ".go:") {
		e.Caller = rest[0]
		rest = rest[1:]
	}
	if n := len(rest); n > 1 && strings.HasPrefix(rest[n-1], "{") {
		e.Fields = rest[n-1]
		rest = rest[:n-1]
	}
	e.Message = strings.Join(rest, " ")
	return e
}

// Filter parses lines and keeps those at or above min.
func Filter(lines []string, min zapcore.Level) []Entry {
	out := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		e := Parse(line)
		if e.Level >= min {
			out = append(out, e)
		}
	}
	return out
}
