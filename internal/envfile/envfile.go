// Package envfile reads and merges .env files without disturbing entries it
// was not asked to change.
package envfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const FileName = ".env"

// Pair is a single key/value update. Updates are applied in order.
type Pair struct {
	Key   string
	Value string
}

// Parse reads .env content into a key-value map. Comments, blank lines and
// lines without "=" are ignored; values are split on the first "=".
func Parse(content string) map[string]string {
	env := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := parseLine(line)
		if !ok {
			continue
		}
		env[key] = value
	}
	return env
}

// Merge applies updates to content. Existing keys are rewritten in place,
// new keys are appended, empty values are skipped, everything else is kept.
func Merge(content string, updates []Pair) string {
	var lines []string
	if content != "" {
		lines = strings.Split(strings.TrimRight(content, "\n"), "\n")
	}

	index := make(map[string]int)
	for i, line := range lines {
		key, _, ok := parseLine(line)
		if !ok {
			continue
		}
		if _, exists := index[key]; !exists {
			index[key] = i
		}
	}

	updated := make(map[string]bool)
	for _, u := range updates {
		if u.Key == "" || u.Value == "" {
			continue
		}
		line := u.Key + "=" + encodeValue(u.Value)
		if i, ok := index[u.Key]; ok {
			lines[i] = line
		} else {
			lines = append(lines, line)
			index[u.Key] = len(lines) - 1
		}
		updated[u.Key] = true
	}

	// Drop later duplicates of keys we rewrote so the first one wins.
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		key, _, ok := parseLine(line)
		if ok && updated[key] && index[key] != i {
			continue
		}
		out = append(out, line)
	}

	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}

// Update merges updates into dir/.env, creating the directory and file when
// needed. It returns the previous and new content.
func Update(dir string, updates []Pair) (before, after string, err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", err
	}

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", "", fmt.Errorf("read %s: %w", FileName, err)
	}
	before = string(data)
	after = Merge(before, updates)
	if after == before {
		return before, after, nil
	}

	if err := WriteAtomic(path, []byte(after)); err != nil {
		return "", "", fmt.Errorf("write %s: %w", FileName, err)
	}
	return before, after, nil
}

// WriteAtomic writes through a temp file and rename, falling back to a direct
// write when the rename is not possible.
func WriteAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := writeSynced(tmp, data); err == nil {
		if err := os.Rename(tmp, path); err == nil {
			return nil
		}
	}
	_ = os.Remove(tmp)
	return os.WriteFile(path, data, 0644)
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	// fsync is unsupported on some filesystems.
	_ = f.Sync()
	return f.Close()
}

func parseLine(line string) (string, string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	trimmed = strings.TrimPrefix(trimmed, "export ")
	idx := strings.Index(trimmed, "=")
	if idx <= 0 {
		return "", "", false
	}
	key := strings.TrimSpace(trimmed[:idx])
	value := strings.TrimSpace(trimmed[idx+1:])
	if len(value) >= 2 {
		switch {
		case value[0] == '"' && value[len(value)-1] == '"':
			value = unescape(value[1 : len(value)-1])
		case value[0] == '\'' && value[len(value)-1] == '\'':
			value = value[1 : len(value)-1]
		}
	}
	return key, value, key != ""
}

// unescape reverses encodeValue inside double quotes. Unknown escapes are
// kept as written.
func unescape(v string) string {
	if !strings.Contains(v, "\\") {
		return v
	}
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] != '\\' || i+1 == len(v) {
			b.WriteByte(v[i])
			continue
		}
		i++
		switch v[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '\\', '"':
			b.WriteByte(v[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(v[i])
		}
	}
	return b.String()
}

func encodeValue(v string) string {
	if strings.ContainsAny(v, " \t#\n\r\"") {
		v = strings.ReplaceAll(v, "\\", "\\\\")
		v = strings.ReplaceAll(v, "\"", "\\\"")
		v = strings.ReplaceAll(v, "\n", "\\n")
		v = strings.ReplaceAll(v, "\r", "\\r")
		return `"` + v + `"`
	}
	return v
}
