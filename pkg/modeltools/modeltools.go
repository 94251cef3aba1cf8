// Package modeltools reads and writes YAML model configurations and picks
// names for successive model runs stored side by side in one directory.
//
// Model names are a fixed prefix followed by an integer id, for example
// "nn_model7". [NextModelName] scans a directory for existing names and
// returns the next free one.
package modeltools

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/geokit/pkg/errors"
)

// ParseError reports a malformed YAML file. Line is 1-based and zero when
// the decoder did not report one.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var yamlLine = regexp.MustCompile(`line (\d+)`)

// LoadYAML decodes a YAML mapping file. A file that cannot be read yields a
// FILE_NOT_FOUND or INTERNAL_ERROR; malformed content yields a PARSE_ERROR
// wrapping a *ParseError. An empty file yields an empty map.
func LoadYAML(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "could not read %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "could not read %s", path)
	}

	out := map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		perr := &ParseError{Path: path, Err: err}
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			perr.Line, _ = strconv.Atoi(m[1])
		}
		return nil, errors.Wrap(errors.ErrCodeParse, perr, "error in configuration file %s", path)
	}
	return out, nil
}

// SaveYAML encodes v as YAML with two-space indentation.
func SaveYAML(v any, path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "encode yaml")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode yaml")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ModelID returns the integer that follows the last occurrence of prefix in
// name, or -1 when no digits follow it. Trailing non-digits are ignored, so
// "run12.h5" has id 12 for prefix "run".
func ModelID(name, prefix string) int {
	rest := name
	if prefix != "" {
		i := strings.LastIndex(name, prefix)
		if i < 0 {
			return -1
		}
		rest = name[i+len(prefix):]
	}
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return -1
	}
	id, err := strconv.Atoi(rest[:end])
	if err != nil {
		return -1
	}
	return id
}

// NextModelName returns the name for the next model in dir. With no entry
// starting with prefix it returns prefix + "1". Otherwise it takes the
// highest id found and returns it unchanged when reuse is set, or
// incremented when it is not.
func NextModelName(prefix, dir string, reuse bool) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, globEscape(prefix)) + "*")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "bad model prefix %q", prefix)
	}
	if len(matches) == 0 {
		return prefix + "1", nil
	}

	ids := make([]int, len(matches))
	for i, m := range matches {
		ids[i] = ModelID(filepath.Base(m), prefix)
	}
	sort.Ints(ids)
	latest := ids[len(ids)-1]
	if !reuse {
		latest++
	}
	return prefix + strconv.Itoa(latest), nil
}

func globEscape(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)
	return r.Replace(s)
}
