// Package fundlist reads the list of fund codes to watch.
package fundlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

// ErrNoCodes is returned when an input yields no fund code at all.
var ErrNoCodes = errors.New("no fund codes found")

var codePattern = regexp.MustCompile(`\d{6}`)

// Sample is written by WriteSample.
const Sample = `# 场外基金代码列表
# One fund code per line. Lines starting with # are comments.
# Regular and QDII funds can be mixed.

# regular
017174
023537
019449
000628
009226
025196

# QDII
513260
016533
`

// Parse reads codes from r. Blank lines and lines starting with # are
// skipped; every 6-digit token on a line is taken. Duplicates are dropped,
// keeping the first occurrence.
func Parse(r io.Reader) ([]string, error) {
	var codes []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		codes = append(codes, codePattern.FindAllString(line, -1)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read fund codes: %w", err)
	}
	return dedupe(codes), nil
}

// ParseFile reads codes from path on fsys. A missing file wraps
// os.ErrNotExist.
func ParseFile(fsys afero.Fs, path string) ([]string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fund file: %w", err)
	}
	defer f.Close()

	codes, err := Parse(f)
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoCodes)
	}
	return codes, nil
}

// ParseList splits a comma-separated list such as "017174,023537". Every
// item must be a 6-digit code.
func ParseList(raw string) ([]string, error) {
	var codes []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if len(item) != 6 || !codePattern.MatchString(item) {
			return nil, fmt.Errorf("invalid fund code %q", item)
		}
		codes = append(codes, item)
	}
	if len(codes) == 0 {
		return nil, ErrNoCodes
	}
	return dedupe(codes), nil
}

// WriteSample creates a commented example fund file at path. An existing
// file is left alone.
func WriteSample(fsys afero.Fs, path string) error {
	exists, err := afero.Exists(fsys, path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if exists {
		return fmt.Errorf("%s: %w", path, os.ErrExist)
	}
	if err := afero.WriteFile(fsys, path, []byte(Sample), 0o644); err != nil {
		return fmt.Errorf("write sample fund file: %w", err)
	}
	return nil
}

func dedupe(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
