package fundlist

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"
	"github.com/spf13/afero"

	"fundwatch/internal/fund"
)

// Classification status of a category entry.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

const categoryPrefix = "FUND"

// Entry is one line of a category file: FUND|code|name|type|status.
type Entry struct {
	Code   string
	Name   string
	Type   fund.Type
	Status string
}

// IdentifyFunc resolves a fund code to its identity.
type IdentifyFunc func(ctx context.Context, code string) (fund.Identity, error)

// Classify identifies codes, at most workers at a time, and classifies each
// fund by name. Entries keep the order of codes. A code that cannot be
// identified is kept as TypeUnknown with StatusFailed.
func Classify(ctx context.Context, codes []string, identify IdentifyFunc, workers int) []Entry {
	mapper := iter.Mapper[string, Entry]{MaxGoroutines: workers}
	return mapper.Map(codes, func(code *string) Entry {
		id, err := identify(ctx, *code)
		if err != nil {
			slog.Warn("could not identify fund", "code", *code, "error", err)
			return Entry{Code: *code, Type: fund.TypeUnknown, Status: StatusFailed}
		}
		return Entry{Code: *code, Name: id.Name, Type: fund.Classify(id.Name), Status: StatusSuccess}
	})
}

// WriteCategory writes entries with a commented summary header.
func WriteCategory(w io.Writer, entries []Entry, generatedAt time.Time) error {
	var b strings.Builder

	fmt.Fprintln(&b, "# Fund category file")
	fmt.Fprintf(&b, "# Generated: %s\n", generatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(&b, "#")
	fmt.Fprintln(&b, "# One fund per line, fields separated by |")
	fmt.Fprintln(&b, "# FUND|code|name|type|status")
	fmt.Fprintln(&b)

	succeeded := 0
	types := make(map[fund.Type]int)
	for _, e := range entries {
		if e.Status == StatusSuccess {
			succeeded++
		}
		types[e.Type]++
	}

	fmt.Fprintln(&b, "# ============ Summary ============")
	fmt.Fprintf(&b, "# Total: %d\n", len(entries))
	fmt.Fprintf(&b, "# Succeeded: %d\n", succeeded)
	fmt.Fprintf(&b, "# Failed: %d\n", len(entries)-succeeded)
	fmt.Fprintln(&b, "# Types:")
	for _, t := range byCount(types) {
		fmt.Fprintf(&b, "#   %s: %d\n", t, types[t])
	}
	fmt.Fprintln(&b, "# =================================")
	fmt.Fprintln(&b)

	for _, e := range entries {
		// the separator cannot appear inside a field
		name := strings.ReplaceAll(e.Name, "|", "/")
		fmt.Fprintf(&b, "%s|%s|%s|%s|%s\n", categoryPrefix, e.Code, name, e.Type, e.Status)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// byCount orders types by descending count, then by name.
func byCount(types map[fund.Type]int) []fund.Type {
	keys := make([]fund.Type, 0, len(types))
	for t := range types {
		keys = append(keys, t)
	}
	slices.SortFunc(keys, func(a, b fund.Type) int {
		if c := cmp.Compare(types[b], types[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return keys
}

// ParseCategory reads entries written by WriteCategory. Comments and blank
// lines are skipped; any other line must be a well-formed FUND line.
func ParseCategory(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "|")
		if parts[0] != categoryPrefix || len(parts) < 5 {
			return nil, fmt.Errorf("category line %d: want FUND|code|name|type|status, got %q", n, line)
		}
		code := strings.TrimSpace(parts[1])
		if len(code) != 6 || !codePattern.MatchString(code) {
			return nil, fmt.Errorf("category line %d: invalid fund code %q", n, code)
		}
		entries = append(entries, Entry{
			Code:   code,
			Name:   strings.TrimSpace(parts[2]),
			Type:   fund.Type(strings.TrimSpace(parts[3])),
			Status: strings.TrimSpace(parts[4]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read category file: %w", err)
	}
	return entries, nil
}

// ReadCategoryFile parses the category file at path on fsys.
func ReadCategoryFile(fsys afero.Fs, path string) ([]Entry, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open category file: %w", err)
	}
	defer f.Close()

	entries, err := ParseCategory(f)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoCodes)
	}
	return entries, nil
}

// WriteCategoryFile writes entries to path on fsys, replacing any previous file.
func WriteCategoryFile(fsys afero.Fs, path string, entries []Entry, generatedAt time.Time) error {
	var b strings.Builder
	if err := WriteCategory(&b, entries, generatedAt); err != nil {
		return err
	}
	if err := afero.WriteFile(fsys, path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write category file: %w", err)
	}
	return nil
}

// Codes returns the codes of entries in order, without duplicates.
func Codes(entries []Entry) []string {
	codes := make([]string, 0, len(entries))
	for _, e := range entries {
		codes = append(codes, e.Code)
	}
	return dedupe(codes)
}
