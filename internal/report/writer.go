package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"fundwatch/internal/fund"
)

// FileWriter publishes each cycle's report to a single file, replacing the
// previous one.
type FileWriter struct {
	fs     afero.Fs
	path   string
	format string
	now    func() time.Time
}

// NewFileWriter creates a writer for path on fsys.
func NewFileWriter(fsys afero.Fs, path, format string) *FileWriter {
	return &FileWriter{fs: fsys, path: path, format: format, now: time.Now}
}

// Publish renders outcomes and swaps the report file in with a rename, so
// readers never see a half-written report.
func (w *FileWriter) Publish(ctx context.Context, outcomes []fund.Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Render(&buf, w.format, outcomes, w.now()); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if err := replaceFile(w.fs, w.path, buf.Bytes()); err != nil {
		return err
	}

	slog.Debug("report written", "path", w.path, "format", w.format, "funds", len(outcomes))
	return nil
}

// DirFilePrefix names every report a DirWriter produces.
const DirFilePrefix = "fund_valuation"

// DirWriter publishes each cycle as a timestamped text, JSON and CSV report
// in one directory, and keeps <prefix>_latest.txt pointing at the newest
// text report's content.
type DirWriter struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

// NewDirWriter creates a writer for dir on fsys. The directory is created on
// first publish.
func NewDirWriter(fsys afero.Fs, dir string) *DirWriter {
	return &DirWriter{fs: fsys, dir: dir, now: time.Now}
}

// Publish writes all three formats for outcomes, then refreshes the latest
// text report.
func (w *DirWriter) Publish(ctx context.Context, outcomes []fund.Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.fs.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	now := w.now()
	stamp := now.Format("20060102_150405")

	var text []byte
	for _, f := range []struct{ format, ext string }{
		{FormatText, "txt"},
		{FormatJSON, "json"},
		{FormatCSV, "csv"},
	} {
		var buf bytes.Buffer
		if err := Render(&buf, f.format, outcomes, now); err != nil {
			return fmt.Errorf("render %s report: %w", f.format, err)
		}
		path := filepath.Join(w.dir, fmt.Sprintf("%s_%s.%s", DirFilePrefix, stamp, f.ext))
		if err := replaceFile(w.fs, path, buf.Bytes()); err != nil {
			return err
		}
		if f.format == FormatText {
			text = buf.Bytes()
		}
	}

	if err := replaceFile(w.fs, filepath.Join(w.dir, DirFilePrefix+"_latest.txt"), text); err != nil {
		return err
	}

	slog.Debug("reports written", "dir", w.dir, "stamp", stamp, "funds", len(outcomes))
	return nil
}

// replaceFile writes data next to path and renames it into place.
func replaceFile(fsys afero.Fs, path string, data []byte) error {
	tmp := path + ".tmp"
	if err := afero.WriteFile(fsys, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}
