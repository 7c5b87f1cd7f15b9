package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileConfig configures the rotating log file used by OutputFile
type FileConfig struct {
	// Path of the active log file
	Path string

	// MaxSizeMB rotates the file once it would grow past this size. Defaults to 100.
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept. 0 keeps all.
	MaxBackups int

	// MaxAgeDays removes rotated files older than this. 0 disables the check.
	MaxAgeDays int
}

// fileWriter appends to a log file and rotates it by size
type fileWriter struct {
	cfg FileConfig
	now func() time.Time

	mu   sync.Mutex
	file *os.File
	size int64
}

func newFileWriter(cfg FileConfig) (*fileWriter, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("log file path is required")
	}
	w := &fileWriter{cfg: cfg, now: time.Now}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write implements io.Writer
func (w *fileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}
	if w.size > 0 && w.size+int64(len(p)) > w.maxBytes() {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Sync implements zapcore.WriteSyncer
func (w *fileWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close implements io.Closer
func (w *fileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.close()
}

func (w *fileWriter) maxBytes() int64 {
	if w.cfg.MaxSizeMB <= 0 {
		return 100 << 20
	}
	return int64(w.cfg.MaxSizeMB) << 20
}

func (w *fileWriter) open() error {
	if err := os.MkdirAll(filepath.Dir(w.cfg.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(w.cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	w.file = f
	w.size = info.Size()
	return nil
}

func (w *fileWriter) close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.size = 0
	return err
}

// rotate renames the active file to a timestamped backup and prunes old
// backups. Called with mu held.
func (w *fileWriter) rotate() error {
	if err := w.close(); err != nil {
		return err
	}
	if err := os.Rename(w.cfg.Path, w.backupName()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	if err := w.open(); err != nil {
		return err
	}
	w.prune()
	return nil
}

func (w *fileWriter) split() (dir, name, ext string) {
	dir = filepath.Dir(w.cfg.Path)
	base := filepath.Base(w.cfg.Path)
	ext = filepath.Ext(base)
	return dir, base[:len(base)-len(ext)], ext
}

func (w *fileWriter) backupName() string {
	dir, name, ext := w.split()
	stamp := w.now().UTC().Format("2006-01-02T15-04-05.000000000")
	return filepath.Join(dir, name+"-"+stamp+ext)
}

type backup struct {
	path    string
	modTime time.Time
}

// backups lists rotated files, newest first
func (w *fileWriter) backups() ([]backup, error) {
	dir, name, ext := w.split()
	matches, err := filepath.Glob(filepath.Join(dir, name+"-*"+ext))
	if err != nil {
		return nil, err
	}

	out := make([]backup, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		out = append(out, backup{path: m, modTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].modTime.Equal(out[j].modTime) {
			return out[i].path > out[j].path
		}
		return out[i].modTime.After(out[j].modTime)
	})
	return out, nil
}

func (w *fileWriter) prune() {
	backups, err := w.backups()
	if err != nil {
		return
	}

	if w.cfg.MaxBackups > 0 && len(backups) > w.cfg.MaxBackups {
		for _, b := range backups[w.cfg.MaxBackups:] {
			_ = os.Remove(b.path)
		}
		backups = backups[:w.cfg.MaxBackups]
	}

	if w.cfg.MaxAgeDays > 0 {
		cutoff := w.now().AddDate(0, 0, -w.cfg.MaxAgeDays)
		for _, b := range backups {
			if b.modTime.Before(cutoff) {
				_ = os.Remove(b.path)
			}
		}
	}
}

var _ io.WriteCloser = (*fileWriter)(nil)
