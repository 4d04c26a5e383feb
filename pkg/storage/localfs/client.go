package localfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client performs blob reads/writes against local disk. Directories are
// provisioned ahead of time; Write refuses to create them so that a
// misconfigured root fails loudly instead of scattering files.
type Client struct{}

// FileInfo describes one stored blob.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

func NewClient() *Client {
	return &Client{}
}

// Write stores data under dir/name. The directory must already exist and the
// name must be a fresh one; an existing file is treated as an error because
// generated filenames never repeat.
func (c *Client) Write(dir, name string, data []byte) error {
	path, err := joinSafe(dir, name)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// EnsureDir creates the directory (and parents) if missing.
func (c *Client) EnsureDir(dir string) error {
	if dir == "" {
		return errors.New("directory path required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir %s: %w", dir, err)
	}
	return nil
}

// Open returns a reader for the stored blob.
func (c *Client) Open(dir, name string) (io.ReadSeekCloser, error) {
	path, err := joinSafe(dir, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// Remove unlinks the stored blob. Removing a file that is already gone is not
// an error; reclamation is best-effort and may race with itself.
func (c *Client) Remove(dir, name string) error {
	path, err := joinSafe(dir, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// Exists reports whether the blob is present on disk.
func (c *Client) Exists(dir, name string) (bool, error) {
	path, err := joinSafe(dir, name)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return true, nil
}

// List enumerates regular files directly under dir.
func (c *Client) List(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	infos := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		infos = append(infos, FileInfo{
			Name:    info.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return infos, nil
}

func joinSafe(dir, name string) (string, error) {
	if dir == "" {
		return "", errors.New("directory path required")
	}
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	return filepath.Join(dir, name), nil
}
