package storage

import (
	"chat-relay/contract"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var _ contract.IFileStore = DiskStore{}

// DiskStore writes uploaded attachments into a flat directory served under /uploads.
type DiskStore struct {
	dir string
	log *slog.Logger
}

func NewDiskStore(dir string, log *slog.Logger) DiskStore {
	return DiskStore{dir: dir, log: log}
}

func (d DiskStore) Dir() string {
	return d.dir
}

func (d DiskStore) Save(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid file name %q", name)
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	path := filepath.Join(d.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	d.log.Debug("Attachment stored", "path", path, "bytes", len(data))
	return nil
}
