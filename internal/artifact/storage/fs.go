// Package storage reads and deletes session artifacts on local disk.
package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"sessionsale/internal/artifact/models"
	"sessionsale/pkg/platform/sentinel"
)

// DigestPrefix tags digests with their algorithm.
const DigestPrefix = "blake3:"

// FS resolves manifest paths under a single root directory.
type FS struct {
	root string
}

// NewFS returns storage rooted at root.
func NewFS(root string) *FS {
	return &FS{root: root}
}

func (f *FS) resolve(relPath string) (string, error) {
	clean, err := models.CleanPath(relPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.root, filepath.FromSlash(clean)), nil
}

// Read returns the file contents. A missing file is sentinel.ErrNotFound.
func (f *FS) Read(ctx context.Context, relPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := f.resolve(relPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("artifact %s: %w", relPath, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("read artifact %s: %w", relPath, err)
	}
	return data, nil
}

// Delete removes the file. Deleting a file that is already gone succeeds, so
// a retried cleanup never fails on work an earlier attempt finished.
func (f *FS) Delete(ctx context.Context, relPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := f.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete artifact %s: %w", relPath, err)
	}
	return nil
}

// DigestFile streams the file through BLAKE3.
func (f *FS) DigestFile(ctx context.Context, relPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := f.resolve(relPath)
	if err != nil {
		return "", err
	}
	file, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("artifact %s: %w", relPath, sentinel.ErrNotFound)
		}
		return "", fmt.Errorf("open artifact %s: %w", relPath, err)
	}
	defer file.Close()

	h := blake3.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("digest artifact %s: %w", relPath, err)
	}
	return DigestPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// Digest hashes data in memory.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return DigestPrefix + hex.EncodeToString(sum[:])
}
