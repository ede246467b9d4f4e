package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// PublicPrefix is the URL path the server mounts the upload dir under.
const PublicPrefix = "/uploads/"

type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(filename))

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return PublicPrefix + name, nil
}

func (s *DiskStore) Delete(_ context.Context, ref string) error {
	name, ok := localName(ref)
	if !ok {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// localName extracts the file name from a /uploads/<name> ref.
func localName(ref string) (string, bool) {
	if !strings.HasPrefix(ref, PublicPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(ref, PublicPrefix)
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", false
	}
	return name, true
}
