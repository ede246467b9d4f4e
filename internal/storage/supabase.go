package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	storage_go "github.com/supabase-community/storage-go"
)

// SupabaseStore keeps media in a Supabase storage bucket and persists the
// public URL as the reference.
type SupabaseStore struct {
	client *storage_go.Client
	bucket string
}

func NewSupabaseStore(projectURL, apiKey, bucket string) *SupabaseStore {
	client := storage_go.NewClient(strings.TrimRight(projectURL, "/")+"/storage/v1", apiKey, nil)
	return &SupabaseStore{client: client, bucket: bucket}
}

func (s *SupabaseStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	contentType := http.DetectContentType(data)
	path := "media/" + uuid.NewString() + strings.ToLower(filepath.Ext(filename))

	if _, err := s.client.UploadFile(s.bucket, path, strings.NewReader(string(data)), storage_go.FileOptions{ContentType: &contentType}); err != nil {
		return "", fmt.Errorf("supabase upload %s: %w", path, err)
	}
	return s.client.GetPublicUrl(s.bucket, path).SignedURL, nil
}

func (s *SupabaseStore) Delete(_ context.Context, ref string) error {
	path, ok := s.objectPath(ref)
	if !ok {
		return nil
	}
	if _, err := s.client.RemoveFile(s.bucket, []string{path}); err != nil {
		return fmt.Errorf("supabase remove %s: %w", path, err)
	}
	return nil
}

func (s *SupabaseStore) objectPath(ref string) (string, bool) {
	marker := "/public/" + s.bucket + "/"
	i := strings.Index(ref, marker)
	if i < 0 {
		return "", false
	}
	return ref[i+len(marker):], true
}
