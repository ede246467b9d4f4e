// Package sweep finds media files in the upload dir that no row points at.
// Uploads leaked by a crash between a file write and its transaction end up
// here.
package sweep

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"quizzarium-backend/internal/storage"
)

type column struct {
	Table string
	Name  string
}

// columns holding media refs
var columns = []column{
	{"users", "avatar"},
	{"categories", "image_url"},
	{"quizzes", "image_url"},
	{"questions", "media_url"},
	{"answers", "media_url"},
}

type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type Candidate struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Referenced returns the upload file names referenced by any row.
func Referenced(ctx context.Context, db Querier) (map[string]bool, error) {
	refs := make(map[string]bool)
	for _, col := range columns {
		query := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIKE $1", col.Name, col.Table, col.Name)
		rows, err := db.QueryContext(ctx, query, storage.PublicPrefix+"%")
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", col.Table, col.Name, err)
		}
		for rows.Next() {
			var ref string
			if err := rows.Scan(&ref); err != nil {
				rows.Close()
				return nil, fmt.Errorf("%s.%s: %w", col.Table, col.Name, err)
			}
			if name := fileName(ref); name != "" {
				refs[name] = true
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", col.Table, col.Name, err)
		}
	}
	return refs, nil
}

func fileName(ref string) string {
	if !strings.HasPrefix(ref, storage.PublicPrefix) {
		return ""
	}
	name := path.Base(strings.TrimPrefix(ref, storage.PublicPrefix))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// Unreferenced lists regular files in dir that are not in refs and were last
// modified before cutoff. Newer files may belong to a transaction still in
// flight.
func Unreferenced(dir string, refs map[string]bool, cutoff time.Time) ([]Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, e := range entries {
		if !e.Type().IsRegular() || refs[e.Name()] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		out = append(out, Candidate{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Remove deletes the candidates and returns how many were removed. Files that
// vanished in the meantime count as removed.
func Remove(dir string, cands []Candidate) (int, error) {
	removed := 0
	for _, c := range cands {
		err := os.Remove(filepath.Join(dir, c.Name))
		if err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", c.Name, err)
		}
		removed++
	}
	return removed, nil
}
