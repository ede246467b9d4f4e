// Package identity assigns and re-packs dense ids (1..N) for tables whose
// primary key is not auto-incremented.
package identity

import (
	"fmt"
	"sort"

	"gorm.io/gorm"
)

// Remap moves a row from Old to New.
type Remap struct {
	Old uint
	New uint
}

// Allocate returns the smallest positive integer not present in existing.
func Allocate(existing []uint) uint {
	taken := make(map[uint]struct{}, len(existing))
	for _, id := range existing {
		taken[id] = struct{}{}
	}
	for id := uint(1); ; id++ {
		if _, ok := taken[id]; !ok {
			return id
		}
	}
}

// Plan numbers ordered ids 1..N and returns the pairs whose id changes.
// Callers may pass ids in any order.
func Plan(ordered []uint) []Remap {
	ids := append([]uint(nil), ordered...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var remaps []Remap
	for i, id := range ids {
		next := uint(i + 1)
		if id != next {
			remaps = append(remaps, Remap{Old: id, New: next})
		}
	}
	return remaps
}

// Next reads the ids of table inside tx and returns the id a new row should
// take.
func Next(tx *gorm.DB, table string) (uint, error) {
	ids, err := ids(tx, table)
	if err != nil {
		return 0, err
	}
	return Allocate(ids), nil
}

// Repack renumbers table's ids to 1..N keeping their relative order. Updates
// run in ascending order so the target id is always free. Children follow
// through ON UPDATE CASCADE foreign keys.
func Repack(tx *gorm.DB, table string) ([]Remap, error) {
	ids, err := ids(tx, table)
	if err != nil {
		return nil, err
	}
	remaps := Plan(ids)
	for _, r := range remaps {
		res := tx.Table(table).Where("id = ?", r.Old).Update("id", r.New)
		if res.Error != nil {
			return nil, fmt.Errorf("repack %s %d->%d: %w", table, r.Old, r.New, res.Error)
		}
	}
	return remaps, nil
}

// Lock serializes allocation and re-packing against other writers of table.
// Only PostgreSQL needs it; SQLite already holds a database-wide write lock
// inside a transaction.
func Lock(tx *gorm.DB, table string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	if err := tx.Exec(fmt.Sprintf("LOCK TABLE %s IN SHARE ROW EXCLUSIVE MODE", table)).Error; err != nil {
		return fmt.Errorf("lock %s: %w", table, err)
	}
	return nil
}

func ids(tx *gorm.DB, table string) ([]uint, error) {
	var out []uint
	if err := tx.Table(table).Order("id ASC").Pluck("id", &out).Error; err != nil {
		return nil, fmt.Errorf("read %s ids: %w", table, err)
	}
	return out, nil
}
