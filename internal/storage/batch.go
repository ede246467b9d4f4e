package storage

import (
	"context"
	"log"
)

// Batch tracks the file side effects of one database transaction. Files
// stored through the batch are removed on Rollback; files marked obsolete are
// removed on Commit. Removal is best effort, leftovers are collected by the
// media sweep.
type Batch struct {
	store    Store
	stored   []string
	obsolete []string
}

func NewBatch(store Store) *Batch {
	return &Batch{store: store}
}

// Put stores f and remembers the ref for rollback. A nil file is a no-op.
func (b *Batch) Put(ctx context.Context, f *File) (string, error) {
	if f == nil {
		return "", nil
	}
	if err := Validate(f, 0); err != nil {
		return "", err
	}
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	ref, err := b.store.Save(ctx, f.Name, rc)
	if err != nil {
		return "", err
	}
	b.stored = append(b.stored, ref)
	return ref, nil
}

// Obsolete schedules ref for deletion once the transaction commits.
func (b *Batch) Obsolete(refs ...string) {
	for _, ref := range refs {
		if ref != "" {
			b.obsolete = append(b.obsolete, ref)
		}
	}
}

func (b *Batch) Stored() []string  { return b.stored }
func (b *Batch) Pending() []string { return b.obsolete }

func (b *Batch) Commit(ctx context.Context) {
	b.remove(ctx, b.obsolete)
	b.stored, b.obsolete = nil, nil
}

func (b *Batch) Rollback(ctx context.Context) {
	b.remove(ctx, b.stored)
	b.stored, b.obsolete = nil, nil
}

func (b *Batch) remove(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if err := b.store.Delete(ctx, ref); err != nil {
			log.Printf("[Storage] failed to remove %s: %v", ref, err)
		}
	}
}
