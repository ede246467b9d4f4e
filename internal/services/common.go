package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"quizzarium-backend/internal/apperrors"
	"quizzarium-backend/internal/models"
	"quizzarium-backend/internal/storage"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var validate = validator.New()

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uint
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// canModify reports whether the actor owns the resource or is an admin.
func (a Actor) canModify(ownerID uint) bool {
	return a.IsAdmin() || a.UserID == ownerID
}

func validateInput(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}
	return nil
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, fmt.Sprintf(format, args...))
	}
	return err
}

// forUpdate row-locks the selected rows on PostgreSQL.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() != "postgres" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// withTx runs fn in one transaction and settles the batch's files with it:
// stored files are removed when the transaction rolls back, obsolete files
// once it commits.
func withTx(ctx context.Context, db *gorm.DB, batch *storage.Batch, fn func(tx *gorm.DB) error) error {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			batch.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		batch.Rollback(ctx)
		return err
	}
	if err := tx.Commit().Error; err != nil {
		batch.Rollback(ctx)
		return err
	}
	batch.Commit(ctx)
	return nil
}

// replaceMedia applies the media rule: an upload replaces the current file,
// a clear flag drops it, otherwise the current ref is kept.
func replaceMedia(ctx context.Context, batch *storage.Batch, current string, upload *storage.File, clear bool) (string, error) {
	if upload != nil {
		ref, err := batch.Put(ctx, upload)
		if err != nil {
			return "", err
		}
		batch.Obsolete(current)
		return ref, nil
	}
	if clear {
		batch.Obsolete(current)
		return "", nil
	}
	return current, nil
}

func logCacheErr(op string, err error) {
	if err != nil {
		log.Printf("[LeaderboardCache] %s: %v", op, err)
	}
}
