package services

import (
	"context"
	"fmt"
	"log"

	"quizzarium-backend/internal/apperrors"
	"quizzarium-backend/internal/cache"
	"quizzarium-backend/internal/identity"
	"quizzarium-backend/internal/models"
	"quizzarium-backend/internal/storage"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	db    *gorm.DB
	store storage.Store
	cache cache.LeaderboardCache
}

func NewUserService(db *gorm.DB, store storage.Store, lb cache.LeaderboardCache) *UserService {
	return &UserService{db: db, store: store, cache: lb}
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, notFound(err, "user %d", userID)
	}
	return &user, nil
}

// ChangePassword requires the current password unless an admin changes
// someone else's password.
func (s *UserService) ChangePassword(ctx context.Context, actor Actor, userID uint, current, next string) error {
	if !actor.canModify(userID) {
		return fmt.Errorf("%w: cannot change another user's password", apperrors.ErrForbidden)
	}
	if len(next) < 6 || len(next) > 72 {
		return fmt.Errorf("%w: new password must be 6 to 72 characters", apperrors.ErrValidation)
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if actor.UserID == userID {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
			return fmt.Errorf("%w: current password is incorrect", apperrors.ErrUnauthorized)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(user).Update("password_hash", string(hash)).Error
}

func (s *UserService) UpdateAvatar(ctx context.Context, actor Actor, userID uint, avatar *storage.File) (*models.User, error) {
	if !actor.canModify(userID) {
		return nil, fmt.Errorf("%w: cannot change another user's avatar", apperrors.ErrForbidden)
	}
	if avatar == nil {
		return nil, fmt.Errorf("%w: avatar file is required", apperrors.ErrValidation)
	}

	var user models.User
	batch := storage.NewBatch(s.store)
	err := withTx(ctx, s.db, batch, func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&user, userID).Error; err != nil {
			return notFound(err, "user %d", userID)
		}
		ref, err := replaceMedia(ctx, batch, user.Avatar, avatar, false)
		if err != nil {
			return err
		}
		user.Avatar = ref
		return tx.Model(&user).Update("avatar", ref).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) SetRole(ctx context.Context, userID uint, role string) (*models.User, error) {
	if !models.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidation, role)
	}
	return s.update(ctx, userID, "role", role)
}

func (s *UserService) SetBlocked(ctx context.Context, actor Actor, userID uint, blocked bool) (*models.User, error) {
	if blocked && actor.UserID == userID {
		return nil, fmt.Errorf("%w: cannot block yourself", apperrors.ErrValidation)
	}
	return s.update(ctx, userID, "blocked", blocked)
}

func (s *UserService) update(ctx context.Context, userID uint, column string, value interface{}) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(user).Update(column, value).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes the user with tickets, results and authored quizzes, then
// re-packs quiz ids.
func (s *UserService) Delete(ctx context.Context, actor Actor, userID uint) error {
	if actor.UserID == userID {
		return fmt.Errorf("%w: cannot delete yourself", apperrors.ErrValidation)
	}

	var remaps []identity.Remap
	batch := storage.NewBatch(s.store)
	err := withTx(ctx, s.db, batch, func(tx *gorm.DB) error {
		if err := identity.Lock(tx, "quizzes"); err != nil {
			return err
		}

		var user models.User
		if err := forUpdate(tx).First(&user, userID).Error; err != nil {
			return notFound(err, "user %d", userID)
		}

		var quizzes []models.Quiz
		if err := tx.Where("user_id = ?", userID).Preload("Questions.Answers").Find(&quizzes).Error; err != nil {
			return err
		}
		for i := range quizzes {
			batch.Obsolete(quizzes[i].MediaRefs()...)
		}
		batch.Obsolete(user.Avatar)

		if err := tx.Where("user_id = ?", userID).Delete(&models.SupportTicket{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Result{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Quiz{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&user).Error; err != nil {
			return err
		}

		var err error
		remaps, err = identity.Repack(tx, "quizzes")
		return err
	})
	if err != nil {
		return err
	}

	log.Printf("[UserService] deleted user %d, %d quiz ids re-packed", userID, len(remaps))
	logCacheErr("flush", s.cache.Flush(ctx))
	return nil
}
