package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"quizzarium-backend/internal/apperrors"
	"quizzarium-backend/internal/cache"
	"quizzarium-backend/internal/identity"
	"quizzarium-backend/internal/models"
	"quizzarium-backend/internal/storage"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnswerInput describes one answer of a desired question. MediaURL carries a
// previously stored ref the client wants to keep.
type AnswerInput struct {
	Text        string        `json:"text" validate:"required"`
	IsCorrect   bool          `json:"is_correct"`
	MediaURL    string        `json:"media_url"`
	DeleteMedia bool          `json:"delete_media"`
	Media       *storage.File `json:"-"`
}

// QuestionInput describes one desired question. On update, ID > 0 names an
// existing question of the quiz and ID <= 0 asks for a new one.
type QuestionInput struct {
	ID          int64         `json:"question_id"`
	Text        string        `json:"text" validate:"required"`
	DeleteMedia bool          `json:"delete_media"`
	Media       *storage.File `json:"-"`
	Answers     []AnswerInput `json:"answers" validate:"dive"`
}

// UnmarshalJSON also reads "media_url": null as a request to drop the
// question's media.
func (q *QuestionInput) UnmarshalJSON(data []byte) error {
	type plain QuestionInput
	var wire struct {
		plain
		MediaURL json.RawMessage `json:"media_url"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*q = QuestionInput(wire.plain)
	if bytes.Equal(bytes.TrimSpace(wire.MediaURL), []byte("null")) {
		q.DeleteMedia = true
	}
	return nil
}

type CreateQuizInput struct {
	Title       string `validate:"required,max=255"`
	Description string
	CategoryID  *uint
	OwnerID     uint
	Image       *storage.File
	Questions   []QuestionInput `validate:"dive"`
}

type QuizService struct {
	db    *gorm.DB
	store storage.Store
	cache cache.LeaderboardCache
}

func NewQuizService(db *gorm.DB, store storage.Store, lb cache.LeaderboardCache) *QuizService {
	return &QuizService{db: db, store: store, cache: lb}
}

func preloadGraph(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
}

func (s *QuizService) List(ctx context.Context) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	if err := preloadGraph(s.db.WithContext(ctx)).Order("id ASC").Find(&quizzes).Error; err != nil {
		return nil, err
	}
	return quizzes, nil
}

// ListByUser returns the quizzes authored by userID. Only the user and admins
// may list them.
func (s *QuizService) ListByUser(ctx context.Context, actor Actor, userID uint) ([]models.Quiz, error) {
	if !actor.canModify(userID) {
		return nil, fmt.Errorf("%w: cannot list another user's quizzes", apperrors.ErrForbidden)
	}
	var quizzes []models.Quiz
	err := preloadGraph(s.db.WithContext(ctx)).Where("user_id = ?", userID).Order("id ASC").Find(&quizzes).Error
	if err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (s *QuizService) ListByCategory(ctx context.Context, categoryID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	if err := s.db.WithContext(ctx).Where("category_id = ?", categoryID).Order("id ASC").Find(&quizzes).Error; err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (s *QuizService) Get(ctx context.Context, quizID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := preloadGraph(s.db.WithContext(ctx)).First(&quiz, quizID).Error; err != nil {
		return nil, notFound(err, "quiz %d", quizID)
	}
	return &quiz, nil
}

// Create builds the whole quiz graph in one transaction under a freshly
// allocated dense id.
func (s *QuizService) Create(ctx context.Context, actor Actor, in CreateQuizInput) (*models.Quiz, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	ownerID := actor.UserID
	if in.OwnerID != 0 && in.OwnerID != actor.UserID {
		if !actor.IsAdmin() {
			return nil, fmt.Errorf("%w: only an admin may create a quiz for another user", apperrors.ErrForbidden)
		}
		ownerID = in.OwnerID
	}

	var quizID uint
	batch := storage.NewBatch(s.store)
	err := withTx(ctx, s.db, batch, func(tx *gorm.DB) error {
		if err := requireExists(tx, &models.User{}, ownerID, "user"); err != nil {
			return err
		}
		if in.CategoryID != nil {
			if err := requireExists(tx, &models.Category{}, *in.CategoryID, "category"); err != nil {
				return err
			}
		}

		if err := identity.Lock(tx, "quizzes"); err != nil {
			return err
		}
		id, err := identity.Next(tx, "quizzes")
		if err != nil {
			return err
		}

		image, err := batch.Put(ctx, in.Image)
		if err != nil {
			return err
		}

		quiz := models.Quiz{
			ID:          id,
			Title:       in.Title,
			Description: in.Description,
			ImageURL:    image,
			UserID:      ownerID,
			CategoryID:  in.CategoryID,
		}
		if err := tx.Omit(clause.Associations).Create(&quiz).Error; err != nil {
			return err
		}

		for i, q := range in.Questions {
			if _, err := insertQuestion(ctx, tx, batch, quiz.ID, i, q); err != nil {
				return fmt.Errorf("question %d: %w", i, err)
			}
		}
		quizID = quiz.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[QuizService] quiz %d created by user %d with %d questions", quizID, ownerID, len(in.Questions))
	return s.Get(ctx, quizID)
}

// Delete removes the quiz (questions, answers and results cascade) and
// re-packs the remaining quiz ids.
func (s *QuizService) Delete(ctx context.Context, actor Actor, quizID uint) error {
	var remaps []identity.Remap
	batch := storage.NewBatch(s.store)
	err := withTx(ctx, s.db, batch, func(tx *gorm.DB) error {
		if err := identity.Lock(tx, "quizzes"); err != nil {
			return err
		}

		var quiz models.Quiz
		if err := preloadGraph(forUpdate(tx)).First(&quiz, quizID).Error; err != nil {
			return notFound(err, "quiz %d", quizID)
		}
		if !actor.canModify(quiz.UserID) {
			return fmt.Errorf("%w: not the owner of quiz %d", apperrors.ErrForbidden, quizID)
		}
		batch.Obsolete(quiz.MediaRefs()...)

		if err := tx.Delete(&models.Quiz{}, quizID).Error; err != nil {
			return err
		}
		var err error
		remaps, err = identity.Repack(tx, "quizzes")
		return err
	})
	if err != nil {
		return err
	}

	if len(remaps) > 0 {
		logCacheErr("flush", s.cache.Flush(ctx))
	} else {
		logCacheErr("invalidate", s.cache.Invalidate(ctx, quizID))
	}
	return nil
}

func requireExists(tx *gorm.DB, model interface{}, id uint, what string) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %s %d", apperrors.ErrNotFound, what, id)
	}
	return nil
}

func insertQuestion(ctx context.Context, tx *gorm.DB, batch *storage.Batch, quizID uint, position int, in QuestionInput) (*models.Question, error) {
	media, err := batch.Put(ctx, in.Media)
	if err != nil {
		return nil, err
	}
	question := models.Question{
		QuizID:   quizID,
		Text:     in.Text,
		MediaURL: media,
		Position: position,
	}
	if err := tx.Omit(clause.Associations).Create(&question).Error; err != nil {
		return nil, err
	}
	for j, a := range in.Answers {
		if _, err := insertAnswer(ctx, tx, batch, question.ID, a, ""); err != nil {
			return nil, fmt.Errorf("answer %d: %w", j, err)
		}
	}
	return &question, nil
}

// insertAnswer stores the answer's upload if any, otherwise keeps the given
// ref.
func insertAnswer(ctx context.Context, tx *gorm.DB, batch *storage.Batch, questionID uint, in AnswerInput, keep string) (*models.Answer, error) {
	media := keep
	if in.Media != nil {
		ref, err := batch.Put(ctx, in.Media)
		if err != nil {
			return nil, err
		}
		media = ref
	}
	answer := models.Answer{
		QuestionID: questionID,
		Text:       in.Text,
		MediaURL:   media,
		IsCorrect:  in.IsCorrect,
	}
	if err := tx.Create(&answer).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}
