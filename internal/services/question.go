package services

import (
	"context"
	"fmt"

	"quizzarium-backend/internal/apperrors"
	"quizzarium-backend/internal/models"
	"quizzarium-backend/internal/storage"

	"gorm.io/gorm"
)

// QuestionService manages single questions and answers of an existing quiz.
// Mutations require the quiz owner or an admin.
type QuestionService struct {
	db    *gorm.DB
	store storage.Store
}

func NewQuestionService(db *gorm.DB, store storage.Store) *QuestionService {
	return &QuestionService{db: db, store: store}
}

func (s *QuestionService) ListQuestions(ctx context.Context, quizID uint) ([]models.Question, error) {
	db := s.db.WithContext(ctx)
	if err := requireExists(db, &models.Quiz{}, quizID, "quiz"); err != nil {
		return nil, err
	}
	var questions []models.Question
	err := db.Where("quiz_id = ?", quizID).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Order("position ASC, id ASC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *QuestionService) GetQuestion(ctx context.Context, quizID, questionID uint) (*models.Question, error) {
	var q models.Question
	err := s.db.WithContext(ctx).
		Where("id = ? AND quiz_id = ?", questionID, quizID).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&q).Error
	if err != nil {
		return nil, notFound(err, "question %d in quiz %d", questionID, quizID)
	}
	return &q, nil
}

// CreateQuestion appends a question with its answers at the end of the quiz.
func (s *QuestionService) CreateQuestion(ctx context.Context, actor Actor, quizID uint, in QuestionInput) (*models.Question, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var created *models.Question
	batch := storage.NewBatch(s.store)
	err := withTx(ctx, s.db, batch, func(tx *gorm.DB) error {
		if _, err := ownedQuiz(tx, actor, quizID); err != nil {
			return err
		}
		var next int
		if err := tx.Model(&models.Question{}).Where("quiz_id = ?", quizID).
			Select("COALESCE(MAX(position), -1) + 1").Scan(&next).Error; err != nil {
			return err
		}
		q, err := insertQuestion(ctx, tx, batch, quizID, next, in)
		created = q
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetQuestion(ctx, quizID, created.ID)
}

// UpdateQuestion changes text and media. Answers are managed separately.
func (s *QuestionService) UpdateQuestion(ctx context.Context, actor Actor, quizID, questionID uint, in QuestionInput) (*models.Question, error) {
	if in.Text == "" {
		return nil, fmt.Errorf("%w: text is required", apperrors.ErrValidation)
	}

	batch := storage.NewBatch(s.store)
	err := withTx(ctx, s.db, batch, func(tx *gorm.DB) error {
		if _, err := ownedQuiz(tx, actor, quizID); err != nil {
			return err
		}
		var q models.Question
		if err := tx.Where("id = ? AND quiz_id = ?", questionID, quizID).First(&q).Error; err != nil {
			return notFound(err, "question %d in quiz %d", questionID, quizID)
		}
		media, err := replaceMedia(ctx, batch, q.MediaURL, in.Media, in.DeleteMedia)
		if err != nil {
			return err
		}
		return tx.Model(&q).Updates(map[string]interface{}{"text": in.Text, "media_url": media}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetQuestion(ctx, quizID, questionID)
}

func (s *QuestionService) DeleteQuestion(ctx context.Context, actor Actor, quizID, questionID uint) error {
	batch := storage.NewBatch(s.store)
	return withTx(ctx, s.db, batch, func(tx *gorm.DB) error {
		if _, err := ownedQuiz(tx, actor, quizID); err != nil {
			return err
		}
		var q models.Question
		if err := tx.Where("id = ? AND quiz_id = ?", questionID, quizID).Preload("Answers").First(&q).Error; err != nil {
			return notFound(err, "question %d in quiz %d", questionID, quizID)
		}
		batch.Obsolete(q.MediaRefs()...)
		return tx.Delete(&q).Error
	})
}

func (s *QuestionService) ListAnswers(ctx context.Context, quizID, questionID uint) ([]models.Answer, error) {
	q, err := s.GetQuestion(ctx, quizID, questionID)
	if err != nil {
		return nil, err
	}
	return q.Answers, nil
}

func (s *QuestionService) CreateAnswer(ctx context.Context, actor Actor, quizID, questionID uint, in AnswerInput) (*models.Answer, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var created *models.Answer
	batch := storage.NewBatch(s.store)
	err := withTx(ctx, s.db, batch, func(tx *gorm.DB) error {
		if _, err := ownedQuestion(tx, actor, quizID, questionID); err != nil {
			return err
		}
		a, err := insertAnswer(ctx, tx, batch, questionID, in, "")
		created = a
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *QuestionService) UpdateAnswer(ctx context.Context, actor Actor, quizID, questionID, answerID uint, in AnswerInput) (*models.Answer, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var answer models.Answer
	batch := storage.NewBatch(s.store)
	err := withTx(ctx, s.db, batch, func(tx *gorm.DB) error {
		if _, err := ownedQuestion(tx, actor, quizID, questionID); err != nil {
			return err
		}
		if err := tx.Where("id = ? AND question_id = ?", answerID, questionID).First(&answer).Error; err != nil {
			return notFound(err, "answer %d in question %d", answerID, questionID)
		}
		media, err := replaceMedia(ctx, batch, answer.MediaURL, in.Media, in.DeleteMedia)
		if err != nil {
			return err
		}
		answer.Text = in.Text
		answer.IsCorrect = in.IsCorrect
		answer.MediaURL = media
		return tx.Model(&answer).Updates(map[string]interface{}{
			"text":       answer.Text,
			"is_correct": answer.IsCorrect,
			"media_url":  answer.MediaURL,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

func (s *QuestionService) DeleteAnswer(ctx context.Context, actor Actor, quizID, questionID, answerID uint) error {
	batch := storage.NewBatch(s.store)
	return withTx(ctx, s.db, batch, func(tx *gorm.DB) error {
		if _, err := ownedQuestion(tx, actor, quizID, questionID); err != nil {
			return err
		}
		var answer models.Answer
		if err := tx.Where("id = ? AND question_id = ?", answerID, questionID).First(&answer).Error; err != nil {
			return notFound(err, "answer %d in question %d", answerID, questionID)
		}
		batch.Obsolete(answer.MediaURL)
		return tx.Delete(&answer).Error
	})
}

func ownedQuiz(tx *gorm.DB, actor Actor, quizID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := forUpdate(tx).First(&quiz, quizID).Error; err != nil {
		return nil, notFound(err, "quiz %d", quizID)
	}
	if !actor.canModify(quiz.UserID) {
		return nil, fmt.Errorf("%w: not the owner of quiz %d", apperrors.ErrForbidden, quizID)
	}
	return &quiz, nil
}

func ownedQuestion(tx *gorm.DB, actor Actor, quizID, questionID uint) (*models.Question, error) {
	if _, err := ownedQuiz(tx, actor, quizID); err != nil {
		return nil, err
	}
	var q models.Question
	if err := tx.Where("id = ? AND quiz_id = ?", questionID, quizID).First(&q).Error; err != nil {
		return nil, notFound(err, "question %d in quiz %d", questionID, quizID)
	}
	return &q, nil
}
