package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"quizzarium-backend/internal/apperrors"
	"quizzarium-backend/internal/models"
	"quizzarium-backend/internal/storage"

	"gorm.io/gorm"
)

// UpdateQuizInput is the desired state of a quiz. Empty title or description
// and a nil category keep the current values. Questions not listed in
// Questions or DeletedQuestions keep their content and relative order.
type UpdateQuizInput struct {
	Title            string
	Description      string
	CategoryID       *uint
	Image            *storage.File
	DeleteImage      bool
	DeletedQuestions []uint
	Questions        []QuestionInput `validate:"dive"`
}

// Update reconciles the stored quiz graph with in inside one transaction.
// Kept and created questions get their answers fully replaced. Listed
// questions take the submitted order after the unlisted ones.
func (s *QuizService) Update(ctx context.Context, actor Actor, quizID uint, in UpdateQuizInput) (*models.Quiz, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if len(in.Title) > 255 {
		return nil, fmt.Errorf("%w: title is longer than 255 characters", apperrors.ErrValidation)
	}

	batch := storage.NewBatch(s.store)
	err := withTx(ctx, s.db, batch, func(tx *gorm.DB) error {
		quiz, err := ownedQuiz(tx, actor, quizID)
		if err != nil {
			return err
		}
		var questions []models.Question
		if err := tx.Where("quiz_id = ?", quizID).Preload("Answers").Find(&questions).Error; err != nil {
			return err
		}
		current := make(map[uint]*models.Question, len(questions))
		for i := range questions {
			current[questions[i].ID] = &questions[i]
		}

		if err := s.applyQuizFields(ctx, tx, batch, quiz, in); err != nil {
			return err
		}

		deleted := make(map[uint]bool, len(in.DeletedQuestions))
		for _, id := range in.DeletedQuestions {
			q, ok := current[id]
			if !ok || deleted[id] {
				continue
			}
			batch.Obsolete(q.MediaRefs()...)
			if err := tx.Delete(&models.Question{}, id).Error; err != nil {
				return err
			}
			deleted[id] = true
		}

		listed, err := listedQuestions(in.Questions, current, deleted, quizID)
		if err != nil {
			return err
		}

		// unlisted questions keep their relative order ahead of the listed ones
		var unlisted []models.Question
		for _, q := range questions {
			if !deleted[q.ID] && !listed[q.ID] {
				unlisted = append(unlisted, q)
			}
		}
		sort.SliceStable(unlisted, func(i, j int) bool {
			if unlisted[i].Position != unlisted[j].Position {
				return unlisted[i].Position < unlisted[j].Position
			}
			return unlisted[i].ID < unlisted[j].ID
		})
		for pos, q := range unlisted {
			if q.Position == pos {
				continue
			}
			if err := tx.Model(&models.Question{}).Where("id = ?", q.ID).Update("position", pos).Error; err != nil {
				return err
			}
		}

		base := len(unlisted)
		for i, qi := range in.Questions {
			if qi.ID <= 0 {
				if _, err := insertQuestion(ctx, tx, batch, quizID, base+i, qi); err != nil {
					return fmt.Errorf("question %d: %w", i, err)
				}
				continue
			}
			if err := updateQuestion(ctx, tx, batch, current[uint(qi.ID)], base+i, qi); err != nil {
				return fmt.Errorf("question %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[QuizService] quiz %d updated by user %d", quizID, actor.UserID)
	logCacheErr("invalidate", s.cache.Invalidate(ctx, quizID))
	return s.Get(ctx, quizID)
}

// listedQuestions checks that every existing question id in desired is a
// current, non-deleted question of the quiz named at most once.
func listedQuestions(desired []QuestionInput, current map[uint]*models.Question, deleted map[uint]bool, quizID uint) (map[uint]bool, error) {
	listed := make(map[uint]bool, len(desired))
	for _, qi := range desired {
		if qi.ID <= 0 {
			continue
		}
		id := uint(qi.ID)
		if _, ok := current[id]; !ok || deleted[id] {
			return nil, fmt.Errorf("%w: question %d does not belong to quiz %d", apperrors.ErrValidation, qi.ID, quizID)
		}
		if listed[id] {
			return nil, fmt.Errorf("%w: question %d is listed twice", apperrors.ErrValidation, qi.ID)
		}
		listed[id] = true
	}
	return listed, nil
}

func (s *QuizService) applyQuizFields(ctx context.Context, tx *gorm.DB, batch *storage.Batch, quiz *models.Quiz, in UpdateQuizInput) error {
	if in.CategoryID != nil {
		if err := requireExists(tx, &models.Category{}, *in.CategoryID, "category"); err != nil {
			return err
		}
		quiz.CategoryID = in.CategoryID
	}
	if in.Title != "" {
		quiz.Title = in.Title
	}
	if in.Description != "" {
		quiz.Description = in.Description
	}
	image, err := replaceMedia(ctx, batch, quiz.ImageURL, in.Image, in.DeleteImage)
	if err != nil {
		return err
	}
	quiz.ImageURL = image

	return tx.Model(&models.Quiz{}).Where("id = ?", quiz.ID).Updates(map[string]interface{}{
		"title":       quiz.Title,
		"description": quiz.Description,
		"category_id": quiz.CategoryID,
		"image_url":   quiz.ImageURL,
		"updated_at":  time.Now(),
	}).Error
}

func updateQuestion(ctx context.Context, tx *gorm.DB, batch *storage.Batch, q *models.Question, position int, in QuestionInput) error {
	media, err := replaceMedia(ctx, batch, q.MediaURL, in.Media, in.DeleteMedia)
	if err != nil {
		return err
	}
	err = tx.Model(&models.Question{}).Where("id = ?", q.ID).Updates(map[string]interface{}{
		"text":      in.Text,
		"media_url": media,
		"position":  position,
	}).Error
	if err != nil {
		return err
	}
	return replaceAnswers(ctx, tx, batch, q, in.Answers)
}

// replaceAnswers deletes every answer of q and inserts answers in order. An
// answer may keep a media ref only when one of q's previous answers held it,
// and each ref goes to one answer at most. Previous media that is not carried
// over becomes obsolete.
func replaceAnswers(ctx context.Context, tx *gorm.DB, batch *storage.Batch, q *models.Question, answers []AnswerInput) error {
	previous := make(map[string]bool)
	for _, a := range q.Answers {
		if a.MediaURL != "" {
			previous[a.MediaURL] = true
		}
	}

	if err := tx.Where("question_id = ?", q.ID).Delete(&models.Answer{}).Error; err != nil {
		return err
	}

	carried := make(map[string]bool)
	for j, a := range answers {
		keep := ""
		if a.Media == nil && !a.DeleteMedia && a.MediaURL != "" {
			if !previous[a.MediaURL] {
				return fmt.Errorf("%w: answer %d references unknown media %s", apperrors.ErrValidation, j, a.MediaURL)
			}
			if carried[a.MediaURL] {
				return fmt.Errorf("%w: answer %d reuses media %s", apperrors.ErrValidation, j, a.MediaURL)
			}
			keep = a.MediaURL
			carried[keep] = true
		}
		if _, err := insertAnswer(ctx, tx, batch, q.ID, a, keep); err != nil {
			return fmt.Errorf("answer %d: %w", j, err)
		}
	}

	for ref := range previous {
		if !carried[ref] {
			batch.Obsolete(ref)
		}
	}
	return nil
}
