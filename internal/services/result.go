package services

import (
	"context"
	"encoding/json"
	"time"

	"quizzarium-backend/internal/cache"
	"quizzarium-backend/internal/models"

	"gorm.io/gorm"
)

type LeaderboardEntry struct {
	Email          string    `json:"email"`
	UserID         uint      `json:"user_id"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
	Score          int       `json:"score"`
	CompletedAt    time.Time `json:"completed_at"`
}

type Leaderboard struct {
	QuizID      uint               `json:"quiz_id"`
	Title       string             `json:"title"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

type ResultService struct {
	db    *gorm.DB
	cache cache.LeaderboardCache
	now   func() time.Time
}

func NewResultService(db *gorm.DB, lb cache.LeaderboardCache) *ResultService {
	return &ResultService{db: db, cache: lb, now: time.Now}
}

// Submit records one attempt. Results are never updated afterwards.
func (s *ResultService) Submit(ctx context.Context, actor Actor, quizID uint, correct, total int) (*models.Result, error) {
	score, err := Score(correct, total)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := requireExists(db, &models.Quiz{}, quizID, "quiz"); err != nil {
		return nil, err
	}

	result := models.Result{
		UserID:         actor.UserID,
		QuizID:         quizID,
		CorrectAnswers: correct,
		TotalQuestions: total,
		Score:          score,
		CompletedAt:    s.now().UTC(),
	}
	if err := db.Omit("User", "Quiz").Create(&result).Error; err != nil {
		return nil, err
	}

	logCacheErr("invalidate", s.cache.Invalidate(ctx, quizID))
	return &result, nil
}

// Leaderboard ranks each user's most recent result by score, earlier
// completion first on ties.
func (s *ResultService) Leaderboard(ctx context.Context, quizID uint) (*Leaderboard, error) {
	if raw, ok, err := s.cache.Get(ctx, quizID); err != nil {
		logCacheErr("get", err)
	} else if ok {
		var lb Leaderboard
		if err := json.Unmarshal(raw, &lb); err == nil {
			return &lb, nil
		}
	}

	db := s.db.WithContext(ctx)
	var quiz models.Quiz
	if err := db.Select("id", "title").First(&quiz, quizID).Error; err != nil {
		return nil, notFound(err, "quiz %d", quizID)
	}

	var entries []LeaderboardEntry
	err := db.Table("results AS r").
		Select("u.email, r.user_id, r.correct_answers, r.total_questions, r.score, r.completed_at").
		Joins("JOIN users u ON u.id = r.user_id").
		Where("r.quiz_id = ?", quizID).
		Where("r.id = (SELECT r2.id FROM results r2 WHERE r2.user_id = r.user_id AND r2.quiz_id = r.quiz_id ORDER BY r2.completed_at DESC, r2.id DESC LIMIT 1)").
		Order("r.score DESC, r.completed_at ASC, r.user_id ASC").
		Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []LeaderboardEntry{}
	}

	lb := &Leaderboard{QuizID: quiz.ID, Title: quiz.Title, Leaderboard: entries}
	if raw, err := json.Marshal(lb); err == nil {
		logCacheErr("set", s.cache.Set(ctx, quizID, raw))
	}
	return lb, nil
}

// MyResult returns the caller's most recent result for the quiz.
func (s *ResultService) MyResult(ctx context.Context, actor Actor, quizID uint) (*models.Result, error) {
	var result models.Result
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ?", actor.UserID, quizID).
		Order("completed_at DESC, id DESC").
		First(&result).Error
	if err != nil {
		return nil, notFound(err, "no result for quiz %d", quizID)
	}
	return &result, nil
}

