package services

import (
	"fmt"
	"math"

	"quizzarium-backend/internal/apperrors"
)

// Score returns round(correct/total*100).
func Score(correct, total int) (int, error) {
	if total <= 0 {
		return 0, fmt.Errorf("%w: total_questions must be positive", apperrors.ErrValidation)
	}
	if correct < 0 || correct > total {
		return 0, fmt.Errorf("%w: correct_answers must be between 0 and %d", apperrors.ErrValidation, total)
	}
	return int(math.Round(float64(correct) / float64(total) * 100)), nil
}
