package services

import (
	"context"
	"errors"
	"testing"

	"quizzarium-backend/internal/apperrors"
	"quizzarium-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionAndAnswerCRUD(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := NewQuestionService(e.db, e.store)
	author := createUser(t, e.db, "author@example.com", models.RoleClient)
	other := createUser(t, e.db, "other@example.com", models.RoleClient)

	quiz, err := e.quizzes.Create(ctx, author, CreateQuizInput{Title: "t", Questions: twoByTwo()})
	require.NoError(t, err)

	_, err = svc.CreateQuestion(ctx, other, quiz.ID, QuestionInput{Text: "mine now"})
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	q, err := svc.CreateQuestion(ctx, author, quiz.ID, QuestionInput{
		Text:    "Third",
		Media:   png("q"),
		Answers: []AnswerInput{{Text: "a", IsCorrect: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, q.Position)
	require.Len(t, q.Answers, 1)

	questions, err := svc.ListQuestions(ctx, quiz.ID)
	require.NoError(t, err)
	require.Len(t, questions, 3)
	assert.Equal(t, "Third", questions[2].Text)

	updated, err := svc.UpdateQuestion(ctx, author, quiz.ID, q.ID, QuestionInput{Text: "Third!", DeleteMedia: true})
	require.NoError(t, err)
	assert.Equal(t, "Third!", updated.Text)
	assert.Empty(t, updated.MediaURL)
	assert.False(t, e.fileExists(q.MediaURL))

	a, err := svc.CreateAnswer(ctx, author, quiz.ID, q.ID, AnswerInput{Text: "b", Media: png("b")})
	require.NoError(t, err)
	assert.True(t, e.fileExists(a.MediaURL))

	a2, err := svc.UpdateAnswer(ctx, author, quiz.ID, q.ID, a.ID, AnswerInput{Text: "b!", IsCorrect: true})
	require.NoError(t, err)
	assert.Equal(t, a.MediaURL, a2.MediaURL)
	assert.True(t, a2.IsCorrect)

	answers, err := svc.ListAnswers(ctx, quiz.ID, q.ID)
	require.NoError(t, err)
	assert.Len(t, answers, 2)

	// answers are scoped to their question
	_, err = svc.UpdateAnswer(ctx, author, quiz.ID, quiz.Questions[0].ID, a.ID, AnswerInput{Text: "x"})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	require.NoError(t, svc.DeleteAnswer(ctx, author, quiz.ID, q.ID, a.ID))
	assert.False(t, e.fileExists(a.MediaURL))

	require.NoError(t, svc.DeleteQuestion(ctx, author, quiz.ID, q.ID))
	_, err = svc.GetQuestion(ctx, quiz.ID, q.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, int64(4), count(t, e.db, &models.Answer{}))

	_, err = svc.ListQuestions(ctx, 99)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
