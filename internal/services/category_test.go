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

func TestCategoryRepackOnDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	categories := NewCategoryService(e.db, e.store)
	author := createUser(t, e.db, "author@example.com", models.RoleClient)

	for _, name := range []string{"Science", "History", "Art"} {
		_, err := categories.Create(ctx, CategoryInput{Name: name, Description: name + " quizzes"})
		require.NoError(t, err)
	}
	history, art := uint(2), uint(3)
	inHistory, err := e.quizzes.Create(ctx, author, CreateQuizInput{Title: "Rome", CategoryID: &history})
	require.NoError(t, err)
	inArt, err := e.quizzes.Create(ctx, author, CreateQuizInput{Title: "Monet", CategoryID: &art, Questions: twoByTwo()})
	require.NoError(t, err)
	_, _, _, before := contentOf(inArt)

	require.NoError(t, categories.Delete(ctx, history))

	list, err := categories.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, uint(1), list[0].ID)
	assert.Equal(t, "Science", list[0].Name)
	assert.Equal(t, uint(2), list[1].ID)
	assert.Equal(t, "Art", list[1].Name)

	rome, err := e.quizzes.Get(ctx, inHistory.ID)
	require.NoError(t, err)
	assert.Nil(t, rome.CategoryID)

	monet, err := e.quizzes.Get(ctx, inArt.ID)
	require.NoError(t, err)
	require.NotNil(t, monet.CategoryID)
	assert.Equal(t, uint(2), *monet.CategoryID)

	// question and answer ids are not touched by a category re-pack
	_, _, _, after := contentOf(monet)
	assert.Equal(t, before, after)
	var answerIDs []uint
	for _, q := range inArt.Questions {
		for _, a := range q.Answers {
			answerIDs = append(answerIDs, a.ID)
		}
	}
	var stored []uint
	require.NoError(t, e.db.Model(&models.Answer{}).Order("id ASC").Pluck("id", &stored).Error)
	assert.Equal(t, answerIDs, stored)

	byCategory, err := e.quizzes.ListByCategory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "Monet", byCategory[0].Title)

	created, err := categories.Create(ctx, CategoryInput{Name: "Music", Description: "notes"})
	require.NoError(t, err)
	assert.Equal(t, uint(3), created.ID)
}

func TestCategoryValidationAndImage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	categories := NewCategoryService(e.db, e.store)

	_, err := categories.Create(ctx, CategoryInput{Name: "No description"})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	c, err := categories.Create(ctx, CategoryInput{Name: "Art", Description: "paint", Image: png("art")})
	require.NoError(t, err)
	assert.True(t, e.fileExists(c.ImageURL))

	updated, err := categories.Update(ctx, c.ID, CategoryInput{Image: png("art2")})
	require.NoError(t, err)
	assert.Equal(t, "Art", updated.Name)
	assert.Equal(t, "paint", updated.Description)
	assert.False(t, e.fileExists(c.ImageURL))
	assert.True(t, e.fileExists(updated.ImageURL))

	require.NoError(t, categories.Delete(ctx, c.ID))
	assert.False(t, e.fileExists(updated.ImageURL))

	_, err = categories.Get(ctx, c.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
