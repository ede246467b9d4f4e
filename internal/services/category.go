package services

import (
	"context"
	"fmt"
	"strings"

	"quizzarium-backend/internal/apperrors"
	"quizzarium-backend/internal/identity"
	"quizzarium-backend/internal/models"
	"quizzarium-backend/internal/storage"

	"gorm.io/gorm"
)

type CategoryInput struct {
	Name        string `validate:"required,max=255"`
	Description string `validate:"required"`
	Image       *storage.File
}

type CategoryService struct {
	db    *gorm.DB
	store storage.Store
}

func NewCategoryService(db *gorm.DB, store storage.Store) *CategoryService {
	return &CategoryService{db: db, store: store}
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *CategoryService) Get(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, notFound(err, "category %d", id)
	}
	return &category, nil
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*models.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var category models.Category
	batch := storage.NewBatch(s.store)
	err := withTx(ctx, s.db, batch, func(tx *gorm.DB) error {
		if err := identity.Lock(tx, "categories"); err != nil {
			return err
		}
		id, err := identity.Next(tx, "categories")
		if err != nil {
			return err
		}
		image, err := batch.Put(ctx, in.Image)
		if err != nil {
			return err
		}
		category = models.Category{ID: id, Name: in.Name, Description: in.Description, ImageURL: image}
		return tx.Create(&category).Error
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// Update changes the non-empty fields and replaces the image when one is
// uploaded.
func (s *CategoryService) Update(ctx context.Context, id uint, in CategoryInput) (*models.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if len(in.Name) > 255 {
		return nil, fmt.Errorf("%w: name is longer than 255 characters", apperrors.ErrValidation)
	}

	var category models.Category
	batch := storage.NewBatch(s.store)
	err := withTx(ctx, s.db, batch, func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&category, id).Error; err != nil {
			return notFound(err, "category %d", id)
		}
		if in.Name != "" {
			category.Name = in.Name
		}
		if in.Description != "" {
			category.Description = in.Description
		}
		image, err := replaceMedia(ctx, batch, category.ImageURL, in.Image, false)
		if err != nil {
			return err
		}
		category.ImageURL = image
		return tx.Save(&category).Error
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// Delete detaches the category's quizzes, removes it and re-packs the
// remaining category ids.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	batch := storage.NewBatch(s.store)
	return withTx(ctx, s.db, batch, func(tx *gorm.DB) error {
		if err := identity.Lock(tx, "categories"); err != nil {
			return err
		}
		var category models.Category
		if err := forUpdate(tx).First(&category, id).Error; err != nil {
			return notFound(err, "category %d", id)
		}
		if err := tx.Model(&models.Quiz{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Delete(&category).Error; err != nil {
			return err
		}
		batch.Obsolete(category.ImageURL)
		_, err := identity.Repack(tx, "categories")
		return err
	})
}
