package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/logger"
	"pocketledger/internal/models"
)

// categoryService resolves free-text labels to shared categories.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// WithTx returns a service bound to tx.
func (s *categoryService) WithTx(tx *gorm.DB) CategoryServicer {
	return &categoryService{db: tx}
}

// FindOrCreate returns the category with the given value, creating it for
// ownerID when no such category exists yet. The unique index on value decides
// concurrent inserts; the loser reads back the winner's row.
func (s *categoryService) FindOrCreate(label, ownerID string) (*models.Category, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
	}

	category, err := s.findByValue(label)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	category = &models.Category{Value: label, CreatedBy: ownerID}
	if err := s.db.Create(category).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		logger.Get().Debugw("category created concurrently, reading back", "value", label)
		existing, findErr := s.findByValue(label)
		if findErr != nil {
			return nil, apperrors.Wrap(apperrors.ErrDuplicateCategory, findErr)
		}
		return existing, nil
	}

	return category, nil
}

func (s *categoryService) findByValue(value string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("value = ?", value).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// GetCategories returns the categories created by ownerID, oldest first, and their count.
func (s *categoryService) GetCategories(ownerID string) ([]models.Category, int64, error) {
	var categories []models.Category
	if err := s.db.Where("created_by = ?", ownerID).
		Order("created_at ASC").Order("id ASC").
		Find(&categories).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, int64(len(categories)), nil
}
