package document

import (
	"errors"
	"strings"

	"github.com/syllabind/core/internal/models"
	"gorm.io/gorm"
)

// GormRepository backs the index with a syllabi table (sqlite or mysql).
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Append(record *models.SyllabusModel) error {
	err := r.db.Create(record).Error
	if err != nil && isDuplicateErr(err) {
		return ErrDuplicateSlug
	}
	return err
}

func (r *GormRepository) Find(slug string) (*models.SyllabusModel, error) {
	var record models.SyllabusModel
	if err := r.db.First(&record, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *GormRepository) All() ([]models.SyllabusModel, error) {
	var records []models.SyllabusModel
	err := r.db.Order("created_at ASC").Find(&records).Error
	return records, err
}

func (r *GormRepository) Remove(slugs []string) error {
	if len(slugs) == 0 {
		return nil
	}
	return r.db.Where("slug IN ?", slugs).Delete(&models.SyllabusModel{}).Error
}

func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
