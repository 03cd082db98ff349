package repository

import (
    "context"
    "strings"

    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
)

// ReferenceRepo serves the lookup tables (categories, zones, competences).
type ReferenceRepo struct{ DB *gorm.DB }

func NewReferenceRepo(db *gorm.DB) *ReferenceRepo { return &ReferenceRepo{DB: db} }

func (r *ReferenceRepo) Categories(ctx context.Context) ([]model.Category, error) {
    var out []model.Category
    err := r.DB.WithContext(ctx).Order("nom").Find(&out).Error
    return out, err
}

func (r *ReferenceRepo) Zones(ctx context.Context) ([]model.Zone, error) {
    var out []model.Zone
    err := r.DB.WithContext(ctx).Order("nom").Find(&out).Error
    return out, err
}

func (r *ReferenceRepo) Competences(ctx context.Context) ([]model.Competence, error) {
    var out []model.Competence
    err := r.DB.WithContext(ctx).Order("nom").Find(&out).Error
    return out, err
}

func (r *ReferenceRepo) CategoryExists(ctx context.Context, id uint64) (bool, error) {
    var n int64
    err := r.DB.WithContext(ctx).Model(&model.Category{}).Where("id = ?", id).Count(&n).Error
    return n > 0, err
}

// CategoryByName resolves a category by case-insensitive name.
func (r *ReferenceRepo) CategoryByName(ctx context.Context, name string) (model.Category, error) {
    var c model.Category
    err := r.DB.WithContext(ctx).Where("LOWER(nom) = ?", strings.ToLower(strings.TrimSpace(name))).First(&c).Error
    return c, notFound(err)
}

// CompetencesByIDs returns the competences with the given ids.
func (r *ReferenceRepo) CompetencesByIDs(ctx context.Context, ids []uint64) ([]model.Competence, error) {
    var out []model.Competence
    if len(ids) == 0 {
        return out, nil
    }
    err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
    return out, err
}

// Upsert inserts reference rows, leaving existing names untouched.
func (r *ReferenceRepo) Upsert(ctx context.Context, cats []model.Category, zones []model.Zone, comps []model.Competence) error {
    return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        skip := clause.OnConflict{Columns: []clause.Column{{Name: "nom"}}, DoNothing: true}
        if len(cats) > 0 {
            if err := tx.Clauses(skip).Create(&cats).Error; err != nil {
                return err
            }
        }
        if len(zones) > 0 {
            if err := tx.Clauses(skip).Create(&zones).Error; err != nil {
                return err
            }
        }
        if len(comps) > 0 {
            if err := tx.Clauses(skip).Create(&comps).Error; err != nil {
                return err
            }
        }
        return nil
    })
}
