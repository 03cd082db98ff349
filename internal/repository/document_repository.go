package repository

import (
    "context"
    "time"

    "gorm.io/gorm"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
)

type DocumentRepo struct{ DB *gorm.DB }

func NewDocumentRepo(db *gorm.DB) *DocumentRepo { return &DocumentRepo{DB: db} }

func (r *DocumentRepo) Create(ctx context.Context, d *model.Document) error {
    return r.DB.WithContext(ctx).Create(d).Error
}

func (r *DocumentRepo) GetByID(ctx context.Context, id uint64) (model.Document, error) {
    var d model.Document
    err := r.DB.WithContext(ctx).First(&d, id).Error
    return d, notFound(err)
}

// ListByOwner returns a professional's documents, newest first.
func (r *DocumentRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Document, error) {
    var out []model.Document
    err := r.DB.WithContext(ctx).Where("professionnel_id = ?", ownerID).
        Order("created_at DESC").Order("id DESC").Find(&out).Error
    return out, err
}

// ListPending returns documents awaiting review, oldest first.
func (r *DocumentRepo) ListPending(ctx context.Context, p Page) (Paged[model.Document], error) {
    q := r.DB.WithContext(ctx).Model(&model.Document{}).Where("statut = ?", model.DocumentPending)
    return paginate[model.Document](q, p, func(db *gorm.DB) *gorm.DB {
        return db.Order("created_at ASC").Order("id ASC")
    })
}

// Review records an admin decision.
func (r *DocumentRepo) Review(ctx context.Context, id, adminID uint64, statut, comment string, at time.Time) error {
    res := r.DB.WithContext(ctx).Model(&model.Document{}).Where("id = ?", id).
        Updates(map[string]any{
            "statut":          statut,
            "commentaire":     comment,
            "validated_by":    adminID,
            "date_validation": at,
        })
    if res.Error != nil {
        return res.Error
    }
    if res.RowsAffected == 0 {
        return ErrNotFound
    }
    return nil
}

// HasValid reports whether a professional owns a validated document of
// the given type.
func (r *DocumentRepo) HasValid(ctx context.Context, ownerID uint64, docType string) (bool, error) {
    var n int64
    err := r.DB.WithContext(ctx).Model(&model.Document{}).
        Where("professionnel_id = ? AND type = ? AND statut = ?", ownerID, docType, model.DocumentValid).
        Count(&n).Error
    return n > 0, err
}
