package repository

import (
    "context"

    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
)

type FavoriRepo struct{ DB *gorm.DB }

func NewFavoriRepo(db *gorm.DB) *FavoriRepo { return &FavoriRepo{DB: db} }

// Add bookmarks a service.  ErrConflict means the pair already exists.
func (r *FavoriRepo) Add(ctx context.Context, userID, serviceID uint64) (model.Favori, error) {
    f := model.Favori{UserID: userID, ServiceID: serviceID}
    res := r.DB.WithContext(ctx).Omit(clause.Associations).
        Clauses(clause.OnConflict{DoNothing: true}).
        Create(&f)
    if res.Error != nil {
        if isDuplicate(res.Error) {
            return f, ErrConflict
        }
        return f, res.Error
    }
    if res.RowsAffected == 0 {
        return f, ErrConflict
    }
    return f, nil
}

// Remove deletes a bookmark.  ErrNotFound means there was none.
func (r *FavoriRepo) Remove(ctx context.Context, userID, serviceID uint64) error {
    res := r.DB.WithContext(ctx).Where("user_id = ? AND service_id = ?", userID, serviceID).Delete(&model.Favori{})
    if res.Error != nil {
        return res.Error
    }
    if res.RowsAffected == 0 {
        return ErrNotFound
    }
    return nil
}

// List returns a user's bookmarks with their services, newest first.
func (r *FavoriRepo) List(ctx context.Context, userID uint64, p Page) (Paged[model.Favori], error) {
    q := r.DB.WithContext(ctx).Model(&model.Favori{}).Where("user_id = ?", userID)
    return paginate[model.Favori](q, p, func(db *gorm.DB) *gorm.DB {
        return db.Preload("Service").Preload("Service.Category").Order("created_at DESC").Order("id DESC")
    })
}
