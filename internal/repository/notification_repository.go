package repository

import (
    "context"
    "time"

    "gorm.io/gorm"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
)

type NotificationRepo struct{ DB *gorm.DB }

func NewNotificationRepo(db *gorm.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

// NotificationStats is the per-user rollup served by /notifications/statistiques.
type NotificationStats struct {
    Total   int64            `json:"total"`
    NonLues int64            `json:"non_lues"`
    ParType map[string]int64 `json:"par_type"`
}

func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
    return r.DB.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepo) GetByID(ctx context.Context, id uint64) (model.Notification, error) {
    var n model.Notification
    err := r.DB.WithContext(ctx).First(&n, id).Error
    return n, notFound(err)
}

// List returns a user's notifications, newest first.  lu filters on the
// read flag when non-nil.
func (r *NotificationRepo) List(ctx context.Context, userID uint64, lu *bool, p Page) (Paged[model.Notification], error) {
    q := r.DB.WithContext(ctx).Model(&model.Notification{}).Where("user_id = ?", userID)
    if lu != nil {
        q = q.Where("lu = ?", *lu)
    }
    return paginate[model.Notification](q, p, func(db *gorm.DB) *gorm.DB {
        return db.Order("created_at DESC").Order("id DESC")
    })
}

func (r *NotificationRepo) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
    var n int64
    err := r.DB.WithContext(ctx).Model(&model.Notification{}).
        Where("user_id = ? AND lu = ?", userID, false).Count(&n).Error
    return n, err
}

func (r *NotificationRepo) Stats(ctx context.Context, userID uint64) (NotificationStats, error) {
    out := NotificationStats{ParType: map[string]int64{}}
    var rows []struct {
        Type  string
        Total int64
        Lues  int64
    }
    err := r.DB.WithContext(ctx).Model(&model.Notification{}).
        Select("type, COUNT(*) AS total, SUM(CASE WHEN lu = ? THEN 1 ELSE 0 END) AS lues", true).
        Where("user_id = ?", userID).
        Group("type").
        Scan(&rows).Error
    if err != nil {
        return out, err
    }
    for _, row := range rows {
        out.Total += row.Total
        out.NonLues += row.Total - row.Lues
        out.ParType[row.Type] = row.Total
    }
    return out, nil
}

// MarkRead sets lu once; a second call keeps the first date_lecture.
func (r *NotificationRepo) MarkRead(ctx context.Context, id uint64, at time.Time) error {
    return r.DB.WithContext(ctx).Model(&model.Notification{}).
        Where("id = ? AND lu = ?", id, false).
        Updates(map[string]any{"lu": true, "date_lecture": at}).Error
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uint64, at time.Time) (int64, error) {
    res := r.DB.WithContext(ctx).Model(&model.Notification{}).
        Where("user_id = ? AND lu = ?", userID, false).
        Updates(map[string]any{"lu": true, "date_lecture": at})
    return res.RowsAffected, res.Error
}

func (r *NotificationRepo) Delete(ctx context.Context, id uint64) error {
    return r.DB.WithContext(ctx).Delete(&model.Notification{}, id).Error
}

func (r *NotificationRepo) DeleteAll(ctx context.Context, userID uint64) (int64, error) {
    res := r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Notification{})
    return res.RowsAffected, res.Error
}
