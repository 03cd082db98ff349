package repository

import (
    "context"
    "time"

    "gorm.io/gorm"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
)

// MessageRepo persists direct messages and their attachments.  Every
// query excludes soft-deleted rows through gorm.DeletedAt.
type MessageRepo struct{ DB *gorm.DB }

func NewMessageRepo(db *gorm.DB) *MessageRepo { return &MessageRepo{DB: db} }

// ConversationRow summarises one peer of a user's inbox.
type ConversationRow struct {
    PeerID      uint64
    LastID      uint64
    UnreadCount int64
}

// Create inserts the message with its attachment rows.
func (r *MessageRepo) Create(ctx context.Context, m *model.Message) error {
    return r.DB.WithContext(ctx).Omit("Expediteur", "Destinataire").Create(m).Error
}

func (r *MessageRepo) GetByID(ctx context.Context, id uint64) (model.Message, error) {
    var m model.Message
    err := r.DB.WithContext(ctx).
        Preload("Attachments").Preload("Expediteur").Preload("Destinataire").
        First(&m, id).Error
    return m, notFound(err)
}

// ListForUser returns messages sent or received by userID, newest first.
func (r *MessageRepo) ListForUser(ctx context.Context, userID uint64, p Page) (Paged[model.Message], error) {
    q := r.DB.WithContext(ctx).Model(&model.Message{}).
        Where("(expediteur_id = ? OR destinataire_id = ?)", userID, userID)
    return paginate[model.Message](q, p, func(db *gorm.DB) *gorm.DB {
        return db.Preload("Attachments").Preload("Expediteur").Preload("Destinataire").
            Order("created_at DESC").Order("id DESC")
    })
}

// Between returns every message exchanged by a and b, oldest first.
func (r *MessageRepo) Between(ctx context.Context, a, b uint64) ([]model.Message, error) {
    var out []model.Message
    err := r.DB.WithContext(ctx).
        Preload("Attachments").
        Where("((expediteur_id = ? AND destinataire_id = ?) OR (expediteur_id = ? AND destinataire_id = ?))", a, b, b, a).
        Order("created_at ASC").Order("id ASC").
        Find(&out).Error
    return out, err
}

// Conversations groups a user's messages by peer.
func (r *MessageRepo) Conversations(ctx context.Context, userID uint64) ([]ConversationRow, error) {
    var rows []ConversationRow
    err := r.DB.WithContext(ctx).Model(&model.Message{}).
        Select(`CASE WHEN expediteur_id = ? THEN destinataire_id ELSE expediteur_id END AS peer_id,
            MAX(id) AS last_id,
            SUM(CASE WHEN destinataire_id = ? AND lu = ? THEN 1 ELSE 0 END) AS unread_count`, userID, userID, false).
        Where("(expediteur_id = ? OR destinataire_id = ?)", userID, userID).
        Group("peer_id").
        Order("last_id DESC").
        Scan(&rows).Error
    return rows, err
}

// FindByIDs loads messages by id, keyed by id.
func (r *MessageRepo) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Message, error) {
    out := make(map[uint64]model.Message, len(ids))
    if len(ids) == 0 {
        return out, nil
    }
    var msgs []model.Message
    if err := r.DB.WithContext(ctx).Preload("Attachments").Where("id IN ?", ids).Find(&msgs).Error; err != nil {
        return nil, err
    }
    for _, m := range msgs {
        out[m.ID] = m
    }
    return out, nil
}

// MarkRead sets lu on one message if it is still unread.  The returned
// bool is false when the message was already read.
func (r *MessageRepo) MarkRead(ctx context.Context, id uint64, at time.Time) (bool, error) {
    res := r.DB.WithContext(ctx).Model(&model.Message{}).
        Where("id = ? AND lu = ?", id, false).
        Updates(map[string]any{"lu": true, "date_lecture": at})
    return res.RowsAffected > 0, res.Error
}

// MarkReadFrom marks every unread message from sender to recipient.
func (r *MessageRepo) MarkReadFrom(ctx context.Context, sender, recipient uint64, at time.Time) (int64, error) {
    res := r.DB.WithContext(ctx).Model(&model.Message{}).
        Where("expediteur_id = ? AND destinataire_id = ? AND lu = ?", sender, recipient, false).
        Updates(map[string]any{"lu": true, "date_lecture": at})
    return res.RowsAffected, res.Error
}

// MarkAllRead marks every unread message addressed to recipient.
func (r *MessageRepo) MarkAllRead(ctx context.Context, recipient uint64, at time.Time) (int64, error) {
    res := r.DB.WithContext(ctx).Model(&model.Message{}).
        Where("destinataire_id = ? AND lu = ?", recipient, false).
        Updates(map[string]any{"lu": true, "date_lecture": at})
    return res.RowsAffected, res.Error
}

// SoftDelete hides the message; attachment rows stay for auditing.
func (r *MessageRepo) SoftDelete(ctx context.Context, id uint64) error {
    res := r.DB.WithContext(ctx).Delete(&model.Message{}, id)
    if res.Error != nil {
        return res.Error
    }
    if res.RowsAffected == 0 {
        return ErrNotFound
    }
    return nil
}

// UnreadCount counts unread messages addressed to userID.
func (r *MessageRepo) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
    var n int64
    err := r.DB.WithContext(ctx).Model(&model.Message{}).
        Where("destinataire_id = ? AND lu = ?", userID, false).Count(&n).Error
    return n, err
}
