package repository

import (
    "context"
    "time"

    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
)

// PaymentRepo persists payments.
type PaymentRepo struct{ DB *gorm.DB }

func NewPaymentRepo(db *gorm.DB) *PaymentRepo { return &PaymentRepo{DB: db} }

func (r *PaymentRepo) WithTx(tx *gorm.DB) *PaymentRepo { return &PaymentRepo{DB: tx} }

// PaymentFilter selects the payments of one user, as either party.
type PaymentFilter struct {
    PartyID uint64
    Statut  model.PaymentStatus
}

func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
    return r.DB.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (model.Payment, error) {
    var p model.Payment
    err := r.DB.WithContext(ctx).Preload("Demande").First(&p, id).Error
    return p, notFound(err)
}

// ReferenceExists reports whether ref is already used.
func (r *PaymentRepo) ReferenceExists(ctx context.Context, ref string) (bool, error) {
    var n int64
    err := r.DB.WithContext(ctx).Model(&model.Payment{}).Where("reference = ?", ref).Count(&n).Error
    return n > 0, err
}

// HasActive reports whether a non-cancelled payment exists for a demande.
func (r *PaymentRepo) HasActive(ctx context.Context, demandeID uint64) (bool, error) {
    var n int64
    err := r.DB.WithContext(ctx).Model(&model.Payment{}).
        Where("demande_id = ? AND statut <> ?", demandeID, model.PaymentCancelled).
        Count(&n).Error
    return n > 0, err
}

// List returns payments where PartyID is client or professional.
func (r *PaymentRepo) List(ctx context.Context, f PaymentFilter, p Page) (Paged[model.Payment], error) {
    q := r.DB.WithContext(ctx).Model(&model.Payment{})
    if f.PartyID != 0 {
        q = q.Where("(client_id = ? OR professionnel_id = ?)", f.PartyID, f.PartyID)
    }
    if f.Statut != "" {
        q = q.Where("statut = ?", f.Statut)
    }
    return paginate[model.Payment](q, p, func(db *gorm.DB) *gorm.DB {
        return db.Preload("Demande").Order("created_at DESC").Order("id DESC")
    })
}

// Confirm flips a pending payment to confirme.  ErrStale means another
// request already left en_attente.
func (r *PaymentRepo) Confirm(ctx context.Context, id uint64, at time.Time, comment string) error {
    fields := map[string]any{
        "statut":            model.PaymentConfirmed,
        "date_confirmation": at,
        "updated_at":        at,
    }
    if comment != "" {
        fields["commentaire"] = comment
    }
    return r.guarded(ctx, id, fields)
}

// Cancel flips a pending payment to annule.
func (r *PaymentRepo) Cancel(ctx context.Context, id uint64, at time.Time, reason string) error {
    fields := map[string]any{
        "statut":          model.PaymentCancelled,
        "date_annulation": at,
        "updated_at":      at,
    }
    if reason != "" {
        fields["commentaire"] = reason
    }
    return r.guarded(ctx, id, fields)
}

func (r *PaymentRepo) guarded(ctx context.Context, id uint64, fields map[string]any) error {
    res := r.DB.WithContext(ctx).Model(&model.Payment{}).
        Where("id = ? AND statut = ?", id, model.PaymentPending).
        Updates(fields)
    if res.Error != nil {
        return res.Error
    }
    if res.RowsAffected == 0 {
        return ErrStale
    }
    return nil
}

// CancelPendingForDemande cancels every pending payment of a demande.
func (r *PaymentRepo) CancelPendingForDemande(ctx context.Context, demandeID uint64, at time.Time, reason string) error {
    return r.DB.WithContext(ctx).Model(&model.Payment{}).
        Where("demande_id = ? AND statut = ?", demandeID, model.PaymentPending).
        Updates(map[string]any{
            "statut":          model.PaymentCancelled,
            "date_annulation": at,
            "commentaire":     reason,
            "updated_at":      at,
        }).Error
}

// Delete removes a cancelled payment.
func (r *PaymentRepo) Delete(ctx context.Context, id uint64) error {
    res := r.DB.WithContext(ctx).Where("id = ? AND statut = ?", id, model.PaymentCancelled).Delete(&model.Payment{})
    if res.Error != nil {
        return res.Error
    }
    if res.RowsAffected == 0 {
        return ErrStale
    }
    return nil
}
