package repository

import (
    "context"
    "errors"
    "strings"
    "time"

    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
)

type UserRepo struct{ DB *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// Create inserts u (PasswordHash already set) and fills its ID.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
    u.Email = strings.ToLower(strings.TrimSpace(u.Email))
    err := r.DB.WithContext(ctx).Omit(clause.Associations).Create(u).Error
    if isDuplicate(err) {
        return ErrEmailExists
    }
    return err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    var u model.User
    err := r.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error
    return u, notFound(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
    var u model.User
    err := r.DB.WithContext(ctx).First(&u, id).Error
    return u, notFound(err)
}

// GetProfile loads a user with skills and diplomas.
func (r *UserRepo) GetProfile(ctx context.Context, id uint64) (model.User, error) {
    var u model.User
    err := r.DB.WithContext(ctx).
        Preload("Competences.Competence").
        Preload("Diplomes", func(db *gorm.DB) *gorm.DB { return db.Order("annee DESC, id DESC") }).
        First(&u, id).Error
    return u, notFound(err)
}

// Exists reports whether a user id is known.
func (r *UserRepo) Exists(ctx context.Context, id uint64) (bool, error) {
    var n int64
    err := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Count(&n).Error
    return n > 0, err
}

// FindByIDs returns users keyed by id.
func (r *UserRepo) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]model.User, error) {
    out := make(map[uint64]model.User, len(ids))
    if len(ids) == 0 {
        return out, nil
    }
    var users []model.User
    if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
        return nil, err
    }
    for _, u := range users {
        out[u.ID] = u
    }
    return out, nil
}

// UpdateProfile writes the editable profile columns.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, fields map[string]any) error {
    if len(fields) == 0 {
        return nil
    }
    fields["updated_at"] = time.Now().UTC()
    res := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields)
    if res.Error != nil {
        return res.Error
    }
    if res.RowsAffected == 0 {
        return ErrNotFound
    }
    return nil
}

// ReplaceCompetences swaps a user's skills list in one transaction.
func (r *UserRepo) ReplaceCompetences(ctx context.Context, userID uint64, entries []model.UserCompetence) error {
    return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        if err := tx.Where("user_id = ?", userID).Delete(&model.UserCompetence{}).Error; err != nil {
            return err
        }
        if len(entries) == 0 {
            return nil
        }
        for i := range entries {
            entries[i].ID = 0
            entries[i].UserID = userID
        }
        return tx.Omit(clause.Associations).Create(&entries).Error
    })
}

// CountCompetences returns how many skills a user declared.
func (r *UserRepo) CountCompetences(ctx context.Context, userID uint64) (int64, error) {
    var n int64
    err := r.DB.WithContext(ctx).Model(&model.UserCompetence{}).Where("user_id = ?", userID).Count(&n).Error
    return n, err
}

// AddDiploma appends to a user's diplomas list.
func (r *UserRepo) AddDiploma(ctx context.Context, d *model.Diploma) error {
    return r.DB.WithContext(ctx).Create(d).Error
}

// EnsureAdmin creates the admin account if the email is not yet taken.
func (r *UserRepo) EnsureAdmin(ctx context.Context, u *model.User) (bool, error) {
    if _, err := r.GetByEmail(ctx, u.Email); err == nil {
        return false, nil
    } else if !errors.Is(err, ErrNotFound) {
        return false, err
    }
    u.Role = model.RoleAdmin
    u.IsActive = true
    if err := r.Create(ctx, u); err != nil {
        return false, err
    }
    return true, nil
}
