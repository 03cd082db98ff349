package repository

import (
    "context"
    "strings"
    "time"

    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
)

// ServiceRepo persists services together with their zones, skills and
// gallery rows.
type ServiceRepo struct{ DB *gorm.DB }

func NewServiceRepo(db *gorm.DB) *ServiceRepo { return &ServiceRepo{DB: db} }

func (r *ServiceRepo) WithTx(tx *gorm.DB) *ServiceRepo { return &ServiceRepo{DB: tx} }

func withDetails(db *gorm.DB) *gorm.DB {
    return db.
        Preload("Category").
        Preload("Zones", func(db *gorm.DB) *gorm.DB { return db.Order("zones.nom") }).
        Preload("Skills", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
        Preload("Photos", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
        Preload("Professionnel")
}

// Create inserts the service row then its zones association and skills.
func (r *ServiceRepo) Create(ctx context.Context, s *model.Service) error {
    return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        zones, skills := s.Zones, s.Skills
        if err := tx.Omit(clause.Associations).Create(s).Error; err != nil {
            return err
        }
        if len(zones) > 0 {
            if err := tx.Model(s).Association("Zones").Replace(zones); err != nil {
                return err
            }
        }
        for i := range skills {
            skills[i].ID = 0
            skills[i].ServiceID = s.ID
        }
        if len(skills) > 0 {
            if err := tx.Create(&skills).Error; err != nil {
                return err
            }
        }
        s.Zones, s.Skills = zones, skills
        return nil
    })
}

// GetByID loads a service with its details.
func (r *ServiceRepo) GetByID(ctx context.Context, id uint64) (model.Service, error) {
    var s model.Service
    err := withDetails(r.DB.WithContext(ctx)).First(&s, id).Error
    return s, notFound(err)
}

// GetBare loads only the service row.
func (r *ServiceRepo) GetBare(ctx context.Context, id uint64) (model.Service, error) {
    var s model.Service
    err := r.DB.WithContext(ctx).First(&s, id).Error
    return s, notFound(err)
}

// Update writes the given columns.
func (r *ServiceRepo) Update(ctx context.Context, id uint64, fields map[string]any) error {
    if len(fields) == 0 {
        return nil
    }
    fields["updated_at"] = time.Now().UTC()
    return r.DB.WithContext(ctx).Model(&model.Service{}).Where("id = ?", id).Updates(fields).Error
}

// Delete removes a service and everything that depends on it, returning
// the storage keys of the gallery so the caller can drop the blobs.
func (r *ServiceRepo) Delete(ctx context.Context, id uint64) ([]string, error) {
    var paths []string
    err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        if err := tx.Model(&model.ServicePhoto{}).Where("service_id = ?", id).Pluck("chemin", &paths).Error; err != nil {
            return err
        }
        demandes := tx.Model(&model.Demande{}).Select("id").Where("service_id = ?", id)
        if err := tx.Where("demande_id IN (?)", demandes).Delete(&model.Payment{}).Error; err != nil {
            return err
        }
        if err := tx.Unscoped().Model(&model.Message{}).Where("demande_id IN (?)", demandes).Update("demande_id", nil).Error; err != nil {
            return err
        }
        steps := []struct {
            model any
            where string
        }{
            {&model.Demande{}, "service_id = ?"},
            {&model.ServicePhoto{}, "service_id = ?"},
            {&model.ServiceSkill{}, "service_id = ?"},
            {&model.Favori{}, "service_id = ?"},
        }
        for _, s := range steps {
            if err := tx.Where(s.where, id).Delete(s.model).Error; err != nil {
                return err
            }
        }
        if err := tx.Model(&model.Service{ID: id}).Association("Zones").Clear(); err != nil {
            return err
        }
        res := tx.Delete(&model.Service{}, id)
        if res.Error != nil {
            return res.Error
        }
        if res.RowsAffected == 0 {
            return ErrNotFound
        }
        return nil
    })
    return paths, err
}

// ListAvailable returns available services, newest first.
func (r *ServiceRepo) ListAvailable(ctx context.Context, p Page) (Paged[model.Service], error) {
    q := r.DB.WithContext(ctx).Model(&model.Service{}).Where("disponible = ?", true)
    return paginate[model.Service](q, p, latest)
}

// ListByCategory returns available services of one category.
func (r *ServiceRepo) ListByCategory(ctx context.Context, categoryID uint64, p Page) (Paged[model.Service], error) {
    q := r.DB.WithContext(ctx).Model(&model.Service{}).
        Where("disponible = ? AND category_id = ?", true, categoryID)
    return paginate[model.Service](q, p, latest)
}

// ListByOwner returns every service of one professional.
func (r *ServiceRepo) ListByOwner(ctx context.Context, ownerID uint64, p Page) (Paged[model.Service], error) {
    q := r.DB.WithContext(ctx).Model(&model.Service{}).Where("professionnel_id = ?", ownerID)
    return paginate[model.Service](q, p, latest)
}

func latest(db *gorm.DB) *gorm.DB {
    return withDetails(db).Order("created_at DESC").Order("id DESC")
}

// --- zones ---

// FindOrCreateZones resolves zone names to rows, creating missing ones.
func (r *ServiceRepo) FindOrCreateZones(ctx context.Context, names []string) ([]model.Zone, error) {
    out := make([]model.Zone, 0, len(names))
    seen := map[string]bool{}
    for _, n := range names {
        n = strings.TrimSpace(n)
        key := strings.ToLower(n)
        if n == "" || seen[key] {
            continue
        }
        seen[key] = true
        z := model.Zone{Nom: n}
        if err := r.DB.WithContext(ctx).Where("nom = ?", n).FirstOrCreate(&z).Error; err != nil {
            return nil, err
        }
        out = append(out, z)
    }
    return out, nil
}

func (r *ServiceRepo) ReplaceZones(ctx context.Context, serviceID uint64, zones []model.Zone) error {
    return r.DB.WithContext(ctx).Model(&model.Service{ID: serviceID}).Association("Zones").Replace(zones)
}

func (r *ServiceRepo) AddZones(ctx context.Context, serviceID uint64, zones []model.Zone) error {
    if len(zones) == 0 {
        return nil
    }
    return r.DB.WithContext(ctx).Model(&model.Service{ID: serviceID}).Association("Zones").Append(zones)
}

func (r *ServiceRepo) RemoveZones(ctx context.Context, serviceID uint64, names []string) error {
    var zones []model.Zone
    if err := r.DB.WithContext(ctx).Where("nom IN ?", names).Find(&zones).Error; err != nil {
        return err
    }
    if len(zones) == 0 {
        return nil
    }
    return r.DB.WithContext(ctx).Model(&model.Service{ID: serviceID}).Association("Zones").Delete(zones)
}

// --- skills ---

// FindOrCreateCompetence resolves a skill name to its reference row.
func (r *ServiceRepo) FindOrCreateCompetence(ctx context.Context, name string) (model.Competence, error) {
    c := model.Competence{Nom: strings.TrimSpace(name)}
    err := r.DB.WithContext(ctx).Where("nom = ?", c.Nom).FirstOrCreate(&c).Error
    return c, err
}

func (r *ServiceRepo) ReplaceSkills(ctx context.Context, serviceID uint64, skills []model.ServiceSkill) error {
    return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        if err := tx.Where("service_id = ?", serviceID).Delete(&model.ServiceSkill{}).Error; err != nil {
            return err
        }
        return insertSkills(tx, serviceID, skills)
    })
}

// AddSkills appends skills, replacing entries with the same name.
func (r *ServiceRepo) AddSkills(ctx context.Context, serviceID uint64, skills []model.ServiceSkill) error {
    return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        names := make([]string, 0, len(skills))
        for _, s := range skills {
            names = append(names, s.Nom)
        }
        if len(names) > 0 {
            if err := tx.Where("service_id = ? AND nom IN ?", serviceID, names).Delete(&model.ServiceSkill{}).Error; err != nil {
                return err
            }
        }
        return insertSkills(tx, serviceID, skills)
    })
}

func (r *ServiceRepo) RemoveSkills(ctx context.Context, serviceID uint64, names []string) error {
    return r.DB.WithContext(ctx).Where("service_id = ? AND nom IN ?", serviceID, names).Delete(&model.ServiceSkill{}).Error
}

func insertSkills(tx *gorm.DB, serviceID uint64, skills []model.ServiceSkill) error {
    if len(skills) == 0 {
        return nil
    }
    for i := range skills {
        skills[i].ID = 0
        skills[i].ServiceID = serviceID
    }
    return tx.Create(&skills).Error
}

// --- gallery ---

// Photos returns the gallery in display order.
func (r *ServiceRepo) Photos(ctx context.Context, serviceID uint64) ([]model.ServicePhoto, error) {
    var photos []model.ServicePhoto
    err := r.DB.WithContext(ctx).Where("service_id = ?", serviceID).Order("position, id").Find(&photos).Error
    return photos, err
}

// CountPhotos returns the current gallery length.
func (r *ServiceRepo) CountPhotos(ctx context.Context, serviceID uint64) (int64, error) {
    var n int64
    err := r.DB.WithContext(ctx).Model(&model.ServicePhoto{}).Where("service_id = ?", serviceID).Count(&n).Error
    return n, err
}

// AppendPhotos adds photos after the current last position as long as
// the gallery stays within max entries.  It returns ErrConflict and
// writes nothing when the limit would be exceeded.  The service row is
// locked first so concurrent appends count one after the other.
func (r *ServiceRepo) AppendPhotos(ctx context.Context, serviceID uint64, paths []string, max int) ([]model.ServicePhoto, error) {
    var created []model.ServicePhoto
    if len(paths) == 0 {
        return created, nil
    }
    err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        if err := lockRow(tx, &model.Service{}, serviceID); err != nil {
            return err
        }
        var n int64
        if err := tx.Model(&model.ServicePhoto{}).Where("service_id = ?", serviceID).Count(&n).Error; err != nil {
            return err
        }
        if int(n)+len(paths) > max {
            return ErrConflict
        }
        var last struct{ Max *int }
        if err := tx.Model(&model.ServicePhoto{}).Select("MAX(position) AS max").Where("service_id = ?", serviceID).Scan(&last).Error; err != nil {
            return err
        }
        next := 0
        if last.Max != nil {
            next = *last.Max + 1
        }
        for i, p := range paths {
            created = append(created, model.ServicePhoto{ServiceID: serviceID, Chemin: p, Position: next + i})
        }
        return tx.Create(&created).Error
    })
    return created, err
}

// GetPhoto loads one gallery entry of a service.
func (r *ServiceRepo) GetPhoto(ctx context.Context, serviceID, photoID uint64) (model.ServicePhoto, error) {
    var p model.ServicePhoto
    err := r.DB.WithContext(ctx).Where("id = ? AND service_id = ?", photoID, serviceID).First(&p).Error
    return p, notFound(err)
}

func (r *ServiceRepo) DeletePhoto(ctx context.Context, photoID uint64) error {
    return r.DB.WithContext(ctx).Delete(&model.ServicePhoto{}, photoID).Error
}

// ReorderPhotos sets positions following ids order.
func (r *ServiceRepo) ReorderPhotos(ctx context.Context, serviceID uint64, ids []uint64) error {
    return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        for pos, id := range ids {
            if err := tx.Model(&model.ServicePhoto{}).
                Where("id = ? AND service_id = ?", id, serviceID).
                Update("position", pos).Error; err != nil {
                return err
            }
        }
        return nil
    })
}
