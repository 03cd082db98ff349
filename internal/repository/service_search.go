package repository

import (
    "context"
    "strings"

    "gorm.io/gorm"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
)

// ServiceSearchQuery defines filters & pagination for searching services.
// Zero values mean "no filter".
type ServiceSearchQuery struct {
    Text          string
    CategoryID    uint64
    ZoneID        uint64
    PrixMin       *float64
    PrixMax       *float64
    CompetenceIDs []uint64
    Disponible    *bool
    SortBy        string
    SortDirection string
    Page          Page
}

var sortColumns = map[string]string{
    "created_at": "created_at",
    "prix":       "prix",
    "titre":      "titre",
}

// Search filters services with substring/equality predicates only.
func (r *ServiceRepo) Search(ctx context.Context, q ServiceSearchQuery) (Paged[model.Service], error) {
    where := []string{}
    args := []any{}

    if q.Text != "" {
        where = append(where, "(LOWER(titre) LIKE ? OR LOWER(description) LIKE ?)")
        like := "%" + strings.ToLower(q.Text) + "%"
        args = append(args, like, like)
    }
    if q.CategoryID != 0 {
        where = append(where, "category_id = ?")
        args = append(args, q.CategoryID)
    }
    if q.ZoneID != 0 {
        where = append(where, "id IN (SELECT service_id FROM service_zones WHERE zone_id = ?)")
        args = append(args, q.ZoneID)
    }
    if q.PrixMin != nil {
        where = append(where, "prix >= ?")
        args = append(args, *q.PrixMin)
    }
    if q.PrixMax != nil {
        where = append(where, "prix <= ?")
        args = append(args, *q.PrixMax)
    }
    if len(q.CompetenceIDs) > 0 {
        where = append(where, "id IN (SELECT service_id FROM service_skills WHERE competence_id IN ?)")
        args = append(args, q.CompetenceIDs)
    }
    if q.Disponible != nil {
        where = append(where, "disponible = ?")
        args = append(args, *q.Disponible)
    }

    cond := "1=1"
    if len(where) > 0 {
        cond = strings.Join(where, " AND ")
    }

    col, ok := sortColumns[strings.ToLower(q.SortBy)]
    if !ok {
        col = "created_at"
    }
    dir := "DESC"
    if strings.EqualFold(q.SortDirection, "asc") {
        dir = "ASC"
    }

    base := r.DB.WithContext(ctx).Model(&model.Service{}).Where(cond, args...)
    return paginate[model.Service](base, q.Page, func(db *gorm.DB) *gorm.DB {
        return withDetails(db).Order(col + " " + dir).Order("id DESC")
    })
}
