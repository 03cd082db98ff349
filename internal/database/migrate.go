package database

import (
    "context"

    "gorm.io/gorm"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
)

// Models lists every table of the marketplace in dependency order.
func Models() []any {
    return []any{
        &model.User{},
        &model.RefreshToken{},
        &model.Category{},
        &model.Zone{},
        &model.Competence{},
        &model.UserCompetence{},
        &model.Diploma{},
        &model.Service{},
        &model.ServiceSkill{},
        &model.ServicePhoto{},
        &model.Favori{},
        &model.Demande{},
        &model.Payment{},
        &model.Message{},
        &model.MessageAttachment{},
        &model.Notification{},
        &model.Document{},
    }
}

// Migrate creates or updates the schema.
func Migrate(ctx context.Context, db *gorm.DB) error {
    return db.WithContext(ctx).AutoMigrate(Models()...)
}
