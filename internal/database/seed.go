package database

import (
    "context"
    _ "embed"
    "fmt"
    "os"
    "strings"

    "gopkg.in/yaml.v3"
    "gorm.io/gorm"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
    "github.com/iliyamo/kmerpro-marketplace/internal/utils"
)

//go:embed seed.yaml
var defaultSeed []byte

// SeedData is the reference data file layout.
type SeedData struct {
    Categories  []model.Category   `yaml:"categories"`
    Zones       []model.Zone       `yaml:"zones"`
    Competences []model.Competence `yaml:"competences"`
}

// LoadSeed parses path, or the embedded set when path is empty.
func LoadSeed(path string) (SeedData, error) {
    raw := defaultSeed
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil {
            return SeedData{}, err
        }
        raw = b
    }
    var s SeedData
    if err := yaml.Unmarshal(raw, &s); err != nil {
        return SeedData{}, fmt.Errorf("parse seed: %w", err)
    }
    return s, nil
}

// Seed inserts the reference rows that are not there yet.
func Seed(ctx context.Context, db *gorm.DB, s SeedData) error {
    return repository.NewReferenceRepo(db).Upsert(ctx, s.Categories, s.Zones, s.Competences)
}

// EnsureAdmin creates the admin account on first start.  It reports
// whether an account was created.
func EnsureAdmin(ctx context.Context, db *gorm.DB, email, password string, cost int) (bool, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    if email == "" || password == "" {
        return false, nil
    }
    hash, err := utils.HashPassword(password, cost)
    if err != nil {
        return false, err
    }
    u := model.User{Nom: "Admin", Prenom: "KmerPro", Email: email, PasswordHash: hash}
    return repository.NewUserRepo(db).EnsureAdmin(ctx, &u)
}
