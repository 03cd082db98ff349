package model

// Category groups services in the public catalog.
type Category struct {
    ID          uint64 `gorm:"primaryKey" json:"id" yaml:"-"`
    Nom         string `gorm:"size:100;uniqueIndex;not null" json:"nom" yaml:"nom"`
    Description string `gorm:"size:255" json:"description,omitempty" yaml:"description"`
}

func (Category) TableName() string { return "categories" }

// Zone is a geographic area a service covers.
type Zone struct {
    ID  uint64 `gorm:"primaryKey" json:"id" yaml:"-"`
    Nom string `gorm:"size:100;uniqueIndex;not null" json:"nom" yaml:"nom"`
}

// Competence is a named skill attachable to users and services.
type Competence struct {
    ID        uint64 `gorm:"primaryKey" json:"id" yaml:"-"`
    Nom       string `gorm:"size:100;uniqueIndex;not null" json:"nom" yaml:"nom"`
    Categorie string `gorm:"size:100" json:"categorie,omitempty" yaml:"categorie"`
}

// Skill levels shared by user and service skill entries.
const (
    NiveauDebutant      = "débutant"
    NiveauIntermediaire = "intermédiaire"
    NiveauExpert        = "expert"
)

// SkillLevels lists the accepted skill levels.
var SkillLevels = []string{NiveauDebutant, NiveauIntermediaire, NiveauExpert}
