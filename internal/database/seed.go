package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

// DefaultTags are offered on an empty install.
var DefaultTags = []string{"React", "Next.js", "Node.js", "JWT", "Tailwind", "Prisma", "TypeScript"}

const (
	demoSubject  = "seed|demo"
	demoUsername = "demo"
)

// Seed inserts the default tags and a demo user. Rows that already exist
// are left alone, so it is safe to run on every deploy.
func Seed(db *gorm.DB) (*models.User, error) {
	var demo models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, name := range DefaultTags {
			tag := models.Tag{Name: name}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tag).Error; err != nil {
				return fmt.Errorf("failed to seed tag %q: %w", name, err)
			}
		}

		err := tx.Where(models.User{Subject: demoSubject}).
			Attrs(models.User{Username: demoUsername, Role: models.RoleUser, Bio: "Demo account"}).
			FirstOrCreate(&demo).Error
		if err != nil {
			return fmt.Errorf("failed to seed demo user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &demo, nil
}
