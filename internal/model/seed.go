package model

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/theplant/pagequery/hash"
)

const (
	DemoName     = "Test"
	DemoEmail    = "test@gmail.com"
	DemoPassword = "test12345"
)

// Seed inserts the demo company, user and posts. When the demo user already
// exists only its password is refreshed, and only if the stored hash no
// longer matches DemoPassword under the current parameters.
func Seed(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []*User
		if err := tx.Where("email = ?", DemoEmail).Limit(1).Find(&existing).Error; err != nil {
			return fmt.Errorf("find demo user: %w", err)
		}
		if len(existing) > 0 {
			return refreshPassword(tx, existing[0])
		}

		password, err := hash.Hash(DemoPassword)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		company := &Company{Name: "Acme", Industry: "software"}
		if err := tx.Create(company).Error; err != nil {
			return fmt.Errorf("create company: %w", err)
		}

		user := &User{
			Name:      DemoName,
			Email:     DemoEmail,
			Password:  password,
			Age:       30,
			Role:      "admin",
			CompanyID: &company.ID,
		}
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		posts := []*Post{
			{Title: "Hello world", Body: "First post", Published: true, AuthorID: user.ID},
			{Title: "Draft", Body: "Not yet", AuthorID: user.ID},
		}
		if err := tx.Create(&posts).Error; err != nil {
			return fmt.Errorf("create posts: %w", err)
		}
		return nil
	})
}

func refreshPassword(tx *gorm.DB, u *User) error {
	if !hash.NeedsRehash(u.Password, hash.DefaultParams) {
		// Malformed hashes already count as needing a rehash.
		if ok, _ := hash.Verify(u.Password, DemoPassword); ok {
			return nil
		}
	}
	password, err := hash.Hash(DemoPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := tx.Model(u).Update("password", password).Error; err != nil {
		return fmt.Errorf("update demo password: %w", err)
	}
	return nil
}
