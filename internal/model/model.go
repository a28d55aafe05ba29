// Package model holds the example resources served by the HTTP layer and the
// policies that say how clients may query them.
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Base carries the columns shared by every resource.
type Base struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (b *Base) BeforeCreate(*gorm.DB) error {
	if b.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}

type Company struct {
	Base
	Name     string  `gorm:"not null" json:"name"`
	Industry string  `json:"industry"`
	Users    []*User `json:"users,omitempty"`
}

type UserSettings struct {
	Theme    string `json:"theme"`
	Language string `json:"language"`
}

type User struct {
	Base
	Name      string                           `gorm:"not null" json:"name"`
	Email     string                           `gorm:"not null;uniqueIndex" json:"email"`
	Password  string                           `gorm:"not null" json:"-"`
	Age       int                              `json:"age"`
	Role      string                           `gorm:"not null;default:member" json:"role"`
	CompanyID *uuid.UUID                       `gorm:"type:uuid" json:"companyId"`
	Company   *Company                         `json:"company,omitempty"`
	Posts     []*Post                          `gorm:"foreignKey:AuthorID" json:"posts,omitempty"`
	Settings  datatypes.JSONType[UserSettings] `json:"settings"`
}

type Post struct {
	Base
	Title     string    `gorm:"not null" json:"title"`
	Body      string    `json:"body"`
	Published bool      `json:"published"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null" json:"authorId"`
	Author    *User     `json:"author,omitempty"`
}

// All lists every model in dependency order, for migration.
func All() []any {
	return []any{&Company{}, &User{}, &Post{}}
}
