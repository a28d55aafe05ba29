package gormstore_test

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Country struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"index;not null" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"index;not null" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deletedAt"`
	Name      string         `gorm:"not null" json:"name"`
	Code      string         `gorm:"not null" json:"code"`
}

type Company struct {
	ID          string         `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `gorm:"index;not null" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"index;not null" json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deletedAt"`
	Name        string         `gorm:"not null" json:"name"`
	Description *string        `json:"description"`
	CountryID   string         `gorm:"not null" json:"countryId"`
	Country     *Country       `json:"country"`
	Users       []*User        `json:"users"`
}

type UserSettings struct {
	Theme string `json:"theme"`
}

type User struct {
	ID          string                            `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time                         `gorm:"index;not null" json:"createdAt"`
	UpdatedAt   time.Time                         `gorm:"index;not null" json:"updatedAt"`
	DeletedAt   gorm.DeletedAt                    `gorm:"index" json:"deletedAt"`
	Name        string                            `gorm:"not null" json:"name"`
	Description *string                           `json:"description"`
	Age         int                               `gorm:"not null" json:"age"`
	CompanyID   string                            `gorm:"not null" json:"companyId"`
	Company     *Company                          `json:"company"`
	Comments    []*Comment                        `gorm:"polymorphic:Owner" json:"comments"`
	Tags        []*Tag                            `gorm:"many2many:user_tags" json:"tags"`
	Settings    datatypes.JSONType[*UserSettings] `json:"settings"`
}

type Comment struct {
	ID        string `gorm:"primaryKey" json:"id"`
	OwnerID   string `gorm:"not null" json:"ownerId"`
	OwnerType string `gorm:"not null" json:"ownerType"`
	Body      string `gorm:"not null" json:"body"`
}

type Tag struct {
	ID   string `gorm:"primaryKey" json:"id"`
	Name string `gorm:"not null" json:"name"`
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db, mock
}
