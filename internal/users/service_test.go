package users

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rahulmehra/mandiflow-backend/pkg/db/models"
	"github.com/rahulmehra/mandiflow-backend/pkg/enums"
	pkgerrors "github.com/rahulmehra/mandiflow-backend/pkg/errors"
)

func newUserService(t *testing.T) Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestService_RegisterAndGet(t *testing.T) {
	svc := newUserService(t)
	phone := "+91-9876543210"

	created, err := svc.Register(context.Background(), RegisterParams{
		Name:  "  Asha Traders  ",
		Phone: &phone,
		Role:  enums.UserRoleRetailer,
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha Traders", created.Name)
	assert.Equal(t, enums.UserRoleRetailer, created.Role)

	loaded, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
	require.NotNil(t, loaded.Phone)
	assert.Equal(t, phone, *loaded.Phone)
}

func TestService_RegisterRejectsBlankName(t *testing.T) {
	svc := newUserService(t)

	_, err := svc.Register(context.Background(), RegisterParams{Name: "   ", Role: enums.UserRoleCustomer})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestService_RegisterRejectsUnknownRole(t *testing.T) {
	svc := newUserService(t)

	_, err := svc.Register(context.Background(), RegisterParams{Name: "Someone", Role: enums.UserRole("admin")})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestService_GetUnknownUser(t *testing.T) {
	svc := newUserService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
