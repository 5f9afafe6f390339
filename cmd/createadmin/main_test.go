package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/testutil"
)

func TestRunCreatesAdmin(t *testing.T) {
	db := testutil.NewTestDB(t)
	var out bytes.Buffer

	input := "Admin\nTest@Example.com\nSecret123\nSecret123\nyes\n"
	code := run(context.Background(), db, strings.NewReader(input), &out)

	require.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "Successfully created admin.")
	assert.Contains(t, out.String(), "Admin")
	assert.Contains(t, out.String(), "test@example.com")

	var admin models.User
	require.NoError(t, db.Where("email = ?", "test@example.com").First(&admin).Error)
	assert.Equal(t, models.UserRoleAdmin, admin.Role)
	assert.NotNil(t, admin.EmailVerifiedAt)
	assert.NoError(t, admin.CheckPassword("Secret123"))
}

func TestRunNameRequired(t *testing.T) {
	db := testutil.NewTestDB(t)
	var out bytes.Buffer

	code := run(context.Background(), db, strings.NewReader("\n"), &out)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "The name field is required.")
}

func TestRunEmailTaken(t *testing.T) {
	db := testutil.NewTestDB(t)
	existing := testutil.CreateCustomer(t, db)
	require.NoError(t, db.Model(existing).Update("email", "exists@example.com").Error)
	var out bytes.Buffer

	code := run(context.Background(), db, strings.NewReader("Admin\nexists@example.com\n"), &out)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "The email has already been taken.")
}

func TestRunPasswordMismatch(t *testing.T) {
	db := testutil.NewTestDB(t)
	var out bytes.Buffer

	input := "Admin\nnew@example.com\nSecret123\nSecret124\n"
	code := run(context.Background(), db, strings.NewReader(input), &out)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "confirmation does not match")

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Zero(t, count)
}

func TestRunDeclined(t *testing.T) {
	db := testutil.NewTestDB(t)
	var out bytes.Buffer

	input := "Admin\nnew@example.com\nSecret123\nSecret123\nno\n"
	code := run(context.Background(), db, strings.NewReader(input), &out)

	assert.Equal(t, 1, code)
	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Zero(t, count)
}
