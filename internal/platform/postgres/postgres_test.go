package postgres

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	assert.Contains(t, names, "migrations/0001_init.up.sql")
	assert.Contains(t, names, "migrations/0001_init.down.sql")

	up, err := fs.ReadFile(migrations, "migrations/0001_init.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "sale_records_one_active_idx")
	assert.Contains(t, string(up), "credentials_sold_has_no_material")
}

func TestErrorClassification(t *testing.T) {
	unique := &pq.Error{Code: "23505", Constraint: "sale_records_one_active_idx"}
	check := &pq.Error{Code: "23514"}

	assert.True(t, IsUniqueViolation(unique, ""))
	assert.True(t, IsUniqueViolation(fmt.Errorf("wrapped: %w", unique), "sale_records_one_active_idx"))
	assert.False(t, IsUniqueViolation(unique, "other"))
	assert.False(t, IsUniqueViolation(errors.New("plain"), ""))

	assert.True(t, IsCheckViolation(check))
	assert.False(t, IsCheckViolation(unique))
}
