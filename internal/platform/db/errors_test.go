package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestConstraintHelpers(t *testing.T) {
	exclusion := &pgconn.PgError{Code: "23P01", ConstraintName: "contract_periods_no_overlap"}
	wrapped := fmt.Errorf("insert period: %w", exclusion)

	assert.True(t, IsExclusionViolation(wrapped, "contract_periods_no_overlap"))
	assert.True(t, IsExclusionViolation(wrapped, ""))
	assert.False(t, IsExclusionViolation(wrapped, "other"))
	assert.False(t, IsUniqueViolation(wrapped, ""))

	unique := &pgconn.PgError{Code: "23505", ConstraintName: "client_contracts_one_open"}
	assert.True(t, IsUniqueViolation(unique, "client_contracts_one_open"))
	assert.True(t, IsSerializationFailure(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsSerializationFailure(errors.New("boom")))
}
