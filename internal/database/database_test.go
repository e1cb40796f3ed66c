package database

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN("booth", "p@ss", "db", "3306", "portraits")
	assert.Contains(t, dsn, "booth:p@ss@tcp(db:3306)/portraits?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestStatements(t *testing.T) {
	got := Statements("CREATE TABLE a (x INT);\n\n  INSERT INTO a VALUES (1) ;\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "INSERT INTO a VALUES (1)"}, got)
}

func TestMigrateSkipsApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))

	count := regexp.QuoteMeta("SELECT COUNT(*) FROM schema_migrations WHERE name = ?")
	mock.ExpectQuery(count).WithArgs("0001_users.sql").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(count).WithArgs("0002_orders.sql").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(count).WithArgs("0003_settings.sql").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS settings").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT IGNORE INTO settings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations (name) VALUES (?)")).
		WithArgs("0003_settings.sql").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
