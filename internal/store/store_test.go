package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/postgres"
)

const schemaDDL = `
CREATE TABLE companies_country (
	id SERIAL PRIMARY KEY,
	iso_code VARCHAR(3) UNIQUE NOT NULL,
	name VARCHAR(200) NOT NULL
);
CREATE TABLE companies_company (
	id SERIAL PRIMARY KEY,
	created TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	modified TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	companies_house_id VARCHAR(64) NOT NULL DEFAULT '',
	name VARCHAR(100) NOT NULL,
	description TEXT NOT NULL,
	country_id INTEGER NOT NULL REFERENCES companies_country(id),
	date_founded DATE,
	active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE TABLE companies_deal (
	id SERIAL PRIMARY KEY,
	created TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	modified TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	company_id INTEGER NOT NULL REFERENCES companies_company(id),
	date_of_deal DATE NOT NULL,
	amount_raised DOUBLE PRECISION NOT NULL
);
CREATE TABLE companies_employee (
	id SERIAL PRIMARY KEY,
	created TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	modified TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	company_id INTEGER NOT NULL REFERENCES companies_company(id),
	name VARCHAR(200) NOT NULL,
	job_title VARCHAR(200) NOT NULL,
	gender VARCHAR(1) NOT NULL,
	email VARCHAR(254) NOT NULL,
	phone_number VARCHAR(20)
);`

// newTestStore connects to a throwaway schema, skipping when PostgreSQL is
// unavailable.
func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	cfg := config.PostgresConfig{
		Host:     envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:     envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database: envOrDefault("TEST_POSTGRES_DB", "companies_test"),
		User:     envOrDefault("TEST_POSTGRES_USER", "companies"),
		Password: envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:  "disable",
	}
	admin, err := sql.Open("postgres", cfg.DSN())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := admin.PingContext(ctx); err != nil {
		admin.Close()
		t.Skipf("skipping store test: postgres unavailable: %v", err)
	}

	schema := fmt.Sprintf("store_test_%d", time.Now().UnixNano())
	_, err = admin.Exec(`CREATE SCHEMA ` + schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		admin.Exec(`DROP SCHEMA ` + schema + ` CASCADE`)
		admin.Close()
	})

	db, err := sql.Open("postgres", cfg.DSN()+" search_path="+schema)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(schemaDDL)
	require.NoError(t, err)

	return New(&postgres.Client{DB: db}), db
}

func TestCompanySnapshot(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO companies_country (id, iso_code, name) VALUES (1, 'GB', 'United Kingdom')`)
	mustExec(t, db, `INSERT INTO companies_company (id, companies_house_id, name, description, country_id, date_founded, active)
		VALUES (10, 'AB123456', 'Acme Robotics', 'Robots', 1, '2010-04-01', true)`)
	mustExec(t, db, `INSERT INTO companies_deal (company_id, date_of_deal, amount_raised) VALUES
		(10, '2023-01-01', 100.0), (10, '2023-06-01', 250.0)`)
	mustExec(t, db, `INSERT INTO companies_employee (company_id, name, job_title, gender, email) VALUES
		(10, 'Ada', 'Engineer', 'F', 'ada@acme.test'),
		(10, 'Bob', 'Designer', 'M', 'bob@acme.test')`)

	snap, err := s.CompanySnapshot(ctx, 10)
	require.NoError(t, err)

	assert.Equal(t, "Acme Robotics", snap.Company.Name)
	assert.Equal(t, "GB", snap.Company.Country.ISOCode)
	require.NotNil(t, snap.Company.DateFounded)
	assert.Equal(t, "2010-04-01", snap.Company.DateFounded.Format("2006-01-02"))
	assert.Equal(t, 2, snap.EmployeeCount)
	require.Len(t, snap.Deals, 2)
	assert.Equal(t, 250.0, snap.Deals[0].AmountRaised, "newest deal first")

	_, err = s.CompanySnapshot(ctx, 999)
	assert.True(t, IsNotFound(err))
}

func TestBatchesPageByID(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO companies_country (id, iso_code, name) VALUES (1, 'US', 'United States')`)
	for i := 1; i <= 5; i++ {
		mustExec(t, db, fmt.Sprintf(
			`INSERT INTO companies_company (id, name, description, country_id) VALUES (%d, 'Co %d', '', 1)`, i, i))
		mustExec(t, db, fmt.Sprintf(
			`INSERT INTO companies_employee (company_id, name, job_title, gender, email) VALUES (%d, 'E %d', 'T', 'O', 'e%d@x.test')`, i, i, i))
	}

	first, err := s.CompanyBatch(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, int64(2), first[1].Company.ID)
	assert.Equal(t, 1, first[0].EmployeeCount)
	assert.Empty(t, first[0].Deals)

	rest, err := s.CompanyBatch(ctx, first[1].Company.ID, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 3)

	employees, err := s.EmployeeBatch(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, employees, 5)
	assert.Equal(t, "Co 1", employees[0].Company.Name)

	n, err := s.CountEmployees(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	e, err := s.Employee(ctx, employees[2].ID)
	require.NoError(t, err)
	assert.Equal(t, "E 3", e.Name)
	assert.Empty(t, e.PhoneNumber)
}

func mustExec(t *testing.T, db *sql.DB, query string) {
	t.Helper()
	_, err := db.Exec(query)
	require.NoError(t, err)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
