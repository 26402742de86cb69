package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	apperrors "github.com/Adithya-Monish-Kumar-K/company-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/postgres"
)

const companySelect = `
SELECT c.id, c.companies_house_id, c.name, c.description, c.date_founded,
       c.active, c.created, c.modified, co.id, co.iso_code, co.name
FROM companies_company c
JOIN companies_country co ON co.id = c.country_id`

const employeeSelect = `
SELECT e.id, e.name, e.job_title, e.gender, e.email, e.phone_number,
       e.created, e.modified, c.id, c.name
FROM companies_employee e
JOIN companies_company c ON c.id = e.company_id`

// Store reads snapshots from the primary PostgreSQL database.
type Store struct {
	db *postgres.Client
}

func New(db *postgres.Client) *Store {
	return &Store{db: db}
}

// CompanySnapshot loads one company with its deals and employee count from a
// single consistent snapshot.
func (s *Store) CompanySnapshot(ctx context.Context, id int64) (*CompanySnapshot, error) {
	var snaps []CompanySnapshot
	err := s.db.InReadTx(ctx, func(tx *sql.Tx) error {
		var err error
		snaps, err = loadCompanies(ctx, tx, companySelect+` WHERE c.id = $1`, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, apperrors.Newf(apperrors.ErrNotFound, 404, "company %d not found", id)
	}
	return &snaps[0], nil
}

// CompanyBatch returns up to limit companies with id > afterID, ordered by
// id, each with its related rows.
func (s *Store) CompanyBatch(ctx context.Context, afterID int64, limit int) ([]CompanySnapshot, error) {
	var snaps []CompanySnapshot
	err := s.db.InReadTx(ctx, func(tx *sql.Tx) error {
		var err error
		snaps, err = loadCompanies(ctx, tx, companySelect+` WHERE c.id > $1 ORDER BY c.id LIMIT $2`, afterID, limit)
		return err
	})
	return snaps, err
}

// Employee loads one employee with its company reference.
func (s *Store) Employee(ctx context.Context, id int64) (*Employee, error) {
	rows, err := s.db.DB.QueryContext(ctx, employeeSelect+` WHERE e.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("querying employee %d: %w", id, err)
	}
	employees, err := scanEmployees(rows)
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return nil, apperrors.Newf(apperrors.ErrNotFound, 404, "employee %d not found", id)
	}
	return &employees[0], nil
}

// EmployeeBatch returns up to limit employees with id > afterID, ordered by id.
func (s *Store) EmployeeBatch(ctx context.Context, afterID int64, limit int) ([]Employee, error) {
	rows, err := s.db.DB.QueryContext(ctx, employeeSelect+` WHERE e.id > $1 ORDER BY e.id LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying employee batch after %d: %w", afterID, err)
	}
	return scanEmployees(rows)
}

// CountCompanies returns the number of company rows.
func (s *Store) CountCompanies(ctx context.Context) (int, error) {
	return s.count(ctx, "companies_company")
}

// CountEmployees returns the number of employee rows.
func (s *Store) CountEmployees(ctx context.Context) (int, error) {
	return s.count(ctx, "companies_employee")
}

func (s *Store) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

func loadCompanies(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]CompanySnapshot, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying companies: %w", err)
	}
	defer rows.Close()

	var snaps []CompanySnapshot
	for rows.Next() {
		var c Company
		var founded sql.NullTime
		if err := rows.Scan(
			&c.ID, &c.CompaniesHouseID, &c.Name, &c.Description, &founded,
			&c.Active, &c.Created, &c.Modified,
			&c.Country.ID, &c.Country.ISOCode, &c.Country.Name,
		); err != nil {
			return nil, fmt.Errorf("scanning company: %w", err)
		}
		if founded.Valid {
			d := founded.Time
			c.DateFounded = &d
		}
		snaps = append(snaps, CompanySnapshot{Company: c})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating companies: %w", err)
	}
	if len(snaps) == 0 {
		return snaps, nil
	}
	if err := attachRelated(ctx, tx, snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}

// attachRelated fills deals and employee counts for every snapshot with two
// queries regardless of batch size.
func attachRelated(ctx context.Context, tx *sql.Tx, snaps []CompanySnapshot) error {
	ids := make([]int64, len(snaps))
	pos := make(map[int64]int, len(snaps))
	for i := range snaps {
		ids[i] = snaps[i].Company.ID
		pos[snaps[i].Company.ID] = i
	}

	dealRows, err := tx.QueryContext(ctx, `
SELECT id, company_id, date_of_deal, amount_raised
FROM companies_deal
WHERE company_id = ANY($1)
ORDER BY company_id, date_of_deal DESC, id DESC`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("querying deals: %w", err)
	}
	defer dealRows.Close()
	for dealRows.Next() {
		var d Deal
		if err := dealRows.Scan(&d.ID, &d.CompanyID, &d.DateOfDeal, &d.AmountRaised); err != nil {
			return fmt.Errorf("scanning deal: %w", err)
		}
		i := pos[d.CompanyID]
		snaps[i].Deals = append(snaps[i].Deals, d)
	}
	if err := dealRows.Err(); err != nil {
		return fmt.Errorf("iterating deals: %w", err)
	}

	countRows, err := tx.QueryContext(ctx, `
SELECT company_id, COUNT(*)
FROM companies_employee
WHERE company_id = ANY($1)
GROUP BY company_id`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("counting employees: %w", err)
	}
	defer countRows.Close()
	for countRows.Next() {
		var companyID int64
		var n int
		if err := countRows.Scan(&companyID, &n); err != nil {
			return fmt.Errorf("scanning employee count: %w", err)
		}
		snaps[pos[companyID]].EmployeeCount = n
	}
	if err := countRows.Err(); err != nil {
		return fmt.Errorf("iterating employee counts: %w", err)
	}
	return nil
}

func scanEmployees(rows *sql.Rows) ([]Employee, error) {
	defer rows.Close()
	var employees []Employee
	for rows.Next() {
		var e Employee
		var phone sql.NullString
		if err := rows.Scan(
			&e.ID, &e.Name, &e.JobTitle, &e.Gender, &e.Email, &phone,
			&e.Created, &e.Modified, &e.Company.ID, &e.Company.Name,
		); err != nil {
			return nil, fmt.Errorf("scanning employee: %w", err)
		}
		e.PhoneNumber = phone.String
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating employees: %w", err)
	}
	return employees, nil
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
