// Package document defines the flattened search documents, the entity-type
// tags that select an index, and the mappings each index is created with.
package document

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// EntityType names a searchable entity kind. It doubles as the URL segment of
// rendered results.
type EntityType string

const (
	Companies EntityType = "companies"
	Employees EntityType = "employees"
	// All is the request sentinel that expands to every entity type.
	All EntityType = "all"
)

// EntityTypes lists the concrete types in canonical submission order.
var EntityTypes = []EntityType{Companies, Employees}

// ParseEntityType accepts "all", "companies" or "employees".
func ParseEntityType(s string) (EntityType, bool) {
	switch t := EntityType(s); t {
	case All, Companies, Employees:
		return t, true
	default:
		return "", false
	}
}

// Indices maps entity types to index names.
type Indices struct {
	Companies string
	Employees string
}

// Name returns the index for t, or "" for an unknown type.
func (i Indices) Name(t EntityType) string {
	switch t {
	case Companies:
		return i.Companies
	case Employees:
		return i.Employees
	default:
		return ""
	}
}

// DocumentID renders a primary-store id as an engine document id.
func DocumentID(id int64) string {
	return strconv.FormatInt(id, 10)
}

const dateLayout = "2006-01-02"

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date.
func NewDate(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("parsing date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// CountryRef is the nested country of a company document.
type CountryRef struct {
	ID      int64  `json:"id"`
	ISOCode string `json:"iso_code"`
	Name    string `json:"name"`
}

// CompanyDocument is the indexed projection of a company. The employee and
// deal aggregates are computed when the document is mapped and go stale if
// related rows change without the company being re-mapped.
type CompanyDocument struct {
	ID               int64      `json:"id"`
	CompaniesHouseID string     `json:"companies_house_id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	DateFounded      *Date      `json:"date_founded"`
	Country          CountryRef `json:"country"`
	Active           bool       `json:"active"`
	EmployeeCount    int        `json:"employee_count"`
	TotalDealsAmount float64    `json:"total_deals_amount"`
	LastDealAmount   *float64   `json:"last_deal_amount"`
	LastDealDate     *Date      `json:"last_deal_date"`
	Created          time.Time  `json:"created"`
	Modified         time.Time  `json:"modified"`
}

// EmployeeCompanyRef is the nested company of an employee document.
type EmployeeCompanyRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// EmployeeDocument is the indexed projection of an employee.
type EmployeeDocument struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	JobTitle    string             `json:"job_title"`
	Gender      string             `json:"gender"`
	Email       string             `json:"email"`
	PhoneNumber string             `json:"phone_number"`
	Company     EmployeeCompanyRef `json:"company"`
	Created     time.Time          `json:"created"`
	Modified    time.Time          `json:"modified"`
}
