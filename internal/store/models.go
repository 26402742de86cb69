// Package store reads entity snapshots from the primary relational store.
// It never writes: the CRUD service owns the schema and its transactions.
package store

import "time"

// Country is a row of companies_country.
type Country struct {
	ID      int64
	ISOCode string
	Name    string
}

// Company is a row of companies_company joined with its country.
type Company struct {
	ID               int64
	CompaniesHouseID string
	Name             string
	Description      string
	DateFounded      *time.Time
	Country          Country
	Active           bool
	Created          time.Time
	Modified         time.Time
}

// Deal is a funding round owned by a company.
type Deal struct {
	ID           int64
	CompanyID    int64
	DateOfDeal   time.Time
	AmountRaised float64
}

// CompanyRef is the owning company as seen from an employee.
type CompanyRef struct {
	ID   int64
	Name string
}

// Employee is a row of companies_employee joined with its company.
type Employee struct {
	ID          int64
	Company     CompanyRef
	Name        string
	JobTitle    string
	Gender      string
	Email       string
	PhoneNumber string
	Created     time.Time
	Modified    time.Time
}

// CompanySnapshot is a company plus the related rows visible when it was read.
// Deals are ordered newest first.
type CompanySnapshot struct {
	Company       Company
	Deals         []Deal
	EmployeeCount int
}
