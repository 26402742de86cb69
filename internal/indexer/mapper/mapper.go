// Package mapper projects primary-store entities into search documents.
package mapper

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/company-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/store"
)

// Reader is the slice of the primary store the mapper needs.
type Reader interface {
	CompanySnapshot(ctx context.Context, id int64) (*store.CompanySnapshot, error)
	Employee(ctx context.Context, id int64) (*store.Employee, error)
}

// Mapper loads an entity and projects it. It holds no state between calls.
type Mapper struct {
	reader Reader
}

// New returns a Mapper reading rows through reader.
func New(reader Reader) *Mapper {
	return &Mapper{reader: reader}
}

// MapCompany reads the company with its related rows and returns its
// document. Aggregates reflect the rows visible at call time.
func (m *Mapper) MapCompany(ctx context.Context, id int64) (document.CompanyDocument, error) {
	snap, err := m.reader.CompanySnapshot(ctx, id)
	if err != nil {
		return document.CompanyDocument{}, fmt.Errorf("loading company %d: %w", id, err)
	}
	return CompanyDocument(*snap), nil
}

// MapEmployee reads the employee with its company and returns its document.
func (m *Mapper) MapEmployee(ctx context.Context, id int64) (document.EmployeeDocument, error) {
	e, err := m.reader.Employee(ctx, id)
	if err != nil {
		return document.EmployeeDocument{}, fmt.Errorf("loading employee %d: %w", id, err)
	}
	return EmployeeDocument(*e), nil
}

// CompanyDocument computes the company projection from a snapshot.
func CompanyDocument(snap store.CompanySnapshot) document.CompanyDocument {
	c := snap.Company
	doc := document.CompanyDocument{
		ID:               c.ID,
		CompaniesHouseID: c.CompaniesHouseID,
		Name:             c.Name,
		Description:      c.Description,
		Country: document.CountryRef{
			ID:      c.Country.ID,
			ISOCode: c.Country.ISOCode,
			Name:    c.Country.Name,
		},
		Active:        c.Active,
		EmployeeCount: snap.EmployeeCount,
		Created:       c.Created,
		Modified:      c.Modified,
	}
	if c.DateFounded != nil {
		d := document.NewDate(*c.DateFounded)
		doc.DateFounded = &d
	}

	var last *store.Deal
	for i := range snap.Deals {
		d := &snap.Deals[i]
		doc.TotalDealsAmount += d.AmountRaised
		if last == nil || newer(d, last) {
			last = d
		}
	}
	if last != nil {
		amount := last.AmountRaised
		date := document.NewDate(last.DateOfDeal)
		doc.LastDealAmount = &amount
		doc.LastDealDate = &date
	}
	return doc
}

// newer orders deals by date, then id, so same-day rounds resolve to the
// most recently recorded one.
func newer(a, b *store.Deal) bool {
	if !a.DateOfDeal.Equal(b.DateOfDeal) {
		return a.DateOfDeal.After(b.DateOfDeal)
	}
	return a.ID > b.ID
}

// EmployeeDocument computes the employee projection.
func EmployeeDocument(e store.Employee) document.EmployeeDocument {
	return document.EmployeeDocument{
		ID:          e.ID,
		Name:        e.Name,
		JobTitle:    e.JobTitle,
		Gender:      e.Gender,
		Email:       e.Email,
		PhoneNumber: e.PhoneNumber,
		Company: document.EmployeeCompanyRef{
			ID:   e.Company.ID,
			Name: e.Company.Name,
		},
		Created:  e.Created,
		Modified: e.Modified,
	}
}
