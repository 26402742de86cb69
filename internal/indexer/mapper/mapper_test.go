package mapper

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/company-search/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/company-search/pkg/errors"
)

type fakeReader struct {
	companies map[int64]store.CompanySnapshot
	employees map[int64]store.Employee
	calls     int
}

func (f *fakeReader) CompanySnapshot(_ context.Context, id int64) (*store.CompanySnapshot, error) {
	f.calls++
	snap, ok := f.companies[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrNotFound, 404, "company %d not found", id)
	}
	return &snap, nil
}

func (f *fakeReader) Employee(_ context.Context, id int64) (*store.Employee, error) {
	f.calls++
	e, ok := f.employees[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrNotFound, 404, "employee %d not found", id)
	}
	return &e, nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func acme() store.CompanySnapshot {
	founded := day("2010-04-01")
	return store.CompanySnapshot{
		Company: store.Company{
			ID:               7,
			CompaniesHouseID: "AB123456",
			Name:             "Acme Robotics",
			Description:      "Robots for warehouses",
			DateFounded:      &founded,
			Country:          store.Country{ID: 1, ISOCode: "GB", Name: "United Kingdom"},
			Active:           true,
		},
		Deals: []store.Deal{
			{ID: 1, CompanyID: 7, DateOfDeal: day("2023-01-01"), AmountRaised: 100},
			{ID: 2, CompanyID: 7, DateOfDeal: day("2023-06-01"), AmountRaised: 250},
		},
		EmployeeCount: 3,
	}
}

func TestCompanyDocumentAggregates(t *testing.T) {
	doc := CompanyDocument(acme())

	assert.Equal(t, int64(7), doc.ID)
	assert.Equal(t, "GB", doc.Country.ISOCode)
	assert.Equal(t, 3, doc.EmployeeCount)
	assert.Equal(t, 350.0, doc.TotalDealsAmount)
	require.NotNil(t, doc.LastDealAmount)
	assert.Equal(t, 250.0, *doc.LastDealAmount)
	require.NotNil(t, doc.LastDealDate)
	assert.Equal(t, "2023-06-01", doc.LastDealDate.Format("2006-01-02"))

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"date_founded":"2010-04-01"`)
	assert.Contains(t, string(raw), `"last_deal_date":"2023-06-01"`)
}

func TestCompanyDocumentWithoutDeals(t *testing.T) {
	snap := acme()
	snap.Deals = nil
	snap.Company.DateFounded = nil

	doc := CompanyDocument(snap)
	assert.Zero(t, doc.TotalDealsAmount)
	assert.Nil(t, doc.LastDealAmount)
	assert.Nil(t, doc.LastDealDate)
	assert.Nil(t, doc.DateFounded)
}

func TestCompanyDocumentSameDayDeals(t *testing.T) {
	snap := acme()
	snap.Deals = []store.Deal{
		{ID: 4, DateOfDeal: day("2024-02-02"), AmountRaised: 10},
		{ID: 9, DateOfDeal: day("2024-02-02"), AmountRaised: 20},
		{ID: 1, DateOfDeal: day("2020-01-01"), AmountRaised: 5},
	}
	doc := CompanyDocument(snap)
	assert.Equal(t, 35.0, doc.TotalDealsAmount)
	assert.Equal(t, 20.0, *doc.LastDealAmount)
}

func TestCompanyDocumentDoesNotMutateSnapshot(t *testing.T) {
	snap := acme()
	before := snap.Deals[0]
	_ = CompanyDocument(snap)
	assert.Equal(t, before, snap.Deals[0])
}

func TestMapperLoadsFreshEachCall(t *testing.T) {
	reader := &fakeReader{
		companies: map[int64]store.CompanySnapshot{7: acme()},
		employees: map[int64]store.Employee{
			3: {ID: 3, Name: "Ada", JobTitle: "Engineer", Email: "ada@acme.test",
				Company: store.CompanyRef{ID: 7, Name: "Acme Robotics"}},
		},
	}
	m := New(reader)
	ctx := context.Background()

	doc, err := m.MapCompany(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Acme Robotics", doc.Name)

	snap := reader.companies[7]
	snap.EmployeeCount = 4
	reader.companies[7] = snap
	doc, err = m.MapCompany(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 4, doc.EmployeeCount)
	assert.Equal(t, 2, reader.calls)

	emp, err := m.MapEmployee(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Acme Robotics", emp.Company.Name)
	assert.Equal(t, "Engineer", emp.JobTitle)

	_, err = m.MapCompany(ctx, 99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = m.MapEmployee(ctx, 99)
	assert.True(t, store.IsNotFound(err))
}
