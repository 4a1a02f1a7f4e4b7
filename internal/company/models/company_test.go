package models

import (
	"math"
	"testing"

	e "github.com/gartstein/companies/internal/company/errors"
	"github.com/stretchr/testify/assert"
)

func TestPage_Bounds(t *testing.T) {
	tests := []struct {
		name      string
		page      Page
		total     int
		wantStart int
		wantEnd   int
	}{
		{name: "first page", page: Page{Size: 3, Index: 1}, total: 8, wantStart: 0, wantEnd: 3},
		{name: "partial last page", page: Page{Size: 3, Index: 3}, total: 8, wantStart: 6, wantEnd: 8},
		{name: "page past the end", page: Page{Size: 3, Index: 4}, total: 8, wantStart: 8, wantEnd: 8},
		{name: "far past the end", page: Page{Size: 10, Index: 50}, total: 8, wantStart: 8, wantEnd: 8},
		{name: "empty store", page: Page{Size: 5, Index: 1}, total: 0, wantStart: 0, wantEnd: 0},
		{name: "exact fit", page: Page{Size: 4, Index: 2}, total: 8, wantStart: 4, wantEnd: 8},
		{name: "huge index does not overflow", page: Page{Size: 3, Index: math.MaxInt}, total: 8, wantStart: 8, wantEnd: 8},
		{name: "huge size does not overflow", page: Page{Size: math.MaxInt, Index: 1}, total: 8, wantStart: 0, wantEnd: 8},
		{name: "invalid page is empty", page: Page{Size: 0, Index: 1}, total: 8, wantStart: 8, wantEnd: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.page.Bounds(tt.total)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestCompany_Clone(t *testing.T) {
	orig := &Company{
		ID:        "c1",
		Name:      "SLB",
		Employees: []Employee{{ID: "e1", Name: "Bob", Salary: 1000}},
	}

	cp := orig.Clone()
	assert.Equal(t, orig, cp)

	cp.Name = "TW"
	cp.Employees[0].Name = "Mike"
	assert.Equal(t, "SLB", orig.Name)
	assert.Equal(t, "Bob", orig.Employees[0].Name)

	var nilCompany *Company
	assert.Nil(t, nilCompany.Clone())
}

func TestCompany_Clone_EmptyEmployeesIsNotNil(t *testing.T) {
	cp := (&Company{ID: "c1", Name: "SLB"}).Clone()
	assert.NotNil(t, cp.Employees)
	assert.Empty(t, cp.Employees)
}

func TestCompany_EmployeeIndex(t *testing.T) {
	c := &Company{Employees: []Employee{{ID: "a"}, {ID: "b"}}}
	assert.Equal(t, 0, c.EmployeeIndex("a"))
	assert.Equal(t, 1, c.EmployeeIndex("b"))
	assert.Equal(t, -1, c.EmployeeIndex("missing"))
}

func TestEmployee_StructuralEquality(t *testing.T) {
	a := Employee{ID: "e1", Name: "Bob", Salary: 1000}
	b := Employee{ID: "e1", Name: "Bob", Salary: 1000}
	assert.True(t, a == b)

	b.Salary = 2000
	assert.False(t, a == b)
}

func TestPage_Validate(t *testing.T) {
	assert.NoError(t, Page{Size: 3, Index: 1}.Validate())

	for _, p := range []Page{{Size: 0, Index: 1}, {Size: -1, Index: 1}, {Size: 3, Index: 0}, {Size: 3, Index: -2}} {
		err := p.Validate()
		assert.ErrorIs(t, err, e.ErrInvalidInput, "page %+v", p)
	}
}
