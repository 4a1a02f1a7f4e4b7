// Package models defines the core domain models: Company and the Employees
// it exclusively owns, plus the update and paging inputs of the service.
package models

import (
	"fmt"

	e "github.com/gartstein/companies/internal/company/errors"
)

// Company defines the domain model for a company entity.
type Company struct {
	// ID is the unique identifier for the company. It is assigned by the
	// store at creation and never changes.
	ID string `json:"CompanyId"`
	// Name is the company's name, unique among stored companies at creation time.
	Name string `json:"Name"`
	// Employees lists the company's employees in insertion order.
	Employees []Employee `json:"Employees"`
}

// Employee is a single employee record owned by exactly one Company.
// Two employees are equal when all fields match, so == can be used directly.
type Employee struct {
	// ID is the unique identifier for the employee.
	ID string `json:"EmployeeId"`
	// Name is the employee's name.
	Name string `json:"Name"`
	// Salary is the employee's salary.
	Salary int64 `json:"Salary"`
}

// CompanyUpdate represents the fields that can be updated for a Company.
type CompanyUpdate struct {
	// ID identifies the company to update.
	ID string
	// Name is the new name for the company.
	Name string
}

// EmployeeUpdate carries the replacement name and salary for one employee.
type EmployeeUpdate struct {
	CompanyID  string
	EmployeeID string
	Name       string
	Salary     int64
}

// Page selects a 1-indexed window of Size items. A nil *Page means "everything".
type Page struct {
	Size  int
	Index int
}

// Bounds returns the half-open [start, end) range of the page clipped to total.
// A page past the end yields start == end == total.
func (p Page) Bounds(total int) (start, end int) {
	if p.Size <= 0 || p.Index <= 0 || p.Index-1 > total/p.Size {
		return total, total
	}
	start = (p.Index - 1) * p.Size
	end = total
	if p.Size < total-start {
		end = start + p.Size
	}
	return start, end
}

// Clone returns a deep copy of the company, so callers can't reach stored state.
func (c *Company) Clone() *Company {
	if c == nil {
		return nil
	}
	out := &Company{ID: c.ID, Name: c.Name, Employees: make([]Employee, len(c.Employees))}
	copy(out.Employees, c.Employees)
	return out
}

// EmployeeIndex returns the position of the employee with the given id, or -1.
func (c *Company) EmployeeIndex(id string) int {
	for i := range c.Employees {
		if c.Employees[i].ID == id {
			return i
		}
	}
	return -1
}

// Validate rejects zero or negative page parameters.
func (p Page) Validate() error {
	if p.Size <= 0 {
		return fmt.Errorf("%w: pageSize must be positive, got %d", e.ErrInvalidInput, p.Size)
	}
	if p.Index <= 0 {
		return fmt.Errorf("%w: pageIndex must be positive, got %d", e.ErrInvalidInput, p.Index)
	}
	return nil
}
