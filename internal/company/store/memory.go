// Package store implements the in-memory Company Store: the single owner of
// every Company and, through each Company, of its Employees.
package store

import (
	"context"
	"fmt"
	"sync"

	e "github.com/gartstein/companies/internal/company/errors"
	"github.com/gartstein/companies/internal/company/models"
	"go.uber.org/zap"
)

// MemoryStore keeps companies in a map keyed by ID plus a slice recording
// insertion order. A single RWMutex guards both, so check-then-insert in
// CreateCompany is atomic and List observes a consistent snapshot.
type MemoryStore struct {
	mu        sync.RWMutex
	companies map[string]*models.Company
	order     []string
	newID     IDGenerator
	logger    *zap.Logger
}

// NewMemoryStore builds an empty store. A nil generator falls back to UUIDGenerator.
func NewMemoryStore(newID IDGenerator, logger *zap.Logger) *MemoryStore {
	if newID == nil {
		newID = UUIDGenerator
	}
	return &MemoryStore{
		companies: make(map[string]*models.Company),
		newID:     newID,
		logger:    logger.Named("memory_store"),
	}
}

func (s *MemoryStore) CreateCompany(_ context.Context, name string) (*models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.companies {
		if c.Name == name {
			return nil, fmt.Errorf("%w: %q", e.ErrDuplicateName, name)
		}
	}

	company := &models.Company{ID: s.newID(), Name: name, Employees: []models.Employee{}}
	s.companies[company.ID] = company
	s.order = append(s.order, company.ID)

	s.logger.Debug("company stored", zap.String("company_id", company.ID))
	return company.Clone(), nil
}

// ListCompanies returns companies in creation order. A nil page returns all of them.
func (s *MemoryStore) ListCompanies(_ context.Context, page *models.Page) ([]models.Company, error) {
	if page != nil {
		if err := page.Validate(); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.order
	if page != nil {
		start, end := page.Bounds(len(ids))
		ids = ids[start:end]
	}

	out := make([]models.Company, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.companies[id].Clone())
	}
	return out, nil
}

func (s *MemoryStore) GetCompany(_ context.Context, id string) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	company, ok := s.companies[id]
	if !ok {
		return nil, e.ErrNotFound
	}
	return company.Clone(), nil
}

// UpdateCompany renames a company. Name uniqueness is only enforced at creation.
func (s *MemoryStore) UpdateCompany(_ context.Context, update *models.CompanyUpdate) (*models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	company, ok := s.companies[update.ID]
	if !ok {
		return nil, e.ErrNotFound
	}
	company.Name = update.Name
	return company.Clone(), nil
}

// DeleteCompany drops the company together with all of its employees.
func (s *MemoryStore) DeleteCompany(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.companies[id]; !ok {
		return e.ErrNotFound
	}
	delete(s.companies, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	s.logger.Debug("company removed", zap.String("company_id", id))
	return nil
}

func (s *MemoryStore) AddEmployee(_ context.Context, companyID, name string, salary int64) (*models.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	company, ok := s.companies[companyID]
	if !ok {
		return nil, e.ErrNotFound
	}
	employee := models.Employee{ID: s.newID(), Name: name, Salary: salary}
	company.Employees = append(company.Employees, employee)
	return &employee, nil
}

// ListEmployees returns the company's employees in insertion order; the
// slice is empty, not an error, when the company has none.
func (s *MemoryStore) ListEmployees(_ context.Context, companyID string) ([]models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	company, ok := s.companies[companyID]
	if !ok {
		return nil, e.ErrNotFound
	}
	out := make([]models.Employee, len(company.Employees))
	copy(out, company.Employees)
	return out, nil
}

func (s *MemoryStore) UpdateEmployee(_ context.Context, update *models.EmployeeUpdate) (*models.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	company, ok := s.companies[update.CompanyID]
	if !ok {
		return nil, e.ErrNotFound
	}
	i := company.EmployeeIndex(update.EmployeeID)
	if i < 0 {
		return nil, e.ErrNotFound
	}
	company.Employees[i].Name = update.Name
	company.Employees[i].Salary = update.Salary
	employee := company.Employees[i]
	return &employee, nil
}

func (s *MemoryStore) RemoveEmployee(_ context.Context, companyID, employeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	company, ok := s.companies[companyID]
	if !ok {
		return e.ErrNotFound
	}
	i := company.EmployeeIndex(employeeID)
	if i < 0 {
		return e.ErrNotFound
	}
	company.Employees = append(company.Employees[:i], company.Employees[i+1:]...)
	return nil
}

// Reset discards every company and employee.
func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.companies = make(map[string]*models.Company)
	s.order = nil
	s.logger.Debug("store reset")
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
