// Package controller implements the core business logic (service layer)
// for managing companies and their employees, validating input,
// delegating to a Repository and sending change events.
package controller

import (
	"context"
	"errors"
	"fmt"

	e "github.com/gartstein/companies/internal/company/errors"
	"github.com/gartstein/companies/internal/company/events"
	"github.com/gartstein/companies/internal/company/models"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(event events.Event)
}

// Repository defines the storage interface for companies and employees.
// Both store.MemoryStore and db.Repository satisfy it.
type Repository interface {
	CreateCompany(ctx context.Context, name string) (*models.Company, error)
	ListCompanies(ctx context.Context, page *models.Page) ([]models.Company, error)
	GetCompany(ctx context.Context, id string) (*models.Company, error)
	UpdateCompany(ctx context.Context, update *models.CompanyUpdate) (*models.Company, error)
	DeleteCompany(ctx context.Context, id string) error
	AddEmployee(ctx context.Context, companyID, name string, salary int64) (*models.Employee, error)
	ListEmployees(ctx context.Context, companyID string) ([]models.Employee, error)
	UpdateEmployee(ctx context.Context, update *models.EmployeeUpdate) (*models.Employee, error)
	RemoveEmployee(ctx context.Context, companyID, employeeID string) error
	Reset(ctx context.Context) error
	Close() error
}

// CompanyService provides methods to manage companies via repository
// operations and event production.
type CompanyService struct {
	repo     Repository
	producer EventProducer
	logger   *zap.Logger
}

// NewCompanyService constructs a CompanyService with a repository,
// an event producer, and a logger.
func NewCompanyService(repo Repository, producer EventProducer, logger *zap.Logger) *CompanyService {
	return &CompanyService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("company_service"),
	}
}

// CreateCompany adds a new Company after validating the name; the repository
// rejects names already in use.
func (s *CompanyService) CreateCompany(ctx context.Context, name string) (*models.Company, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", e.ErrInvalidInput)
	}

	company, err := s.repo.CreateCompany(ctx, name)
	if err != nil {
		if errors.Is(err, e.ErrDuplicateName) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	s.emit(events.Event{Type: events.CompanyCreated, CompanyID: company.ID, Company: company.Clone()})
	return company, nil
}

// ListCompanies returns every company in creation order, or one page of them.
func (s *CompanyService) ListCompanies(ctx context.Context, page *models.Page) ([]models.Company, error) {
	// Stores validate the page too; this keeps non-HTTP callers from reaching them with one.
	if page != nil {
		if err := page.Validate(); err != nil {
			return nil, err
		}
	}

	companies, err := s.repo.ListCompanies(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, nil
}

// GetCompany retrieves a Company by ID, returning an error if not found.
func (s *CompanyService) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return company, nil
}

// UpdateCompany renames the specified Company. Uniqueness is not re-checked.
func (s *CompanyService) UpdateCompany(ctx context.Context, update *models.CompanyUpdate) (*models.Company, error) {
	if update.ID == "" {
		return nil, fmt.Errorf("%w: invalid company ID", e.ErrInvalidInput)
	}
	if update.Name == "" {
		return nil, fmt.Errorf("%w: name is required", e.ErrInvalidInput)
	}

	updated, err := s.repo.UpdateCompany(ctx, update)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update company: %w", err)
	}

	s.emit(events.Event{Type: events.CompanyUpdated, CompanyID: updated.ID, Company: updated.Clone()})
	return updated, nil
}

// DeleteCompany removes a Company, and with it all its employees, then fires a deletion event.
func (s *CompanyService) DeleteCompany(ctx context.Context, id string) error {
	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to get company for deletion: %w", err)
	}

	if err := s.repo.DeleteCompany(ctx, id); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete company: %w", err)
	}

	s.emit(events.Event{Type: events.CompanyDeleted, CompanyID: id, Company: company})
	return nil
}

// DeleteAllCompanies resets the store to empty.
func (s *CompanyService) DeleteAllCompanies(ctx context.Context) error {
	if err := s.repo.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}
	s.logger.Info("All companies deleted")
	s.emit(events.Event{Type: events.StoreReset})
	return nil
}

// AddEmployee appends a new employee to the company.
func (s *CompanyService) AddEmployee(ctx context.Context, companyID, name string, salary int64) (*models.Employee, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: employee name is required", e.ErrInvalidInput)
	}

	employee, err := s.repo.AddEmployee(ctx, companyID, name, salary)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to add employee: %w", err)
	}

	emp := *employee
	s.emit(events.Event{Type: events.EmployeeAdded, CompanyID: companyID, Employee: &emp})
	return employee, nil
}

// ListEmployees returns the company's employees in insertion order.
// A company without employees is reported as ErrNotFound, unlike an empty
// company list which is a valid result.
func (s *CompanyService) ListEmployees(ctx context.Context, companyID string) ([]models.Employee, error) {
	employees, err := s.repo.ListEmployees(ctx, companyID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	if len(employees) == 0 {
		return nil, fmt.Errorf("%w: company %s has no employees", e.ErrNotFound, companyID)
	}
	return employees, nil
}

// UpdateEmployee replaces an employee's name and salary, keeping its ID.
func (s *CompanyService) UpdateEmployee(ctx context.Context, update *models.EmployeeUpdate) (*models.Employee, error) {
	if update.Name == "" {
		return nil, fmt.Errorf("%w: employee name is required", e.ErrInvalidInput)
	}

	employee, err := s.repo.UpdateEmployee(ctx, update)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update employee: %w", err)
	}

	emp := *employee
	s.emit(events.Event{Type: events.EmployeeUpdated, CompanyID: update.CompanyID, Employee: &emp})
	return employee, nil
}

// RemoveEmployee deletes one employee from the company.
func (s *CompanyService) RemoveEmployee(ctx context.Context, companyID, employeeID string) error {
	if err := s.repo.RemoveEmployee(ctx, companyID, employeeID); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to remove employee: %w", err)
	}

	s.emit(events.Event{Type: events.EmployeeRemoved, CompanyID: companyID, Employee: &models.Employee{ID: employeeID}})
	return nil
}

// emit hands the event to the producer in call order. Producers must not block.
func (s *CompanyService) emit(event events.Event) {
	s.producer.Produce(event)
}
