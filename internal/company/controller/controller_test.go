package controller

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	e "github.com/gartstein/companies/internal/company/errors"
	"github.com/gartstein/companies/internal/company/events"
	"github.com/gartstein/companies/internal/company/models"
	"github.com/gartstein/companies/internal/company/store"
	"go.uber.org/zap/zaptest"
)

// MockRepository implements the Repository interface for testing
type MockRepository struct {
	createCompany  func(context.Context, string) (*models.Company, error)
	listCompanies  func(context.Context, *models.Page) ([]models.Company, error)
	getCompany     func(context.Context, string) (*models.Company, error)
	updateCompany  func(context.Context, *models.CompanyUpdate) (*models.Company, error)
	deleteCompany  func(context.Context, string) error
	addEmployee    func(context.Context, string, string, int64) (*models.Employee, error)
	listEmployees  func(context.Context, string) ([]models.Employee, error)
	updateEmployee func(context.Context, *models.EmployeeUpdate) (*models.Employee, error)
	removeEmployee func(context.Context, string, string) error
	reset          func(context.Context) error
}

func (m *MockRepository) CreateCompany(ctx context.Context, name string) (*models.Company, error) {
	return m.createCompany(ctx, name)
}

func (m *MockRepository) ListCompanies(ctx context.Context, page *models.Page) ([]models.Company, error) {
	return m.listCompanies(ctx, page)
}

func (m *MockRepository) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	return m.getCompany(ctx, id)
}

func (m *MockRepository) UpdateCompany(ctx context.Context, u *models.CompanyUpdate) (*models.Company, error) {
	return m.updateCompany(ctx, u)
}

func (m *MockRepository) DeleteCompany(ctx context.Context, id string) error {
	return m.deleteCompany(ctx, id)
}

func (m *MockRepository) AddEmployee(ctx context.Context, companyID, name string, salary int64) (*models.Employee, error) {
	return m.addEmployee(ctx, companyID, name, salary)
}

func (m *MockRepository) ListEmployees(ctx context.Context, companyID string) ([]models.Employee, error) {
	return m.listEmployees(ctx, companyID)
}

func (m *MockRepository) UpdateEmployee(ctx context.Context, u *models.EmployeeUpdate) (*models.Employee, error) {
	return m.updateEmployee(ctx, u)
}

func (m *MockRepository) RemoveEmployee(ctx context.Context, companyID, employeeID string) error {
	return m.removeEmployee(ctx, companyID, employeeID)
}

func (m *MockRepository) Reset(ctx context.Context) error {
	return m.reset(ctx)
}

func (m *MockRepository) Close() error {
	return nil
}

// MockProducer is a test double for the Kafka producer.
type MockProducer struct {
	mu             sync.Mutex
	producedEvents []events.Event
	wg             *sync.WaitGroup
}

// Produce records the event and signals the wait group.
func (m *MockProducer) Produce(event events.Event) {
	m.mu.Lock()
	m.producedEvents = append(m.producedEvents, event)
	m.mu.Unlock()
	if m.wg != nil {
		m.wg.Done()
	}
}

func TestCompanyService_CreateCompany(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		mockSetup     func(*MockRepository)
		expectError   bool
		expectedError error
	}{
		{
			name:  "successful creation",
			input: "SLB",
			mockSetup: func(mr *MockRepository) {
				mr.createCompany = func(_ context.Context, name string) (*models.Company, error) {
					return &models.Company{ID: "c1", Name: name, Employees: []models.Employee{}}, nil
				}
			},
		},
		{
			name:  "duplicate name",
			input: "SLB",
			mockSetup: func(mr *MockRepository) {
				mr.createCompany = func(_ context.Context, _ string) (*models.Company, error) {
					return nil, e.ErrDuplicateName
				}
			},
			expectError:   true,
			expectedError: e.ErrDuplicateName,
		},
		{
			name:          "empty name",
			input:         "",
			mockSetup:     func(_ *MockRepository) {},
			expectError:   true,
			expectedError: e.ErrInvalidInput,
		},
		{
			name:  "repository error",
			input: "Valid",
			mockSetup: func(mr *MockRepository) {
				mr.createCompany = func(_ context.Context, _ string) (*models.Company, error) {
					return nil, errors.New("database error")
				}
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zaptest.NewLogger(t)
			mockRepo := &MockRepository{}
			mockProducer := &MockProducer{wg: new(sync.WaitGroup)}
			tt.mockSetup(mockRepo)
			service := NewCompanyService(mockRepo, mockProducer, logger)

			// For successful creation, add one waitgroup counter for the async event.
			if !tt.expectError {
				mockProducer.wg.Add(1)
			}

			result, err := service.CreateCompany(context.Background(), tt.input)

			if tt.expectError {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if tt.expectedError != nil && !errors.Is(err, tt.expectedError) {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
				return
			}

			mockProducer.wg.Wait()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.ID == "" {
				t.Error("expected company ID to be set")
			}
			if len(mockProducer.producedEvents) != 1 || mockProducer.producedEvents[0].Type != events.CompanyCreated {
				t.Errorf("expected one creation event, got %+v", mockProducer.producedEvents)
			}
		})
	}
}

func TestCompanyService_ListCompanies(t *testing.T) {
	tests := []struct {
		name          string
		page          *models.Page
		expectedError error
		expectRepo    bool
	}{
		{name: "all", page: nil, expectRepo: true},
		{name: "valid page", page: &models.Page{Size: 3, Index: 2}, expectRepo: true},
		{name: "zero size", page: &models.Page{Size: 0, Index: 1}, expectedError: e.ErrInvalidInput},
		{name: "negative index", page: &models.Page{Size: 3, Index: -1}, expectedError: e.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			mockRepo := &MockRepository{
				listCompanies: func(_ context.Context, page *models.Page) ([]models.Company, error) {
					called = true
					if page != tt.page {
						t.Errorf("expected page %v to be passed through, got %v", tt.page, page)
					}
					return []models.Company{}, nil
				},
			}
			service := NewCompanyService(mockRepo, &MockProducer{}, zaptest.NewLogger(t))

			_, err := service.ListCompanies(context.Background(), tt.page)
			if tt.expectedError != nil {
				if !errors.Is(err, tt.expectedError) {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if called != tt.expectRepo {
				t.Errorf("expected repository call %v, got %v", tt.expectRepo, called)
			}
		})
	}
}

func TestCompanyService_GetCompany(t *testing.T) {
	validCompany := &models.Company{ID: "c1", Name: "Existing Company"}

	tests := []struct {
		name          string
		input         string
		mockSetup     func(*MockRepository)
		expectError   bool
		expectedError error
	}{
		{
			name:  "successful get",
			input: "c1",
			mockSetup: func(mr *MockRepository) {
				mr.getCompany = func(_ context.Context, _ string) (*models.Company, error) {
					return validCompany, nil
				}
			},
		},
		{
			name:  "not found",
			input: "missing",
			mockSetup: func(mr *MockRepository) {
				mr.getCompany = func(_ context.Context, _ string) (*models.Company, error) {
					return nil, e.ErrNotFound
				}
			},
			expectError:   true,
			expectedError: e.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockRepository{}
			tt.mockSetup(mockRepo)

			service := NewCompanyService(mockRepo, &MockProducer{}, zaptest.NewLogger(t))
			result, err := service.GetCompany(context.Background(), tt.input)

			if tt.expectError {
				if !errors.Is(err, tt.expectedError) {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.ID != tt.input {
				t.Errorf("expected company ID %v, got %v", tt.input, result.ID)
			}
		})
	}
}

func TestCompanyService_UpdateCompany(t *testing.T) {
	tests := []struct {
		name          string
		input         *models.CompanyUpdate
		mockSetup     func(*MockRepository)
		expectError   bool
		expectedError error
	}{
		{
			name:  "successful update",
			input: &models.CompanyUpdate{ID: "c1", Name: "Baidu"},
			mockSetup: func(mr *MockRepository) {
				mr.updateCompany = func(_ context.Context, u *models.CompanyUpdate) (*models.Company, error) {
					return &models.Company{ID: u.ID, Name: u.Name}, nil
				}
			},
		},
		{
			name:          "invalid ID",
			input:         &models.CompanyUpdate{ID: "", Name: "Baidu"},
			mockSetup:     func(_ *MockRepository) {},
			expectError:   true,
			expectedError: e.ErrInvalidInput,
		},
		{
			name:          "empty name",
			input:         &models.CompanyUpdate{ID: "c1"},
			mockSetup:     func(_ *MockRepository) {},
			expectError:   true,
			expectedError: e.ErrInvalidInput,
		},
		{
			name:  "not found",
			input: &models.CompanyUpdate{ID: "missing", Name: "Baidu"},
			mockSetup: func(mr *MockRepository) {
				mr.updateCompany = func(_ context.Context, _ *models.CompanyUpdate) (*models.Company, error) {
					return nil, e.ErrNotFound
				}
			},
			expectError:   true,
			expectedError: e.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockRepository{}
			mockProducer := &MockProducer{wg: new(sync.WaitGroup)}
			tt.mockSetup(mockRepo)
			service := NewCompanyService(mockRepo, mockProducer, zaptest.NewLogger(t))

			if !tt.expectError {
				mockProducer.wg.Add(1)
			}

			updated, err := service.UpdateCompany(context.Background(), tt.input)

			if tt.expectError {
				if !errors.Is(err, tt.expectedError) {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
				return
			}

			mockProducer.wg.Wait()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if updated.Name != tt.input.Name {
				t.Errorf("expected name %q, got %q", tt.input.Name, updated.Name)
			}
			if len(mockProducer.producedEvents) != 1 {
				t.Error("expected update event to be produced")
			}
		})
	}
}

func TestCompanyService_DeleteCompany(t *testing.T) {
	tests := []struct {
		name          string
		mockSetup     func(*MockRepository)
		expectError   bool
		expectedError error
	}{
		{
			name: "successful deletion",
			mockSetup: func(mr *MockRepository) {
				mr.getCompany = func(_ context.Context, id string) (*models.Company, error) {
					return &models.Company{ID: id}, nil
				}
				mr.deleteCompany = func(_ context.Context, _ string) error {
					return nil
				}
			},
		},
		{
			name: "not found",
			mockSetup: func(mr *MockRepository) {
				mr.getCompany = func(_ context.Context, _ string) (*models.Company, error) {
					return nil, e.ErrNotFound
				}
			},
			expectError:   true,
			expectedError: e.ErrNotFound,
		},
		{
			name: "deleted concurrently",
			mockSetup: func(mr *MockRepository) {
				mr.getCompany = func(_ context.Context, id string) (*models.Company, error) {
					return &models.Company{ID: id}, nil
				}
				mr.deleteCompany = func(_ context.Context, _ string) error {
					return e.ErrNotFound
				}
			},
			expectError:   true,
			expectedError: e.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockRepository{}
			// Initialize the mock producer with a WaitGroup to wait for the async event.
			mockProducer := &MockProducer{wg: new(sync.WaitGroup)}
			tt.mockSetup(mockRepo)
			service := NewCompanyService(mockRepo, mockProducer, zaptest.NewLogger(t))

			if !tt.expectError {
				mockProducer.wg.Add(1)
			}

			err := service.DeleteCompany(context.Background(), "c1")

			if tt.expectError {
				if !errors.Is(err, tt.expectedError) {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
				return
			}

			mockProducer.wg.Wait()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(mockProducer.producedEvents) != 1 || mockProducer.producedEvents[0].Type != events.CompanyDeleted {
				t.Error("expected deletion event to be produced")
			}
		})
	}
}

func TestCompanyService_EmployeeValidation(t *testing.T) {
	mockRepo := &MockRepository{}
	service := NewCompanyService(mockRepo, &MockProducer{}, zaptest.NewLogger(t))
	ctx := context.Background()

	if _, err := service.AddEmployee(ctx, "c1", "", 1000); !errors.Is(err, e.ErrInvalidInput) {
		t.Errorf("expected %v for empty name, got %v", e.ErrInvalidInput, err)
	}
	if _, err := service.UpdateEmployee(ctx, &models.EmployeeUpdate{CompanyID: "c1", EmployeeID: "e1"}); !errors.Is(err, e.ErrInvalidInput) {
		t.Errorf("expected %v for empty name, got %v", e.ErrInvalidInput, err)
	}
}

func TestCompanyService_ListEmployees(t *testing.T) {
	tests := []struct {
		name          string
		employees     []models.Employee
		repoErr       error
		expectedError error
		expectedLen   int
	}{
		{name: "two employees", employees: []models.Employee{{ID: "e1"}, {ID: "e2"}}, expectedLen: 2},
		{name: "no employees is not found", employees: []models.Employee{}, expectedError: e.ErrNotFound},
		{name: "unknown company", repoErr: e.ErrNotFound, expectedError: e.ErrNotFound},
		{name: "repository failure", repoErr: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockRepository{
				listEmployees: func(_ context.Context, _ string) ([]models.Employee, error) {
					return tt.employees, tt.repoErr
				},
			}
			service := NewCompanyService(mockRepo, &MockProducer{}, zaptest.NewLogger(t))

			got, err := service.ListEmployees(context.Background(), "c1")
			switch {
			case tt.expectedError != nil:
				if !errors.Is(err, tt.expectedError) {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
			case tt.repoErr != nil:
				if err == nil || errors.Is(err, e.ErrNotFound) {
					t.Errorf("expected wrapped repository error, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(got) != tt.expectedLen {
					t.Errorf("expected %d employees, got %d", tt.expectedLen, len(got))
				}
			}
		})
	}
}

// TestCompanyService_WithMemoryStore drives the service over the real
// in-memory store and checks the event stream it produces.
func TestCompanyService_WithMemoryStore(t *testing.T) {
	logger := zaptest.NewLogger(t)
	repo := store.NewMemoryStore(store.NewSequence("id"), logger)
	producer := &MockProducer{wg: new(sync.WaitGroup)}
	service := NewCompanyService(repo, producer, logger)
	ctx := context.Background()

	producer.wg.Add(6)

	slb, err := service.CreateCompany(ctx, "SLB")
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	tw, err := service.CreateCompany(ctx, "TW")
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	bob, err := service.AddEmployee(ctx, slb.ID, "Bob", 1000)
	if err != nil {
		t.Fatalf("AddEmployee: %v", err)
	}
	updated, err := service.UpdateEmployee(ctx, &models.EmployeeUpdate{CompanyID: slb.ID, EmployeeID: bob.ID, Name: "Mike", Salary: 2000})
	if err != nil {
		t.Fatalf("UpdateEmployee: %v", err)
	}
	if updated.ID != bob.ID || updated.Name != "Mike" || updated.Salary != 2000 {
		t.Errorf("unexpected updated employee %+v", updated)
	}
	if _, err := service.ListEmployees(ctx, tw.ID); !errors.Is(err, e.ErrNotFound) {
		t.Errorf("expected %v for company without employees, got %v", e.ErrNotFound, err)
	}
	if err := service.RemoveEmployee(ctx, slb.ID, bob.ID); err != nil {
		t.Fatalf("RemoveEmployee: %v", err)
	}
	if _, err := service.ListEmployees(ctx, slb.ID); !errors.Is(err, e.ErrNotFound) {
		t.Errorf("expected %v after removing the only employee, got %v", e.ErrNotFound, err)
	}
	if err := service.DeleteAllCompanies(ctx); err != nil {
		t.Fatalf("DeleteAllCompanies: %v", err)
	}

	producer.wg.Wait()

	counts := map[events.EventType]int{}
	for _, ev := range producer.producedEvents {
		counts[ev.Type]++
	}
	want := map[events.EventType]int{
		events.CompanyCreated:  2,
		events.EmployeeAdded:   1,
		events.EmployeeUpdated: 1,
		events.EmployeeRemoved: 1,
		events.StoreReset:      1,
	}
	for typ, n := range want {
		if counts[typ] != n {
			t.Errorf("expected %d %s events, got %d", n, typ, counts[typ])
		}
	}

	all, err := service.ListCompanies(ctx, nil)
	if err != nil {
		t.Fatalf("ListCompanies: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected empty store after reset, got %d companies", len(all))
	}
}

// TestCompanyService_EventsInCallOrder checks that every company's events
// reach the producer in the order the mutations happened.
func TestCompanyService_EventsInCallOrder(t *testing.T) {
	logger := zaptest.NewLogger(t)
	repo := store.NewMemoryStore(nil, logger)
	producer := &MockProducer{}
	service := NewCompanyService(repo, producer, logger)
	ctx := context.Background()

	const companies = 500
	for i := 0; i < companies; i++ {
		c, err := service.CreateCompany(ctx, fmt.Sprintf("company-%d", i))
		if err != nil {
			t.Fatalf("CreateCompany: %v", err)
		}
		if _, err := service.AddEmployee(ctx, c.ID, "Bob", 1000); err != nil {
			t.Fatalf("AddEmployee: %v", err)
		}
		if err := service.DeleteCompany(ctx, c.ID); err != nil {
			t.Fatalf("DeleteCompany: %v", err)
		}
	}

	producer.mu.Lock()
	defer producer.mu.Unlock()
	if len(producer.producedEvents) != 3*companies {
		t.Fatalf("expected %d events, got %d", 3*companies, len(producer.producedEvents))
	}

	want := []events.EventType{events.CompanyCreated, events.EmployeeAdded, events.CompanyDeleted}
	perCompany := map[string][]events.EventType{}
	for _, ev := range producer.producedEvents {
		perCompany[ev.CompanyID] = append(perCompany[ev.CompanyID], ev.Type)
	}
	for id, got := range perCompany {
		if !reflect.DeepEqual(want, got) {
			t.Errorf("company %s: expected events %v, got %v", id, want, got)
		}
	}
}
