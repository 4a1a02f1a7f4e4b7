// Package storetest is a behavioural test suite shared by every Company
// Store backend. Each backend's tests call Run with a constructor.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	e "github.com/gartstein/companies/internal/company/errors"
	"github.com/gartstein/companies/internal/company/models"
	"github.com/gartstein/companies/internal/company/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Store is the surface exercised by the suite.
type Store interface {
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
}

// Factory builds a fresh, empty store using the given ID generator.
type Factory func(t *testing.T, newID store.IDGenerator) Store

// Run executes every subtest against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAssignsUniqueIDs", func(t *testing.T) { testCreateAssignsUniqueIDs(t, newStore) })
	t.Run("CreateDuplicateName", func(t *testing.T) { testCreateDuplicateName(t, newStore) })
	t.Run("ListInCreationOrder", func(t *testing.T) { testListInCreationOrder(t, newStore) })
	t.Run("ListPagination", func(t *testing.T) { testListPagination(t, newStore) })
	t.Run("ListInvalidPage", func(t *testing.T) { testListInvalidPage(t, newStore) })
	t.Run("GetRoundTrip", func(t *testing.T) { testGetRoundTrip(t, newStore) })
	t.Run("UpdateOnlyTarget", func(t *testing.T) { testUpdateOnlyTarget(t, newStore) })
	t.Run("UpdateSkipsUniqueness", func(t *testing.T) { testUpdateSkipsUniqueness(t, newStore) })
	t.Run("DeleteCascades", func(t *testing.T) { testDeleteCascades(t, newStore) })
	t.Run("EmployeesScopedToCompany", func(t *testing.T) { testEmployeesScopedToCompany(t, newStore) })
	t.Run("UpdateEmployee", func(t *testing.T) { testUpdateEmployee(t, newStore) })
	t.Run("RemoveEmployee", func(t *testing.T) { testRemoveEmployee(t, newStore) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStore) })
	t.Run("Reset", func(t *testing.T) { testReset(t, newStore) })
	t.Run("ReturnedValuesAreCopies", func(t *testing.T) { testReturnedValuesAreCopies(t, newStore) })
	t.Run("ConcurrentCreateSameName", func(t *testing.T) { testConcurrentCreateSameName(t, newStore) })
}

func mustCreate(t *testing.T, s Store, names ...string) []*models.Company {
	t.Helper()
	out := make([]*models.Company, 0, len(names))
	for _, name := range names {
		c, err := s.CreateCompany(context.Background(), name)
		require.NoError(t, err, "CreateCompany(%q)", name)
		out = append(out, c)
	}
	return out
}

func names(companies []models.Company) []string {
	out := make([]string, 0, len(companies))
	for _, c := range companies {
		out = append(out, c.Name)
	}
	return out
}

func testCreateAssignsUniqueIDs(t *testing.T, newStore Factory) {
	s := newStore(t, store.UUIDGenerator)
	created := mustCreate(t, s, "SLB", "TW", "Baidu")

	seen := map[string]bool{}
	for _, c := range created {
		assert.NotEmpty(t, c.ID)
		assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
		assert.Empty(t, c.Employees)
	}
	assert.Equal(t, "SLB", created[0].Name)
}

func testCreateDuplicateName(t *testing.T, newStore Factory) {
	s := newStore(t, store.NewSequence("c"))
	mustCreate(t, s, "SLB")

	_, err := s.CreateCompany(context.Background(), "SLB")
	assert.ErrorIs(t, err, e.ErrDuplicateName)

	all, err := s.ListCompanies(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 1, "a failed create must not change the store")
}

func testListInCreationOrder(t *testing.T, newStore Factory) {
	s := newStore(t, store.UUIDGenerator)

	empty, err := s.ListCompanies(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	mustCreate(t, s, "Tencent", "Baidu", "SLB", "Alpha")
	all, err := s.ListCompanies(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tencent", "Baidu", "SLB", "Alpha"}, names(all))
}

func testListPagination(t *testing.T, newStore Factory) {
	s := newStore(t, store.NewSequence("c"))
	mustCreate(t, s, "SLB", "TW", "Baidu", "Tencent", "Microsoft", "MacroHard", "Vestas", "Siemens")
	ctx := context.Background()

	page, err := s.ListCompanies(ctx, &models.Page{Size: 3, Index: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"SLB", "TW", "Baidu"}, names(page))

	page, err = s.ListCompanies(ctx, &models.Page{Size: 3, Index: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"Vestas", "Siemens"}, names(page))

	page, err = s.ListCompanies(ctx, &models.Page{Size: 3, Index: 4})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func testListInvalidPage(t *testing.T, newStore Factory) {
	s := newStore(t, store.NewSequence("c"))
	mustCreate(t, s, "SLB")

	for _, p := range []models.Page{{Size: 0, Index: 1}, {Size: 3, Index: 0}, {Size: -3, Index: 1}, {Size: 3, Index: -1}} {
		_, err := s.ListCompanies(context.Background(), &p)
		assert.ErrorIs(t, err, e.ErrInvalidInput, "page %+v", p)
	}
}

func testGetRoundTrip(t *testing.T, newStore Factory) {
	s := newStore(t, store.UUIDGenerator)
	created := mustCreate(t, s, "SLB", "TW")

	got, err := s.GetCompany(context.Background(), created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "SLB", got.Name)
	assert.Equal(t, created[0].ID, got.ID)
}

func testUpdateOnlyTarget(t *testing.T, newStore Factory) {
	s := newStore(t, store.NewSequence("c"))
	created := mustCreate(t, s, "SLB", "TW")
	ctx := context.Background()

	updated, err := s.UpdateCompany(ctx, &models.CompanyUpdate{ID: created[0].ID, Name: "Baidu"})
	require.NoError(t, err)
	assert.Equal(t, "Baidu", updated.Name)
	assert.Equal(t, created[0].ID, updated.ID)

	other, err := s.GetCompany(ctx, created[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "TW", other.Name)

	all, err := s.ListCompanies(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Baidu", "TW"}, names(all), "update keeps list position")
}

func testUpdateSkipsUniqueness(t *testing.T, newStore Factory) {
	s := newStore(t, store.NewSequence("c"))
	created := mustCreate(t, s, "SLB", "TW")

	updated, err := s.UpdateCompany(context.Background(), &models.CompanyUpdate{ID: created[1].ID, Name: "SLB"})
	require.NoError(t, err)
	assert.Equal(t, "SLB", updated.Name)
}

func testDeleteCascades(t *testing.T, newStore Factory) {
	s := newStore(t, store.NewSequence("id"))
	created := mustCreate(t, s, "SLB", "TW")
	ctx := context.Background()

	_, err := s.AddEmployee(ctx, created[0].ID, "Bob", 1000)
	require.NoError(t, err)

	require.NoError(t, s.DeleteCompany(ctx, created[0].ID))

	_, err = s.GetCompany(ctx, created[0].ID)
	assert.ErrorIs(t, err, e.ErrNotFound)
	_, err = s.ListEmployees(ctx, created[0].ID)
	assert.ErrorIs(t, err, e.ErrNotFound)

	all, err := s.ListCompanies(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"TW"}, names(all))

	assert.ErrorIs(t, s.DeleteCompany(ctx, created[0].ID), e.ErrNotFound)
}

func testEmployeesScopedToCompany(t *testing.T, newStore Factory) {
	s := newStore(t, store.NewSequence("id"))
	created := mustCreate(t, s, "SLB", "TW")
	ctx := context.Background()

	bob, err := s.AddEmployee(ctx, created[1].ID, "Bob", 1000)
	require.NoError(t, err)
	assert.NotEmpty(t, bob.ID)
	mike, err := s.AddEmployee(ctx, created[1].ID, "Mike", 1000)
	require.NoError(t, err)
	assert.NotEqual(t, bob.ID, mike.ID)

	employees, err := s.ListEmployees(ctx, created[1].ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Employee{*bob, *mike}, employees)

	others, err := s.ListEmployees(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Empty(t, others)

	company, err := s.GetCompany(ctx, created[1].ID)
	require.NoError(t, err)
	require.Len(t, company.Employees, 2)
	assert.Equal(t, *bob, company.Employees[0])

	_, err = s.UpdateEmployee(ctx, &models.EmployeeUpdate{CompanyID: created[0].ID, EmployeeID: bob.ID, Name: "X", Salary: 1})
	assert.ErrorIs(t, err, e.ErrNotFound, "employee ids are scoped to their company")
	assert.ErrorIs(t, s.RemoveEmployee(ctx, created[0].ID, bob.ID), e.ErrNotFound)
}

func testUpdateEmployee(t *testing.T, newStore Factory) {
	s := newStore(t, store.NewSequence("id"))
	created := mustCreate(t, s, "SLB")
	ctx := context.Background()

	bob, err := s.AddEmployee(ctx, created[0].ID, "Bob", 1000)
	require.NoError(t, err)

	updated, err := s.UpdateEmployee(ctx, &models.EmployeeUpdate{
		CompanyID:  created[0].ID,
		EmployeeID: bob.ID,
		Name:       "Mike",
		Salary:     2000,
	})
	require.NoError(t, err)
	assert.Equal(t, models.Employee{ID: bob.ID, Name: "Mike", Salary: 2000}, *updated)

	employees, err := s.ListEmployees(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Employee{*updated}, employees)
}

func testRemoveEmployee(t *testing.T, newStore Factory) {
	s := newStore(t, store.NewSequence("id"))
	created := mustCreate(t, s, "SLB")
	ctx := context.Background()
	id := created[0].ID

	bob, err := s.AddEmployee(ctx, id, "Bob", 1000)
	require.NoError(t, err)
	mike, err := s.AddEmployee(ctx, id, "Mike", -5)
	require.NoError(t, err)

	require.NoError(t, s.RemoveEmployee(ctx, id, bob.ID))
	employees, err := s.ListEmployees(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []models.Employee{*mike}, employees)

	require.NoError(t, s.RemoveEmployee(ctx, id, mike.ID))
	employees, err = s.ListEmployees(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, employees)

	assert.ErrorIs(t, s.RemoveEmployee(ctx, id, mike.ID), e.ErrNotFound)
}

func testNotFound(t *testing.T, newStore Factory) {
	s := newStore(t, store.NewSequence("id"))
	ctx := context.Background()

	_, err := s.GetCompany(ctx, "missing")
	assert.ErrorIs(t, err, e.ErrNotFound)
	_, err = s.UpdateCompany(ctx, &models.CompanyUpdate{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, e.ErrNotFound)
	assert.ErrorIs(t, s.DeleteCompany(ctx, "missing"), e.ErrNotFound)
	_, err = s.AddEmployee(ctx, "missing", "Bob", 1)
	assert.ErrorIs(t, err, e.ErrNotFound)
	_, err = s.ListEmployees(ctx, "missing")
	assert.ErrorIs(t, err, e.ErrNotFound)
	_, err = s.UpdateEmployee(ctx, &models.EmployeeUpdate{CompanyID: "missing", EmployeeID: "x", Name: "x"})
	assert.ErrorIs(t, err, e.ErrNotFound)
	assert.ErrorIs(t, s.RemoveEmployee(ctx, "missing", "x"), e.ErrNotFound)

	created := mustCreate(t, s, "SLB")
	_, err = s.UpdateEmployee(ctx, &models.EmployeeUpdate{CompanyID: created[0].ID, EmployeeID: "missing", Name: "x"})
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func testReset(t *testing.T, newStore Factory) {
	s := newStore(t, store.NewSequence("id"))
	created := mustCreate(t, s, "SLB", "TW")
	ctx := context.Background()
	_, err := s.AddEmployee(ctx, created[0].ID, "Bob", 1000)
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))

	all, err := s.ListCompanies(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
	_, err = s.ListEmployees(ctx, created[0].ID)
	assert.ErrorIs(t, err, e.ErrNotFound)

	// The same name is free again after a reset.
	mustCreate(t, s, "SLB")
}

func testReturnedValuesAreCopies(t *testing.T, newStore Factory) {
	s := newStore(t, store.NewSequence("id"))
	created := mustCreate(t, s, "SLB")
	ctx := context.Background()
	_, err := s.AddEmployee(ctx, created[0].ID, "Bob", 1000)
	require.NoError(t, err)

	got, err := s.GetCompany(ctx, created[0].ID)
	require.NoError(t, err)
	got.Name = "mutated"
	got.Employees[0].Name = "mutated"

	again, err := s.GetCompany(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "SLB", again.Name)
	assert.Equal(t, "Bob", again.Employees[0].Name)
}

func testConcurrentCreateSameName(t *testing.T, newStore Factory) {
	s := newStore(t, store.UUIDGenerator)
	const workers = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.CreateCompany(context.Background(), "SLB"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes, "exactly one concurrent create may win")

	for i := 0; i < workers; i++ {
		mustCreate(t, s, fmt.Sprintf("company-%d", i))
	}
	all, err := s.ListCompanies(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, workers+1)
}
