// Package db is the gorm-backed Company Store. It runs on an in-memory SQLite
// database, so like the map-backed store it lives and dies with the process.
package db

import (
	"context"
	"fmt"

	dbm "github.com/gartstein/companies/internal/company/db/models"
	e "github.com/gartstein/companies/internal/company/errors"
	"github.com/gartstein/companies/internal/company/models"
	"github.com/gartstein/companies/internal/company/store"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultDSN opens a private in-memory SQLite database.
const DefaultDSN = ":memory:"

type Repository struct {
	db     *gorm.DB
	newID  store.IDGenerator
	logger *zap.Logger
}

type Config struct {
	// DSN is the SQLite data source name. Empty means DefaultDSN.
	DSN string
	// NewID generates company and employee identifiers. Nil means store.UUIDGenerator.
	NewID store.IDGenerator
}

func NewRepository(cfg *Config, logger *zap.Logger) (*Repository, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = DefaultDSN
	}
	newID := cfg.NewID
	if newID == nil {
		newID = store.UUIDGenerator
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Every connection to ":memory:" opens its own empty database, so the
	// pool is pinned to a single long-lived connection. This also serialises
	// transactions, which makes the name check in CreateCompany atomic.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(&dbm.Company{}, &dbm.Employee{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db, newID: newID, logger: logger.Named("sql_store")}, nil
}

func (r *Repository) CreateCompany(ctx context.Context, name string) (*models.Company, error) {
	var created *models.Company
	err := r.WithTransaction(ctx, func(tx *Repository) error {
		var count int64
		if err := tx.db.Model(&dbm.Company{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %q", e.ErrDuplicateName, name)
		}

		row := dbm.Company{CompanyID: r.newID(), Name: name}
		if err := tx.db.Create(&row).Error; err != nil {
			return err
		}
		created = companyFromRow(&row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Debug("company stored", zap.String("company_id", created.ID))
	return created, nil
}

func (r *Repository) ListCompanies(ctx context.Context, page *models.Page) ([]models.Company, error) {
	if page != nil {
		if err := page.Validate(); err != nil {
			return nil, err
		}
	}

	var rows []dbm.Company
	err := r.WithTransaction(ctx, func(tx *Repository) error {
		query := tx.withEmployees().Order("seq")
		if page != nil {
			var total int64
			if err := tx.db.Model(&dbm.Company{}).Count(&total).Error; err != nil {
				return err
			}
			start, end := page.Bounds(int(total))
			if start == end {
				return nil
			}
			query = query.Offset(start).Limit(end - start)
		}
		return query.Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.Company, 0, len(rows))
	for i := range rows {
		out = append(out, *companyFromRow(&rows[i]))
	}
	return out, nil
}

func (r *Repository) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	var company *models.Company
	err := r.WithTransaction(ctx, func(tx *Repository) error {
		var err error
		company, err = tx.getCompany(id)
		return err
	})
	return company, err
}

// UpdateCompany renames a company. Name uniqueness is only enforced at creation.
func (r *Repository) UpdateCompany(ctx context.Context, update *models.CompanyUpdate) (*models.Company, error) {
	var company *models.Company
	err := r.WithTransaction(ctx, func(tx *Repository) error {
		result := tx.db.Model(&dbm.Company{}).
			Where("company_id = ?", update.ID).
			Update("name", update.Name)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return e.ErrNotFound
		}
		var err error
		company, err = tx.getCompany(update.ID)
		return err
	})
	return company, err
}

// DeleteCompany removes the company row and every employee row it owns.
func (r *Repository) DeleteCompany(ctx context.Context, id string) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		result := tx.db.Where("company_id = ?", id).Delete(&dbm.Company{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return e.ErrNotFound
		}
		return tx.db.Where("company_id = ?", id).Delete(&dbm.Employee{}).Error
	})
}

func (r *Repository) AddEmployee(ctx context.Context, companyID, name string, salary int64) (*models.Employee, error) {
	var employee *models.Employee
	err := r.WithTransaction(ctx, func(tx *Repository) error {
		if err := tx.companyExists(companyID); err != nil {
			return err
		}
		row := dbm.Employee{EmployeeID: r.newID(), CompanyID: companyID, Name: name, Salary: salary}
		if err := tx.db.Create(&row).Error; err != nil {
			return err
		}
		employee = employeeFromRow(&row)
		return nil
	})
	return employee, err
}

func (r *Repository) ListEmployees(ctx context.Context, companyID string) ([]models.Employee, error) {
	var rows []dbm.Employee
	err := r.WithTransaction(ctx, func(tx *Repository) error {
		if err := tx.companyExists(companyID); err != nil {
			return err
		}
		return tx.db.Where("company_id = ?", companyID).Order("seq").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.Employee, 0, len(rows))
	for i := range rows {
		out = append(out, *employeeFromRow(&rows[i]))
	}
	return out, nil
}

func (r *Repository) UpdateEmployee(ctx context.Context, update *models.EmployeeUpdate) (*models.Employee, error) {
	err := r.WithTransaction(ctx, func(tx *Repository) error {
		result := tx.db.Model(&dbm.Employee{}).
			Where("company_id = ? AND employee_id = ?", update.CompanyID, update.EmployeeID).
			Updates(map[string]interface{}{"name": update.Name, "salary": update.Salary})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return e.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &models.Employee{ID: update.EmployeeID, Name: update.Name, Salary: update.Salary}, nil
}

func (r *Repository) RemoveEmployee(ctx context.Context, companyID, employeeID string) error {
	result := r.db.WithContext(ctx).
		Where("company_id = ? AND employee_id = ?", companyID, employeeID).
		Delete(&dbm.Employee{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// Reset empties both tables.
func (r *Repository) Reset(ctx context.Context) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		if err := tx.Exec(ctx, "DELETE FROM employees"); err != nil {
			return err
		}
		return tx.Exec(ctx, "DELETE FROM companies")
	})
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx, newID: r.newID, logger: r.logger})
	})
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func (r *Repository) withEmployees() *gorm.DB {
	return r.db.Preload("Employees", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq")
	})
}

func (r *Repository) getCompany(id string) (*models.Company, error) {
	var rows []dbm.Company
	if err := r.withEmployees().Where("company_id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, e.ErrNotFound
	}
	return companyFromRow(&rows[0]), nil
}

func (r *Repository) companyExists(id string) error {
	var count int64
	if err := r.db.Model(&dbm.Company{}).Where("company_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return e.ErrNotFound
	}
	return nil
}

func companyFromRow(row *dbm.Company) *models.Company {
	c := &models.Company{ID: row.CompanyID, Name: row.Name, Employees: make([]models.Employee, 0, len(row.Employees))}
	for i := range row.Employees {
		c.Employees = append(c.Employees, *employeeFromRow(&row.Employees[i]))
	}
	return c
}

func employeeFromRow(row *dbm.Employee) *models.Employee {
	return &models.Employee{ID: row.EmployeeID, Name: row.Name, Salary: row.Salary}
}
