// Package models contains the row types for the SQL store backend,
// configured to work using GORM as the ORM.
package models

// Company is one row of the companies table. Seq is the surrogate primary
// key and doubles as the insertion order used for listing and paging.
type Company struct {
	Seq       uint       `gorm:"primaryKey;autoIncrement"`
	CompanyID string     `gorm:"size:64;uniqueIndex"`
	Name      string     `gorm:"index"`
	Employees []Employee `gorm:"foreignKey:CompanyID;references:CompanyID"`
}

// TableName pins the table name.
func (Company) TableName() string { return "companies" }

// Employee is one row of the employees table.
type Employee struct {
	Seq        uint   `gorm:"primaryKey;autoIncrement"`
	EmployeeID string `gorm:"size:64;uniqueIndex"`
	CompanyID  string `gorm:"size:64;index"`
	Name       string
	Salary     int64
}

func (Employee) TableName() string { return "employees" }
