package handlers

import (
	"errors"
	"net/http"

	e "github.com/gartstein/companies/internal/company/errors"
	"github.com/gartstein/companies/internal/company/models"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

// Path parameter names bound by the route patterns below.
const (
	companyIDParam  = "companyId"
	employeeIDParam = "employeeId"
)

// CompanyHandler serves the companies REST surface, mapping each request
// onto one CompanyController call.
type CompanyHandler struct {
	service CompanyController
	logger  *zap.Logger
	mux     *runtime.ServeMux
}

// NewCompanyHandler constructs a new CompanyHandler with the given service and logger.
func NewCompanyHandler(service CompanyController, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{
		service: service,
		logger:  logger.Named("http_handler"),
	}
}

// Register binds every route on mux. Errors are rendered through mux's error handler.
func (h *CompanyHandler) Register(mux *runtime.ServeMux) error {
	h.mux = mux
	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{http.MethodPost, "/companies", h.CreateCompany},
		{http.MethodGet, "/companies", h.ListCompanies},
		{http.MethodDelete, "/companies", h.DeleteAllCompanies},
		{http.MethodGet, "/companies/{companyId}", h.GetCompany},
		{http.MethodPut, "/companies/{companyId}", h.UpdateCompany},
		{http.MethodDelete, "/companies/{companyId}", h.DeleteCompany},
		{http.MethodPost, "/companies/{companyId}/employees", h.AddEmployee},
		{http.MethodGet, "/companies/{companyId}/employees", h.ListEmployees},
		{http.MethodPut, "/companies/{companyId}/employees/{employeeId}", h.UpdateEmployee},
		{http.MethodDelete, "/companies/{companyId}/employees/{employeeId}", h.RemoveEmployee},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.handler); err != nil {
			return err
		}
	}
	return nil
}

// CreateCompany handles POST /companies.
func (h *CompanyHandler) CreateCompany(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	req, err := decodeCompanyRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	created, err := h.service.CreateCompany(r.Context(), req.name())
	if err != nil {
		h.logger.Debug("Create company failed", zap.Error(err))
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// ListCompanies handles GET /companies with optional pageSize and pageIndex.
func (h *CompanyHandler) ListCompanies(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	page, err := parsePage(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	companies, err := h.service.ListCompanies(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, companies)
}

// GetCompany handles GET /companies/{companyId}.
func (h *CompanyHandler) GetCompany(w http.ResponseWriter, r *http.Request, params map[string]string) {
	company, err := h.service.GetCompany(r.Context(), params[companyIDParam])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, company)
}

// UpdateCompany handles PUT /companies/{companyId}.
func (h *CompanyHandler) UpdateCompany(w http.ResponseWriter, r *http.Request, params map[string]string) {
	req, err := decodeCompanyRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	updated, err := h.service.UpdateCompany(r.Context(), &models.CompanyUpdate{
		ID:   params[companyIDParam],
		Name: req.name(),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

// DeleteCompany handles DELETE /companies/{companyId}. Deleting an unknown
// company still answers 204, so clients can use it to tidy up unconditionally.
func (h *CompanyHandler) DeleteCompany(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id := params[companyIDParam]
	if err := h.service.DeleteCompany(r.Context(), id); err != nil {
		if !errors.Is(err, e.ErrNotFound) {
			h.writeError(w, r, err)
			return
		}
		h.logger.Debug("Delete of unknown company", zap.String("company_id", id))
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAllCompanies handles DELETE /companies.
func (h *CompanyHandler) DeleteAllCompanies(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if err := h.service.DeleteAllCompanies(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddEmployee handles POST /companies/{companyId}/employees.
func (h *CompanyHandler) AddEmployee(w http.ResponseWriter, r *http.Request, params map[string]string) {
	req, err := decodeEmployeeRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	employee, err := h.service.AddEmployee(r.Context(), params[companyIDParam], *req.Name, *req.Salary)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, employee)
}

// ListEmployees handles GET /companies/{companyId}/employees.
func (h *CompanyHandler) ListEmployees(w http.ResponseWriter, r *http.Request, params map[string]string) {
	employees, err := h.service.ListEmployees(r.Context(), params[companyIDParam])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, employees)
}

// UpdateEmployee handles PUT /companies/{companyId}/employees/{employeeId}.
func (h *CompanyHandler) UpdateEmployee(w http.ResponseWriter, r *http.Request, params map[string]string) {
	req, err := decodeEmployeeRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	updated, err := h.service.UpdateEmployee(r.Context(), &models.EmployeeUpdate{
		CompanyID:  params[companyIDParam],
		EmployeeID: params[employeeIDParam],
		Name:       *req.Name,
		Salary:     *req.Salary,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

// RemoveEmployee handles DELETE /companies/{companyId}/employees/{employeeId}.
func (h *CompanyHandler) RemoveEmployee(w http.ResponseWriter, r *http.Request, params map[string]string) {
	if err := h.service.RemoveEmployee(r.Context(), params[companyIDParam], params[employeeIDParam]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
