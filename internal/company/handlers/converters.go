package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	e "github.com/gartstein/companies/internal/company/errors"
	"github.com/gartstein/companies/internal/company/models"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// bodyMarshaler encodes resources and decodes request bodies.
	bodyMarshaler runtime.Marshaler = &runtime.JSONBuiltin{}
	// errorMarshaler encodes the google.rpc.Status error bodies.
	errorMarshaler runtime.Marshaler = &runtime.JSONPb{}
)

// companyRequest is the body of create and update company requests. Other
// fields a client echoes back (CompanyId, Employees) are ignored.
type companyRequest struct {
	Name *string `json:"Name"`
}

func (c *companyRequest) name() string {
	if c.Name == nil {
		return ""
	}
	return *c.Name
}

// employeeRequest is the body of add and update employee requests.
type employeeRequest struct {
	Name   *string `json:"Name"`
	Salary *int64  `json:"Salary"`
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := bodyMarshaler.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", e.ErrInvalidInput)
		}
		return fmt.Errorf("%w: malformed request body: %v", e.ErrInvalidInput, err)
	}
	return nil
}

func decodeCompanyRequest(r *http.Request) (*companyRequest, error) {
	var req companyRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if req.name() == "" {
		return nil, fmt.Errorf("%w: Name is required", e.ErrInvalidInput)
	}
	return &req, nil
}

func decodeEmployeeRequest(r *http.Request) (*employeeRequest, error) {
	var req employeeRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if req.Name == nil || *req.Name == "" {
		return nil, fmt.Errorf("%w: Name is required", e.ErrInvalidInput)
	}
	if req.Salary == nil {
		return nil, fmt.Errorf("%w: Salary is required", e.ErrInvalidInput)
	}
	return &req, nil
}

// parsePage reads pageSize and pageIndex. Both absent means no paging;
// supplying only one of them is rejected.
func parsePage(q url.Values) (*models.Page, error) {
	rawSize, hasSize := q["pageSize"]
	rawIndex, hasIndex := q["pageIndex"]
	if !hasSize && !hasIndex {
		return nil, nil
	}
	if !hasSize || !hasIndex {
		return nil, fmt.Errorf("%w: pageSize and pageIndex must be given together", e.ErrInvalidInput)
	}

	size, err := strconv.Atoi(rawSize[0])
	if err != nil {
		return nil, fmt.Errorf("%w: pageSize %q is not an integer", e.ErrInvalidInput, rawSize[0])
	}
	index, err := strconv.Atoi(rawIndex[0])
	if err != nil {
		return nil, fmt.Errorf("%w: pageIndex %q is not an integer", e.ErrInvalidInput, rawIndex[0])
	}

	page := &models.Page{Size: size, Index: index}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	return page, nil
}

// mapServiceError maps domain or repository errors to gRPC status codes;
// the gateway turns those into HTTP statuses.
func (h *CompanyHandler) mapServiceError(err error) error {
	switch {
	case errors.Is(err, e.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, e.ErrDuplicateName):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, e.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		h.logger.Error("Internal server error", zap.Error(err))
		return status.Error(codes.Internal, "internal server error")
	}
}

func (h *CompanyHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	mux := h.mux
	if mux == nil {
		mux = runtime.NewServeMux()
	}
	runtime.HTTPError(r.Context(), mux, errorMarshaler, w, r, h.mapServiceError(err))
}

func (h *CompanyHandler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	buf, err := bodyMarshaler.Marshal(v)
	if err != nil {
		h.logger.Error("Failed to marshal response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", bodyMarshaler.ContentType(v))
	w.WriteHeader(code)
	if _, err := w.Write(buf); err != nil {
		h.logger.Warn("Failed to write response", zap.Error(err))
	}
}
