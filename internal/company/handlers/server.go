// Package handlers provides the HTTP request handlers for companies and
// employees and the Server that hosts them: a grpc-gateway ServeMux on the
// HTTP port and a gRPC listener carrying the standard health service.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gartstein/companies/internal/company/models"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const defaultShutdownTimeout = 5 * time.Second

// CompanyController defines the business logic interface
// that the HTTP handlers will invoke.
type CompanyController interface {
	CreateCompany(ctx context.Context, name string) (*models.Company, error)
	ListCompanies(ctx context.Context, page *models.Page) ([]models.Company, error)
	GetCompany(ctx context.Context, id string) (*models.Company, error)
	UpdateCompany(ctx context.Context, update *models.CompanyUpdate) (*models.Company, error)
	DeleteCompany(ctx context.Context, id string) error
	DeleteAllCompanies(ctx context.Context) error
	AddEmployee(ctx context.Context, companyID, name string, salary int64) (*models.Employee, error)
	ListEmployees(ctx context.Context, companyID string) ([]models.Employee, error)
	UpdateEmployee(ctx context.Context, update *models.EmployeeUpdate) (*models.Employee, error)
	RemoveEmployee(ctx context.Context, companyID, employeeID string) error
}

// Server holds references to both a gRPC server and an HTTP server.
type Server struct {
	grpcServer      *grpc.Server
	health          *health.Server
	httpServer      *http.Server
	gatewayConn     *grpc.ClientConn
	logger          *zap.Logger
	grpcEndpoint    string
	httpEndpoint    string
	grpcListener    net.Listener
	httpListener    net.Listener
	shutdownTimeout time.Duration
}

// NewServer constructs a Server with separate endpoints for gRPC and HTTP.
// Port 0 picks a free port when the server starts listening.
func NewServer(
	grpcPort int,
	httpPort int,
	logger *zap.Logger,
	grpcOpts ...grpc.ServerOption,
) *Server {
	grpcServer := grpc.NewServer(grpcOpts...)
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	return &Server{
		grpcServer:      grpcServer,
		health:          healthServer,
		httpServer:      &http.Server{ReadHeaderTimeout: 10 * time.Second},
		logger:          logger.Named("server"),
		grpcEndpoint:    fmt.Sprintf(":%d", grpcPort),
		httpEndpoint:    fmt.Sprintf(":%d", httpPort),
		shutdownTimeout: defaultShutdownTimeout,
	}
}

// SetShutdownTimeout bounds how long Stop waits for in-flight HTTP requests.
func (s *Server) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		s.shutdownTimeout = d
	}
}

// Listen binds both endpoints. Start calls it when it has not been called yet.
func (s *Server) Listen() error {
	if s.grpcListener == nil {
		lis, err := net.Listen("tcp", s.grpcEndpoint)
		if err != nil {
			return fmt.Errorf("gRPC listen error: %w", err)
		}
		s.grpcListener = lis
	}
	if s.httpListener == nil {
		lis, err := net.Listen("tcp", s.httpEndpoint)
		if err != nil {
			return fmt.Errorf("HTTP listen error: %w", err)
		}
		s.httpListener = lis
	}
	return nil
}

// GRPCAddr returns the bound gRPC address, or the configured endpoint before Listen.
func (s *Server) GRPCAddr() string {
	if s.grpcListener != nil {
		return s.grpcListener.Addr().String()
	}
	return s.grpcEndpoint
}

// HTTPAddr returns the bound HTTP address, or the configured endpoint before Listen.
func (s *Server) HTTPAddr() string {
	if s.httpListener != nil {
		return s.httpListener.Addr().String()
	}
	return s.httpEndpoint
}

// RegisterHTTPGateway builds the gateway ServeMux: the company routes of h
// plus /healthz, which asks the gRPC health service over a client connection
// opened with dialOpts.
func (s *Server) RegisterHTTPGateway(h *CompanyHandler, dialOpts []grpc.DialOption) error {
	conn, err := grpc.NewClient(dialTarget(s.GRPCAddr()), dialOpts...)
	if err != nil {
		return fmt.Errorf("failed to create gateway client: %w", err)
	}

	mux := runtime.NewServeMux(
		runtime.WithHealthzEndpoint(healthpb.NewHealthClient(conn)),
	)
	if err := h.Register(mux); err != nil {
		_ = conn.Close()
		return err
	}

	s.gatewayConn = conn
	s.httpServer.Handler = AccessLog(mux, s.logger)
	s.httpServer.Addr = s.httpEndpoint
	return nil
}

// Start runs the gRPC and HTTP servers concurrently, returning on the first
// error or once both have been stopped.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	errChan := make(chan error, 2)

	// Start gRPC Server
	go func() {
		defer wg.Done()
		s.logger.Info("Starting gRPC server", zap.String("endpoint", s.GRPCAddr()))
		if err := s.grpcServer.Serve(s.grpcListener); err != nil {
			errChan <- fmt.Errorf("gRPC serve error: %w", err)
		}
	}()

	// Start HTTP Server
	go func() {
		defer wg.Done()
		s.logger.Info("Starting HTTP server", zap.String("endpoint", s.HTTPAddr()))
		if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP serve error: %w", err)
		}
	}()

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		wg.Wait()
		close(errChan)
	}()

	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}

// Stop gracefully shuts down both gRPC and HTTP servers.
func (s *Server) Stop() {
	s.logger.Info("Shutting down servers...")
	s.health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if s.gatewayConn != nil {
		if err := s.gatewayConn.Close(); err != nil {
			s.logger.Warn("gateway client close error", zap.Error(err))
		}
	}
	s.grpcServer.GracefulStop()

	s.logger.Info("Servers stopped")
}

// dialTarget turns a listen address such as ":50051" or "[::]:50051" into
// one a client can connect to.
func dialTarget(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "::" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
