// Package handler implements the HTTP handlers for the ward device tracker.
// All handlers are methods on Server; methods are split into domain-specific
// files (log.go, department.go, health.go) but share the same Server struct
// so they can access its dependencies.
package handler

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mleitner/wardtrack/internal/domain"
)

// LogServicer defines the event-log operations the handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type LogServicer interface {
	AddLog(ctx context.Context, employeeID, tag, department string, status domain.Status) (domain.Event, error)
	CurrentStatus(ctx context.Context, tag string) domain.Status
	History(ctx context.Context, f domain.EventFilter, p domain.PaginationParams) ([]domain.Event, int64, error)
	DeleteLogs(ctx context.Context, ids []uuid.UUID) (int64, error)
	DailySummary(ctx context.Context, from, to time.Time) ([]domain.DailySummary, error)
}

// RegistryServicer defines the department-registry operations the handlers
// depend on.
type RegistryServicer interface {
	Departments(ctx context.Context) ([]string, error)
	TagsByDepartment(ctx context.Context, department string) ([]string, error)
	UpsertDepartment(ctx context.Context, name string, tags []string) (domain.Department, error)
	AddTag(ctx context.Context, department, tag string) (domain.Department, error)
	RemoveTag(ctx context.Context, department, tag string) (domain.Department, error)
	RenameDepartment(ctx context.Context, oldName, newName string) (domain.Department, error)
	DeleteDepartment(ctx context.Context, name string) error
}

// Server holds the dependencies of every HTTP handler.
type Server struct {
	logs     LogServicer
	registry RegistryServicer
}

// NewServer constructs the Server with all its dependencies.
func NewServer(logs LogServicer, registry RegistryServicer) *Server {
	return &Server{logs: logs, registry: registry}
}

// Routes returns the API route tree. Middleware is applied by the caller.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)

	r.Route("/logs", func(r chi.Router) {
		r.Post("/", s.handleAddLog)
		r.Get("/", s.handleListLogs)
		r.Delete("/", s.handleDeleteLogs)
		r.Get("/summary", s.handleSummary)
	})

	r.Get("/status/{tag}", s.handleCurrentStatus)

	r.Route("/departments", func(r chi.Router) {
		r.Get("/", s.handleListDepartments)
		r.Route("/{department}", func(r chi.Router) {
			r.Put("/", s.handleUpsertDepartment)
			r.Delete("/", s.handleDeleteDepartment)
			r.Post("/rename", s.handleRenameDepartment)
			r.Get("/tags", s.handleListTags)
			r.Post("/tags", s.handleAddTag)
			r.Delete("/tags/{tag}", s.handleRemoveTag)
		})
	})

	return r
}
