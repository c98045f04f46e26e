package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tquast/kimai2/internal/models"
	"github.com/tquast/kimai2/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrNameRequired     = errors.New("name is required")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrInvalidTimezone  = errors.New("unknown timezone")
)

// ProjectService manages the customer/project/activity tree timesheets
// are classified against.
type ProjectService struct {
	customerRepo repository.CustomerRepository
	projectRepo  repository.ProjectRepository
	activityRepo repository.ActivityRepository
}

// NewProjectService creates a new ProjectService
func NewProjectService(
	customerRepo repository.CustomerRepository,
	projectRepo repository.ProjectRepository,
	activityRepo repository.ActivityRepository,
) *ProjectService {
	return &ProjectService{
		customerRepo: customerRepo,
		projectRepo:  projectRepo,
		activityRepo: activityRepo,
	}
}

// CreateCustomerInput represents input for creating a customer
type CreateCustomerInput struct {
	Name       string
	Comment    string
	Timezone   string
	Currency   string
	FixedRate  *float64
	HourlyRate *float64
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	Name        string
	Comment     string
	OrderNumber string
	CustomerID  uint64
	FixedRate   *float64
	HourlyRate  *float64
}

// CreateActivityInput represents input for creating an activity
type CreateActivityInput struct {
	Name       string
	Comment    string
	ProjectID  *uint64
	FixedRate  *float64
	HourlyRate *float64
}

// CreateCustomer creates a new customer
func (s *ProjectService) CreateCustomer(input CreateCustomerInput) (*models.Customer, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrNameRequired
	}
	if err := validateRates(input.FixedRate, input.HourlyRate); err != nil {
		return nil, err
	}
	if input.Timezone != "" {
		if _, err := time.LoadLocation(input.Timezone); err != nil {
			return nil, ErrInvalidTimezone
		}
	}

	customer := &models.Customer{
		Name:       strings.TrimSpace(input.Name),
		Comment:    input.Comment,
		Timezone:   input.Timezone,
		FixedRate:  input.FixedRate,
		HourlyRate: input.HourlyRate,
		Visible:    true,
	}
	if input.Currency != "" {
		customer.Currency = input.Currency
	}

	if err := s.customerRepo.Create(customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	return customer, nil
}

// ListCustomers returns visible customers with their projects
func (s *ProjectService) ListCustomers() ([]models.Customer, error) {
	customers, err := s.customerRepo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

// CreateProject creates a new project under an existing customer
func (s *ProjectService) CreateProject(input CreateProjectInput) (*models.Project, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrNameRequired
	}
	if err := validateRates(input.FixedRate, input.HourlyRate); err != nil {
		return nil, err
	}

	if _, err := s.customerRepo.FindByID(input.CustomerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}

	project := &models.Project{
		Name:        strings.TrimSpace(input.Name),
		Comment:     input.Comment,
		OrderNumber: input.OrderNumber,
		CustomerID:  input.CustomerID,
		FixedRate:   input.FixedRate,
		HourlyRate:  input.HourlyRate,
		Visible:     true,
	}

	if err := s.projectRepo.Create(project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// ListProjects returns visible projects with their activities
func (s *ProjectService) ListProjects() ([]models.Project, error) {
	projects, err := s.projectRepo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// CreateActivity creates a new activity, either project-bound or global
func (s *ProjectService) CreateActivity(input CreateActivityInput) (*models.Activity, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrNameRequired
	}
	if err := validateRates(input.FixedRate, input.HourlyRate); err != nil {
		return nil, err
	}

	if input.ProjectID != nil {
		if _, err := s.projectRepo.FindByID(*input.ProjectID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProjectNotFound
			}
			return nil, fmt.Errorf("failed to find project: %w", err)
		}
	}

	activity := &models.Activity{
		Name:       strings.TrimSpace(input.Name),
		Comment:    input.Comment,
		ProjectID:  input.ProjectID,
		FixedRate:  input.FixedRate,
		HourlyRate: input.HourlyRate,
		Visible:    true,
	}

	if err := s.activityRepo.Create(activity); err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}

	return activity, nil
}

// ListActivities returns visible activities, optionally scoped to those
// usable for a project
func (s *ProjectService) ListActivities(projectID *uint64) ([]models.Activity, error) {
	activities, err := s.activityRepo.List(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}
