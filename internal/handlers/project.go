package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/tquast/kimai2/internal/errors"
	"github.com/tquast/kimai2/internal/services"
)

// ProjectHandler coordinates customer/project/activity administration.
type ProjectHandler struct {
	projectService *services.ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
	}
}

// ListCustomers returns visible customers with their projects.
func (h *ProjectHandler) ListCustomers(c *gin.Context) {
	customers, err := h.projectService.ListCustomers()
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch customers")
		return
	}

	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

// CreateCustomer creates a new customer.
func (h *ProjectHandler) CreateCustomer(c *gin.Context) {
	type CreateCustomerRequest struct {
		Name       string   `json:"name" binding:"required,max=150"`
		Comment    string   `json:"comment"`
		Timezone   string   `json:"timezone"`
		Currency   string   `json:"currency" binding:"omitempty,len=3"`
		FixedRate  *float64 `json:"fixed_rate"`
		HourlyRate *float64 `json:"hourly_rate"`
	}

	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	customer, err := h.projectService.CreateCustomer(services.CreateCustomerInput{
		Name:       req.Name,
		Comment:    req.Comment,
		Timezone:   req.Timezone,
		Currency:   req.Currency,
		FixedRate:  req.FixedRate,
		HourlyRate: req.HourlyRate,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusCreated, customer)
}

// ListProjects returns visible projects with their activities.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects, err := h.projectService.ListProjects()
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch projects")
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// CreateProject creates a new project under an existing customer.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	type CreateProjectRequest struct {
		Name        string   `json:"name" binding:"required,max=150"`
		Comment     string   `json:"comment"`
		OrderNumber string   `json:"order_number" binding:"max=20"`
		CustomerID  uint64   `json:"customer_id" binding:"required"`
		FixedRate   *float64 `json:"fixed_rate"`
		HourlyRate  *float64 `json:"hourly_rate"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.CreateProject(services.CreateProjectInput{
		Name:        req.Name,
		Comment:     req.Comment,
		OrderNumber: req.OrderNumber,
		CustomerID:  req.CustomerID,
		FixedRate:   req.FixedRate,
		HourlyRate:  req.HourlyRate,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

// ListActivities returns visible activities, optionally those usable for a
// given project.
func (h *ProjectHandler) ListActivities(c *gin.Context) {
	var projectID *uint64
	if v := c.Query("project_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid project_id")
			return
		}
		projectID = &id
	}

	activities, err := h.projectService.ListActivities(projectID)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch activities")
		return
	}

	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

// CreateActivity creates a new activity.
func (h *ProjectHandler) CreateActivity(c *gin.Context) {
	type CreateActivityRequest struct {
		Name       string   `json:"name" binding:"required,max=150"`
		Comment    string   `json:"comment"`
		ProjectID  *uint64  `json:"project_id"`
		FixedRate  *float64 `json:"fixed_rate"`
		HourlyRate *float64 `json:"hourly_rate"`
	}

	var req CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	activity, err := h.projectService.CreateActivity(services.CreateActivityInput{
		Name:       req.Name,
		Comment:    req.Comment,
		ProjectID:  req.ProjectID,
		FixedRate:  req.FixedRate,
		HourlyRate: req.HourlyRate,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusCreated, activity)
}

func respondProjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNameRequired),
		errors.Is(err, services.ErrInvalidTimezone),
		errors.Is(err, services.ErrNegativeRate),
		errors.Is(err, services.ErrCustomerNotFound),
		errors.Is(err, services.ErrProjectNotFound):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
