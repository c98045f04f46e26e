package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tquast/kimai2/internal/dto"
	apierrors "github.com/tquast/kimai2/internal/errors"
	"github.com/tquast/kimai2/internal/middleware"
	"github.com/tquast/kimai2/internal/models"
	"github.com/tquast/kimai2/internal/services"
	"github.com/tquast/kimai2/internal/utils"
)

// TimesheetHandler coordinates timesheet-related HTTP handlers.
type TimesheetHandler struct {
	timesheetService *services.TimesheetService
}

// NewTimesheetHandler creates a new TimesheetHandler.
func NewTimesheetHandler(timesheetService *services.TimesheetService) *TimesheetHandler {
	return &TimesheetHandler{
		timesheetService: timesheetService,
	}
}

// ListTimesheets returns the current user's entries with filtering and
// pagination.
func (h *TimesheetHandler) ListTimesheets(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	params := utils.GetPaginationParams(c)

	input := services.ListTimesheetsInput{
		UserID:   userID,
		Page:     params.Page,
		PageSize: params.Limit,
	}

	if v := c.Query("project_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid project_id")
			return
		}
		input.ProjectID = &id
	}
	if v := c.Query("activity_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid activity_id")
			return
		}
		input.ActivityID = &id
	}
	if v := c.Query("tags"); v != "" {
		input.Tags = strings.Split(v, ",")
	}
	if v := c.Query("begin_from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			apierrors.BadRequest(c, "Invalid begin_from")
			return
		}
		input.BeginFrom = &t
	}
	if v := c.Query("begin_to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			apierrors.BadRequest(c, "Invalid begin_to")
			return
		}
		input.BeginTo = &t
	}
	if v := c.Query("exported"); v != "" {
		exported, err := strconv.ParseBool(v)
		if err != nil {
			apierrors.BadRequest(c, "Invalid exported")
			return
		}
		input.Exported = &exported
	}
	if v := c.Query("running"); v != "" {
		running, err := strconv.ParseBool(v)
		if err != nil {
			apierrors.BadRequest(c, "Invalid running")
			return
		}
		input.Running = &running
	}

	timesheets, total, err := h.timesheetService.ListTimesheets(input)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch timesheets")
		return
	}

	c.JSON(http.StatusOK, dto.ToTimesheetListResponse(timesheets, params.Page, params.Limit, total))
}

// GetTimesheet returns a single entry, already loaded with relations by
// RequireTimesheetAccess middleware.
func (h *TimesheetHandler) GetTimesheet(c *gin.Context) {
	timesheet, ok := getTimesheetFromContext(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, dto.ToTimesheetDTO(timesheet))
}

// GetActiveTimesheets returns the current user's running entries.
func (h *TimesheetHandler) GetActiveTimesheets(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	timesheets, err := h.timesheetService.GetActiveTimesheets(userID)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch running timesheets")
		return
	}

	items := make([]dto.TimesheetDTO, len(timesheets))
	for i, timesheet := range timesheets {
		items[i] = dto.ToTimesheetDTO(timesheet)
	}

	c.JSON(http.StatusOK, gin.H{"timesheets": items})
}

// StartTimesheet begins a new running entry.
func (h *TimesheetHandler) StartTimesheet(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type StartRequest struct {
		ProjectID   uint64   `json:"project_id" binding:"required"`
		ActivityID  uint64   `json:"activity_id" binding:"required"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
	}

	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	timesheet, err := h.timesheetService.StartTimesheet(services.StartTimesheetInput{
		UserID:      userID,
		ProjectID:   req.ProjectID,
		ActivityID:  req.ActivityID,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		respondTimesheetError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTimesheetDTO(*timesheet))
}

// StopTimesheet ends a running entry.
func (h *TimesheetHandler) StopTimesheet(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	timesheet, ok := getTimesheetFromContext(c)
	if !ok {
		return
	}

	stopped, err := h.timesheetService.StopTimesheet(timesheet.ID, userID)
	if err != nil {
		respondTimesheetError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTimesheetDTO(*stopped))
}

// RestartTimesheet starts a fresh running copy of an entry.
func (h *TimesheetHandler) RestartTimesheet(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	timesheet, ok := getTimesheetFromContext(c)
	if !ok {
		return
	}

	restarted, err := h.timesheetService.RestartTimesheet(timesheet.ID, userID)
	if err != nil {
		respondTimesheetError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTimesheetDTO(*restarted))
}

// CreateTimesheet records a complete entry.
func (h *TimesheetHandler) CreateTimesheet(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateRequest struct {
		Begin       time.Time  `json:"begin" binding:"required"`
		End         *time.Time `json:"end"`
		ProjectID   uint64     `json:"project_id" binding:"required"`
		ActivityID  uint64     `json:"activity_id" binding:"required"`
		Description string     `json:"description"`
		Tags        []string   `json:"tags"`
		FixedRate   *float64   `json:"fixed_rate"`
		HourlyRate  *float64   `json:"hourly_rate"`
		Rate        *float64   `json:"rate"`
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	timesheet, err := h.timesheetService.CreateTimesheet(services.CreateTimesheetInput{
		UserID:      userID,
		ProjectID:   req.ProjectID,
		ActivityID:  req.ActivityID,
		Begin:       req.Begin,
		End:         req.End,
		Description: req.Description,
		Tags:        req.Tags,
		FixedRate:   req.FixedRate,
		HourlyRate:  req.HourlyRate,
		Rate:        req.Rate,
	})
	if err != nil {
		respondTimesheetError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTimesheetDTO(*timesheet))
}

// UpdateTimesheet applies a partial update. The raw JSON is inspected so a
// null end can be told apart from an absent one.
func (h *TimesheetHandler) UpdateTimesheet(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	timesheet, ok := getTimesheetFromContext(c)
	if !ok {
		return
	}

	var rawReq map[string]any
	if err := c.ShouldBindJSON(&rawReq); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var input services.UpdateTimesheetInput

	if raw, ok := rawReq["begin"]; ok {
		begin, err := parseTimeField(raw)
		if err != nil || begin == nil {
			apierrors.BadRequest(c, "Invalid begin")
			return
		}
		input.Begin = begin
	}
	if raw, ok := rawReq["end"]; ok {
		if raw == nil {
			input.ClearEnd = true
		} else {
			end, err := parseTimeField(raw)
			if err != nil {
				apierrors.BadRequest(c, "Invalid end")
				return
			}
			input.End = end
		}
	}
	if raw, ok := rawReq["description"]; ok {
		description, ok := raw.(string)
		if !ok {
			apierrors.BadRequest(c, "Invalid description")
			return
		}
		input.Description = &description
	}
	if raw, ok := rawReq["project_id"]; ok {
		id, ok := parseIDField(raw)
		if !ok {
			apierrors.BadRequest(c, "Invalid project_id")
			return
		}
		input.ProjectID = &id
	}
	if raw, ok := rawReq["activity_id"]; ok {
		id, ok := parseIDField(raw)
		if !ok {
			apierrors.BadRequest(c, "Invalid activity_id")
			return
		}
		input.ActivityID = &id
	}
	if raw, ok := rawReq["tags"]; ok {
		tags, ok := parseStringsField(raw)
		if !ok {
			apierrors.BadRequest(c, "Invalid tags")
			return
		}
		input.Tags = &tags
	}
	if raw, ok := rawReq["fixed_rate"]; ok {
		rate, ok := raw.(float64)
		if !ok {
			apierrors.BadRequest(c, "Invalid fixed_rate")
			return
		}
		input.FixedRate = &rate
	}
	if raw, ok := rawReq["hourly_rate"]; ok {
		rate, ok := raw.(float64)
		if !ok {
			apierrors.BadRequest(c, "Invalid hourly_rate")
			return
		}
		input.HourlyRate = &rate
	}
	if raw, ok := rawReq["rate"]; ok {
		rate, ok := raw.(float64)
		if !ok {
			apierrors.BadRequest(c, "Invalid rate")
			return
		}
		input.Rate = &rate
	}

	updated, err := h.timesheetService.UpdateTimesheet(timesheet.ID, userID, input)
	if err != nil {
		respondTimesheetError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTimesheetDTO(*updated))
}

// DeleteTimesheet removes an entry.
func (h *TimesheetHandler) DeleteTimesheet(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	timesheet, ok := getTimesheetFromContext(c)
	if !ok {
		return
	}

	if err := h.timesheetService.DeleteTimesheet(timesheet.ID, userID); err != nil {
		respondTimesheetError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Timesheet deleted successfully",
	})
}

// ExportTimesheets locks the given entries against further changes.
func (h *TimesheetHandler) ExportTimesheets(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type ExportRequest struct {
		IDs []uint64 `json:"ids" binding:"required"`
	}

	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	count, err := h.timesheetService.MarkExported(req.IDs, userID)
	if err != nil {
		respondTimesheetError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"exported": count,
	})
}

// SetMetaField upserts an extension attribute on an entry.
func (h *TimesheetHandler) SetMetaField(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	timesheet, ok := getTimesheetFromContext(c)
	if !ok {
		return
	}

	type MetaRequest struct {
		Name    string `json:"name" binding:"required,max=50"`
		Value   string `json:"value" binding:"max=255"`
		Visible bool   `json:"visible"`
	}

	var req MetaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.timesheetService.SetMetaField(timesheet.ID, userID, models.TimesheetMeta{
		Name:    req.Name,
		Value:   req.Value,
		Visible: req.Visible,
	})
	if err != nil {
		respondTimesheetError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTimesheetDTO(*updated))
}

func getTimesheetFromContext(c *gin.Context) (models.Timesheet, bool) {
	timesheetInterface, exists := c.Get("timesheet")
	if !exists {
		apierrors.InternalError(c, "Timesheet not found in context")
		return models.Timesheet{}, false
	}

	timesheet, ok := timesheetInterface.(models.Timesheet)
	if !ok {
		apierrors.InternalError(c, "Invalid timesheet data")
		return models.Timesheet{}, false
	}

	return timesheet, true
}

func parseTimeField(raw any) (*time.Time, error) {
	str, ok := raw.(string)
	if !ok {
		return nil, errors.New("not a timestamp")
	}
	parsed, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseIDField(raw any) (uint64, bool) {
	num, ok := raw.(float64)
	if !ok || num < 1 || num != float64(uint64(num)) {
		return 0, false
	}
	return uint64(num), true
}

func parseStringsField(raw any) ([]string, bool) {
	items, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	strs := make([]string, 0, len(items))
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, false
		}
		strs = append(strs, str)
	}
	return strs, true
}

func respondTimesheetError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTimesheetNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrActivityNotFound):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrActivityProjectMismatch),
		errors.Is(err, services.ErrEndBeforeBegin),
		errors.Is(err, services.ErrNegativeRate),
		errors.Is(err, services.ErrNoTimesheetIDs),
		errors.Is(err, services.ErrMetaNameRequired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrTimesheetAlreadyStopped):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrTimesheetExported):
		apierrors.Locked(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
