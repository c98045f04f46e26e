package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tquast/kimai2/internal/database"
	"github.com/tquast/kimai2/internal/models"
	"github.com/tquast/kimai2/internal/rate"
	"github.com/tquast/kimai2/internal/repository"
	"github.com/tquast/kimai2/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TimesheetHandlerTestSuite defines the test suite for TimesheetHandler
type TimesheetHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	handler *TimesheetHandler
}

// SetupTest runs before each test
func (suite *TimesheetHandlerTestSuite) SetupTest() {
	var err error

	// Create in-memory SQLite database
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	// Run migrations
	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Customer{},
		&models.Project{},
		&models.Activity{},
		&models.Tag{},
		&models.Timesheet{},
		&models.TimesheetMeta{},
	)
	suite.Require().NoError(err)

	// Set the test DB as the default database
	database.SetDB(suite.db)

	timesheetService := services.NewTimesheetService(
		repository.NewTimesheetRepository(suite.db),
		repository.NewActivityRepository(suite.db),
		repository.NewProjectRepository(suite.db),
		repository.NewUserRepository(suite.db),
		repository.NewTagRepository(suite.db),
		rate.NewCalculator(25, 1),
		1,
	)
	suite.handler = NewTimesheetHandler(timesheetService)

	// Set Gin to test mode
	gin.SetMode(gin.TestMode)
}

// TearDownTest runs after each test
func (suite *TimesheetHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// Helper functions to create test data

func (suite *TimesheetHandlerTestSuite) createTestUser(username string) *models.User {
	user := &models.User{
		Username:     username,
		PasswordHash: "hashedpassword",
		Timezone:     "UTC",
		Enabled:      true,
	}
	suite.db.Create(user)
	return user
}

func (suite *TimesheetHandlerTestSuite) createTestClassification() (*models.Project, *models.Activity) {
	customer := &models.Customer{Name: "Acme", Visible: true}
	suite.db.Create(customer)

	project := &models.Project{Name: "Website", CustomerID: customer.ID, Visible: true}
	suite.db.Create(project)

	activity := &models.Activity{Name: "Development", ProjectID: &project.ID, Visible: true}
	suite.db.Create(activity)

	return project, activity
}

func (suite *TimesheetHandlerTestSuite) createTestTimesheet(userID, projectID, activityID uint64, begin time.Time, end *time.Time) *models.Timesheet {
	timesheet := &models.Timesheet{
		UserID:     userID,
		ProjectID:  projectID,
		ActivityID: activityID,
		Timezone:   "UTC",
		Begin:      &begin,
	}
	if end != nil {
		timesheet.End = end
		timesheet.Duration = int64(end.Sub(begin).Seconds())
	}
	suite.db.Create(timesheet)
	return timesheet
}

// Helper function to create authenticated context
func (suite *TimesheetHandlerTestSuite) createAuthContext(method, url string, body []byte, userID uint64) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set("user_id", userID)

	return c, w
}

// Helper function to set timesheet context (simulates RequireTimesheetAccess middleware)
func (suite *TimesheetHandlerTestSuite) setTimesheetContext(c *gin.Context, id uint64) {
	var timesheet models.Timesheet
	err := suite.db.
		Preload("User").Preload("Activity").
		Preload("Project").Preload("Project.Customer").
		Preload("Tags").Preload("Meta").
		First(&timesheet, id).Error
	suite.Require().NoError(err)
	c.Set("timesheet", timesheet)
}

// TestStartTimesheet_Success tests starting the timer
func (suite *TimesheetHandlerTestSuite) TestStartTimesheet_Success() {
	user := suite.createTestUser("anna")
	project, activity := suite.createTestClassification()

	requestBody := map[string]interface{}{
		"project_id":  project.ID,
		"activity_id": activity.ID,
		"description": "working",
		"tags":        []string{"sprint-1"},
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/timesheets/start", body, user.ID)

	suite.handler.StartTimesheet(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), true, response["running"])
	assert.Nil(suite.T(), response["end"])
	assert.Equal(suite.T(), "working", response["description"])
	assert.Equal(suite.T(), []interface{}{"sprint-1"}, response["tags"])
}

// TestStartTimesheet_InvalidRequest tests starting without a project
func (suite *TimesheetHandlerTestSuite) TestStartTimesheet_InvalidRequest() {
	user := suite.createTestUser("anna")

	requestBody := map[string]interface{}{
		"description": "working",
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/timesheets/start", body, user.ID)

	suite.handler.StartTimesheet(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestStartTimesheet_Unauthorized tests starting without authentication
func (suite *TimesheetHandlerTestSuite) TestStartTimesheet_Unauthorized() {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/timesheets/start", nil)
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	suite.handler.StartTimesheet(c)

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

// TestStopTimesheet_Success tests stopping a running entry
func (suite *TimesheetHandlerTestSuite) TestStopTimesheet_Success() {
	user := suite.createTestUser("anna")
	project, activity := suite.createTestClassification()
	timesheet := suite.createTestTimesheet(user.ID, project.ID, activity.ID, time.Now().Add(-time.Hour).UTC(), nil)

	c, w := suite.createAuthContext("POST", fmt.Sprintf("/api/timesheets/%d/stop", timesheet.ID), nil, user.ID)
	suite.setTimesheetContext(c, timesheet.ID)

	suite.handler.StopTimesheet(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), false, response["running"])
	assert.NotNil(suite.T(), response["end"])
	assert.InDelta(suite.T(), 3600, response["duration"].(float64), 5)
}

// TestStopTimesheet_AlreadyStopped tests double stop
func (suite *TimesheetHandlerTestSuite) TestStopTimesheet_AlreadyStopped() {
	user := suite.createTestUser("anna")
	project, activity := suite.createTestClassification()
	begin := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := begin.Add(time.Hour)
	timesheet := suite.createTestTimesheet(user.ID, project.ID, activity.ID, begin, &end)

	c, w := suite.createAuthContext("POST", fmt.Sprintf("/api/timesheets/%d/stop", timesheet.ID), nil, user.ID)
	suite.setTimesheetContext(c, timesheet.ID)

	suite.handler.StopTimesheet(c)

	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

// TestGetActiveTimesheets_Success tests listing running entries
func (suite *TimesheetHandlerTestSuite) TestGetActiveTimesheets_Success() {
	user := suite.createTestUser("anna")
	project, activity := suite.createTestClassification()
	suite.createTestTimesheet(user.ID, project.ID, activity.ID, time.Now().Add(-30*time.Minute).UTC(), nil)

	begin := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := begin.Add(time.Hour)
	suite.createTestTimesheet(user.ID, project.ID, activity.ID, begin, &end)

	c, w := suite.createAuthContext("GET", "/api/timesheets/active", nil, user.ID)

	suite.handler.GetActiveTimesheets(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)

	timesheets := response["timesheets"].([]interface{})
	assert.Len(suite.T(), timesheets, 1)

	first := timesheets[0].(map[string]interface{})
	assert.Equal(suite.T(), true, first["running"])
	// Live duration for running entries
	assert.InDelta(suite.T(), 1800, first["duration"].(float64), 5)
}

// TestListTimesheets_Success tests listing with pagination
func (suite *TimesheetHandlerTestSuite) TestListTimesheets_Success() {
	user := suite.createTestUser("anna")
	project, activity := suite.createTestClassification()
	begin := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := begin.Add(time.Hour)
	suite.createTestTimesheet(user.ID, project.ID, activity.ID, begin, &end)

	c, w := suite.createAuthContext("GET", "/api/timesheets", nil, user.ID)

	suite.handler.ListTimesheets(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Contains(suite.T(), response, "timesheets")
	assert.Equal(suite.T(), 1.0, response["total_count"])

	timesheets := response["timesheets"].([]interface{})
	assert.Len(suite.T(), timesheets, 1)
}

// TestListTimesheets_FilterByRunning tests the running filter
func (suite *TimesheetHandlerTestSuite) TestListTimesheets_FilterByRunning() {
	user := suite.createTestUser("anna")
	project, activity := suite.createTestClassification()
	suite.createTestTimesheet(user.ID, project.ID, activity.ID, time.Now().UTC(), nil)

	begin := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := begin.Add(time.Hour)
	suite.createTestTimesheet(user.ID, project.ID, activity.ID, begin, &end)

	c, w := suite.createAuthContext("GET", "/api/timesheets", nil, user.ID)
	c.Request.URL.RawQuery = "running=false"

	suite.handler.ListTimesheets(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)

	timesheets := response["timesheets"].([]interface{})
	assert.Len(suite.T(), timesheets, 1)
	first := timesheets[0].(map[string]interface{})
	assert.Equal(suite.T(), false, first["running"])
}

// TestListTimesheets_InvalidFilter tests a malformed query parameter
func (suite *TimesheetHandlerTestSuite) TestListTimesheets_InvalidFilter() {
	user := suite.createTestUser("anna")

	c, w := suite.createAuthContext("GET", "/api/timesheets", nil, user.ID)
	c.Request.URL.RawQuery = "begin_from=yesterday"

	suite.handler.ListTimesheets(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestCreateTimesheet_Success tests recording a complete entry
func (suite *TimesheetHandlerTestSuite) TestCreateTimesheet_Success() {
	user := suite.createTestUser("anna")
	project, activity := suite.createTestClassification()

	requestBody := map[string]interface{}{
		"project_id":  project.ID,
		"activity_id": activity.ID,
		"begin":       "2024-01-01T09:00:00Z",
		"end":         "2024-01-01T10:30:00Z",
		"description": "retro work",
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/timesheets", body, user.ID)

	suite.handler.CreateTimesheet(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), false, response["running"])
	assert.Equal(suite.T(), 5400.0, response["duration"])
}

// TestCreateTimesheet_EndBeforeBegin tests interval validation over HTTP
func (suite *TimesheetHandlerTestSuite) TestCreateTimesheet_EndBeforeBegin() {
	user := suite.createTestUser("anna")
	project, activity := suite.createTestClassification()

	requestBody := map[string]interface{}{
		"project_id":  project.ID,
		"activity_id": activity.ID,
		"begin":       "2024-01-01T09:00:00Z",
		"end":         "2024-01-01T08:00:00Z",
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/timesheets", body, user.ID)

	suite.handler.CreateTimesheet(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestUpdateTimesheet_ClearEnd tests that a JSON null end reopens the entry
func (suite *TimesheetHandlerTestSuite) TestUpdateTimesheet_ClearEnd() {
	user := suite.createTestUser("anna")
	project, activity := suite.createTestClassification()
	begin := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := begin.Add(time.Hour)
	timesheet := suite.createTestTimesheet(user.ID, project.ID, activity.ID, begin, &end)

	body := []byte(`{"end": null}`)
	c, w := suite.createAuthContext("PATCH", fmt.Sprintf("/api/timesheets/%d", timesheet.ID), body, user.ID)
	suite.setTimesheetContext(c, timesheet.ID)

	suite.handler.UpdateTimesheet(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), true, response["running"])
	assert.Nil(suite.T(), response["end"])
	assert.Nil(suite.T(), response["rate"])
}

// TestUpdateTimesheet_Description tests a partial update
func (suite *TimesheetHandlerTestSuite) TestUpdateTimesheet_Description() {
	user := suite.createTestUser("anna")
	project, activity := suite.createTestClassification()
	begin := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := begin.Add(time.Hour)
	timesheet := suite.createTestTimesheet(user.ID, project.ID, activity.ID, begin, &end)

	body := []byte(`{"description": "updated"}`)
	c, w := suite.createAuthContext("PATCH", fmt.Sprintf("/api/timesheets/%d", timesheet.ID), body, user.ID)
	suite.setTimesheetContext(c, timesheet.ID)

	suite.handler.UpdateTimesheet(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "updated", response["description"])
}

// TestUpdateTimesheet_MistypedFields tests that wrongly typed JSON values
// are rejected rather than silently dropped
func (suite *TimesheetHandlerTestSuite) TestUpdateTimesheet_MistypedFields() {
	user := suite.createTestUser("anna")
	project, activity := suite.createTestClassification()
	begin := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := begin.Add(time.Hour)
	timesheet := suite.createTestTimesheet(user.ID, project.ID, activity.ID, begin, &end)

	for _, body := range []string{
		`{"rate": "free"}`,
		`{"fixed_rate": "none"}`,
		`{"hourly_rate": true}`,
		`{"description": 42}`,
	} {
		c, w := suite.createAuthContext("PATCH", fmt.Sprintf("/api/timesheets/%d", timesheet.ID), []byte(body), user.ID)
		suite.setTimesheetContext(c, timesheet.ID)

		suite.handler.UpdateTimesheet(c)

		assert.Equal(suite.T(), http.StatusBadRequest, w.Code, body)
	}
}

// TestUpdateTimesheet_Exported tests the export lock over HTTP
func (suite *TimesheetHandlerTestSuite) TestUpdateTimesheet_Exported() {
	user := suite.createTestUser("anna")
	project, activity := suite.createTestClassification()
	begin := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := begin.Add(time.Hour)
	timesheet := suite.createTestTimesheet(user.ID, project.ID, activity.ID, begin, &end)
	suite.db.Model(timesheet).Update("exported", true)

	body := []byte(`{"description": "updated"}`)
	c, w := suite.createAuthContext("PATCH", fmt.Sprintf("/api/timesheets/%d", timesheet.ID), body, user.ID)
	suite.setTimesheetContext(c, timesheet.ID)

	suite.handler.UpdateTimesheet(c)

	assert.Equal(suite.T(), http.StatusLocked, w.Code)
}

// TestDeleteTimesheet_Success tests deleting an entry
func (suite *TimesheetHandlerTestSuite) TestDeleteTimesheet_Success() {
	user := suite.createTestUser("anna")
	project, activity := suite.createTestClassification()
	begin := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := begin.Add(time.Hour)
	timesheet := suite.createTestTimesheet(user.ID, project.ID, activity.ID, begin, &end)

	c, w := suite.createAuthContext("DELETE", fmt.Sprintf("/api/timesheets/%d", timesheet.ID), nil, user.ID)
	suite.setTimesheetContext(c, timesheet.ID)

	suite.handler.DeleteTimesheet(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var count int64
	suite.db.Model(&models.Timesheet{}).Count(&count)
	assert.Equal(suite.T(), int64(0), count)
}

// TestExportTimesheets_Success tests the export endpoint
func (suite *TimesheetHandlerTestSuite) TestExportTimesheets_Success() {
	user := suite.createTestUser("anna")
	project, activity := suite.createTestClassification()
	begin := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := begin.Add(time.Hour)
	timesheet := suite.createTestTimesheet(user.ID, project.ID, activity.ID, begin, &end)

	requestBody := map[string]interface{}{
		"ids": []uint64{timesheet.ID},
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/timesheets/export", body, user.ID)

	suite.handler.ExportTimesheets(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1.0, response["exported"])
}

// TestExportTimesheets_ForeignEntry tests that a foreign entry reads as missing
func (suite *TimesheetHandlerTestSuite) TestExportTimesheets_ForeignEntry() {
	owner := suite.createTestUser("anna")
	intruder := suite.createTestUser("bob")
	project, activity := suite.createTestClassification()
	begin := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := begin.Add(time.Hour)
	timesheet := suite.createTestTimesheet(owner.ID, project.ID, activity.ID, begin, &end)

	requestBody := map[string]interface{}{
		"ids": []uint64{timesheet.ID},
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/timesheets/export", body, intruder.ID)

	suite.handler.ExportTimesheets(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestSetMetaField_Success tests upserting a meta field
func (suite *TimesheetHandlerTestSuite) TestSetMetaField_Success() {
	user := suite.createTestUser("anna")
	project, activity := suite.createTestClassification()
	begin := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := begin.Add(time.Hour)
	timesheet := suite.createTestTimesheet(user.ID, project.ID, activity.ID, begin, &end)

	requestBody := map[string]interface{}{
		"name":    "ticket",
		"value":   "KIM-123",
		"visible": true,
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", fmt.Sprintf("/api/timesheets/%d/meta", timesheet.ID), body, user.ID)
	suite.setTimesheetContext(c, timesheet.ID)

	suite.handler.SetMetaField(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)

	meta := response["meta"].([]interface{})
	assert.Len(suite.T(), meta, 1)
	first := meta[0].(map[string]interface{})
	assert.Equal(suite.T(), "ticket", first["name"])
	assert.Equal(suite.T(), "KIM-123", first["value"])
}

// TestSetMetaField_MissingName tests meta validation
func (suite *TimesheetHandlerTestSuite) TestSetMetaField_MissingName() {
	user := suite.createTestUser("anna")
	project, activity := suite.createTestClassification()
	begin := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := begin.Add(time.Hour)
	timesheet := suite.createTestTimesheet(user.ID, project.ID, activity.ID, begin, &end)

	body := []byte(`{"value": "KIM-123"}`)
	c, w := suite.createAuthContext("POST", fmt.Sprintf("/api/timesheets/%d/meta", timesheet.ID), body, user.ID)
	suite.setTimesheetContext(c, timesheet.ID)

	suite.handler.SetMetaField(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestRestartTimesheet_Success tests restarting an entry
func (suite *TimesheetHandlerTestSuite) TestRestartTimesheet_Success() {
	user := suite.createTestUser("anna")
	project, activity := suite.createTestClassification()
	begin := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := begin.Add(time.Hour)
	timesheet := suite.createTestTimesheet(user.ID, project.ID, activity.ID, begin, &end)

	c, w := suite.createAuthContext("POST", fmt.Sprintf("/api/timesheets/%d/restart", timesheet.ID), nil, user.ID)
	suite.setTimesheetContext(c, timesheet.ID)

	suite.handler.RestartTimesheet(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), true, response["running"])
	assert.NotEqual(suite.T(), float64(timesheet.ID), response["id"])
}

// TestGetTimesheet_NotFoundInContext tests when the middleware did not run
func (suite *TimesheetHandlerTestSuite) TestGetTimesheet_NotFoundInContext() {
	user := suite.createTestUser("anna")
	c, w := suite.createAuthContext("GET", "/api/timesheets/1", nil, user.ID)

	suite.handler.GetTimesheet(c)

	assert.Equal(suite.T(), http.StatusInternalServerError, w.Code)
}

// TestTimesheetHandlerTestSuite runs the test suite
func TestTimesheetHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TimesheetHandlerTestSuite))
}
