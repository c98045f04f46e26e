package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tquast/kimai2/internal/database"
	apierrors "github.com/tquast/kimai2/internal/errors"
	"github.com/tquast/kimai2/internal/models"
)

// RequireTimesheetAccess checks that the entry exists and belongs to the
// current user. Foreign entries get a 404 to avoid leaking their existence.
func RequireTimesheetAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		timesheetIDStr := c.Param("id")
		timesheetID, err := strconv.ParseUint(timesheetIDStr, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid timesheet ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		var timesheet models.Timesheet
		if err := database.GetDB().
			Preload("User").
			Preload("Activity").
			Preload("Project").
			Preload("Project.Customer").
			Preload("Tags").
			Preload("Meta").
			First(&timesheet, timesheetID).Error; err != nil {
			apierrors.NotFound(c, "Timesheet not found")
			c.Abort()
			return
		}

		if timesheet.UserID != userID {
			apierrors.NotFound(c, "Timesheet not found")
			c.Abort()
			return
		}

		c.Set("timesheet", timesheet)
		c.Next()
	}
}
