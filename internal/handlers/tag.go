package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/tquast/kimai2/internal/errors"
	"github.com/tquast/kimai2/internal/models"
	"github.com/tquast/kimai2/internal/repository"
	"gorm.io/gorm"
)

// TagHandler coordinates tag-related HTTP handlers.
type TagHandler struct {
	tagRepo repository.TagRepository
}

// NewTagHandler creates a new TagHandler.
func NewTagHandler(tagRepo repository.TagRepository) *TagHandler {
	return &TagHandler{
		tagRepo: tagRepo,
	}
}

// ListTags returns all tags ordered by name.
func (h *TagHandler) ListTags(c *gin.Context) {
	tags, err := h.tagRepo.List()
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch tags")
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// CreateTag creates a new tag.
func (h *TagHandler) CreateTag(c *gin.Context) {
	type CreateTagRequest struct {
		Name  string `json:"name" binding:"required,max=100"`
		Color string `json:"color" binding:"omitempty,hexcolor"`
	}

	var req CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	tag := models.Tag{
		Name:  req.Name,
		Color: req.Color,
	}

	if err := h.tagRepo.Create(&tag); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			apierrors.Conflict(c, "Tag already exists")
			return
		}
		apierrors.InternalError(c, "Failed to create tag")
		return
	}

	c.JSON(http.StatusCreated, tag)
}

// DeleteTag removes a tag and detaches it from all timesheets.
func (h *TagHandler) DeleteTag(c *gin.Context) {
	tagID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid tag ID")
		return
	}

	if err := h.tagRepo.Delete(tagID); err != nil {
		apierrors.InternalError(c, "Failed to delete tag")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Tag deleted successfully",
	})
}
