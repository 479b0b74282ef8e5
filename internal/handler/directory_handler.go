package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"betonflow/internal/middleware"
	"betonflow/internal/policy"
	"betonflow/internal/service"
	"betonflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type DirectoryHandler struct {
	directoryService service.DirectoryService
	jwtSecret        []byte
}

func NewDirectoryHandler(directoryService service.DirectoryService, jwtSecret []byte) *DirectoryHandler {
	return &DirectoryHandler{directoryService: directoryService, jwtSecret: jwtSecret}
}

func (h *DirectoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	directories := router.Group("/api/directories", middleware.RequireAuth(h.jwtSecret))
	{
		directories.GET("/:resource", h.List)
		directories.GET("/:resource/:id", h.Get)
		directories.POST("/:resource", h.Create)
		directories.PUT("/:resource/:id", h.Update)
		directories.DELETE("/:resource/:id", h.Delete)
	}
}

func (h *DirectoryHandler) requireWrite(c *gin.Context) bool {
	actor := middleware.GetActor(c)
	if !policy.AllowDirectoryWrite(actor.Role, c.Param("resource")) {
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
		return false
	}
	return true
}

// List returns all entries of one directory
// @Summary      List directory entries
// @Tags         directories
// @Security     BearerAuth
// @Produce      json
// @Param        resource          path      string  true   "Directory name"
// @Param        include_inactive  query     bool    false  "Include soft-deleted entries"
// @Success      200               {object}  response.Response
// @Failure      404               {object}  response.Response
// @Router       /api/directories/{resource} [get]
func (h *DirectoryHandler) List(c *gin.Context) {
	includeInactive := c.DefaultQuery("include_inactive", "false") == "true"
	items, err := h.directoryService.List(c.Request.Context(), c.Param("resource"), includeInactive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// Get returns one directory entry
// @Summary      Get directory entry
// @Tags         directories
// @Security     BearerAuth
// @Produce      json
// @Param        resource  path      string  true  "Directory name"
// @Param        id        path      string  true  "Entry ID"
// @Success      200       {object}  response.Response
// @Failure      404       {object}  response.Response
// @Router       /api/directories/{resource}/{id} [get]
func (h *DirectoryHandler) Get(c *gin.Context) {
	item, err := h.directoryService.Get(c.Request.Context(), c.Param("resource"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// Create adds a directory entry
// @Summary      Create directory entry
// @Tags         directories
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        resource  path      string  true  "Directory name"
// @Success      201       {object}  response.Response
// @Failure      400       {object}  response.Response
// @Router       /api/directories/{resource} [post]
func (h *DirectoryHandler) Create(c *gin.Context) {
	if !h.requireWrite(c) {
		return
	}
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "failed to read request body"))
		return
	}

	item, err := h.directoryService.Create(c.Request.Context(), c.Param("resource"), json.RawMessage(payload))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// Update modifies a directory entry
// @Summary      Update directory entry
// @Tags         directories
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        resource  path      string  true  "Directory name"
// @Param        id        path      string  true  "Entry ID"
// @Success      200       {object}  response.Response
// @Failure      400       {object}  response.Response
// @Router       /api/directories/{resource}/{id} [put]
func (h *DirectoryHandler) Update(c *gin.Context) {
	if !h.requireWrite(c) {
		return
	}
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "failed to read request body"))
		return
	}

	item, err := h.directoryService.Update(c.Request.Context(), c.Param("resource"), c.Param("id"), json.RawMessage(payload))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// Delete soft-deletes a directory entry
// @Summary      Delete directory entry
// @Tags         directories
// @Security     BearerAuth
// @Produce      json
// @Param        resource  path      string  true  "Directory name"
// @Param        id        path      string  true  "Entry ID"
// @Success      200       {object}  response.Response
// @Failure      404       {object}  response.Response
// @Router       /api/directories/{resource}/{id} [delete]
func (h *DirectoryHandler) Delete(c *gin.Context) {
	if !h.requireWrite(c) {
		return
	}
	if err := h.directoryService.Delete(c.Request.Context(), c.Param("resource"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "entry deleted"}))
}
