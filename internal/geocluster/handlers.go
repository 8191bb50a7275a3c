package geocluster

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for location clusters.
type Handler struct {
	service *Service
}

// NewHandler creates a new geocluster handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterProtectedRoutes sets up auth-required cluster routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/users/:userID/clusters", h.ListClusters)
}

// RegisterAdminRoutes sets up admin-only cluster routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/clusters/:id", h.GetCluster)
	r.POST("/clusters/:id/promote", h.PromoteCluster)
	r.DELETE("/clusters/:id", h.DeleteCluster)
}

// ListClusters handles GET /v1/users/:userID/clusters
func (h *Handler) ListClusters(c *gin.Context) {
	clusters, err := h.service.ListByUser(c.Request.Context(), c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"clusters": clusters,
		"count":    len(clusters),
	})
}

// GetCluster handles GET /v1/admin/clusters/:id
func (h *Handler) GetCluster(c *gin.Context) {
	cluster, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.clusterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cluster": cluster})
}

// PromoteCluster handles POST /v1/admin/clusters/:id/promote
func (h *Handler) PromoteCluster(c *gin.Context) {
	cluster, err := h.service.Promote(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.clusterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cluster": cluster})
}

// DeleteCluster handles DELETE /v1/admin/clusters/:id
func (h *Handler) DeleteCluster(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.clusterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cluster deleted"})
}

func (h *Handler) clusterError(c *gin.Context, err error) {
	if errors.Is(err, ErrClusterNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "No cluster found with this ID",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": err.Error(),
	})
}
