package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harentsoaR/medibook/internal/middleware"
	"github.com/harentsoaR/medibook/internal/models"
	"github.com/harentsoaR/medibook/internal/store"
)

// GetCurrentUser returns the signed-in user's profile.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	uid := c.GetString(middleware.ContextUserID)

	profile, err := h.Store.ProfileByUID(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

type updateUserRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	PhotoURL string `json:"photoURL"`
}

// UpdateCurrentUser lets a user edit their own profile fields. Empty fields
// are left untouched.
func (h *Handler) UpdateCurrentUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	updates := map[string]string{
		"name":     req.Name,
		"phone":    req.Phone,
		"photoURL": req.PhotoURL,
	}
	hasUpdate := false
	for _, v := range updates {
		if v != "" {
			hasUpdate = true
		}
	}
	if !hasUpdate {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No update fields provided"})
		return
	}

	uid := c.GetString(middleware.ContextUserID)
	if err := h.Store.UpdateProfile(c.Request.Context(), uid, updates); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.Log.Error("updating profile failed", zap.String("uid", uid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}

// ListUsers returns all registered users, newest first. Admin only.
func (h *Handler) ListUsers(c *gin.Context) {
	profiles, err := h.Store.Profiles(c.Request.Context())
	if err != nil {
		h.Log.Error("listing users failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve users"})
		return
	}
	c.JSON(http.StatusOK, profiles)
}

type updateRoleRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

// UpdateUserRole changes another user's role. Admin only.
func (h *Handler) UpdateUserRole(c *gin.Context) {
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Role.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Role must be user or admin"})
		return
	}

	uid := c.Param("id")
	if err := h.Store.UpdateProfileRole(c.Request.Context(), uid, req.Role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.Log.Error("updating role failed", zap.String("uid", uid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Role updated successfully"})
}
