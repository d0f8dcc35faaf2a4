package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harentsoaR/medibook/internal/auth"
	"github.com/harentsoaR/medibook/internal/models"
	"github.com/harentsoaR/medibook/internal/store"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone"`
}

// Register creates a user account. The role is decided by the admin
// allow-list, never by the request body.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	profile := models.Profile{
		UID:          uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		Role:         h.Roles.RoleFor(email),
		Phone:        req.Phone,
		PasswordHash: hashed,
	}

	if err := h.Store.CreateProfile(c.Request.Context(), profile); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": auth.Message(auth.ErrEmailInUse)})
			return
		}
		h.Log.Error("creating profile failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	token, err := h.Tokens.Issue(profile.UID, profile.Email, string(profile.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": profile})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	profile, err := h.Store.ProfileByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.Message(auth.ErrInvalidCredentials)})
		return
	}

	if !auth.CheckPasswordHash(req.Password, profile.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.Message(auth.ErrInvalidCredentials)})
		return
	}

	token, err := h.Tokens.Issue(profile.UID, profile.Email, string(profile.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": profile})
}

type resetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// RequestPasswordReset mints a reset token. The response is the same whether
// or not the account exists, so the endpoint cannot be used for enumeration;
// delivery of the token happens out of band.
func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	profile, err := h.Store.ProfileByEmail(c.Request.Context(), req.Email)
	if err == nil {
		token, terr := h.Tokens.IssueReset(profile.UID, profile.Email)
		if terr != nil {
			h.Log.Error("issuing reset token failed", zap.Error(terr))
		} else {
			h.Log.Info("password reset requested",
				zap.String("uid", profile.UID), zap.String("token", token))
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "If the account exists, reset instructions have been sent."})
}

type confirmResetRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

func (h *Handler) ConfirmPasswordReset(c *gin.Context) {
	var req confirmResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	claims, err := h.Tokens.VerifyReset(req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired reset token"})
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	if err := h.Store.UpdatePassword(c.Request.Context(), claims.UID, hashed); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}
