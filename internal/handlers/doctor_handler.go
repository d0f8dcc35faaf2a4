package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harentsoaR/medibook/internal/models"
	"github.com/harentsoaR/medibook/internal/store"
)

type doctorRequest struct {
	Name       string  `json:"name" binding:"required"`
	Specialty  string  `json:"specialty" binding:"required"`
	Image      string  `json:"image"`
	Bio        string  `json:"bio"`
	Experience int     `json:"experience" binding:"min=0"`
	Rating     float64 `json:"rating" binding:"min=0,max=5"`
	Patients   int     `json:"patients" binding:"min=0"`
	Location   string  `json:"location"`
	Available  bool    `json:"available"`
}

func (r doctorRequest) toModel() models.Doctor {
	return models.Doctor{
		Name:       r.Name,
		Specialty:  r.Specialty,
		Image:      r.Image,
		Bio:        r.Bio,
		Experience: r.Experience,
		Rating:     r.Rating,
		Patients:   r.Patients,
		Location:   r.Location,
		Available:  r.Available,
	}
}

// ListDoctors returns all doctors ordered by name.
func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.Store.Doctors(c.Request.Context())
	if err != nil {
		h.Log.Error("listing doctors failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve doctors"})
		return
	}
	c.JSON(http.StatusOK, doctors)
}

func (h *Handler) GetDoctor(c *gin.Context) {
	d, err := h.Store.DoctorByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Doctor not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve doctor"})
		return
	}
	c.JSON(http.StatusOK, d)
}

// CreateDoctor adds a doctor record. Admin only.
func (h *Handler) CreateDoctor(c *gin.Context) {
	var req doctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.Store.AddDoctor(c.Request.Context(), req.toModel())
	if err != nil {
		h.Log.Error("adding doctor failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add doctor"})
		return
	}

	h.Metrics.DoctorsWritesTotal.WithLabelValues("add").Inc()
	c.JSON(http.StatusCreated, d)
}

// UpdateDoctor replaces a doctor's fields. Admin only.
func (h *Handler) UpdateDoctor(c *gin.Context) {
	var req doctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d := req.toModel()
	d.ID = c.Param("id")

	if err := h.Store.UpdateDoctor(c.Request.Context(), d); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Doctor not found"})
			return
		}
		h.Log.Error("updating doctor failed", zap.String("id", d.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update doctor"})
		return
	}

	h.Metrics.DoctorsWritesTotal.WithLabelValues("update").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Doctor updated successfully"})
}

// DeleteDoctor removes a doctor record. Admin only. Appointments referencing
// the doctor are kept; clients render a placeholder for the dangling id.
func (h *Handler) DeleteDoctor(c *gin.Context) {
	id := c.Param("id")
	if err := h.Store.DeleteDoctor(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Doctor not found"})
			return
		}
		h.Log.Error("deleting doctor failed", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete doctor"})
		return
	}

	h.Metrics.DoctorsWritesTotal.WithLabelValues("delete").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Doctor deleted successfully"})
}
