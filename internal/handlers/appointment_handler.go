package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harentsoaR/medibook/internal/middleware"
	"github.com/harentsoaR/medibook/internal/models"
	"github.com/harentsoaR/medibook/internal/store"
)

type createAppointmentRequest struct {
	DoctorID     string `json:"doctorId" binding:"required"`
	PatientName  string `json:"patientName" binding:"required"`
	PatientPhone string `json:"patientPhone"`
	Date         string `json:"date" binding:"required"`
	Time         string `json:"time" binding:"required"`
	Notes        string `json:"notes"`
}

// CreateAppointment books an appointment for the signed-in patient. Status
// always starts Pending; patientEmail comes from the token, not the body.
func (h *Handler) CreateAppointment(c *gin.Context) {
	var req createAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, use YYYY-MM-DD"})
		return
	}

	apt := models.Appointment{
		DoctorID:     req.DoctorID,
		PatientName:  req.PatientName,
		PatientEmail: c.GetString(middleware.ContextEmail),
		PatientPhone: req.PatientPhone,
		Date:         req.Date,
		Time:         req.Time,
		Status:       models.StatusPending,
		Notes:        req.Notes,
	}

	created, err := h.Store.AddAppointment(c.Request.Context(), apt)
	if err != nil {
		h.Log.Error("creating appointment failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create appointment"})
		return
	}

	h.Metrics.AppointmentsTotal.WithLabelValues(string(models.StatusPending)).Inc()
	c.JSON(http.StatusCreated, created)
}

// ListAppointments is role-scoped: admins see the whole collection, patients
// only their own bookings. Both views are newest-first. Admins may filter by
// status with ?status=.
func (h *Handler) ListAppointments(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		appointments []models.Appointment
		err          error
	)
	if c.GetString(middleware.ContextUserRole) == string(models.RoleAdmin) {
		appointments, err = h.Store.Appointments(ctx)
	} else {
		appointments, err = h.Store.AppointmentsByPatient(ctx, c.GetString(middleware.ContextEmail))
	}
	if err != nil {
		h.Log.Error("listing appointments failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve appointments"})
		return
	}

	if status := c.Query("status"); status != "" {
		filtered := make([]models.Appointment, 0, len(appointments))
		for _, a := range appointments {
			if string(a.Status) == status {
				filtered = append(filtered, a)
			}
		}
		appointments = filtered
	}

	c.JSON(http.StatusOK, appointments)
}

type updateStatusRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required"`
}

// UpdateAppointmentStatus approves or rejects a booking. Admin only; status
// is the only mutable field. The patient is notified best-effort.
func (h *Handler) UpdateAppointmentStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if !req.Status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status must be Pending, Approved or Rejected"})
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")

	if err := h.Store.UpdateAppointmentStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Appointment not found"})
			return
		}
		h.Log.Error("updating appointment status failed", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update appointment"})
		return
	}

	h.Metrics.AppointmentsTotal.WithLabelValues(string(req.Status)).Inc()

	if apt, err := h.Store.AppointmentByID(ctx, id); err == nil {
		doctorName := ""
		if d, derr := h.Store.DoctorByID(ctx, apt.DoctorID); derr == nil {
			doctorName = d.Name
		}
		h.SMS.AppointmentModerated(apt, doctorName)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Appointment updated successfully"})
}

// DeleteAppointment removes a booking outright. Admin only.
func (h *Handler) DeleteAppointment(c *gin.Context) {
	id := c.Param("id")
	if err := h.Store.DeleteAppointment(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Appointment not found"})
			return
		}
		h.Log.Error("deleting appointment failed", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete appointment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment deleted successfully"})
}
