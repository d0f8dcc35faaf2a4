package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harentsoaR/medibook/internal/images"
)

// UploadImage proxies a multipart image to the hosting API and returns the
// public URLs for use in doctor and profile forms.
func (h *Handler) UploadImage(c *gin.Context) {
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "An image file is required"})
		return
	}
	defer file.Close()

	result, err := h.Images.Upload(c.Request.Context(), file)
	if err != nil {
		if images.IsCancelled(err) {
			h.Metrics.UploadsTotal.WithLabelValues("cancelled").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "No image data received"})
			return
		}
		h.Metrics.UploadsTotal.WithLabelValues("failure").Inc()
		h.Log.Error("image upload failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to upload image"})
		return
	}

	h.Metrics.UploadsTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, result)
}
