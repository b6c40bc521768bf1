package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DependencyCheck probes one backing service.
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthInfo struct {
	AppName      string
	Env          string
	StartedAt    time.Time
	SessionCount func() int
	VisionLoaded func() bool
}

type HealthHandler struct {
	info   HealthInfo
	checks []DependencyCheck
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(info HealthInfo, checks ...DependencyCheck) *HealthHandler {
	return &HealthHandler{info: info, checks: checks}
}

func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "RAG Chatbot API is running"})
}

// Health is the liveness view: process state only, no dependency probes.
func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":           "healthy",
		"cnn_model_loaded": h.info.VisionLoaded != nil && h.info.VisionLoaded(),
	}
	if h.info.SessionCount != nil {
		body["sessions"] = h.info.SessionCount()
	}
	c.JSON(http.StatusOK, body)
}

// Check probes every configured dependency and answers 503 if any fails.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	allOK := true
	deps := make(gin.H, len(h.checks))
	for _, check := range h.checks {
		status := dependencyStatus{OK: true}
		if err := check.Check(ctx); err != nil {
			status = dependencyStatus{OK: false, Message: err.Error()}
			allOK = false
		}
		deps[check.Name] = status
	}

	statusCode := http.StatusOK
	if !allOK {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, gin.H{
		"app":          h.info.AppName,
		"env":          h.info.Env,
		"uptime_sec":   int(time.Since(h.info.StartedAt).Seconds()),
		"dependencies": deps,
	})
}
