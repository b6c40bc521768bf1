package handler

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gopherai-docqa/internal/transport/http/response"
	"gopherai-docqa/internal/vision"
)

const maxImageSize = 5 << 20 // 5 MB

type ImageClassifier interface {
	Classify(imageData []byte) (*vision.Result, error)
}

type VisionHandler struct {
	classifier ImageClassifier
}

type ClassifyRequest struct {
	Image string `json:"image" binding:"required"`
}

func NewVisionHandler(classifier ImageClassifier) *VisionHandler {
	return &VisionHandler{classifier: classifier}
}

// Classify accepts either JSON {"image": "<base64>"} or a multipart "image"
// file and returns a score per label.
func (h *VisionHandler) Classify(c *gin.Context) {
	data, ok := h.readImage(c)
	if !ok {
		return
	}

	result, err := h.classifier.Classify(data)
	if err != nil {
		switch {
		case errors.Is(err, vision.ErrModelUnavailable):
			response.Error(c, http.StatusServiceUnavailable, "classifier model not loaded")
		case errors.Is(err, vision.ErrInvalidImage):
			response.Error(c, http.StatusBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "classification failed: "+err.Error())
		}
		return
	}
	response.OK(c, result)
}

func (h *VisionHandler) readImage(c *gin.Context) ([]byte, bool) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("image")
		if err != nil {
			response.Error(c, http.StatusBadRequest, "missing image file (form field 'image')")
			return nil, false
		}
		if file.Size > maxImageSize {
			response.Error(c, http.StatusBadRequest, "image too large (max 5MB)")
			return nil, false
		}
		f, err := file.Open()
		if err != nil {
			response.Error(c, http.StatusBadRequest, "failed to open uploaded file")
			return nil, false
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "failed to read image")
			return nil, false
		}
		return data, true
	}

	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return nil, false
	}
	encoded := req.Image
	if i := strings.Index(encoded, ";base64,"); i >= 0 {
		encoded = encoded[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "image is not valid base64")
		return nil, false
	}
	if len(data) > maxImageSize {
		response.Error(c, http.StatusBadRequest, "image too large (max 5MB)")
		return nil, false
	}
	return data, true
}
