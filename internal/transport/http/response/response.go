package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gopherai-docqa/internal/rag"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code   int    `json:"code"`
	Detail string `json:"detail"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func Error(c *gin.Context, httpStatus int, detail string) {
	c.AbortWithStatusJSON(httpStatus, ErrorBody{
		Code:   httpStatus,
		Detail: detail,
	})
}

// FromError writes err with the status its kind maps to. Errors without a
// kind are internal and their text is passed through.
func FromError(c *gin.Context, err error) {
	Error(c, StatusOf(err), err.Error())
}

func StatusOf(err error) int {
	var e *rag.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case rag.KindInvalidInput, rag.KindExtraction, rag.KindEmptyContent, rag.KindEmptyCorpus:
		return http.StatusBadRequest
	case rag.KindSessionNotFound:
		return http.StatusNotFound
	case rag.KindGeneration, rag.KindEmbedding:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
