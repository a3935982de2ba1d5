package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse define la estructura estándar para las respuestas de error.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Códigos de error estables para los clientes.
const (
	CodeInvalid     = "invalid"
	CodeNotFound    = "not_found"
	CodeTimeout     = "timeout"
	CodeUnavailable = "unavailable"
	CodeInternal    = "internal"
)

// SendSuccess envía una respuesta exitosa con un payload de datos.
func SendSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"data": data,
	})
}

// SendError envía una respuesta de error con un formato estandarizado.
func SendError(c *gin.Context, statusCode int, code, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{
		"error": ErrorResponse{
			Message: message,
			Code:    code,
		},
	})
}

// --- Helpers específicos para errores comunes ---

func SendBadRequest(c *gin.Context, message string) {
	SendError(c, http.StatusBadRequest, CodeInvalid, message)
}

func SendNotFound(c *gin.Context, message string) {
	SendError(c, http.StatusNotFound, CodeNotFound, message)
}

func SendGatewayTimeout(c *gin.Context, message string) {
	SendError(c, http.StatusGatewayTimeout, CodeTimeout, message)
}

func SendServiceUnavailable(c *gin.Context, message string) {
	SendError(c, http.StatusServiceUnavailable, CodeUnavailable, message)
}

func SendInternalServerError(c *gin.Context, message string) {
	SendError(c, http.StatusInternalServerError, CodeInternal, message)
}
