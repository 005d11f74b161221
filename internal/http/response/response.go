// Package response формирует единый JSON-конверт ответов API.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/studgig-backend/internal/pkg/apperror"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PaginatedResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// Page отдаёт страницу списка. HasMore считается по заполненности страницы.
func Page(c *gin.Context, data interface{}, count, limit, offset int) {
	c.JSON(http.StatusOK, PaginatedResponse{
		Success: true,
		Data:    data,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: count == limit,
		},
	})
}

// Error отдаёт AppError с его HTTP-статусом, остальные ошибки скрываются за 500.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, failure(appErr.Code, appErr.Message))
		return
	}

	c.JSON(http.StatusInternalServerError, failure(apperror.ErrCodeInternal, "внутренняя ошибка сервера"))
}

// Abort прерывает цепочку middleware с ошибкой.
func Abort(c *gin.Context, status int, code apperror.ErrorCode, message string) {
	c.AbortWithStatusJSON(status, failure(code, message))
}

func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, failure(apperror.ErrCodeBadRequest, message))
}

func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, failure(apperror.ErrCodeUnauthorized, message))
}

func failure(code apperror.ErrorCode, message string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    string(code),
			Message: message,
		},
	}
}
