package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/lttp/internal/domain/apperr"
	"github.com/mamadbah2/lttp/internal/domain/models"
)

// envelope is the JSON body of every API response.
type envelope struct {
	Success bool                `json:"success"`
	Data    interface{}         `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
	Error   string              `json:"error,omitempty"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
}

func respondOK(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data, Message: message})
}

func respondCreated(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusCreated, envelope{Success: true, Data: data, Message: message})
}

func respondBadRequest(c *gin.Context, message string, fields ...apperr.FieldError) {
	c.JSON(http.StatusBadRequest, envelope{Success: false, Message: message, Errors: fields})
}

// respondError maps service failures onto status codes. Unclassified errors
// are logged and surface as 500 with their message.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case apperr.KindValidation:
			c.JSON(http.StatusBadRequest, envelope{Message: appErr.Message, Errors: appErr.Fields})
			return
		case apperr.KindNotFound:
			c.JSON(http.StatusNotFound, envelope{Message: appErr.Message})
			return
		case apperr.KindConflict:
			c.JSON(http.StatusConflict, envelope{Message: appErr.Message})
			return
		case apperr.KindIllegalState:
			c.JSON(http.StatusBadRequest, envelope{Message: appErr.Message})
			return
		}
	}

	logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, envelope{Message: "Lỗi máy chủ", Error: err.Error()})
}

// bindJSON decodes the body and writes a 400 with per-field messages when the
// payload is malformed or fails its binding tags.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			respondBadRequest(c, "Dữ liệu không hợp lệ", fieldErrors(verrs)...)
			return false
		}
		respondBadRequest(c, "Dữ liệu không hợp lệ", apperr.FieldError{Field: "body", Message: err.Error()})
		return false
	}
	return true
}

func fieldErrors(verrs validator.ValidationErrors) []apperr.FieldError {
	out := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperr.FieldError{Field: fe.Field(), Message: tagMessage(fe)})
	}
	return out
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Trường này là bắt buộc"
	case "ymd":
		return "Ngày phải có định dạng YYYY-MM-DD"
	case "gte", "min":
		return "Giá trị phải lớn hơn hoặc bằng " + fe.Param()
	case "oneof":
		return "Giá trị phải là một trong: " + fe.Param()
	}
	return "Giá trị không hợp lệ (" + fe.Tag() + ")"
}

func parseID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		respondBadRequest(c, "ID không hợp lệ", apperr.FieldError{Field: param, Message: "ID không hợp lệ"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// optionalID parses an ObjectID query parameter; empty means absent.
func optionalID(c *gin.Context, key string) (*primitive.ObjectID, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		respondBadRequest(c, "ID không hợp lệ", apperr.FieldError{Field: key, Message: "ID không hợp lệ"})
		return nil, false
	}
	return &id, true
}

// queryDate reads a YYYY-MM-DD query parameter, falling back to fallback()
// when the parameter is absent.
func queryDate(c *gin.Context, key string, fallback func() time.Time) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		if fallback != nil {
			return fallback(), true
		}
		respondBadRequest(c, "Thiếu tham số ngày", apperr.FieldError{Field: key, Message: "Trường này là bắt buộc"})
		return time.Time{}, false
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		respondBadRequest(c, "Ngày không hợp lệ", apperr.FieldError{Field: key, Message: "Ngày phải có định dạng YYYY-MM-DD"})
		return time.Time{}, false
	}
	return d, true
}

// parseBodyDate converts an already validated ymd field; empty falls back to fallback().
func parseBodyDate(raw string, fallback func() time.Time) time.Time {
	if raw == "" {
		return fallback()
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return fallback()
	}
	return d
}
