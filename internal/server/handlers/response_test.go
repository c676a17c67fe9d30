package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/lttp/internal/domain/apperr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", apperr.Validation("bad", apperr.FieldError{Field: "x", Message: "y"}), http.StatusBadRequest},
		{"not found", apperr.NotFound("missing"), http.StatusNotFound},
		{"conflict", apperr.Conflict("dup", nil), http.StatusConflict},
		{"illegal state", apperr.IllegalState("nope"), http.StatusBadRequest},
		{"wrapped", errors.Join(errors.New("ctx"), apperr.NotFound("missing")), http.StatusNotFound},
		{"unclassified", errors.New("mongo down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, nil, tt.err)

			if w.Code != tt.status {
				t.Fatalf("Expected %d, got %d", tt.status, w.Code)
			}
			var body envelope
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Success {
				t.Error("Expected success=false")
			}
			if tt.status == http.StatusInternalServerError && body.Error != "mongo down" {
				t.Errorf("Expected the cause to be echoed, got %q", body.Error)
			}
		})
	}
}

func TestRespondError_ValidationFields(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	respondError(c, nil, apperr.Validation("bad", apperr.FieldError{Field: "unitPrice", Message: "negative"}))

	var body envelope
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Errors) != 1 || body.Errors[0].Field != "unitPrice" {
		t.Errorf("Expected the field list, got %+v", body.Errors)
	}
}

func TestRequirePrincipal(t *testing.T) {
	r := gin.New()
	r.Use(RequirePrincipal())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, actor(c)) })
	r.POST("/x", func(c *gin.Context) { c.String(http.StatusOK, actor(c)) })

	tests := []struct {
		method string
		user   string
		status int
		body   string
	}{
		{http.MethodGet, "", http.StatusOK, ""},
		{http.MethodPost, "", http.StatusUnauthorized, ""},
		{http.MethodPost, "  ", http.StatusUnauthorized, ""},
		{http.MethodPost, "officer-7", http.StatusOK, "officer-7"},
	}
	for _, tt := range tests {
		t.Run(tt.method+"/"+tt.user, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/x", nil)
			if tt.user != "" {
				req.Header.Set(PrincipalHeader, tt.user)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Fatalf("Expected %d, got %d", tt.status, w.Code)
			}
			if tt.status == http.StatusOK && w.Body.String() != tt.body {
				t.Errorf("Expected actor %q, got %q", tt.body, w.Body.String())
			}
		})
	}
}

func TestRegisterValidators_YMD(t *testing.T) {
	if err := RegisterValidators(); err != nil {
		t.Fatalf("RegisterValidators: %v", err)
	}

	type payload struct {
		Date string `json:"date" binding:"required,ymd"`
	}
	tests := []struct {
		body  string
		valid bool
	}{
		{`{"date":"2024-05-10"}`, true},
		{`{"date":"2024-02-30"}`, false},
		{`{"date":"10/05/2024"}`, false},
		{`{}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var p payload
			ok := bindJSON(c, &p)
			if ok != tt.valid {
				t.Fatalf("Expected valid=%v, got %v (%s)", tt.valid, ok, w.Body.String())
			}
			if !ok {
				var body envelope
				_ = json.Unmarshal(w.Body.Bytes(), &body)
				if len(body.Errors) == 0 || body.Errors[0].Field != "date" {
					t.Errorf("Expected an error on date, got %+v", body.Errors)
				}
			}
		})
	}
}
