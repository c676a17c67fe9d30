package handlers

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/mamadbah2/lttp/internal/domain/models"
)

var registerOnce sync.Once

// RegisterValidators installs the ledger's custom binding tags on gin's
// validator and reports fields by their JSON names.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected binding engine %T", binding.Validator.Engine())
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		if regErr := v.RegisterValidation("ymd", validateYMD); regErr != nil {
			err = fmt.Errorf("register ymd validator: %w", regErr)
		}
	})
	return err
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

// validateYMD accepts empty strings so that `required` stays the only
// presence check.
func validateYMD(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := time.Parse(models.DateLayout, value)
	return err == nil
}
