package server

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/detailflow/internal/customer/domain"
	"github.com/smallbiznis/detailflow/internal/referral"
)

var registerValidatorsOnce sync.Once

// registerValidators adds the request rules shared by the handlers to gin's
// validator and reports failing fields by their JSON name.
func registerValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(requestFieldName)
		// decimals are validated through their canonical string form
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.String()
			}
			return nil
		}, decimal.Decimal{})
		_ = v.RegisterValidation("percent", func(fl validator.FieldLevel) bool {
			rate, err := decimal.NewFromString(fl.Field().String())
			return err == nil && referral.ValidPercent(rate)
		})
		_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
			_, ok := customerdomain.NormalizeMobile(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("ymd", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(time.DateOnly, strings.TrimSpace(fl.Field().String()))
			return err == nil
		})
	})
}

func requestFieldName(field reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(field.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return field.Name
}
