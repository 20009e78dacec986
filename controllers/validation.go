package controllers

import (
	"fmt"

	"github.com/Vaibhavugile/doenew/services"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the custom binding tags used by request models.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return v.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
		return services.ValidatePincode(fl.Field().String()) == nil
	})
}
