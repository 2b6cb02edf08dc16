package serverutils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidateRequest runs struct tag validation and folds failures into one
// 400 with a readable field list.
func ValidateRequest(request interface{}) error {
	err := validate.Struct(request)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	fields := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields = append(fields, fmt.Sprintf("%s (%s)", fieldErr.Field(), fieldErr.Tag()))
	}
	return fiber.NewError(fiber.StatusBadRequest, "validation failed: "+strings.Join(fields, ", "))
}
