package handler

import (
    "errors"
    "net/http"
    "reflect"
    "strings"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo.Validator so handlers can
// call c.Validate on their request DTOs.
type Validator struct {
    v *validator.Validate
}

func NewValidator() *Validator {
    v := validator.New(validator.WithRequiredStructEnabled())
    // Report fields by their JSON name.
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    return &Validator{v: v}
}

func (cv *Validator) Validate(i interface{}) error {
    return cv.v.Struct(i)
}

// bind decodes the request body into req and validates it. On failure it
// writes the 400 response itself and returns ok=false.
func bind(c echo.Context, req interface{}) (ok bool, err error) {
    if err := c.Bind(req); err != nil {
        return false, c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body."})
    }
    if err := c.Validate(req); err != nil {
        var verrs validator.ValidationErrors
        if errors.As(err, &verrs) && len(verrs) > 0 {
            fe := verrs[0]
            return false, c.JSON(http.StatusBadRequest, echo.Map{
                "message": fieldMessage(fe),
                "field":   fe.Field(),
            })
        }
        return false, c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body."})
    }
    return true, nil
}

func fieldMessage(fe validator.FieldError) string {
    switch fe.Tag() {
    case "required":
        return fe.Field() + " is required."
    case "email":
        return fe.Field() + " must be a valid email address."
    case "oneof":
        return fe.Field() + " must be one of: " + fe.Param() + "."
    case "max":
        return fe.Field() + " is too long."
    }
    return fe.Field() + " is invalid."
}
