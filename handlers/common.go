package handlers

import (
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// RegisterValidators installs the "objectid" rule on gin's validator and
// reports fields by their wire names.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	v.RegisterTagNameFunc(wireName)
	return v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return objectIDPattern.MatchString(fl.Field().String())
	})
}

func wireName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form", "uri"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return fld.Name
}

// validationFailed answers 422 with one detail per failing field.
func validationFailed(c *gin.Context, err error) {
	details := []gin.H{}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			details = append(details, gin.H{
				"field":   fe.Field(),
				"rule":    fe.Tag(),
				"message": describe(fe),
			})
		}
	} else {
		details = append(details, gin.H{"message": err.Error()})
	}

	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
		"error":   "Validation failed",
		"details": details,
	})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "objectid":
		return fmt.Sprintf("%s must be a 24-character hex string", fe.Field())
	default:
		return fe.Error()
	}
}

func notFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Post not found"})
}

func storeFailure(c *gin.Context, op string, err error) {
	zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("op", op).Msg("store operation failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
