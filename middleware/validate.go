// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/danielhkuo/flash-survey/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterStructValidation(submitResponseStructValidation, models.SubmitResponseRequest{})
	return v
}

// A submission answers each question at most once
func submitResponseStructValidation(sl validator.StructLevel) {
	req := sl.Current().Interface().(models.SubmitResponseRequest)

	seen := make(map[string]bool, len(req.Responses))
	for i, a := range req.Responses {
		if a.QuestionID == "" {
			continue
		}
		if seen[a.QuestionID] {
			sl.ReportError(a.QuestionID, fmt.Sprintf("responses[%d].question_id", i), "QuestionID", "unique_question", "")
		}
		seen[a.QuestionID] = true
	}
}

// DecodeAndValidate parses the JSON body into out and validates it.
// On failure it writes a 400 response and returns the error so the handler
// can stop.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, out interface{}) error {
	if err := ParseJSONBody(r, out); err != nil {
		CodedErrorResponse(w, http.StatusBadRequest, "invalid_request_body", "Invalid JSON")
		return err
	}

	if err := validate.Struct(out); err != nil {
		JSONResponse(w, http.StatusBadRequest, models.ErrorResponse{
			Error:   http.StatusText(http.StatusBadRequest),
			Message: "Validation failed",
			Code:    "validation_failed",
			Fields:  validationErrorsToMap(err),
		})
		return err
	}
	return nil
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		out["error"] = err.Error()
		return out
	}
	for _, fe := range ve {
		out[fieldPath(fe)] = fieldMessage(fe)
	}
	return out
}

// fieldPath drops the root struct name: "questions[0].options"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at least %s items", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at most %s items", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "unique_question":
		return "question answered more than once"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
