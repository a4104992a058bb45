// Copyright 2025 Nguyen Nhat Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package middleware

import (
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
)

// ValidationError represents a structured validation error with field and reason.
type ValidationError struct {
	Field  string
	Reason string
}

// ExtractValidationErrors flattens an OpenAPI validation error into field/reason pairs.
func ExtractValidationErrors(err error) []ValidationError {
	switch v := err.(type) {
	case openapi3.MultiError:
		var out []ValidationError
		for _, item := range v {
			out = append(out, ExtractValidationErrors(item)...)
		}
		return out
	case *openapi3filter.RequestError:
		return requestErrors(v)
	case *openapi3.SchemaError:
		return []ValidationError{{Field: fieldFromPointer(v.JSONPointer()), Reason: v.Reason}}
	case *openapi3filter.SecurityRequirementsError:
		return []ValidationError{{Field: "authorization", Reason: "missing or invalid credentials"}}
	}
	return []ValidationError{{Field: "request", Reason: "invalid value"}}
}

func requestErrors(re *openapi3filter.RequestError) []ValidationError {
	name := "body"
	if re.Parameter != nil {
		name = re.Parameter.Name
	}

	switch inner := re.Err.(type) {
	case *openapi3.SchemaError:
		if re.Parameter != nil {
			return []ValidationError{{Field: name, Reason: inner.Reason}}
		}
		return []ValidationError{{Field: fieldFromPointer(inner.JSONPointer()), Reason: inner.Reason}}
	case openapi3.MultiError:
		var out []ValidationError
		for _, item := range inner {
			if se, ok := item.(*openapi3.SchemaError); ok && re.Parameter == nil {
				out = append(out, ValidationError{Field: fieldFromPointer(se.JSONPointer()), Reason: se.Reason})
				continue
			}
			out = append(out, ValidationError{Field: name, Reason: SafeReason(item.Error())})
		}
		return out
	}
	// Do not echo input; keep messages generic
	return []ValidationError{{Field: name, Reason: SafeReason(re.Reason)}}
}

func fieldFromPointer(ptr []string) string {
	if len(ptr) == 0 || ptr[0] == "" || ptr[0] == "0" {
		return "body"
	}
	return ptr[0]
}

// InferBodyValidationStatus returns 422 for body schema violations so that
// well-formed but semantically invalid payloads are not reported as 400.
// Parameter violations stay 400.
func InferBodyValidationStatus(err error) int {
	switch v := err.(type) {
	case *openapi3filter.RequestError:
		if v.RequestBody != nil || v.Parameter == nil {
			if _, ok := v.Err.(*openapi3.SchemaError); ok || v.RequestBody != nil {
				return http.StatusUnprocessableEntity
			}
		}
	case openapi3.MultiError:
		for _, item := range v {
			if InferBodyValidationStatus(item) == http.StatusUnprocessableEntity {
				return http.StatusUnprocessableEntity
			}
		}
	case *openapi3.SchemaError:
		return http.StatusUnprocessableEntity
	}
	return 0
}

// SafeReason reduces verbose reasons to avoid reflecting input data back to the client.
func SafeReason(reason string) string {
	if reason == "" {
		return "invalid value"
	}
	lower := strings.ToLower(reason)
	if strings.Contains(lower, "doesn't match schema") {
		return "doesn't match schema"
	}
	if strings.Contains(lower, "must be one of") {
		return reason
	}
	if strings.Contains(lower, "required") {
		return "value is required"
	}
	return "invalid value"
}
