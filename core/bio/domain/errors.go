// Copyright 2025 Nhat-Nguyen Nguyen
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

package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("invalid data provided")
	ErrConflict     = errors.New("resource with the requested identifiers already exists")
	ErrTransient    = errors.New("temporary failure, try again")
	ErrPrecondition = errors.New("resource was modified concurrently")
	ErrUnhandled    = errors.New("unexpected error")
)

// FieldError is a validation failure attributable to one input field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}

// passThrough lists the errors callers are expected to branch on.
var passThrough = []error{
	ErrNotFound,
	ErrValidation,
	ErrConflict,
	ErrTransient,
	ErrPrecondition,
}

// mapError keeps domain errors as-is and collapses everything else into ErrUnhandled.
func mapError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range passThrough {
		if errors.Is(err, target) {
			slog.DebugContext(ctx, "operation failed", slog.String("op", op), slog.Any("error", err))
			return err
		}
	}
	slog.ErrorContext(ctx, "unexpected error", slog.String("op", op), slog.Any("error", err))
	return ErrUnhandled
}
