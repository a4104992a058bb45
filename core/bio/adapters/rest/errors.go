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

package rest

import (
	"errors"
	"net/http"

	"linkbio/core/bio/domain"
	"linkbio/modules/api/serde"
	"linkbio/modules/middleware/auth"
	"linkbio/modules/middleware/problem"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel/trace"
)

// problemFor maps a domain error onto an RFC 7807 document.
func problemFor(r *http.Request, err error) *problem.Problem {
	var opts []problem.Option
	if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
		opts = append(opts, problem.WithTraceID(sc.TraceID().String()))
	}

	var fe *domain.FieldError
	switch {
	case errors.As(err, &fe):
		return problem.Unprocessable("validation failed", append(opts, problem.WithInvalidParam(fe.Field, fe.Reason))...)
	case errors.Is(err, domain.ErrValidation):
		return problem.Unprocessable("validation failed", opts...)
	case errors.Is(err, domain.ErrNotFound):
		return problem.NotFound("resource not found", opts...)
	case errors.Is(err, domain.ErrConflict):
		return problem.Conflict("not available, choose another", opts...)
	case errors.Is(err, domain.ErrPrecondition):
		return problem.PreconditionFailed("resource was modified, refetch and retry", opts...)
	case errors.Is(err, domain.ErrTransient):
		return problem.Unavailable("temporary failure, try again", opts...)
	}
	return problem.Internal("server error", opts...)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	p := problemFor(r, err)
	if p.Status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	problem.Write(w, p)
}

func badRequest(w http.ResponseWriter, name, reason string) {
	problem.Write(w, problem.BadRequest("invalid request", problem.WithInvalidParam(name, reason)))
}

// pathID parses a uuid path value, answering 400 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.FromString(r.PathValue(name))
	if err != nil || id.IsNil() {
		badRequest(w, name, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// optionalQueryID parses an optional uuid query value; absent yields nil.
func optionalQueryID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.FromString(raw)
	if err != nil || id.IsNil() {
		badRequest(w, name, "invalid id")
		return nil, false
	}
	return &id, true
}

// subject returns the authenticated user. Require guarantees it on owner routes.
func subject(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := auth.SubjectFrom(r.Context())
	if !ok {
		problem.Write(w, problem.Unauthorized("missing or invalid credentials"))
	}
	return id, ok
}

func decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	if err := serde.ParseJsonBody(r.Body, &v); err != nil {
		badRequest(w, "body", "malformed json")
		return v, false
	}
	return v, true
}
