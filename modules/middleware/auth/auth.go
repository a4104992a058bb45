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

// Package auth verifies HS256 bearer tokens and carries the authenticated
// user id through the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"linkbio/modules/middleware/problem"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

type Config struct {
	Secret   string        `env:"SECRET,notEmpty"`
	Issuer   string        `env:"ISSUER"   envDefault:"linkbio"`
	Audience string        `env:"AUDIENCE" envDefault:"linkbio-api"`
	Leeway   time.Duration `env:"LEEWAY"   envDefault:"30s"`
}

type Authenticator struct {
	key    []byte
	parser *jwt.Parser
	cfg    Config
}

func New(cfg Config) (*Authenticator, error) {
	if len(cfg.Secret) < 16 {
		return nil, fmt.Errorf("auth secret must be at least 16 bytes")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &Authenticator{key: []byte(cfg.Secret), parser: jwt.NewParser(opts...), cfg: cfg}, nil
}

// Verify parses a compact token and returns its subject as a user id.
func (a *Authenticator) Verify(token string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	_, err := a.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.key, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil || id.IsNil() {
		return uuid.Nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	return id, nil
}

// Issue signs a token for userID. Used by tests and local tooling.
func (a *Authenticator) Issue(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    a.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if a.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{a.cfg.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
}

type subjectKey struct{}

// WithSubject stores the authenticated user id in ctx.
func WithSubject(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, subjectKey{}, id)
}

// SubjectFrom returns the user id stored by Require.
func SubjectFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(subjectKey{}).(uuid.UUID)
	return id, ok && !id.IsNil()
}

// Subject reads the user id of an authenticated request without requiring it.
// It fits ratelimit.SubjectKeyFunc.
func (a *Authenticator) Subject(r *http.Request) (string, bool) {
	if id, ok := SubjectFrom(r.Context()); ok {
		return id.String(), true
	}
	token, err := bearer(r)
	if err != nil {
		return "", false
	}
	id, err := a.Verify(token)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// Require rejects requests without a valid bearer token with a 401 problem.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearer(r)
		if err == nil {
			var id uuid.UUID
			if id, err = a.Verify(token); err == nil {
				next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), id)))
				return
			}
		}
		slog.DebugContext(r.Context(), "rejected request", slog.Any("error", err))
		w.Header().Set("WWW-Authenticate", `Bearer realm="linkbio"`)
		problem.Write(w, problem.Unauthorized("missing or invalid credentials"))
	})
}

func bearer(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}
