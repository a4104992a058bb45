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
	"net/http"

	"linkbio/core/bio/domain"
	"linkbio/modules/middleware/auth"
)

// BioAPI is the REST adapter in the hexagonal architecture, translating HTTP
// requests into domain operations.
type BioAPI struct {
	app      *domain.Application
	auth     *auth.Authenticator
	validate func(http.Handler) http.Handler
	health   HealthChecker
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	HealthCheck() error
}

type Option func(*BioAPI)

// WithHealthChecker makes /healthz probe the store.
func WithHealthChecker(h HealthChecker) Option {
	return func(a *BioAPI) { a.health = h }
}

// WithoutValidation skips OpenAPI request validation. Tests of handler
// level checks use it to reach the handlers with bodies the schema rejects.
func WithoutValidation() Option {
	return func(a *BioAPI) { a.validate = nil }
}

func NewBioAPI(app *domain.Application, authn *auth.Authenticator, opts ...Option) *BioAPI {
	a := &BioAPI{
		app:      app,
		auth:     authn,
		validate: ValidationMiddleware(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Mount registers every route on mux. Owner routes require a bearer token;
// public routes and /healthz do not.
func (a *BioAPI) Mount(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", a.Healthz)

	a.public(mux, "GET /v1/handles/{handle}/availability", a.CheckHandle)
	a.public(mux, "GET /v1/public/{handle}", a.ResolvePublicPage)
	a.public(mux, "GET /v1/public/{handle}/{page}", a.ResolvePublicPage)

	a.owner(mux, "GET /v1/profiles", a.ListProfiles)
	a.owner(mux, "POST /v1/profiles", a.CreateProfile)
	a.owner(mux, "GET /v1/profiles/{profileId}", a.GetProfile)
	a.owner(mux, "PATCH /v1/profiles/{profileId}", a.ModifyProfile)
	a.owner(mux, "DELETE /v1/profiles/{profileId}", a.DeleteProfile)
	a.owner(mux, "PUT /v1/profiles/{profileId}/default-page", a.SetDefaultPage)

	a.owner(mux, "GET /v1/profiles/{profileId}/pages", a.ListPages)
	a.owner(mux, "POST /v1/profiles/{profileId}/pages", a.CreatePage)
	a.owner(mux, "PATCH /v1/profiles/{profileId}/pages/{pageId}", a.UpdatePage)
	a.owner(mux, "DELETE /v1/profiles/{profileId}/pages/{pageId}", a.DeletePage)

	a.owner(mux, "GET /v1/profiles/{profileId}/blocks", a.ListBlocks)
	a.owner(mux, "POST /v1/profiles/{profileId}/blocks", a.AddBlock)
	a.owner(mux, "DELETE /v1/profiles/{profileId}/blocks/{blockId}", a.DeleteBlock)
	a.owner(mux, "POST /v1/profiles/{profileId}/blocks/{blockId}/move", a.MoveBlock)

	a.owner(mux, "GET /v1/profiles/{profileId}/recommendations", a.ListRecommendations)
	a.owner(mux, "POST /v1/profiles/{profileId}/recommendations", a.CreateRecommendation)
	a.owner(mux, "DELETE /v1/profiles/{profileId}/recommendations/{contentId}", a.deleteContent(domain.BlockKindRecommendation))
	a.owner(mux, "GET /v1/profiles/{profileId}/links", a.ListLinks)
	a.owner(mux, "POST /v1/profiles/{profileId}/links", a.CreateLink)
	a.owner(mux, "DELETE /v1/profiles/{profileId}/links/{contentId}", a.deleteContent(domain.BlockKindLink))
	a.owner(mux, "GET /v1/profiles/{profileId}/collections", a.ListCollections)
	a.owner(mux, "POST /v1/profiles/{profileId}/collections", a.CreateCollection)
	a.owner(mux, "GET /v1/profiles/{profileId}/collections/{contentId}", a.GetCollection)
	a.owner(mux, "PUT /v1/profiles/{profileId}/collections/{contentId}", a.UpdateCollection)
	a.owner(mux, "DELETE /v1/profiles/{profileId}/collections/{contentId}", a.deleteContent(domain.BlockKindCollection))
}

func (a *BioAPI) public(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, a.validated(h))
}

func (a *BioAPI) owner(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, a.validated(a.auth.Require(h)))
}

func (a *BioAPI) validated(h http.Handler) http.Handler {
	if a.validate == nil {
		return h
	}
	return a.validate(h)
}
