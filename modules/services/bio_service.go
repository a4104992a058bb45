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

package services

import (
	"net/http"

	bio_http "linkbio/core/bio/adapters/rest"
	"linkbio/modules/server"
)

var _ server.RegistrableService = (*BioAPIService)(nil)

// BioAPIService encapsulates the registration logic for the Bio API.
type BioAPIService struct {
	api *bio_http.BioAPI
}

func NewBioAPIService(api *bio_http.BioAPI) *BioAPIService {
	return &BioAPIService{api: api}
}

// Register mounts the bio API routes. Validation and authentication are
// attached per route by the API itself.
func (s *BioAPIService) Register(mux *http.ServeMux) {
	s.api.Mount(mux)
}

// Middlewares returns the global middlewares required by the Bio API.
func (s *BioAPIService) Middlewares() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		bio_http.RecoverHTTPMiddleware(),
	}
}
