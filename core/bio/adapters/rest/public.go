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

	"linkbio/modules/api/bioapi"
	"linkbio/modules/api/serde"
	"linkbio/modules/middleware/problem"
)

// ResolvePublicPage serves /v1/public/{handle} (the default page) and
// /v1/public/{handle}/{page} (a built-in path or a custom page slug).
func (a *BioAPI) ResolvePublicPage(w http.ResponseWriter, r *http.Request) {
	page, err := a.app.ResolvePublicPage(r.Context(), r.PathValue("handle"), r.PathValue("page"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=30")
	serde.WriteJSON(w, http.StatusOK, bioapi.Data[bioapi.PublicPage]{Data: mapPublicPage(page)})
}

// Healthz returns 204 to indicate the service is healthy.
func (a *BioAPI) Healthz(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		if err := a.health.HealthCheck(); err != nil {
			problem.Write(w, problem.Unavailable("store unreachable"))
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
