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
	"linkbio/modules/api/bioapi"
	"linkbio/modules/api/serde"
	"linkbio/modules/middleware/problem"

	"github.com/oapi-codegen/nullable"
)

func (a *BioAPI) ListPages(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	profileID, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	pages, err := a.app.ListPages(r.Context(), userID, profileID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	serde.WriteJSON(w, http.StatusOK, bioapi.Data[[]bioapi.Page]{Data: mapPages(pages)})
}

func (a *BioAPI) CreatePage(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	profileID, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	body, ok := decode[bioapi.CreatePage](w, r)
	if !ok {
		return
	}
	page, err := a.app.CreatePage(r.Context(), userID, profileID, domain.CreatePageParams{Name: body.Name, Slug: body.Slug})
	if err != nil {
		writeError(w, r, err)
		return
	}
	serde.WriteJSON(w, http.StatusCreated, bioapi.Data[bioapi.Page]{Data: mapPage(page)})
}

func (a *BioAPI) UpdatePage(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	profileID, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	pageID, ok := pathID(w, r, "pageId")
	if !ok {
		return
	}
	body, ok := decode[bioapi.UpdatePage](w, r)
	if !ok {
		return
	}

	var params domain.UpdatePageParams
	var invalid []problem.Option
	params.Name, invalid = notNull("name", body.Name, invalid)
	params.Slug, invalid = notNull("slug", body.Slug, invalid)
	if len(invalid) > 0 {
		problem.Write(w, problem.Unprocessable("validation failed", invalid...))
		return
	}

	page, err := a.app.UpdatePage(r.Context(), userID, profileID, pageID, params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	serde.WriteJSON(w, http.StatusOK, bioapi.Data[bioapi.Page]{Data: mapPage(page)})
}

// notNull reads a PATCH field that may be omitted but not cleared.
func notNull(name string, v nullable.Nullable[string], invalid []problem.Option) (*string, []problem.Option) {
	if !v.IsSpecified() {
		return nil, invalid
	}
	if v.IsNull() {
		return nil, append(invalid, problem.WithInvalidParam(name, "cannot be null"))
	}
	s := v.MustGet()
	return &s, invalid
}

func (a *BioAPI) DeletePage(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	profileID, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	pageID, ok := pathID(w, r, "pageId")
	if !ok {
		return
	}
	if err := a.app.DeletePage(r.Context(), userID, profileID, pageID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
