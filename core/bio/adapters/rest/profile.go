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
	"strconv"

	"linkbio/core/bio/domain"
	"linkbio/modules/api/bioapi"
	"linkbio/modules/api/serde"
	"linkbio/modules/etag"

	"github.com/gofrs/uuid/v5"
)

const defaultPageSize = 20

func (a *BioAPI) CheckHandle(w http.ResponseWriter, r *http.Request) {
	handle := r.PathValue("handle")
	available, err := a.app.CheckHandle(r.Context(), handle)
	if err != nil {
		writeError(w, r, err)
		return
	}
	serde.WriteJSON(w, http.StatusOK, bioapi.HandleAvailability{Handle: handle, Available: available})
}

func (a *BioAPI) ListProfiles(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(w, "limit", "must be an integer")
			return
		}
		limit = n
	}

	list, err := a.app.ListProfiles(r.Context(), userID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, etags := mapProfiles(list.Items)
	serde.WriteJSON(w, http.StatusOK, bioapi.ProfileList{Data: data, ETags: etags, Next: list.Next, Prev: list.Prev})
}

func (a *BioAPI) CreateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	body, ok := decode[bioapi.CreateProfile](w, r)
	if !ok {
		return
	}

	created, err := a.app.CreateProfile(r.Context(), userID, domain.CreateProfileParams{
		Handle:      body.Handle,
		DisplayName: body.DisplayName,
		Bio:         body.Bio,
		AvatarURL:   body.AvatarURL,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", etag.Header(created))
	w.Header().Set("Location", "/v1/profiles/"+created.ID.String())
	serde.WriteJSON(w, http.StatusCreated, bioapi.Data[bioapi.Profile]{Data: mapProfile(created)})
}

func (a *BioAPI) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	p, err := a.app.GetProfile(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", etag.Header(p))
	serde.WriteJSON(w, http.StatusOK, bioapi.Data[bioapi.Profile]{Data: mapProfile(p)})
}

// ModifyProfile performs a partial update (PATCH semantics). If-Match must
// carry the ETag the edit was based on; a stale tag answers 412 with the
// current ETag so the client can refetch.
func (a *BioAPI) ModifyProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	ifMatch := r.Header.Get("If-Match")
	version, err := etag.ParseVersion(ifMatch)
	if err != nil {
		badRequest(w, "If-Match", "invalid etag")
		return
	}
	body, ok := decode[bioapi.ModifyProfile](w, r)
	if !ok {
		return
	}

	patch := domain.ProfilePatch{
		Handle:      body.Handle,
		DisplayName: body.DisplayName,
		Bio:         body.Bio,
	}
	if body.AvatarURL.IsSpecified() {
		patch.AvatarSet = true
		if body.AvatarURL.IsNull() {
			patch.AvatarNull = true
		} else {
			patch.AvatarURL = body.AvatarURL.MustGet()
		}
	}

	updated, err := a.app.ModifyProfile(r.Context(), userID, id, version, patch)
	if errors.Is(err, domain.ErrPrecondition) {
		a.writeStale(w, r, userID, id, ifMatch, err)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", etag.Header(updated))
	serde.WriteJSON(w, http.StatusOK, bioapi.Data[bioapi.Profile]{Data: mapProfile(updated)})
}

func (a *BioAPI) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	ifMatch := r.Header.Get("If-Match")
	version, err := etag.ParseVersion(ifMatch)
	if err != nil {
		badRequest(w, "If-Match", "invalid etag")
		return
	}

	err = a.app.DeleteProfile(r.Context(), userID, id, version)
	if errors.Is(err, domain.ErrPrecondition) {
		a.writeStale(w, r, userID, id, ifMatch, err)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeStale answers 412 and, when the profile can still be read, the latest ETag.
func (a *BioAPI) writeStale(w http.ResponseWriter, r *http.Request, userID, id uuid.UUID, ifMatch string, err error) {
	tag := ifMatch
	if latest, ferr := a.app.GetProfile(r.Context(), userID, id); ferr == nil {
		tag = etag.Header(latest)
	}
	w.Header().Set("ETag", tag)
	writeError(w, r, err)
}

func (a *BioAPI) SetDefaultPage(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	body, ok := decode[bioapi.DefaultPage](w, r)
	if !ok {
		return
	}

	updated, err := a.app.SetDefaultPage(r.Context(), userID, id, domain.PageType(body.Type), body.PageID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", etag.Header(updated))
	serde.WriteJSON(w, http.StatusOK, bioapi.Data[bioapi.Profile]{Data: mapProfile(updated)})
}
