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
)

func (a *BioAPI) ListRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	profileID, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	rs, err := a.app.ListRecommendations(r.Context(), userID, profileID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	serde.WriteJSON(w, http.StatusOK, bioapi.Data[[]bioapi.Recommendation]{Data: mapRecommendations(rs)})
}

func (a *BioAPI) CreateRecommendation(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	profileID, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	body, ok := decode[bioapi.CreateRecommendation](w, r)
	if !ok {
		return
	}
	rec, err := a.app.CreateRecommendation(r.Context(), userID, profileID, domain.CreateRecommendationParams{
		Title:       body.Title,
		URL:         body.URL,
		ImageURL:    body.ImageURL,
		Description: body.Description,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	serde.WriteJSON(w, http.StatusCreated, bioapi.Data[bioapi.Recommendation]{Data: mapRecommendation(rec)})
}

func (a *BioAPI) ListLinks(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	profileID, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	ls, err := a.app.ListLinks(r.Context(), userID, profileID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	serde.WriteJSON(w, http.StatusOK, bioapi.Data[[]bioapi.Link]{Data: mapLinks(ls)})
}

func (a *BioAPI) CreateLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	profileID, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	body, ok := decode[bioapi.CreateLink](w, r)
	if !ok {
		return
	}
	l, err := a.app.CreateLink(r.Context(), userID, profileID, domain.CreateLinkParams{Title: body.Title, URL: body.URL})
	if err != nil {
		writeError(w, r, err)
		return
	}
	serde.WriteJSON(w, http.StatusCreated, bioapi.Data[bioapi.Link]{Data: mapLink(l)})
}

func (a *BioAPI) ListCollections(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	profileID, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	cs, err := a.app.ListCollections(r.Context(), userID, profileID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	serde.WriteJSON(w, http.StatusOK, bioapi.Data[[]bioapi.Collection]{Data: mapCollections(cs)})
}

func (a *BioAPI) GetCollection(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	profileID, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "contentId")
	if !ok {
		return
	}
	c, err := a.app.GetCollection(r.Context(), userID, profileID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	serde.WriteJSON(w, http.StatusOK, bioapi.Data[bioapi.Collection]{Data: mapCollection(c)})
}

func (a *BioAPI) CreateCollection(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	profileID, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	body, ok := decode[bioapi.CollectionBody](w, r)
	if !ok {
		return
	}
	c, err := a.app.CreateCollection(r.Context(), userID, profileID, collectionParams(body))
	if err != nil {
		writeError(w, r, err)
		return
	}
	serde.WriteJSON(w, http.StatusCreated, bioapi.Data[bioapi.Collection]{Data: mapCollection(c)})
}

// UpdateCollection replaces name, description and the ordered item list together.
func (a *BioAPI) UpdateCollection(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	profileID, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "contentId")
	if !ok {
		return
	}
	body, ok := decode[bioapi.CollectionBody](w, r)
	if !ok {
		return
	}
	c, err := a.app.UpdateCollection(r.Context(), userID, profileID, id, collectionParams(body))
	if err != nil {
		writeError(w, r, err)
		return
	}
	serde.WriteJSON(w, http.StatusOK, bioapi.Data[bioapi.Collection]{Data: mapCollection(c)})
}

func collectionParams(body bioapi.CollectionBody) domain.CollectionParams {
	return domain.CollectionParams{Name: body.Name, Description: body.Description, Items: body.Items}
}

// deleteContent removes a content entity of kind together with every block
// that references it.
func (a *BioAPI) deleteContent(kind domain.BlockKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := subject(w, r)
		if !ok {
			return
		}
		profileID, ok := pathID(w, r, "profileId")
		if !ok {
			return
		}
		id, ok := pathID(w, r, "contentId")
		if !ok {
			return
		}
		if err := a.app.DeleteContent(r.Context(), userID, profileID, kind, id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
