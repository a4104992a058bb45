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

// ListBlocks lists one placement: the page given by ?pageId, or the
// unassigned blocks when it is absent.
func (a *BioAPI) ListBlocks(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	profileID, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	pageID, ok := optionalQueryID(w, r, "pageId")
	if !ok {
		return
	}

	// ownership check, ListBlocks itself is also used by the public resolver
	if _, err := a.app.GetProfile(r.Context(), userID, profileID); err != nil {
		writeError(w, r, err)
		return
	}
	blocks, err := a.app.ListBlocks(r.Context(), profileID, pageID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	serde.WriteJSON(w, http.StatusOK, bioapi.Data[[]bioapi.Block]{Data: mapBlocks(blocks)})
}

func (a *BioAPI) AddBlock(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	profileID, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	body, ok := decode[bioapi.AddBlock](w, r)
	if !ok {
		return
	}

	created, err := a.app.AddBlock(r.Context(), userID, profileID, domain.AddBlockParams{
		PageID:    body.PageID,
		Kind:      domain.BlockKind(body.Kind),
		ContentID: body.ContentID,
		Payload:   toDomainPayload(body.Payload),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	serde.WriteJSON(w, http.StatusCreated, bioapi.Data[bioapi.Block]{Data: mapBlock(created)})
}

// MoveBlock answers with the whole placement as committed, which clients
// use to replace their optimistic view.
func (a *BioAPI) MoveBlock(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	profileID, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	blockID, ok := pathID(w, r, "blockId")
	if !ok {
		return
	}
	body, ok := decode[bioapi.MoveBlock](w, r)
	if !ok {
		return
	}

	blocks, err := a.app.MoveBlock(r.Context(), userID, profileID, blockID, body.FromIndex, body.ToIndex)
	if err != nil {
		writeError(w, r, err)
		return
	}
	serde.WriteJSON(w, http.StatusOK, bioapi.Data[[]bioapi.Block]{Data: mapBlocks(blocks)})
}

func (a *BioAPI) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	profileID, ok := pathID(w, r, "profileId")
	if !ok {
		return
	}
	blockID, ok := pathID(w, r, "blockId")
	if !ok {
		return
	}
	if err := a.app.DeleteBlock(r.Context(), userID, profileID, blockID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
