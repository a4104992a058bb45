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

package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"linkbio/core/bio/domain"
	"linkbio/modules/api/bioapi"

	"github.com/gofrs/uuid/v5"
)

const keySwitchProfile = "switch-profile"

// placementKey is the unassigned group when page is uuid.Nil.
type placementKey struct {
	page uuid.UUID
}

func keyFor(pageID *uuid.UUID) placementKey {
	if pageID == nil {
		return placementKey{}
	}
	return placementKey{page: *pageID}
}

// Workspace caches what the editor shows. Reads return copies; every change
// goes through a method so optimistic updates can be rolled back.
type Workspace struct {
	backend Backend
	guard   *Guard

	mu      sync.RWMutex
	profile *bioapi.Profile
	pages   []bioapi.Page

	// view is what the editor renders, possibly ahead of the server.
	// known is the last list the server confirmed for the placement.
	view  map[placementKey][]bioapi.Block
	known map[placementKey][]bioapi.Block
}

func New(backend Backend) *Workspace {
	return &Workspace{
		backend: backend,
		guard:   NewGuard(),
		view:    map[placementKey][]bioapi.Block{},
		known:   map[placementKey][]bioapi.Block{},
	}
}

// Guard exposes the duplicate-action guard, mostly to query InFlight.
func (w *Workspace) Guard() *Guard { return w.guard }

func (w *Workspace) Profile() (bioapi.Profile, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.profile == nil {
		return bioapi.Profile{}, false
	}
	return *w.profile, true
}

func (w *Workspace) Pages() []bioapi.Page {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.pages)
}

// Blocks returns the current view of a placement; nil pageID is the
// unassigned group. ok is false when the placement was never fetched.
func (w *Workspace) Blocks(pageID *uuid.UUID) (blocks []bioapi.Block, ok bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b, ok := w.view[keyFor(pageID)]
	return slices.Clone(b), ok
}

// SwitchProfile makes profileID active and reloads its profile and pages.
// Concurrent switches join the one in flight.
func (w *Workspace) SwitchProfile(ctx context.Context, profileID uuid.UUID) error {
	_, shared, err := Guarded(ctx, w.guard, keySwitchProfile, func(ctx context.Context) (struct{}, error) {
		prof, err := w.backend.GetProfile(ctx, profileID)
		if err != nil {
			return struct{}{}, err
		}
		pages, err := w.backend.ListPages(ctx, profileID)
		if err != nil {
			return struct{}{}, err
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		w.profile = prof
		w.pages = pages
		clear(w.view)
		clear(w.known)
		return struct{}{}, nil
	})
	if shared {
		slog.DebugContext(ctx, "joined in-flight profile switch", slog.String("profile", profileID.String()))
	}
	return err
}

func (w *Workspace) activeProfile() (uuid.UUID, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.profile == nil {
		return uuid.Nil, ErrNoProfile
	}
	return w.profile.ID, nil
}

// RefreshProfile refetches the active profile, e.g. after a 412.
func (w *Workspace) RefreshProfile(ctx context.Context) error {
	id, err := w.activeProfile()
	if err != nil {
		return err
	}
	prof, err := w.backend.GetProfile(ctx, id)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.profile != nil && w.profile.ID == id {
		w.profile = prof
	}
	return nil
}

func (w *Workspace) RefreshPages(ctx context.Context) error {
	id, err := w.activeProfile()
	if err != nil {
		return err
	}
	pages, err := w.backend.ListPages(ctx, id)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.profile != nil && w.profile.ID == id {
		w.pages = pages
	}
	return nil
}

// RefreshBlocks refetches one placement and replaces both the view and the
// last known-good list.
func (w *Workspace) RefreshBlocks(ctx context.Context, pageID *uuid.UUID) ([]bioapi.Block, error) {
	id, err := w.activeProfile()
	if err != nil {
		return nil, err
	}
	blocks, err := w.backend.ListBlocks(ctx, id, pageID)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.profile == nil || w.profile.ID != id {
		return slices.Clone(blocks), nil
	}
	k := keyFor(pageID)
	w.view[k] = blocks
	w.known[k] = slices.Clone(blocks)
	return slices.Clone(blocks), nil
}

// Invalidate drops a cached placement so the next read refetches it.
func (w *Workspace) Invalidate(pageID *uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	k := keyFor(pageID)
	delete(w.view, k)
	delete(w.known, k)
}

// MoveBlock moves blockID to toIndex (1-based) in its placement. The view
// shows the move immediately; the server's canonical list replaces it on
// success, and on failure the view returns to the last list the server
// confirmed and the error is returned.
func (w *Workspace) MoveBlock(ctx context.Context, pageID *uuid.UUID, blockID uuid.UUID, toIndex int) ([]bioapi.Block, error) {
	profileID, err := w.activeProfile()
	if err != nil {
		return nil, err
	}
	k := keyFor(pageID)

	w.mu.Lock()
	current, ok := w.view[k]
	if !ok {
		w.mu.Unlock()
		return nil, fmt.Errorf("placement not loaded: %w", domain.ErrNotFound)
	}
	from := slices.IndexFunc(current, func(b bioapi.Block) bool { return b.ID == blockID })
	if from < 0 {
		w.mu.Unlock()
		return nil, fmt.Errorf("block %s: %w", blockID, domain.ErrNotFound)
	}
	if toIndex < 1 || toIndex > len(current) {
		w.mu.Unlock()
		return nil, &domain.FieldError{Field: "toIndex", Reason: "out of range"}
	}
	optimistic := domain.Splice(current, from, toIndex-1)
	for i := range optimistic {
		optimistic[i].DisplayOrder = i + 1
	}
	w.view[k] = optimistic
	w.mu.Unlock()

	canonical, err := w.backend.MoveBlock(ctx, profileID, blockID, from+1, toIndex)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.profile == nil || w.profile.ID != profileID {
		// switched away meanwhile, nothing to reconcile
		return canonical, err
	}
	if err != nil {
		if known, ok := w.known[k]; ok {
			w.view[k] = slices.Clone(known)
		} else {
			delete(w.view, k)
		}
		slog.DebugContext(ctx, "rolled back optimistic move", slog.String("block", blockID.String()), slog.Any("error", err))
		return nil, err
	}
	w.view[k] = canonical
	w.known[k] = slices.Clone(canonical)
	return slices.Clone(canonical), nil
}

// SaveCollection replaces a collection. Saves of the same collection that
// overlap join the first instead of writing twice.
func (w *Workspace) SaveCollection(ctx context.Context, collectionID uuid.UUID, body bioapi.CollectionBody) (*bioapi.Collection, error) {
	profileID, err := w.activeProfile()
	if err != nil {
		return nil, err
	}
	c, _, err := Guarded(ctx, w.guard, "collection:"+collectionID.String(), func(ctx context.Context) (*bioapi.Collection, error) {
		return w.backend.UpdateCollection(ctx, profileID, collectionID, body)
	})
	return c, err
}
