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

// Package memory is a process-local store with the same transactional
// guarantees as the Postgres adapter: writes are serialized, a failed
// transaction leaves no trace, and the (profile, page, display_order)
// uniqueness is checked at commit like a deferred constraint.
package memory

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"linkbio/core/bio/domain"
	"linkbio/modules/clock"

	"github.com/gofrs/uuid/v5"
)

var (
	_ domain.ReadStore  = (*Store)(nil)
	_ domain.WriteStore = (*Store)(nil)
	_ domain.WriteTx    = (*storeTx)(nil)
)

type (
	Store struct {
		mu    sync.RWMutex
		st    *state
		clock clock.Clock

		faultMu sync.Mutex
		faults  map[string][]error
	}

	state struct {
		profiles        map[uuid.UUID]domain.Profile
		pages           map[uuid.UUID]domain.Page
		blocks          map[uuid.UUID]domain.Block
		recommendations map[uuid.UUID]domain.Recommendation
		links           map[uuid.UUID]domain.Link
		collections     map[uuid.UUID]domain.Collection
	}

	placementKey struct {
		profile uuid.UUID
		page    uuid.UUID
	}

	Option func(*Store)
)

func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		st:     newState(),
		clock:  clock.RealClockProvider(),
		faults: map[string][]error{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// InjectFault makes the next len(errs) calls of the named method fail with the
// given errors, in order. Method names match the port method names.
func (s *Store) InjectFault(method string, errs ...error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[method] = append(s.faults[method], errs...)
}

func (s *Store) fault(method string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	q := s.faults[method]
	if len(q) == 0 {
		return nil
	}
	err := q[0]
	s.faults[method] = q[1:]
	return err
}

func newState() *state {
	return &state{
		profiles:        map[uuid.UUID]domain.Profile{},
		pages:           map[uuid.UUID]domain.Page{},
		blocks:          map[uuid.UUID]domain.Block{},
		recommendations: map[uuid.UUID]domain.Recommendation{},
		links:           map[uuid.UUID]domain.Link{},
		collections:     map[uuid.UUID]domain.Collection{},
	}
}

func (st *state) clone() *state {
	out := newState()
	for k, v := range st.profiles {
		out.profiles[k] = v
	}
	for k, v := range st.pages {
		out.pages[k] = v
	}
	for k, v := range st.blocks {
		out.blocks[k] = v
	}
	for k, v := range st.recommendations {
		out.recommendations[k] = v
	}
	for k, v := range st.links {
		out.links[k] = v
	}
	for k, v := range st.collections {
		v.Items = slices.Clone(v.Items)
		out.collections[k] = v
	}
	return out
}

func keyOf(p domain.Placement) placementKey {
	k := placementKey{profile: p.ProfileID}
	if p.PageID != nil {
		k.page = *p.PageID
	}
	return k
}

func placementOf(b domain.Block) domain.Placement {
	return domain.Placement{ProfileID: b.ProfileID, PageID: b.PageID}
}

func byCreated[T any](created func(T) time.Time, id func(T) uuid.UUID) func(a, b T) int {
	return func(a, b T) int {
		if c := created(a).Compare(created(b)); c != 0 {
			return c
		}
		return bytes.Compare(id(a).Bytes(), id(b).Bytes())
	}
}

// --- reads ---

func (s *Store) read(method string, fn func(st *state) error) error {
	if err := s.fault(method); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

func (s *Store) GetProfileByID(_ context.Context, id uuid.UUID) (*domain.Profile, error) {
	var out *domain.Profile
	err := s.read("GetProfileByID", func(st *state) error {
		p, ok := st.profiles[id]
		if !ok {
			return fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
		}
		out = &p
		return nil
	})
	return out, err
}

func (s *Store) GetProfileByHandle(_ context.Context, handle string) (*domain.Profile, error) {
	var out *domain.Profile
	err := s.read("GetProfileByHandle", func(st *state) error {
		for _, p := range st.profiles {
			if p.Handle == handle {
				out = &p
				return nil
			}
		}
		return fmt.Errorf("handle %q: %w", handle, domain.ErrNotFound)
	})
	return out, err
}

func (s *Store) ListProfilesByOwner(_ context.Context, ownerID uuid.UUID, pivot *domain.Pivot, limit int) ([]domain.Profile, error) {
	var out []domain.Profile
	err := s.read("ListProfilesByOwner", func(st *state) error {
		cmpFn := byCreated(func(p domain.Profile) time.Time { return p.CreatedAt }, func(p domain.Profile) uuid.UUID { return p.ID })
		var all []domain.Profile
		for _, p := range st.profiles {
			if p.OwnerID == ownerID {
				all = append(all, p)
			}
		}
		slices.SortFunc(all, cmpFn)

		if pivot == nil {
			out = all[:min(limit, len(all))]
			return nil
		}
		ref := domain.Profile{CreatedAt: pivot.CreatedAt, ID: pivot.ID}
		if pivot.Direction == domain.DESC {
			var before []domain.Profile
			for _, p := range all {
				if cmpFn(p, ref) < 0 {
					before = append(before, p)
				}
			}
			out = before[max(0, len(before)-limit):]
			return nil
		}
		for _, p := range all {
			if cmpFn(p, ref) > 0 && len(out) < limit {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) HandleExists(_ context.Context, handle string) (bool, error) {
	var exists bool
	err := s.read("HandleExists", func(st *state) error {
		for _, p := range st.profiles {
			if p.Handle == handle {
				exists = true
				break
			}
		}
		return nil
	})
	return exists, err
}

func (s *Store) GetPage(_ context.Context, profileID, pageID uuid.UUID) (*domain.Page, error) {
	var out *domain.Page
	err := s.read("GetPage", func(st *state) error {
		p, err := st.page(profileID, pageID)
		out = p
		return err
	})
	return out, err
}

func (s *Store) GetPageBySlug(_ context.Context, profileID uuid.UUID, slug string) (*domain.Page, error) {
	var out *domain.Page
	err := s.read("GetPageBySlug", func(st *state) error {
		for _, p := range st.pages {
			if p.ProfileID == profileID && p.Slug == slug {
				out = &p
				return nil
			}
		}
		return fmt.Errorf("page %q: %w", slug, domain.ErrNotFound)
	})
	return out, err
}

func (s *Store) ListPages(_ context.Context, profileID uuid.UUID) ([]domain.Page, error) {
	var out []domain.Page
	err := s.read("ListPages", func(st *state) error {
		for _, p := range st.pages {
			if p.ProfileID == profileID {
				out = append(out, p)
			}
		}
		slices.SortFunc(out, byCreated(func(p domain.Page) time.Time { return p.CreatedAt }, func(p domain.Page) uuid.UUID { return p.ID }))
		return nil
	})
	return out, err
}

func (s *Store) ListBlocks(_ context.Context, placement domain.Placement) ([]domain.Block, error) {
	var out []domain.Block
	err := s.read("ListBlocks", func(st *state) error {
		out = st.placementBlocks(placement)
		return nil
	})
	return out, err
}

func (s *Store) ListRecommendations(_ context.Context, profileID uuid.UUID) ([]domain.Recommendation, error) {
	var out []domain.Recommendation
	err := s.read("ListRecommendations", func(st *state) error {
		for _, r := range st.recommendations {
			if r.ProfileID == profileID {
				out = append(out, r)
			}
		}
		slices.SortFunc(out, byCreated(func(r domain.Recommendation) time.Time { return r.CreatedAt }, func(r domain.Recommendation) uuid.UUID { return r.ID }))
		return nil
	})
	return out, err
}

func (s *Store) ListLinks(_ context.Context, profileID uuid.UUID) ([]domain.Link, error) {
	var out []domain.Link
	err := s.read("ListLinks", func(st *state) error {
		for _, l := range st.links {
			if l.ProfileID == profileID {
				out = append(out, l)
			}
		}
		slices.SortFunc(out, byCreated(func(l domain.Link) time.Time { return l.CreatedAt }, func(l domain.Link) uuid.UUID { return l.ID }))
		return nil
	})
	return out, err
}

func (s *Store) ListCollections(_ context.Context, profileID uuid.UUID) ([]domain.Collection, error) {
	var out []domain.Collection
	err := s.read("ListCollections", func(st *state) error {
		for _, c := range st.collections {
			if c.ProfileID == profileID {
				c.Items = slices.Clone(c.Items)
				out = append(out, c)
			}
		}
		slices.SortFunc(out, byCreated(func(c domain.Collection) time.Time { return c.CreatedAt }, func(c domain.Collection) uuid.UUID { return c.ID }))
		return nil
	})
	return out, err
}

func (s *Store) GetCollection(_ context.Context, profileID, collectionID uuid.UUID) (*domain.Collection, error) {
	var out *domain.Collection
	err := s.read("GetCollection", func(st *state) error {
		c, ok := st.collections[collectionID]
		if !ok || c.ProfileID != profileID {
			return fmt.Errorf("collection %s: %w", collectionID, domain.ErrNotFound)
		}
		c.Items = slices.Clone(c.Items)
		out = &c
		return nil
	})
	return out, err
}

func (s *Store) ListUnnormalizedPlacements(_ context.Context, limit int) ([]domain.Placement, error) {
	var out []domain.Placement
	err := s.read("ListUnnormalizedPlacements", func(st *state) error {
		seen := map[placementKey]bool{}
		for _, b := range st.blocks {
			k := keyOf(placementOf(b))
			if _, done := seen[k]; done {
				continue
			}
			seen[k] = true
			if !domain.IsDense(st.placementBlocks(placementOf(b))) {
				out = append(out, placementOf(b))
			}
		}
		slices.SortFunc(out, func(a, b domain.Placement) int {
			ka, kb := keyOf(a), keyOf(b)
			if c := bytes.Compare(ka.profile.Bytes(), kb.profile.Bytes()); c != 0 {
				return c
			}
			return bytes.Compare(ka.page.Bytes(), kb.page.Bytes())
		})
		out = out[:min(limit, len(out))]
		return nil
	})
	return out, err
}

func (st *state) page(profileID, pageID uuid.UUID) (*domain.Page, error) {
	p, ok := st.pages[pageID]
	if !ok || p.ProfileID != profileID {
		return nil, fmt.Errorf("page %s: %w", pageID, domain.ErrNotFound)
	}
	return &p, nil
}

func (st *state) placementBlocks(placement domain.Placement) []domain.Block {
	k := keyOf(placement)
	var out []domain.Block
	for _, b := range st.blocks {
		if keyOf(placementOf(b)) == k {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b domain.Block) int {
		if c := cmp.Compare(a.DisplayOrder, b.DisplayOrder); c != 0 {
			return c
		}
		return bytes.Compare(a.ID.Bytes(), b.ID.Bytes())
	})
	return out
}

// --- transactions ---

// WithTx serializes writers on the store mutex. The state is cloned up front
// and swapped back in when fn fails, panics or violates a deferred constraint.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx domain.WriteTx) error) (err error) {
	if err := s.fault("WithTx"); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin: %w", domain.ErrTransient)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	defer func() {
		if rec := recover(); rec != nil {
			s.st = snapshot
			panic(rec)
		}
		if err != nil {
			s.st = snapshot
		}
	}()

	tx := &storeTx{store: s, st: s.st}
	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", domain.ErrTransient)
	}
	return s.st.checkDeferred()
}

func (s *Store) WithTimeoutTx(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, tx domain.WriteTx) error) error {
	ctx, stop := context.WithTimeout(ctx, timeout)
	defer stop()
	return s.WithTx(ctx, fn)
}

// checkDeferred is the commit time check of the ordering uniqueness.
func (st *state) checkDeferred() error {
	seen := map[placementKey]map[int]bool{}
	for _, b := range st.blocks {
		k := keyOf(placementOf(b))
		if seen[k] == nil {
			seen[k] = map[int]bool{}
		}
		if seen[k][b.DisplayOrder] {
			return fmt.Errorf("duplicate display_order %d: %w", b.DisplayOrder, domain.ErrConflict)
		}
		seen[k][b.DisplayOrder] = true
	}
	return nil
}

type storeTx struct {
	store *Store
	st    *state
}

func (t *storeTx) CreateProfile(_ context.Context, p domain.Profile) (*domain.Profile, error) {
	if err := t.store.fault("CreateProfile"); err != nil {
		return nil, err
	}
	for _, other := range t.st.profiles {
		if other.Handle == p.Handle {
			return nil, fmt.Errorf("handle %q: %w", p.Handle, domain.ErrConflict)
		}
	}
	p.Version = 1
	t.st.profiles[p.ID] = p
	return &p, nil
}

func (t *storeTx) LockProfile(_ context.Context, id uuid.UUID) (*domain.Profile, error) {
	if err := t.store.fault("LockProfile"); err != nil {
		return nil, err
	}
	p, ok := t.st.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

func (t *storeTx) ModifyProfile(_ context.Context, id uuid.UUID, version int64, patch domain.ProfilePatch) (*domain.Profile, error) {
	if err := t.store.fault("ModifyProfile"); err != nil {
		return nil, err
	}
	p, ok := t.st.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
	}
	if p.Version != version {
		return nil, domain.ErrPrecondition
	}
	if patch.Handle != nil && *patch.Handle != p.Handle {
		for _, other := range t.st.profiles {
			if other.Handle == *patch.Handle {
				return nil, fmt.Errorf("handle %q: %w", *patch.Handle, domain.ErrConflict)
			}
		}
		p.Handle = *patch.Handle
	}
	if patch.DisplayName != nil {
		p.DisplayName = *patch.DisplayName
	}
	if patch.Bio != nil {
		p.Bio = *patch.Bio
	}
	if patch.AvatarSet {
		if patch.AvatarNull {
			p.AvatarURL = nil
		} else {
			v := patch.AvatarURL
			p.AvatarURL = &v
		}
	}
	p.Version++
	p.UpdatedAt = t.store.clock.Now().UTC()
	t.st.profiles[id] = p
	return &p, nil
}

func (t *storeTx) DeleteProfile(_ context.Context, id uuid.UUID, version int64) error {
	if err := t.store.fault("DeleteProfile"); err != nil {
		return err
	}
	p, ok := t.st.profiles[id]
	if !ok || p.Version != version {
		return domain.ErrPrecondition
	}
	delete(t.st.profiles, id)
	for k, v := range t.st.pages {
		if v.ProfileID == id {
			delete(t.st.pages, k)
		}
	}
	for k, v := range t.st.blocks {
		if v.ProfileID == id {
			delete(t.st.blocks, k)
		}
	}
	for k, v := range t.st.recommendations {
		if v.ProfileID == id {
			delete(t.st.recommendations, k)
		}
	}
	for k, v := range t.st.links {
		if v.ProfileID == id {
			delete(t.st.links, k)
		}
	}
	for k, v := range t.st.collections {
		if v.ProfileID == id {
			delete(t.st.collections, k)
		}
	}
	return nil
}

func (t *storeTx) SetDefaultPage(_ context.Context, profileID uuid.UUID, typ domain.PageType, pageID *uuid.UUID) (*domain.Profile, error) {
	if err := t.store.fault("SetDefaultPage"); err != nil {
		return nil, err
	}
	if (typ == domain.PageTypeCustom) != (pageID != nil) {
		return nil, fmt.Errorf("default page pair: %w", domain.ErrValidation)
	}
	p, ok := t.st.profiles[profileID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", profileID, domain.ErrNotFound)
	}
	if pageID != nil {
		if _, err := t.st.page(profileID, *pageID); err != nil {
			return nil, err
		}
		id := *pageID
		pageID = &id
	}
	p.DefaultPageType = typ
	p.DefaultPageID = pageID
	p.Version++
	p.UpdatedAt = t.store.clock.Now().UTC()
	t.st.profiles[profileID] = p
	return &p, nil
}

func (t *storeTx) GetPage(_ context.Context, profileID, pageID uuid.UUID) (*domain.Page, error) {
	if err := t.store.fault("GetPage"); err != nil {
		return nil, err
	}
	return t.st.page(profileID, pageID)
}

func (t *storeTx) CreatePage(_ context.Context, p domain.Page) (*domain.Page, error) {
	if err := t.store.fault("CreatePage"); err != nil {
		return nil, err
	}
	if err := t.slugFree(p.ProfileID, p.ID, p.Slug); err != nil {
		return nil, err
	}
	t.st.pages[p.ID] = p
	return &p, nil
}

func (t *storeTx) UpdatePage(_ context.Context, profileID, pageID uuid.UUID, params domain.UpdatePageParams) (*domain.Page, error) {
	if err := t.store.fault("UpdatePage"); err != nil {
		return nil, err
	}
	p, err := t.st.page(profileID, pageID)
	if err != nil {
		return nil, err
	}
	if params.Slug != nil {
		if err := t.slugFree(profileID, pageID, *params.Slug); err != nil {
			return nil, err
		}
		p.Slug = *params.Slug
	}
	if params.Name != nil {
		p.Name = *params.Name
	}
	t.st.pages[pageID] = *p
	return p, nil
}

func (t *storeTx) slugFree(profileID, pageID uuid.UUID, slug string) error {
	for _, other := range t.st.pages {
		if other.ProfileID == profileID && other.Slug == slug && other.ID != pageID {
			return fmt.Errorf("slug %q: %w", slug, domain.ErrConflict)
		}
	}
	return nil
}

// DeletePage cascades to the page's blocks. It does not touch the profile's
// default page reference; keeping that consistent is the caller's job.
func (t *storeTx) DeletePage(_ context.Context, profileID, pageID uuid.UUID) error {
	if err := t.store.fault("DeletePage"); err != nil {
		return err
	}
	if _, err := t.st.page(profileID, pageID); err != nil {
		return err
	}
	delete(t.st.pages, pageID)
	for k, b := range t.st.blocks {
		if b.PageID != nil && *b.PageID == pageID {
			delete(t.st.blocks, k)
		}
	}
	return nil
}

func (t *storeTx) GetBlock(_ context.Context, profileID, blockID uuid.UUID) (*domain.Block, error) {
	if err := t.store.fault("GetBlock"); err != nil {
		return nil, err
	}
	b, ok := t.st.blocks[blockID]
	if !ok || b.ProfileID != profileID {
		return nil, fmt.Errorf("block %s: %w", blockID, domain.ErrNotFound)
	}
	return &b, nil
}

func (t *storeTx) ListBlocks(_ context.Context, placement domain.Placement) ([]domain.Block, error) {
	if err := t.store.fault("ListBlocks"); err != nil {
		return nil, err
	}
	return t.st.placementBlocks(placement), nil
}

func (t *storeTx) InsertBlock(_ context.Context, b domain.Block) (*domain.Block, error) {
	if err := t.store.fault("InsertBlock"); err != nil {
		return nil, err
	}
	if _, ok := t.st.profiles[b.ProfileID]; !ok {
		return nil, fmt.Errorf("profile %s: %w", b.ProfileID, domain.ErrNotFound)
	}
	if b.PageID != nil {
		if _, err := t.st.page(b.ProfileID, *b.PageID); err != nil {
			return nil, err
		}
	}
	t.st.blocks[b.ID] = b
	return &b, nil
}

func (t *storeTx) DeleteBlock(_ context.Context, profileID, blockID uuid.UUID) error {
	if err := t.store.fault("DeleteBlock"); err != nil {
		return err
	}
	b, ok := t.st.blocks[blockID]
	if !ok || b.ProfileID != profileID {
		return fmt.Errorf("block %s: %w", blockID, domain.ErrNotFound)
	}
	delete(t.st.blocks, blockID)
	return nil
}

func (t *storeTx) ApplyOrder(_ context.Context, placement domain.Placement, changes []domain.OrderChange) error {
	if err := t.store.fault("ApplyOrder"); err != nil {
		return err
	}
	k := keyOf(placement)
	for _, c := range changes {
		b, ok := t.st.blocks[c.BlockID]
		if !ok || keyOf(placementOf(b)) != k {
			return fmt.Errorf("block %s: %w", c.BlockID, domain.ErrNotFound)
		}
		b.DisplayOrder = c.Order
		t.st.blocks[c.BlockID] = b
	}
	return nil
}

func (t *storeTx) ContentExists(_ context.Context, profileID uuid.UUID, kind domain.BlockKind, contentID uuid.UUID) (bool, error) {
	if err := t.store.fault("ContentExists"); err != nil {
		return false, err
	}
	switch kind {
	case domain.BlockKindRecommendation:
		r, ok := t.st.recommendations[contentID]
		return ok && r.ProfileID == profileID, nil
	case domain.BlockKindLink:
		l, ok := t.st.links[contentID]
		return ok && l.ProfileID == profileID, nil
	case domain.BlockKindCollection:
		c, ok := t.st.collections[contentID]
		return ok && c.ProfileID == profileID, nil
	}
	return false, fmt.Errorf("kind %q: %w", kind, domain.ErrValidation)
}

func (t *storeTx) CreateRecommendation(_ context.Context, r domain.Recommendation) (*domain.Recommendation, error) {
	if err := t.store.fault("CreateRecommendation"); err != nil {
		return nil, err
	}
	t.st.recommendations[r.ID] = r
	return &r, nil
}

func (t *storeTx) CreateLink(_ context.Context, l domain.Link) (*domain.Link, error) {
	if err := t.store.fault("CreateLink"); err != nil {
		return nil, err
	}
	t.st.links[l.ID] = l
	return &l, nil
}

func (t *storeTx) CreateCollection(_ context.Context, c domain.Collection) (*domain.Collection, error) {
	if err := t.store.fault("CreateCollection"); err != nil {
		return nil, err
	}
	c.Items = slices.Clone(c.Items)
	t.st.collections[c.ID] = c
	return &c, nil
}

func (t *storeTx) UpdateCollection(_ context.Context, c domain.Collection) (*domain.Collection, error) {
	if err := t.store.fault("UpdateCollection"); err != nil {
		return nil, err
	}
	prev, ok := t.st.collections[c.ID]
	if !ok || prev.ProfileID != c.ProfileID {
		return nil, fmt.Errorf("collection %s: %w", c.ID, domain.ErrNotFound)
	}
	c.CreatedAt = prev.CreatedAt
	c.Items = slices.Clone(c.Items)
	t.st.collections[c.ID] = c
	return &c, nil
}

func (t *storeTx) DeleteContent(_ context.Context, profileID uuid.UUID, kind domain.BlockKind, contentID uuid.UUID) ([]domain.Placement, error) {
	if err := t.store.fault("DeleteContent"); err != nil {
		return nil, err
	}
	switch kind {
	case domain.BlockKindRecommendation:
		delete(t.st.recommendations, contentID)
		for k, c := range t.st.collections {
			c.Items = slices.DeleteFunc(slices.Clone(c.Items), func(id uuid.UUID) bool { return id == contentID })
			t.st.collections[k] = c
		}
	case domain.BlockKindLink:
		delete(t.st.links, contentID)
	case domain.BlockKindCollection:
		delete(t.st.collections, contentID)
	default:
		return nil, fmt.Errorf("kind %q: %w", kind, domain.ErrValidation)
	}

	seen := map[placementKey]bool{}
	var affected []domain.Placement
	for k, b := range t.st.blocks {
		if b.ProfileID != profileID || b.Kind != kind || b.ContentID == nil || *b.ContentID != contentID {
			continue
		}
		delete(t.st.blocks, k)
		if pk := keyOf(placementOf(b)); !seen[pk] {
			seen[pk] = true
			affected = append(affected, placementOf(b))
		}
	}
	return affected, nil
}
