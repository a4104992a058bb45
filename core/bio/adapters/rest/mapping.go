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
	"linkbio/core/bio/domain"
	"linkbio/modules/api/bioapi"
	"linkbio/modules/etag"
)

func mapProfile(p *domain.Profile) bioapi.Profile {
	return bioapi.Profile{
		ID:          p.ID,
		Handle:      p.Handle,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		AvatarURL:   p.AvatarURL,
		DefaultPage: bioapi.DefaultPage{Type: string(p.DefaultPageType), PageID: p.DefaultPageID},
		Version:     p.Version,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func mapProfiles(profiles []domain.Profile) ([]bioapi.Profile, map[string]string) {
	out := make([]bioapi.Profile, 0, len(profiles))
	// id -> ETag so clients can update a listed item without a GET
	etags := make(map[string]string, len(profiles))
	for i := range profiles {
		out = append(out, mapProfile(&profiles[i]))
		etags[profiles[i].ID.String()] = etag.Header(&profiles[i])
	}
	return out, etags
}

func mapPage(p *domain.Page) bioapi.Page {
	return bioapi.Page{ID: p.ID, ProfileID: p.ProfileID, Name: p.Name, Slug: p.Slug, CreatedAt: p.CreatedAt}
}

func mapPages(pages []domain.Page) []bioapi.Page {
	out := make([]bioapi.Page, 0, len(pages))
	for i := range pages {
		out = append(out, mapPage(&pages[i]))
	}
	return out
}

func mapPayload(p *domain.Payload) *bioapi.Payload {
	if p == nil {
		return nil
	}
	out := &bioapi.Payload{}
	if p.Text != nil {
		out.Text = &bioapi.TextPayload{HTML: p.Text.HTML}
	}
	if p.Image != nil {
		out.Image = &bioapi.ImagePayload{URL: p.Image.URL, Width: p.Image.Width, Height: p.Image.Height}
	}
	if p.Video != nil {
		out.Video = &bioapi.VideoPayload{URL: p.Video.URL, Provider: p.Video.Provider, ExternalID: p.Video.ExternalID}
	}
	return out
}

func toDomainPayload(p *bioapi.Payload) *domain.Payload {
	if p == nil {
		return nil
	}
	out := &domain.Payload{}
	if p.Text != nil {
		out.Text = &domain.TextPayload{HTML: p.Text.HTML}
	}
	if p.Image != nil {
		out.Image = &domain.ImagePayload{URL: p.Image.URL, Width: p.Image.Width, Height: p.Image.Height}
	}
	if p.Video != nil {
		out.Video = &domain.VideoPayload{URL: p.Video.URL, Provider: p.Video.Provider, ExternalID: p.Video.ExternalID}
	}
	return out
}

func mapBlocks(blocks []domain.Block) []bioapi.Block {
	out := make([]bioapi.Block, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, mapBlock(&b))
	}
	return out
}

func mapBlock(b *domain.Block) bioapi.Block {
	return bioapi.Block{
		ID:           b.ID,
		ProfileID:    b.ProfileID,
		PageID:       b.PageID,
		Kind:         string(b.Kind),
		DisplayOrder: b.DisplayOrder,
		ContentID:    b.ContentID,
		Payload:      mapPayload(b.Payload),
		CreatedAt:    b.CreatedAt,
	}
}

func mapRecommendation(r *domain.Recommendation) bioapi.Recommendation {
	return bioapi.Recommendation{
		ID:          r.ID,
		ProfileID:   r.ProfileID,
		Title:       r.Title,
		URL:         r.URL,
		ImageURL:    r.ImageURL,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
}

func mapRecommendations(rs []domain.Recommendation) []bioapi.Recommendation {
	out := make([]bioapi.Recommendation, 0, len(rs))
	for i := range rs {
		out = append(out, mapRecommendation(&rs[i]))
	}
	return out
}

func mapLink(l *domain.Link) bioapi.Link {
	return bioapi.Link{ID: l.ID, ProfileID: l.ProfileID, Title: l.Title, URL: l.URL, CreatedAt: l.CreatedAt}
}

func mapLinks(ls []domain.Link) []bioapi.Link {
	out := make([]bioapi.Link, 0, len(ls))
	for i := range ls {
		out = append(out, mapLink(&ls[i]))
	}
	return out
}

func mapCollection(c *domain.Collection) bioapi.Collection {
	return bioapi.Collection{
		ID:          c.ID,
		ProfileID:   c.ProfileID,
		Name:        c.Name,
		Description: c.Description,
		Items:       c.Items,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func mapCollections(cs []domain.Collection) []bioapi.Collection {
	out := make([]bioapi.Collection, 0, len(cs))
	for i := range cs {
		out = append(out, mapCollection(&cs[i]))
	}
	return out
}

func mapPublicPage(p *domain.PublicPage) bioapi.PublicPage {
	out := bioapi.PublicPage{
		Profile:         mapProfile(&p.Profile),
		Type:            string(p.Type),
		Blocks:          mapBlocks(p.Blocks),
		Recommendations: mapRecommendations(p.Recommendations),
		Links:           mapLinks(p.Links),
		Collections:     mapCollections(p.Collections),
	}
	if p.Page != nil {
		page := mapPage(p.Page)
		out.Page = &page
	}
	return out
}
