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

// Package bioapi holds the wire types of the bio REST API, shared by the
// server adapter and the workspace client.
package bioapi

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/oapi-codegen/nullable"
)

// Data is the success envelope of every JSON response.
type Data[T any] struct {
	Data T `json:"data"`
}

type (
	HandleAvailability struct {
		Handle    string `json:"handle"`
		Available bool   `json:"available"`
	}

	DefaultPage struct {
		Type   string     `json:"type"`
		PageID *uuid.UUID `json:"pageId,omitempty"`
	}

	Profile struct {
		ID          uuid.UUID   `json:"id"`
		Handle      string      `json:"handle"`
		DisplayName string      `json:"displayName"`
		Bio         string      `json:"bio"`
		AvatarURL   *string     `json:"avatarUrl,omitempty"`
		DefaultPage DefaultPage `json:"defaultPage"`
		Version     int64       `json:"version"`
		CreatedAt   time.Time   `json:"createdAt"`
		UpdatedAt   time.Time   `json:"updatedAt"`
	}

	ProfileList struct {
		Data []Profile `json:"data"`
		// ETags maps profile id to its ETag so clients can PATCH without a GET.
		ETags map[string]string `json:"etags"`
		Next  string            `json:"next,omitempty"`
		Prev  string            `json:"prev,omitempty"`
	}

	CreateProfile struct {
		Handle      string  `json:"handle"`
		DisplayName string  `json:"displayName"`
		Bio         string  `json:"bio,omitempty"`
		AvatarURL   *string `json:"avatarUrl,omitempty"`
	}

	// ModifyProfile is a PATCH body. AvatarURL is tri-state: absent leaves it,
	// null clears it, a value replaces it.
	ModifyProfile struct {
		Handle      *string                   `json:"handle,omitempty"`
		DisplayName *string                   `json:"displayName,omitempty"`
		Bio         *string                   `json:"bio,omitempty"`
		AvatarURL   nullable.Nullable[string] `json:"avatarUrl,omitempty"`
	}

	Page struct {
		ID        uuid.UUID `json:"id"`
		ProfileID uuid.UUID `json:"profileId"`
		Name      string    `json:"name"`
		Slug      string    `json:"slug"`
		CreatedAt time.Time `json:"createdAt"`
	}

	CreatePage struct {
		Name string `json:"name"`
		Slug string `json:"slug,omitempty"`
	}

	UpdatePage struct {
		Name nullable.Nullable[string] `json:"name,omitempty"`
		Slug nullable.Nullable[string] `json:"slug,omitempty"`
	}
)

type (
	TextPayload struct {
		HTML string `json:"html"`
	}

	ImagePayload struct {
		URL    string `json:"url"`
		Width  int    `json:"width,omitempty"`
		Height int    `json:"height,omitempty"`
	}

	VideoPayload struct {
		URL        string `json:"url"`
		Provider   string `json:"provider,omitempty"`
		ExternalID string `json:"externalId,omitempty"`
	}

	Payload struct {
		Text  *TextPayload  `json:"text,omitempty"`
		Image *ImagePayload `json:"image,omitempty"`
		Video *VideoPayload `json:"video,omitempty"`
	}

	Block struct {
		ID           uuid.UUID  `json:"id"`
		ProfileID    uuid.UUID  `json:"profileId"`
		PageID       *uuid.UUID `json:"pageId,omitempty"`
		Kind         string     `json:"kind"`
		DisplayOrder int        `json:"displayOrder"`
		ContentID    *uuid.UUID `json:"contentId,omitempty"`
		Payload      *Payload   `json:"payload,omitempty"`
		CreatedAt    time.Time  `json:"createdAt"`
	}

	AddBlock struct {
		PageID    *uuid.UUID `json:"pageId,omitempty"`
		Kind      string     `json:"kind"`
		ContentID *uuid.UUID `json:"contentId,omitempty"`
		Payload   *Payload   `json:"payload,omitempty"`
	}

	// MoveBlock indices are 1-based display positions.
	MoveBlock struct {
		FromIndex int `json:"fromIndex"`
		ToIndex   int `json:"toIndex"`
	}
)

type (
	Recommendation struct {
		ID          uuid.UUID `json:"id"`
		ProfileID   uuid.UUID `json:"profileId"`
		Title       string    `json:"title"`
		URL         string    `json:"url"`
		ImageURL    *string   `json:"imageUrl,omitempty"`
		Description string    `json:"description"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	CreateRecommendation struct {
		Title       string  `json:"title"`
		URL         string  `json:"url"`
		ImageURL    *string `json:"imageUrl,omitempty"`
		Description string  `json:"description,omitempty"`
	}

	Link struct {
		ID        uuid.UUID `json:"id"`
		ProfileID uuid.UUID `json:"profileId"`
		Title     string    `json:"title"`
		URL       string    `json:"url"`
		CreatedAt time.Time `json:"createdAt"`
	}

	CreateLink struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	}

	Collection struct {
		ID          uuid.UUID   `json:"id"`
		ProfileID   uuid.UUID   `json:"profileId"`
		Name        string      `json:"name"`
		Description string      `json:"description"`
		Items       []uuid.UUID `json:"items"`
		CreatedAt   time.Time   `json:"createdAt"`
		UpdatedAt   time.Time   `json:"updatedAt"`
	}

	CollectionBody struct {
		Name        string      `json:"name"`
		Description string      `json:"description,omitempty"`
		Items       []uuid.UUID `json:"items,omitempty"`
	}

	PublicPage struct {
		Profile         Profile          `json:"profile"`
		Type            string           `json:"type"`
		Page            *Page            `json:"page,omitempty"`
		Blocks          []Block          `json:"blocks"`
		Recommendations []Recommendation `json:"recommendations"`
		Links           []Link           `json:"links"`
		Collections     []Collection     `json:"collections"`
	}
)
