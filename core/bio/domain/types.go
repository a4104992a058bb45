package domain

import (
	"strconv"
	"time"

	"linkbio/modules/clock"

	"github.com/gofrs/uuid/v5"
)

type (
	Application struct {
		reader ReadStore
		writer WriteStore
		signer CursorSigner
		cache  PublicPageCache
		clock  clock.Clock
	}

	// Profile is a tenant's public identity, addressable by a unique handle.
	Profile struct {
		ID          uuid.UUID
		OwnerID     uuid.UUID
		Handle      string
		DisplayName string
		Bio         string
		AvatarURL   *string

		DefaultPageType PageType
		DefaultPageID   *uuid.UUID

		CreatedAt time.Time
		UpdatedAt time.Time

		Version int64
	}

	Page struct {
		ID        uuid.UUID
		ProfileID uuid.UUID
		Name      string
		Slug      string
		CreatedAt time.Time
	}

	// Block is one placement of a content entity or of inline content.
	// PageID nil means the block sits in the profile's unassigned group.
	Block struct {
		ID           uuid.UUID
		ProfileID    uuid.UUID
		PageID       *uuid.UUID
		Kind         BlockKind
		DisplayOrder int
		ContentID    *uuid.UUID
		Payload      *Payload
		CreatedAt    time.Time
	}

	// Payload carries inline content. Exactly one field is set, matching the block kind.
	Payload struct {
		Text  *TextPayload  `json:"text,omitempty"`
		Image *ImagePayload `json:"image,omitempty"`
		Video *VideoPayload `json:"video,omitempty"`
	}

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
		Provider   string `json:"provider"`
		ExternalID string `json:"externalId"`
	}

	Recommendation struct {
		ID          uuid.UUID
		ProfileID   uuid.UUID
		Title       string
		URL         string
		ImageURL    *string
		Description string
		CreatedAt   time.Time
	}

	Link struct {
		ID        uuid.UUID
		ProfileID uuid.UUID
		Title     string
		URL       string
		CreatedAt time.Time
	}

	Collection struct {
		ID          uuid.UUID
		ProfileID   uuid.UUID
		Name        string
		Description string
		// Items are recommendation ids in display order.
		Items     []uuid.UUID
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Placement identifies one ordering group: the blocks of a profile on a page,
	// or the unassigned blocks of a profile when PageID is nil.
	Placement struct {
		ProfileID uuid.UUID
		PageID    *uuid.UUID
	}

	// OrderChange is a single display_order rewrite produced by Renumber.
	OrderChange struct {
		BlockID uuid.UUID
		Order   int
	}
)

func (p *Profile) V() string {
	return strconv.Itoa(int(p.Version))
}

// PageType is the persisted default_page_type value.
type PageType string

const (
	PageTypeNone           PageType = "none"
	PageTypeRecommendation PageType = "rcmd"
	PageTypeLink           PageType = "link"
	PageTypeCollection     PageType = "collection"
	PageTypeCustom         PageType = "custom"
)

func (t PageType) Builtin() bool {
	switch t {
	case PageTypeRecommendation, PageTypeLink, PageTypeCollection:
		return true
	}
	return false
}

func (t PageType) Valid() bool {
	return t == PageTypeNone || t == PageTypeCustom || t.Builtin()
}

// URL path literals of the built-in pages.
const (
	BuiltinPathRecommendations = "rcmd"
	BuiltinPathLinks           = "links"
	BuiltinPathCollections     = "collections"
)

// BuiltinFromPath maps a public path segment to its built-in page type.
func BuiltinFromPath(segment string) (PageType, bool) {
	switch segment {
	case BuiltinPathRecommendations:
		return PageTypeRecommendation, true
	case BuiltinPathLinks:
		return PageTypeLink, true
	case BuiltinPathCollections:
		return PageTypeCollection, true
	}
	return "", false
}

// Path returns the public path segment of a built-in page type.
func (t PageType) Path() string {
	switch t {
	case PageTypeRecommendation:
		return BuiltinPathRecommendations
	case PageTypeLink:
		return BuiltinPathLinks
	case PageTypeCollection:
		return BuiltinPathCollections
	}
	return ""
}

type BlockKind string

const (
	BlockKindRecommendation BlockKind = "rcmd"
	BlockKindLink           BlockKind = "link"
	BlockKindCollection     BlockKind = "collection"
	BlockKindText           BlockKind = "text"
	BlockKindImage          BlockKind = "image"
	BlockKindVideo          BlockKind = "video"
)

// ReferencesContent reports whether the kind points at a content entity
// rather than carrying an inline payload.
func (k BlockKind) ReferencesContent() bool {
	switch k {
	case BlockKindRecommendation, BlockKindLink, BlockKindCollection:
		return true
	}
	return false
}

func (k BlockKind) Valid() bool {
	switch k {
	case BlockKindRecommendation, BlockKindLink, BlockKindCollection,
		BlockKindText, BlockKindImage, BlockKindVideo:
		return true
	}
	return false
}

// DefaultPage is the resolved landing page of a profile.
// Page is only set when Type is PageTypeCustom.
type DefaultPage struct {
	Type PageType
	Page *Page
}

func NoDefault() DefaultPage { return DefaultPage{Type: PageTypeNone} }

// PublicPage is what the public renderer receives for one handle and path.
type PublicPage struct {
	Profile Profile `json:"profile"`

	// Type is PageTypeCustom for custom pages, a built-in type otherwise,
	// or PageTypeNone when the profile has no default and no path was given.
	Type PageType `json:"type"`
	Page *Page    `json:"page,omitempty"`

	Blocks          []Block          `json:"blocks,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	Links           []Link           `json:"links,omitempty"`
	Collections     []Collection     `json:"collections,omitempty"`
}

type (
	CreateProfileParams struct {
		Handle      string
		DisplayName string
		Bio         string
		AvatarURL   *string
	}

	// ProfilePatch carries PATCH semantics: a nil field is left untouched.
	// AvatarURL distinguishes "clear" (Set && Null) from "leave" (!Set).
	ProfilePatch struct {
		Handle      *string
		DisplayName *string
		Bio         *string

		AvatarSet  bool
		AvatarNull bool
		AvatarURL  string
	}

	AddBlockParams struct {
		PageID    *uuid.UUID
		Kind      BlockKind
		ContentID *uuid.UUID
		Payload   *Payload
	}

	CreatePageParams struct {
		Name string
		// Slug is derived from Name when empty.
		Slug string
	}

	UpdatePageParams struct {
		Name *string
		Slug *string
	}

	CreateRecommendationParams struct {
		Title       string
		URL         string
		ImageURL    *string
		Description string
	}

	CreateLinkParams struct {
		Title string
		URL   string
	}

	CollectionParams struct {
		Name        string
		Description string
		Items       []uuid.UUID
	}
)

const (
	ASC  CursorDirection = "asc"
	DESC CursorDirection = "desc"
)

type (
	CursorDirection string

	CursorPaginationToken struct {
		TTL       time.Time       `json:"ttl"`
		Direction CursorDirection `json:"direction"`

		Pivot struct {
			CreatedAt time.Time `json:"created_at"`
			ID        uuid.UUID `json:"id"`
		} `json:"pivot"`
	}

	// Pivot is the keyset position a profile listing continues from.
	Pivot struct {
		CreatedAt time.Time
		ID        uuid.UUID
		Direction CursorDirection
	}
)
