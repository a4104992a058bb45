package domain

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

var (
	handlePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{2,32}$`)
	slugPattern   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

	youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	vimeoIDPattern   = regexp.MustCompile(`^[0-9]+$`)
)

// reservedHandles collide with top-level routes of the public site.
var reservedHandles = map[string]struct{}{
	"admin": {}, "api": {}, "app": {}, "healthz": {}, "login": {}, "logout": {},
	"public": {}, "settings": {}, "signup": {}, "static": {}, "v1": {},
}

const (
	maxSlugLen        = 64
	maxPageNameLen    = 80
	maxDisplayNameLen = 80
	maxBioLen         = 500
	maxTitleLen       = 200
	maxTextHTMLLen    = 10_000
)

func validateHandle(h string) error {
	if !handlePattern.MatchString(h) {
		return invalid("handle", "must be 2-32 characters of letters, digits, '_', '.' or '-'")
	}
	if _, ok := reservedHandles[strings.ToLower(h)]; ok {
		return invalid("handle", "is reserved")
	}
	return nil
}

func validateSlug(s string) error {
	if len(s) == 0 || len(s) > maxSlugLen || !slugPattern.MatchString(s) {
		return invalid("slug", "must be lowercase letters, digits and single dashes")
	}
	if _, builtin := BuiltinFromPath(s); builtin {
		return invalid("slug", "collides with a built-in page")
	}
	return nil
}

// Slugify lowercases name and collapses every run of non alphanumerics into one dash.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if len(s) > maxSlugLen {
		s = strings.TrimSuffix(s[:maxSlugLen], "-")
	}
	return s
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid(field, "must be an absolute http(s) URL")
	}
	return nil
}

func validateLength(field, v string, minLen, maxLen int) error {
	n := len([]rune(strings.TrimSpace(v)))
	if n < minLen || n > maxLen {
		return invalid(field, "has invalid length")
	}
	return nil
}

// validateBlockShape enforces that content kinds carry only a content reference
// and inline kinds carry only the payload matching the kind.
func validateBlockShape(p AddBlockParams) error {
	if !p.Kind.Valid() {
		return invalid("kind", "unknown block kind")
	}
	hasRef := p.ContentID != nil && !p.ContentID.IsNil()
	hasPayload := p.Payload != nil
	if hasRef == hasPayload {
		return invalid("content", "exactly one of contentId or payload is required")
	}
	if p.Kind.ReferencesContent() {
		if !hasRef {
			return invalid("contentId", "required for this block kind")
		}
		return nil
	}
	if hasRef {
		return invalid("contentId", "not allowed for inline block kinds")
	}

	pl := p.Payload
	set := 0
	for _, ok := range []bool{pl.Text != nil, pl.Image != nil, pl.Video != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return invalid("payload", "exactly one payload variant is required")
	}

	switch p.Kind {
	case BlockKindText:
		if pl.Text == nil {
			return invalid("payload", "text payload required")
		}
		return validateLength("payload.html", pl.Text.HTML, 1, maxTextHTMLLen)
	case BlockKindImage:
		if pl.Image == nil {
			return invalid("payload", "image payload required")
		}
		if pl.Image.Width < 0 || pl.Image.Height < 0 {
			return invalid("payload.width", "must not be negative")
		}
		return validateHTTPURL("payload.url", pl.Image.URL)
	case BlockKindVideo:
		if pl.Video == nil {
			return invalid("payload", "video payload required")
		}
		return validateHTTPURL("payload.url", pl.Video.URL)
	}
	return nil
}

// ParseVideoURL derives the provider and external id of a YouTube or Vimeo URL.
func ParseVideoURL(raw string) (*VideoPayload, error) {
	if err := validateHTTPURL("payload.url", raw); err != nil {
		return nil, err
	}
	u, _ := url.Parse(raw)
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	var provider, id string
	switch host {
	case "youtube.com":
		provider = "youtube"
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case len(segments) == 2 && (segments[0] == "embed" || segments[0] == "shorts" || segments[0] == "live"):
			id = segments[1]
		}
		if id != "" && !youtubeIDPattern.MatchString(id) {
			id = ""
		}
	case "youtu.be":
		provider = "youtube"
		if len(segments) == 1 && youtubeIDPattern.MatchString(segments[0]) {
			id = segments[0]
		}
	case "vimeo.com", "player.vimeo.com":
		provider = "vimeo"
		if last := segments[len(segments)-1]; vimeoIDPattern.MatchString(last) {
			id = last
		}
	default:
		return nil, invalid("payload.url", "unsupported video provider")
	}
	if id == "" {
		return nil, invalid("payload.url", "could not find the video id")
	}
	return &VideoPayload{URL: raw, Provider: provider, ExternalID: id}, nil
}
