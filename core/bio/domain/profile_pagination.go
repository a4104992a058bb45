package domain

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofrs/uuid/v5"
)

const cursorTTL = 24 * time.Hour

// ProfileList is one page of a user's profiles with opaque continuation cursors.
// Next and Prev are empty when there is nothing in that direction.
type ProfileList struct {
	Items []Profile
	Next  string
	Prev  string
}

// ListProfiles pages through the profiles of userID, oldest first.
// An empty cursor returns the first page.
func (app *Application) ListProfiles(ctx context.Context, userID uuid.UUID, rawCursor string, limit int) (*ProfileList, error) {
	if limit <= 0 || limit > 100 {
		return nil, invalid("limit", "must be between 1 and 100")
	}

	var pivot *Pivot
	if rawCursor != "" {
		tok, err := app.decodeCursorToken(rawCursor)
		if err != nil {
			slog.DebugContext(ctx, "invalid cursor", slog.Any("error", err))
			return nil, invalid("cursor", "invalid or expired")
		}
		pivot = &Pivot{CreatedAt: tok.Pivot.CreatedAt, ID: tok.Pivot.ID, Direction: tok.Direction}
	}

	rows, err := retryRead(ctx, func() ([]Profile, error) {
		return app.reader.ListProfilesByOwner(ctx, userID, pivot, limit+1)
	})
	if err != nil {
		return nil, mapError(ctx, "ListProfiles", err)
	}

	backward := pivot != nil && pivot.Direction == DESC
	more := len(rows) > limit
	if more {
		if backward {
			rows = rows[1:]
		} else {
			rows = rows[:limit]
		}
	}

	out := &ProfileList{Items: rows}
	if len(rows) == 0 {
		return out, nil
	}
	if (!backward && more) || backward {
		out.Next = app.makeCursor(rows[len(rows)-1], ASC)
	}
	if (pivot != nil && !backward) || (backward && more) {
		out.Prev = app.makeCursor(rows[0], DESC)
	}
	return out, nil
}

// --- cursor helpers (opaque token: base64url(JSON) . base64url(HMAC)) ---

func (app *Application) encodeCursorToken(tok *CursorPaginationToken) (string, error) {
	if tok == nil || app.signer == nil {
		return "", ErrValidation
	}
	b, err := json.Marshal(tok)
	if err != nil {
		return "", err
	}
	return app.signer.Sign(b)
}

func (app *Application) decodeCursorToken(s string) (*CursorPaginationToken, error) {
	if s == "" || app.signer == nil {
		return nil, ErrValidation
	}
	raw, err := app.signer.Verify(s)
	if err != nil {
		return nil, ErrValidation
	}
	var tok CursorPaginationToken
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, ErrValidation
	}
	if tok.TTL.IsZero() || app.clock.Now().After(tok.TTL) {
		return nil, ErrValidation
	}
	if tok.Direction != ASC && tok.Direction != DESC {
		return nil, ErrValidation
	}
	return &tok, nil
}

func (app *Application) makeCursor(p Profile, dir CursorDirection) string {
	tok := &CursorPaginationToken{
		TTL:       app.clock.Now().Add(cursorTTL),
		Direction: dir,
	}
	tok.Pivot.CreatedAt = p.CreatedAt
	tok.Pivot.ID = p.ID
	s, err := app.encodeCursorToken(tok)
	if err != nil {
		return ""
	}
	return s
}
