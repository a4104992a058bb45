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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"linkbio/core/bio/domain"
	"linkbio/modules/api/bioapi"
	"linkbio/modules/middleware/problem"

	"github.com/cenkalti/backoff/v5"
	"github.com/gofrs/uuid/v5"
)

var _ Backend = (*Client)(nil)

// Client talks to the bio REST API. Reads are retried once with exponential
// backoff on transient failures; writes are sent exactly once.
type Client struct {
	base  *url.URL
	http  *http.Client
	token string

	retryInitial time.Duration
	retryMax     time.Duration
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.http = c }
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) ClientOption {
	return func(cl *Client) { cl.token = token }
}

// WithReadBackOff tunes the delay before the read retry.
func WithReadBackOff(initial, max time.Duration) ClientOption {
	return func(cl *Client) {
		cl.retryInitial = initial
		cl.retryMax = max
	}
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:         u,
		http:         &http.Client{Timeout: 10 * time.Second},
		retryInitial: 200 * time.Millisecond,
		retryMax:     2 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// StatusError is a non-2xx answer, wrapping the matching domain error.
type StatusError struct {
	Status  int
	Problem *problem.Problem
	err     error
}

func (e *StatusError) Error() string {
	if e.Problem != nil && e.Problem.Detail != nil {
		return fmt.Sprintf("status %d: %s", e.Status, *e.Problem.Detail)
	}
	return fmt.Sprintf("status %d", e.Status)
}

func (e *StatusError) Unwrap() error { return e.err }

func statusErr(status int, p *problem.Problem) error {
	se := &StatusError{Status: status, Problem: p}
	switch {
	case status == http.StatusNotFound:
		se.err = domain.ErrNotFound
	case status == http.StatusConflict:
		se.err = domain.ErrConflict
	case status == http.StatusPreconditionFailed:
		se.err = domain.ErrPrecondition
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		se.err = domain.ErrValidation
		if p != nil && p.InvalidParams != nil && len(*p.InvalidParams) > 0 {
			first := (*p.InvalidParams)[0]
			se.err = &domain.FieldError{Field: first.Name, Reason: first.Reason}
		}
	case status == http.StatusTooManyRequests || status >= 500:
		se.err = domain.ErrTransient
	default:
		se.err = domain.ErrUnhandled
	}
	return se
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) send(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var p problem.Problem
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return statusErr(resp.StatusCode, nil)
		}
		return statusErr(resp.StatusCode, &p)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// read issues a GET, retrying once on transient failures.
func read[T any](ctx context.Context, c *Client, target string) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInitial
	b.MaxInterval = c.retryMax

	return backoff.Retry(ctx, func() (T, error) {
		var out T
		err := c.send(ctx, http.MethodGet, target, nil, &out)
		if err != nil && !errors.Is(err, domain.ErrTransient) {
			return out, backoff.Permanent(err)
		}
		return out, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(2))
}

// write never retries: a write whose response was lost may have committed.
func write[T any](ctx context.Context, c *Client, method, target string, in any) (T, error) {
	var out T
	err := c.send(ctx, method, target, in, &out)
	return out, err
}

func profilePath(profileID uuid.UUID, rest ...string) string {
	p := "/v1/profiles/" + profileID.String()
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func (c *Client) GetProfile(ctx context.Context, profileID uuid.UUID) (*bioapi.Profile, error) {
	res, err := read[bioapi.Data[bioapi.Profile]](ctx, c, c.endpoint(profilePath(profileID), nil))
	if err != nil {
		return nil, err
	}
	return &res.Data, nil
}

func (c *Client) ListPages(ctx context.Context, profileID uuid.UUID) ([]bioapi.Page, error) {
	res, err := read[bioapi.Data[[]bioapi.Page]](ctx, c, c.endpoint(profilePath(profileID, "pages"), nil))
	return res.Data, err
}

func (c *Client) ListBlocks(ctx context.Context, profileID uuid.UUID, pageID *uuid.UUID) ([]bioapi.Block, error) {
	var q url.Values
	if pageID != nil {
		q = url.Values{"pageId": {pageID.String()}}
	}
	res, err := read[bioapi.Data[[]bioapi.Block]](ctx, c, c.endpoint(profilePath(profileID, "blocks"), q))
	return res.Data, err
}

func (c *Client) CheckHandle(ctx context.Context, handle string) (bool, error) {
	res, err := read[bioapi.HandleAvailability](ctx, c, c.endpoint("/v1/handles/"+handle+"/availability", nil))
	return res.Available, err
}

func (c *Client) ListProfiles(ctx context.Context, cursor string, limit int) (*bioapi.ProfileList, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	res, err := read[bioapi.ProfileList](ctx, c, c.endpoint("/v1/profiles", q))
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) MoveBlock(ctx context.Context, profileID, blockID uuid.UUID, fromIndex, toIndex int) ([]bioapi.Block, error) {
	res, err := write[bioapi.Data[[]bioapi.Block]](ctx, c, http.MethodPost,
		c.endpoint(profilePath(profileID, "blocks", blockID.String(), "move"), nil),
		bioapi.MoveBlock{FromIndex: fromIndex, ToIndex: toIndex})
	return res.Data, err
}

func (c *Client) UpdateCollection(ctx context.Context, profileID, collectionID uuid.UUID, body bioapi.CollectionBody) (*bioapi.Collection, error) {
	res, err := write[bioapi.Data[bioapi.Collection]](ctx, c, http.MethodPut,
		c.endpoint(profilePath(profileID, "collections", collectionID.String()), nil), body)
	if err != nil {
		return nil, err
	}
	return &res.Data, nil
}
