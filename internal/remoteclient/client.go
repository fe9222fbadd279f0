/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package remoteclient is the outbound JSON:API HTTP client the Remote
// backend (spec §4.8) uses to delegate to another check-manager instance,
// grounded on rest_backend.py's use of an httpx.AsyncClient bound to a base
// URL, reworked around go-resty/resty.
package remoteclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/resource-health/check-manager/internal/apitypes"
	"github.com/resource-health/check-manager/internal/checkerr"
)

const (
	ListCheckTemplatesPath = "/check_templates/"
	GetCheckTemplatePath   = "/check_templates/%s"
	ListChecksPath         = "/checks/"
	NewCheckPath           = "/checks/"
	GetCheckPath           = "/checks/%s"
	RemoveCheckPath        = "/checks/%s"
	RunCheckPath           = "/checks/%s/run/"
)

// Client wraps a resty.Client bound to one remote check-manager's base URL.
type Client struct {
	rest *resty.Client
}

// New builds a Client whose requests carry the JSON:API media type and a
// bounded timeout, mirroring the original's default httpx.AsyncClient.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", apitypes.MediaType).
		SetHeader("Content-Type", apitypes.MediaType)
	return &Client{rest: c}
}

// BuildURL formats a request path relative to the client's base URL,
// substituting args with fmt.Sprintf and escaping each value as a URL path
// segment; the base URL itself is applied by the underlying resty client.
func BuildURL(pathFormat string, args ...any) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(fmt.Sprint(a))
	}
	return fmt.Sprintf(pathFormat, escaped...)
}

// Get issues a GET and decodes a successful body into into, or translates a
// non-2xx / transport failure into a CheckError.
func (c *Client) Get(ctx context.Context, path string, query map[string]string, into any) (*resty.Response, error) {
	req := c.rest.R().SetContext(ctx).SetResult(into).SetError(&apitypes.APIErrorResponse{})
	if query != nil {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	return c.finish(resp, err)
}

// Post issues a POST with body marshaled as JSON.
func (c *Client) Post(ctx context.Context, path string, body any, into any) (*resty.Response, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(into).
		SetError(&apitypes.APIErrorResponse{}).
		Post(path)
	return c.finish(resp, err)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) (*resty.Response, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetError(&apitypes.APIErrorResponse{}).
		Delete(path)
	return c.finish(resp, err)
}

func (c *Client) finish(resp *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return nil, &checkerr.CheckConnectionError{Cause: err}
	}
	if resp.IsSuccess() {
		return resp, nil
	}
	if apiErr, ok := resp.Error().(*apitypes.APIErrorResponse); ok && len(apiErr.Errors) > 0 {
		return nil, &remoteAPIError{status: resp.StatusCode(), body: *apiErr}
	}
	return nil, &checkerr.CheckConnectionError{Cause: fmt.Errorf("remote returned status %d", resp.StatusCode())}
}

// remoteAPIError re-surfaces a remote instance's own JSON:API error body,
// translated to the status it originally carried rather than collapsed to
// a 500 (the delegate should look, to its own callers, just like the
// backend it is fronting).
type remoteAPIError struct {
	status int
	body   apitypes.APIErrorResponse
}

func (e *remoteAPIError) Error() string {
	if len(e.body.Errors) == 0 {
		return fmt.Sprintf("remote error (status %d)", e.status)
	}
	return fmt.Sprintf("remote error (status %d): %s", e.status, e.body.Errors[0].Title)
}

func (e *remoteAPIError) HTTPStatus() int { return e.status }

func (e *remoteAPIError) APIErrors() []apitypes.Error { return e.body.Errors }
