package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const (
	// PageSize is the number of items requested per page, a page with
	// fewer items is the last page
	PageSize = 100

	// MaxPages stops runaway pagination of misbehaving endpoints
	MaxPages = 1000

	maxBodySize    = 32 << 20
	requestTimeout = time.Minute
)

// PageRequest is the template used to request every page of a listing
type PageRequest struct {
	// provider and namespace are used for errors and metrics only
	Provider  string
	Namespace string

	BaseURL string      // scheme and host, ie https://api.github.com
	Path    string      // listing path, may contain escaped segments
	Query   url.Values  // fixed query params added to every page
	Header  http.Header // fixed headers added to every page
}

// DecodeFunc decodes single page body into items
type DecodeFunc[T any] func(body []byte) ([]T, error)

// FetchError is returned when any page of a listing can't be fetched or
// decoded. whole listing of the owner is discarded.
type FetchError struct {
	Provider   string
	Namespace  string
	Page       int
	StatusCode int // 0 if no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("unable to fetch %s/%s page %d status:%d err:%s", e.Provider, e.Namespace, e.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("unable to fetch %s/%s page %d err:%s", e.Provider, e.Namespace, e.Page, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// DecodeJSON decodes page body as json array of T
func DecodeJSON[T any](body []byte) ([]T, error) {
	var items []T
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// FetchAll requests page 1, 2, 3... of the listing and returns all items.
// It stops on the first page which has fewer then PageSize items, so
// if total is exact multiple of PageSize one extra empty page is requested.
// Any failure aborts the fetch and *FetchError is returned.
func FetchAll[T any](ctx context.Context, client *http.Client, req PageRequest, decode DecodeFunc[T]) ([]T, error) {
	var all []T

	for page := 1; ; page++ {
		if page > MaxPages {
			return nil, req.fetchErr(page, 0, fmt.Errorf("listing exceeded %d pages", MaxPages))
		}

		items, err := fetchPage(ctx, client, req, page, decode)
		recordPageRequest(req.Provider, err == nil)
		if err != nil {
			return nil, err
		}

		all = append(all, items...)

		if len(items) < PageSize {
			return all, nil
		}
	}
}

func fetchPage[T any](ctx context.Context, client *http.Client, req PageRequest, page int, decode DecodeFunc[T]) ([]T, error) {
	pageURL, err := req.pageURL(page)
	if err != nil {
		return nil, req.fetchErr(page, 0, err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, req.fetchErr(page, 0, err)
	}
	for k, v := range req.Header {
		httpReq.Header[k] = v
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, req.fetchErr(page, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, req.fetchErr(page, resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, req.fetchErr(page, resp.StatusCode, fmt.Errorf("unexpected response body:%q", truncate(body, 256)))
	}

	items, err := decode(body)
	if err != nil {
		return nil, req.fetchErr(page, resp.StatusCode, fmt.Errorf("unable to decode response err:%w", err))
	}
	return items, nil
}

func (req PageRequest) pageURL(page int) (string, error) {
	u, err := url.Parse(strings.TrimRight(req.BaseURL, "/") + req.Path)
	if err != nil {
		return "", err
	}

	q := u.Query()
	for k, vs := range req.Query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("per_page", strconv.Itoa(PageSize))
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (req PageRequest) fetchErr(page, status int, err error) *FetchError {
	return &FetchError{
		Provider:   req.Provider,
		Namespace:  req.Namespace,
		Page:       page,
		StatusCode: status,
		Err:        err,
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
