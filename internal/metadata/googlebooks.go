package metadata

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const googleBooksBaseURL = "https://www.googleapis.com"

// GoogleBooksClient queries the public Google Books volumes API.
type GoogleBooksClient struct {
	httpSource
}

func NewGoogleBooksClient(opts ...ClientOption) *GoogleBooksClient {
	return &GoogleBooksClient{httpSource: newHTTPSource(googleBooksBaseURL, opts)}
}

func (c *GoogleBooksClient) Name() string {
	return "googlebooks"
}

// Lookup searches volumes by isbn:<code> and maps the first hit.
func (c *GoogleBooksClient) Lookup(ctx context.Context, code string) (*BookMetadata, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, ErrNoMatch
	}

	q := url.Values{}
	q.Set("q", "isbn:"+code)

	var resp googleVolumes
	if err := c.getJSON(ctx, fmt.Sprintf("%s/books/v1/volumes?%s", c.baseURL, q.Encode()), &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, ErrNoMatch
	}

	info := resp.Items[0].VolumeInfo
	year, _, _ := strings.Cut(info.PublishedDate, "-")
	return &BookMetadata{
		Title:     info.Title,
		Author:    strings.Join(info.Authors, ", "),
		ISBN:      code,
		Publisher: info.Publisher,
		Year:      year,
	}, nil
}

type googleVolumes struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo googleVolumeInfo `json:"volumeInfo"`
	} `json:"items"`
}

type googleVolumeInfo struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Publisher     string   `json:"publisher"`
	PublishedDate string   `json:"publishedDate"`
}
