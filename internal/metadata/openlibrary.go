package metadata

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const openLibraryBaseURL = "https://openlibrary.org"

// OpenLibraryClient queries the OpenLibrary books API.
type OpenLibraryClient struct {
	httpSource
}

func NewOpenLibraryClient(opts ...ClientOption) *OpenLibraryClient {
	return &OpenLibraryClient{httpSource: newHTTPSource(openLibraryBaseURL, opts)}
}

func (c *OpenLibraryClient) Name() string {
	return "openlibrary"
}

// Lookup fetches the "data" view of ISBN:<code>.
func (c *OpenLibraryClient) Lookup(ctx context.Context, code string) (*BookMetadata, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, ErrNoMatch
	}

	bibkey := "ISBN:" + code
	q := url.Values{}
	q.Set("bibkeys", bibkey)
	q.Set("format", "json")
	q.Set("jscmd", "data")

	var resp map[string]openLibraryBook
	if err := c.getJSON(ctx, fmt.Sprintf("%s/api/books?%s", c.baseURL, q.Encode()), &resp); err != nil {
		return nil, err
	}

	book, ok := resp[bibkey]
	if !ok {
		return nil, ErrNoMatch
	}
	return book.toMetadata(code), nil
}

type openLibraryBook struct {
	Title       string           `json:"title"`
	Authors     []openLibraryRef `json:"authors"`
	Publishers  []openLibraryRef `json:"publishers"`
	PublishDate string           `json:"publish_date"`
}

type openLibraryRef struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

func (b openLibraryBook) toMetadata(code string) *BookMetadata {
	m := &BookMetadata{
		Title: b.Title,
		ISBN:  code,
		Year:  extractYear(b.PublishDate),
	}

	authors := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		authors = append(authors, a.Name)
	}
	m.Author = strings.Join(authors, ", ")

	if len(b.Publishers) > 0 {
		m.Publisher = b.Publishers[0].Name
	}
	return m
}
