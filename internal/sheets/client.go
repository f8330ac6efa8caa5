// Package sheets is the remote store: a thin client for the Google Sheets v4
// values API plus a Table that maps one entity kind to one sheet.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mrlokans/bookcatalog/internal/apperr"
	"github.com/mrlokans/bookcatalog/internal/oauth2"
)

const defaultBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"

// ErrStatus describes a non-2xx answer from the API.
type ErrStatus struct {
	Code int
	Body string
}

func (e *ErrStatus) Error() string {
	return fmt.Sprintf("sheets API status %d: %s", e.Code, e.Body)
}

// IsStatus reports whether err is an *ErrStatus with one of codes.
func IsStatus(err error, codes ...int) bool {
	var se *ErrStatus
	if !errors.As(err, &se) {
		return false
	}
	for _, c := range codes {
		if se.Code == c {
			return true
		}
	}
	return false
}

// Client talks to one spreadsheet on behalf of the signed-in user.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	spreadsheetID string
	tokens        oauth2.TokenSource
	limiter       *rate.Limiter
	logger        *slog.Logger

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// Option configures a Client.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit paces requests to perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for spreadsheetID authenticated by tokens.
func NewClient(spreadsheetID string, tokens oauth2.TokenSource, opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		baseURL:       defaultBaseURL,
		spreadsheetID: spreadsheetID,
		tokens:        tokens,
		limiter:       rate.NewLimiter(rate.Limit(5), 5),
		logger:        slog.Default(),
		sheetIDs:      make(map[string]int64),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "sheets")
	return c
}

type valueRange struct {
	Range          string  `json:"range,omitempty"`
	MajorDimension string  `json:"majorDimension,omitempty"`
	Values         [][]any `json:"values"`
}

// GetValues reads rng with unformatted values, stringifying every cell.
func (c *Client) GetValues(ctx context.Context, rng string) ([][]string, error) {
	var vr valueRange
	u := c.valuesURL(rng, "") + "?valueRenderOption=UNFORMATTED_VALUE"
	if err := c.do(ctx, http.MethodGet, u, nil, &vr); err != nil {
		return nil, err
	}

	rows := make([][]string, len(vr.Values))
	for i, raw := range vr.Values {
		row := make([]string, len(raw))
		for j, v := range raw {
			row[j] = cellString(v)
		}
		rows[i] = row
	}
	return rows, nil
}

// UpdateValues overwrites rng with rows.
func (c *Client) UpdateValues(ctx context.Context, rng string, rows [][]string) error {
	u := c.valuesURL(rng, "") + "?valueInputOption=RAW"
	return c.do(ctx, http.MethodPut, u, valueRange{Range: rng, MajorDimension: "ROWS", Values: toAny(rows)}, nil)
}

// AppendValues inserts rows after the last row of the table in rng.
func (c *Client) AppendValues(ctx context.Context, rng string, rows [][]string) error {
	u := c.valuesURL(rng, ":append") + "?valueInputOption=RAW&insertDataOption=INSERT_ROWS"
	return c.do(ctx, http.MethodPost, u, valueRange{MajorDimension: "ROWS", Values: toAny(rows)}, nil)
}

// SheetID resolves the numeric id of the sheet titled title. The lookup is
// cached; an unknown title resolves to 0, the first sheet.
func (c *Client) SheetID(ctx context.Context, title string) (int64, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[title]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	var meta struct {
		Sheets []struct {
			Properties struct {
				SheetID int64  `json:"sheetId"`
				Title   string `json:"title"`
			} `json:"properties"`
		} `json:"sheets"`
	}
	u := fmt.Sprintf("%s/%s?fields=sheets.properties", c.baseURL, url.PathEscape(c.spreadsheetID))
	if err := c.do(ctx, http.MethodGet, u, nil, &meta); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range meta.Sheets {
		c.sheetIDs[s.Properties.Title] = s.Properties.SheetID
	}
	return c.sheetIDs[title], nil
}

// DeleteRows removes rows [start, end) (0-based) from the sheet, shifting the rest up.
func (c *Client) DeleteRows(ctx context.Context, sheetID int64, start, end int) error {
	body := map[string]any{
		"requests": []any{
			map[string]any{
				"deleteDimension": map[string]any{
					"range": map[string]any{
						"sheetId":    sheetID,
						"dimension":  "ROWS",
						"startIndex": start,
						"endIndex":   end,
					},
				},
			},
		},
	}
	u := fmt.Sprintf("%s/%s:batchUpdate", c.baseURL, url.PathEscape(c.spreadsheetID))
	return c.do(ctx, http.MethodPost, u, body, nil)
}

func (c *Client) valuesURL(rng, suffix string) string {
	return fmt.Sprintf("%s/%s/values/%s%s", c.baseURL, url.PathEscape(c.spreadsheetID), url.PathEscape(rng), suffix)
}

// do sends one authenticated request. A 401 forces a single credential
// refresh and retry; if that fails the session is invalidated.
func (c *Client) do(ctx context.Context, method, u string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		token, err := c.tokens.Token(ctx)
		if err != nil {
			return errors.Join(apperr.ErrSessionInvalidated, err)
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, body)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		c.logger.Debug("sheets request", "method", method, "path", req.URL.Path, "status", resp.StatusCode)

		if resp.StatusCode == http.StatusUnauthorized {
			if attempt > 0 {
				return errors.Join(apperr.ErrSessionInvalidated, &ErrStatus{Code: resp.StatusCode, Body: string(data)})
			}
			c.logger.Info("sheets credential rejected, refreshing")
			if err := c.tokens.ForceRefresh(ctx); err != nil {
				return errors.Join(apperr.ErrSessionInvalidated, err)
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &ErrStatus{Code: resp.StatusCode, Body: string(data)}
		}

		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func toAny(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		r := make([]any, len(row))
		for j, v := range row {
			r[j] = v
		}
		out[i] = r
	}
	return out
}
