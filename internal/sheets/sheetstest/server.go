// Package sheetstest provides an in-memory Sheets API server for tests.
package sheetstest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// SpreadsheetID is the id the fake server answers for.
const SpreadsheetID = "test-spreadsheet"

var rowNumber = regexp.MustCompile(`^[A-Z]+(\d+)`)

// Server is a fake spreadsheet. Sheets are created by the first write.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	sheets   map[string][][]string
	order    []string
	requests []string

	rejectToken string
	failWith    int
}

// RejectToken makes every request carrying this bearer token fail with 401.
func (s *Server) RejectToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectToken = token
}

// FailWith answers every request with status; 0 restores normal service.
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = status
}

// NewServer starts a fake server. Close it when done.
func NewServer() *Server {
	s := &Server{sheets: make(map[string][][]string)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// BaseURL is the value for sheets.WithBaseURL.
func (s *Server) BaseURL() string {
	return s.URL
}

// Seed replaces the content of a sheet, header row included.
func (s *Server) Seed(title string, rows ...[]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sheets[title]; !ok {
		s.order = append(s.order, title)
	}
	copied := make([][]string, len(rows))
	for i, r := range rows {
		copied[i] = append([]string(nil), r...)
	}
	s.sheets[title] = copied
}

// Rows returns a copy of a sheet, header row included; nil if it does not exist.
func (s *Server) Rows(title string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[title]
	if !ok {
		return nil
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Requests lists "METHOD path" for every request received.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, r.Method+" "+r.URL.Path)

	if s.rejectToken != "" && r.Header.Get("Authorization") == "Bearer "+s.rejectToken {
		http.Error(w, `{"error":{"code":401}}`, http.StatusUnauthorized)
		return
	}
	if s.failWith != 0 {
		http.Error(w, `{"error":{"message":"injected"}}`, s.failWith)
		return
	}

	prefix := "/" + SpreadsheetID
	path := strings.TrimPrefix(r.URL.Path, prefix)

	switch {
	case path == "" && r.Method == http.MethodGet:
		s.metadata(w)
	case path == ":batchUpdate" && r.Method == http.MethodPost:
		s.batchUpdate(w, r)
	case strings.HasPrefix(path, "/values/"):
		rng := strings.TrimPrefix(path, "/values/")
		switch {
		case r.Method == http.MethodGet:
			s.get(w, rng)
		case r.Method == http.MethodPut:
			s.put(w, r, rng)
		case r.Method == http.MethodPost && strings.HasSuffix(rng, ":append"):
			s.append(w, r, strings.TrimSuffix(rng, ":append"))
		default:
			http.NotFound(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

var plainTitle = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// sheetTitle extracts the title of an A1 range. Titles other than plain
// words must be single-quoted, with embedded quotes doubled.
func sheetTitle(rng string) (string, bool) {
	i := strings.LastIndex(rng, "!")
	if i < 0 {
		return "", false
	}
	title := rng[:i]
	if len(title) >= 2 && title[0] == '\'' && title[len(title)-1] == '\'' {
		inner := title[1 : len(title)-1]
		if strings.Contains(strings.ReplaceAll(inner, "''", ""), "'") {
			return "", false
		}
		return strings.ReplaceAll(inner, "''", "'"), true
	}
	return title, plainTitle.MatchString(title)
}

func badRange(w http.ResponseWriter) {
	http.Error(w, `{"error":{"message":"Unable to parse range"}}`, http.StatusBadRequest)
}

func (s *Server) get(w http.ResponseWriter, rng string) {
	title, ok := sheetTitle(rng)
	if !ok {
		badRange(w)
		return
	}
	rows, ok := s.sheets[title]
	if !ok {
		badRange(w)
		return
	}
	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		// Trailing empty cells are omitted, as the real API does.
		end := len(row)
		for end > 0 && row[end-1] == "" {
			end--
		}
		cells := make([]any, end)
		for i := 0; i < end; i++ {
			if n, err := strconv.Atoi(row[i]); err == nil && row[i] != "" && row[i][0] != '0' {
				cells[i] = n
			} else {
				cells[i] = row[i]
			}
		}
		values = append(values, cells)
	}
	writeJSON(w, map[string]any{"range": rng, "majorDimension": "ROWS", "values": values})
}

type valuesBody struct {
	Values [][]string `json:"values"`
}

func (s *Server) put(w http.ResponseWriter, r *http.Request, rng string) {
	var body valuesBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m := rowNumber.FindStringSubmatch(rng[strings.LastIndex(rng, "!")+1:])
	if m == nil {
		http.Error(w, "range without row", http.StatusBadRequest)
		return
	}
	start, _ := strconv.Atoi(m[1])

	title, ok := sheetTitle(rng)
	if !ok {
		badRange(w)
		return
	}
	if _, ok := s.sheets[title]; !ok {
		s.order = append(s.order, title)
	}
	rows := s.sheets[title]
	for i, v := range body.Values {
		idx := start - 1 + i
		for len(rows) <= idx {
			rows = append(rows, nil)
		}
		rows[idx] = v
	}
	s.sheets[title] = rows
	writeJSON(w, map[string]any{"updatedRows": len(body.Values)})
}

func (s *Server) append(w http.ResponseWriter, r *http.Request, rng string) {
	var body valuesBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	title, ok := sheetTitle(rng)
	if !ok {
		badRange(w)
		return
	}
	if _, ok := s.sheets[title]; !ok {
		s.order = append(s.order, title)
	}
	s.sheets[title] = append(s.sheets[title], body.Values...)
	writeJSON(w, map[string]any{"updates": map[string]any{"updatedRows": len(body.Values)}})
}

func (s *Server) metadata(w http.ResponseWriter) {
	sheets := make([]any, 0, len(s.order))
	for i, title := range s.order {
		sheets = append(sheets, map[string]any{
			"properties": map[string]any{"sheetId": sheetID(i), "title": title},
		})
	}
	writeJSON(w, map[string]any{"sheets": sheets})
}

func (s *Server) batchUpdate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Requests []struct {
			DeleteDimension struct {
				Range struct {
					SheetID    int64  `json:"sheetId"`
					Dimension  string `json:"dimension"`
					StartIndex int    `json:"startIndex"`
					EndIndex   int    `json:"endIndex"`
				} `json:"range"`
			} `json:"deleteDimension"`
		} `json:"requests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, req := range body.Requests {
		rg := req.DeleteDimension.Range
		title := ""
		for i, t := range s.order {
			if sheetID(i) == rg.SheetID {
				title = t
			}
		}
		rows := s.sheets[title]
		if rg.Dimension != "ROWS" || rg.StartIndex < 0 || rg.EndIndex > len(rows) || rg.StartIndex >= rg.EndIndex {
			http.Error(w, fmt.Sprintf("bad delete range %+v", rg), http.StatusBadRequest)
			return
		}
		s.sheets[title] = append(rows[:rg.StartIndex], rows[rg.EndIndex:]...)
	}
	writeJSON(w, map[string]any{"replies": []any{}})
}

func sheetID(i int) int64 {
	return int64(1000 + i)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
