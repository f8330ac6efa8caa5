package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mrlokans/bookcatalog/internal/apperr"
	"github.com/mrlokans/bookcatalog/internal/entities"
)

// Table is the remote store of one entity kind: one sheet whose first row
// holds the headers. Row indexes are 1-based sheet rows, so the first data
// row is 2.
type Table struct {
	client      *Client
	sheet       string
	headers     []string
	matchColumn string
	match       func(stored, key string) bool
	logger      *slog.Logger
}

// NewTable binds kind to the sheet titled sheet.
func NewTable(client *Client, sheet string, kind entities.Kind) *Table {
	t := &Table{
		client:  client,
		sheet:   sheet,
		headers: kind.Headers(),
		logger:  client.logger.With("sheet", sheet),
	}
	if kind == entities.KindBook {
		t.matchColumn = entities.ColumnID
		t.match = func(stored, key string) bool { return stored == key }
	} else {
		t.matchColumn = entities.ColumnName
		t.match = entities.SameName
	}
	return t
}

// Sheet returns the sheet title.
func (t *Table) Sheet() string {
	return t.sheet
}

func (t *Table) lastColumn() string {
	return columnLetter(len(t.headers))
}

// a1 prefixes cells with the quoted sheet title.
func (t *Table) a1(cells string) string {
	return quoteSheet(t.sheet) + "!" + cells
}

// quoteSheet quotes a sheet title for A1 notation. Embedded quotes are doubled.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// ReadAll returns the header row and every data row. A missing or empty
// sheet is initialized with the header row and reads as empty.
func (t *Table) ReadAll(ctx context.Context) ([]string, [][]string, error) {
	values, err := t.client.GetValues(ctx, t.a1("A:"+t.lastColumn()))
	if IsStatus(err, http.StatusNotFound, http.StatusBadRequest) {
		t.logger.Info("sheet not initialized, writing headers", "error", err)
		return t.headers, nil, t.initialize(ctx)
	}
	if err != nil {
		return nil, nil, err
	}

	if len(values) == 0 {
		return t.headers, nil, t.initialize(ctx)
	}
	return values[0], values[1:], nil
}

// initialize writes the header row. Only an invalidated session is reported;
// other failures leave the sheet for the next attempt.
func (t *Table) initialize(ctx context.Context) error {
	err := t.client.UpdateValues(ctx, t.a1("A1:"+t.lastColumn()+"1"), [][]string{t.headers})
	if err == nil {
		return nil
	}
	if errors.Is(err, apperr.ErrSessionInvalidated) {
		return err
	}
	t.logger.Warn("initialize sheet", "error", err)
	return nil
}

// AppendRow adds row after the last data row.
func (t *Table) AppendRow(ctx context.Context, row []string) error {
	return t.client.AppendValues(ctx, t.a1("A:"+t.lastColumn()), [][]string{row})
}

// UpdateRow overwrites the sheet row at rowIndex.
func (t *Table) UpdateRow(ctx context.Context, rowIndex int, row []string) error {
	if rowIndex < 2 {
		return fmt.Errorf("invalid data row index %d", rowIndex)
	}
	rng := t.a1(fmt.Sprintf("A%d:%s%d", rowIndex, t.lastColumn(), rowIndex))
	return t.client.UpdateValues(ctx, rng, [][]string{row})
}

// DeleteRow structurally removes the sheet row at rowIndex.
func (t *Table) DeleteRow(ctx context.Context, rowIndex int) error {
	if rowIndex < 2 {
		return fmt.Errorf("invalid data row index %d", rowIndex)
	}
	sheetID, err := t.client.SheetID(ctx, t.sheet)
	if err != nil {
		return fmt.Errorf("resolve sheet id: %w", err)
	}
	return t.client.DeleteRows(ctx, sheetID, rowIndex-1, rowIndex)
}

// FindRow scans for the row owned by userID whose match column equals key.
// It returns the 1-based sheet row index, or 0 when there is none.
func (t *Table) FindRow(ctx context.Context, userID, key string) (int, error) {
	headers, rows, err := t.ReadAll(ctx)
	if err != nil {
		return 0, err
	}

	userCol := entities.ColumnIndex(headers, entities.ColumnUserID)
	keyCol := entities.ColumnIndex(headers, t.matchColumn)
	if userCol < 0 || keyCol < 0 {
		return 0, nil
	}

	for i, row := range rows {
		if cellAt(row, userCol) != userID {
			continue
		}
		if t.match(cellAt(row, keyCol), key) {
			return i + 2, nil
		}
	}
	return 0, nil
}

// Upsert overwrites the row matching key, appending when there is none.
// It reports whether the row was appended.
func (t *Table) Upsert(ctx context.Context, userID, key string, row []string) (bool, error) {
	idx, err := t.FindRow(ctx, userID, key)
	if err != nil {
		return false, err
	}
	if idx == 0 {
		return true, t.AppendRow(ctx, row)
	}
	return false, t.UpdateRow(ctx, idx, row)
}

// Remove deletes the row matching key. A missing row is a no-op; the
// result reports whether a row was deleted.
func (t *Table) Remove(ctx context.Context, userID, key string) (bool, error) {
	idx, err := t.FindRow(ctx, userID, key)
	if err != nil {
		return false, err
	}
	if idx == 0 {
		return false, nil
	}
	return true, t.DeleteRow(ctx, idx)
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// columnLetter converts a 1-based column number to its A1 letters.
func columnLetter(n int) string {
	var s []byte
	for n > 0 {
		n--
		s = append([]byte{byte('A' + n%26)}, s...)
		n /= 26
	}
	return string(s)
}
