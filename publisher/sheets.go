package publisher

import (
	"context"
	"fmt"
	"strings"

	sheets "google.golang.org/api/sheets/v4"
)

// Sheets reads the story bible spreadsheet.
type Sheets struct {
	svc *sheets.Service
}

func NewSheets(svc *sheets.Service) *Sheets {
	return &Sheets{svc: svc}
}

// Rows returns the cell values of rng as strings.
func (s *Sheets) Rows(ctx context.Context, sheetID, rng string) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(sheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets values get %s %s: %w", sheetID, rng, err)
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, r := range resp.Values {
		cells := make([]string, 0, len(r))
		for _, c := range r {
			cells = append(cells, fmt.Sprint(c))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// StoryBible renders the range as one "row N: a | b | c" line per non-empty row.
func (s *Sheets) StoryBible(ctx context.Context, sheetID, rng string) (string, error) {
	rows, err := s.Rows(ctx, sheetID, rng)
	if err != nil {
		return "", err
	}
	return FormatRows(rows), nil
}

func FormatRows(rows [][]string) string {
	var sb strings.Builder
	for i, cells := range rows {
		joined := strings.TrimSpace(strings.Join(cells, " | "))
		if strings.Trim(joined, " |") == "" {
			continue
		}
		fmt.Fprintf(&sb, "row %d: %s\n", i+1, joined)
	}
	return sb.String()
}
