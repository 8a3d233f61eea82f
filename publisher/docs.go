package publisher

import (
	"context"
	"fmt"
	"strings"

	docs "google.golang.org/api/docs/v1"

	"grimoire_editor_agent/edits"
)

// Docs wraps the Google Docs API for the manuscript.
type Docs struct {
	svc *docs.Service
}

func NewDocs(svc *docs.Service) *Docs {
	return &Docs{svc: svc}
}

// ApplySubstitutions sends every substitution as a replaceAllText request in
// one documents.batchUpdate call. The Docs API applies the requests in order
// and atomically.
func (d *Docs) ApplySubstitutions(ctx context.Context, documentID string, subs []edits.Substitution) (edits.ApplyResult, error) {
	reqs := make([]*docs.Request, 0, len(subs))
	for _, s := range subs {
		reqs = append(reqs, replaceAllText(s))
	}

	resp, err := d.svc.Documents.BatchUpdate(documentID, &docs.BatchUpdateDocumentRequest{Requests: reqs}).Context(ctx).Do()
	if err != nil {
		return edits.ApplyResult{}, fmt.Errorf("docs batchUpdate %s: %w", documentID, err)
	}

	res := edits.ApplyResult{Occurrences: make([]int64, len(subs))}
	for i, reply := range resp.Replies {
		if i >= len(subs) {
			break
		}
		if reply != nil && reply.ReplaceAllText != nil {
			res.Occurrences[i] = reply.ReplaceAllText.OccurrencesChanged
		}
	}
	return res, nil
}

func replaceAllText(s edits.Substitution) *docs.Request {
	return &docs.Request{
		ReplaceAllText: &docs.ReplaceAllTextRequest{
			ContainsText: &docs.SubstringMatchCriteria{
				Text:      s.Find,
				MatchCase: true,
			},
			ReplaceText: s.Replace,
			// an empty replacement is a deletion and must still be sent
			ForceSendFields: []string{"ReplaceText"},
		},
	}
}

// Document fetches the document with its body.
func (d *Docs) Document(ctx context.Context, documentID string) (*docs.Document, error) {
	doc, err := d.svc.Documents.Get(documentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("docs get %s: %w", documentID, err)
	}
	return doc, nil
}

// GetText returns the plain text of the document body, tables included.
func (d *Docs) GetText(ctx context.Context, documentID string) (string, error) {
	doc, err := d.Document(ctx, documentID)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if doc.Body != nil {
		writeElements(&sb, doc.Body.Content)
	}
	return sb.String(), nil
}

func writeElements(sb *strings.Builder, elems []*docs.StructuralElement) {
	for _, el := range elems {
		switch {
		case el.Paragraph != nil:
			for _, pe := range el.Paragraph.Elements {
				if pe.TextRun != nil {
					sb.WriteString(pe.TextRun.Content)
				}
			}
		case el.Table != nil:
			for _, row := range el.Table.TableRows {
				for _, cell := range row.TableCells {
					writeElements(sb, cell.Content)
				}
			}
		case el.TableOfContents != nil:
			writeElements(sb, el.TableOfContents.Content)
		}
	}
}
