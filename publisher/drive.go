package publisher

import (
	"context"
	"fmt"

	drive "google.golang.org/api/drive/v3"
)

// DocumentInfo is the Drive metadata shown when a manuscript is selected.
type DocumentInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ModifiedTime string `json:"modified_time,omitempty"`
	WebViewLink  string `json:"web_view_link,omitempty"`
}

type Drive struct {
	svc *drive.Service
}

func NewDrive(svc *drive.Service) *Drive {
	return &Drive{svc: svc}
}

func (d *Drive) DocumentInfo(ctx context.Context, fileID string) (DocumentInfo, error) {
	f, err := d.svc.Files.Get(fileID).
		Fields("id", "name", "modifiedTime", "webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("drive files get %s: %w", fileID, err)
	}
	return DocumentInfo{
		ID:           f.Id,
		Name:         f.Name,
		ModifiedTime: f.ModifiedTime,
		WebViewLink:  f.WebViewLink,
	}, nil
}
