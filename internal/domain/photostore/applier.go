package photostore

import (
	"context"
	"fmt"

	"github.com/mywaytech/dentstage-sync/common"
)

// PhotoApplier implements applier.PhotoApplier: it upserts the photo_data metadata row
// and, when the payload carries a base64 binary, decodes and writes the file, with stale-
// extension cleanup. It satisfies the interface structurally — applier does not import this
// package, avoiding a cycle between the generic replication core and this one special case.
type PhotoApplier struct {
	Rows  *RowRepository
	Files *Store
}

// NewPhotoApplier builds a PhotoApplier bound to rows and files.
func NewPhotoApplier(rows *RowRepository, files *Store) *PhotoApplier {
	return &PhotoApplier{Rows: rows, Files: files}
}

// Upsert persists payload's metadata row and, when present, its binary. A malformed base64
// payload is logged and the file write is skipped — the row metadata still persists.
func (p *PhotoApplier) Upsert(ctx context.Context, payload map[string]any) error {
	photoUID, _ := payload["photoUid"].(string)
	if photoUID == "" {
		return fmt.Errorf("photostore: payload missing photoUid")
	}

	if err := p.Rows.Upsert(ctx, photoUID, payload); err != nil {
		return err
	}

	contentBase64, hasContent := payload["fileContentBase64"].(string)

	logger := common.NewLoggerFromContext(ctx)

	if !hasContent || contentBase64 == "" {
		logger.Infof("photostore: payload for %q carried no binary, keeping existing file", photoUID)
		return nil
	}

	extension, _ := payload["fileExtension"].(string)

	if err := p.Files.WriteBase64(photoUID, extension, contentBase64); err != nil {
		logger.Warnf("photostore: skipping file write for %q: %v", photoUID, err)
		return nil
	}

	return nil
}

// Delete removes the photo_data row then best-effort removes its binary files under the storage
// root.
func (p *PhotoApplier) Delete(ctx context.Context, photoUID string) error {
	if err := p.Rows.Delete(ctx, photoUID); err != nil {
		return err
	}

	if err := p.Files.Delete(photoUID); err != nil {
		common.NewLoggerFromContext(ctx).Warnf("photostore: failed to remove binary for %q: %v", photoUID, err)
	}

	return nil
}

// ReadPayload materializes a photo row's payload for the download endpoint: photoUid plus the
// base64 binary and extension, when a file exists. The photo_data row's metadata columns are
// not read, so the returned payload carries none of them.
func (p *PhotoApplier) ReadPayload(ctx context.Context, photoUID string) (map[string]any, error) {
	contentBase64, extension, found, err := p.Files.ReadBase64(photoUID)
	if err != nil {
		return nil, err
	}

	row := map[string]any{"photoUid": photoUID}

	if found {
		row["fileContentBase64"] = contentBase64
		row["fileExtension"] = extension
	}

	return row, nil
}
