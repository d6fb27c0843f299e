package applier

import (
	"encoding/json"
	"fmt"
)

// decodePhotoPayload parses a photo_data payload into a generic field map. Unlike the generic
// catalog path, no schema-driven column allow-list is applied here: the photo row's metadata
// fields (position, comments, shape, cost, finishCost, progress, flags, ...) pass through
// verbatim to whatever concrete PhotoApplier is wired, since the applier itself only cares
// about photoUid/fileContentBase64/fileExtension.
func decodePhotoPayload(payload string) (map[string]any, error) {
	var row map[string]any

	if err := json.Unmarshal([]byte(payload), &row); err != nil {
		return nil, fmt.Errorf("photo payload does not deserialize: %w", err)
	}

	return row, nil
}
