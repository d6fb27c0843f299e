// Package photostore implements the photo blob store (C2): a filesystem-backed,
// content-addressed store keyed by PhotoUID. It is the one special-cased table the
// replication applier knows about by name (photo_data), handled outside the generic
// entity catalog because it carries a binary file alongside its row.
package photostore

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtension is used when a photo row has no file yet and the payload carries no
// fileExtension.
const DefaultExtension = ".jpg"

// Store is a flat, content-addressed directory of photo binaries named "<PhotoUID><ext>".
// No subdirectories are used; the root is created lazily on first use.
type Store struct {
	root string
}

// New builds a Store rooted at root. The directory is not created until the first write.
func New(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

// Root returns the configured storage root.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) ensureRoot() error {
	return os.MkdirAll(s.root, 0o755)
}

// normalizeExtension lowercases ext and ensures it carries a single leading dot, defaulting to
// DefaultExtension when ext is empty.
func normalizeExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return DefaultExtension
	}

	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return ext
}

// existingPath searches the root for any file named "<photoUID>.*", returning its path and
// extension. Returns ("", "", false) when no file is present for photoUID.
func (s *Store) existingPath(photoUID string) (path string, ext string, found bool) {
	matches, err := filepath.Glob(filepath.Join(s.root, photoUID+".*"))
	if err != nil || len(matches) == 0 {
		return "", "", false
	}

	match := matches[0]

	return match, strings.ToLower(filepath.Ext(match)), true
}

// Has reports whether a binary file already exists for photoUID.
func (s *Store) Has(photoUID string) bool {
	_, _, found := s.existingPath(photoUID)
	return found
}

// Extension returns the extension of the file currently stored for photoUID, if any.
func (s *Store) Extension(photoUID string) (string, bool) {
	_, ext, found := s.existingPath(photoUID)
	return ext, found
}

// WriteBase64 decodes fileContentBase64 and writes it to "<root>/<photoUID><ext>", normalizing
// ext (defaulting to DefaultExtension when empty and no file pre-exists, otherwise reusing the
// pre-existing extension). Any other file matching "<photoUID>.*" with a different extension is
// removed.
func (s *Store) WriteBase64(photoUID, fileExtension, fileContentBase64 string) error {
	raw, err := base64.StdEncoding.DecodeString(fileContentBase64)
	if err != nil {
		return fmt.Errorf("photostore: invalid base64 payload for %q: %w", photoUID, err)
	}

	if err := s.ensureRoot(); err != nil {
		return fmt.Errorf("photostore: cannot create root %q: %w", s.root, err)
	}

	ext := strings.TrimSpace(fileExtension)
	if ext == "" {
		if existingExt, found := s.Extension(photoUID); found {
			ext = existingExt
		}
	}

	ext = normalizeExtension(ext)
	target := filepath.Join(s.root, photoUID+ext)

	if err := os.WriteFile(target, raw, 0o644); err != nil {
		return fmt.Errorf("photostore: write %q: %w", target, err)
	}

	return s.removeStaleExtensions(photoUID, target)
}

// removeStaleExtensions deletes every "<photoUID>.*" file other than keep.
func (s *Store) removeStaleExtensions(photoUID, keep string) error {
	matches, err := filepath.Glob(filepath.Join(s.root, photoUID+".*"))
	if err != nil {
		return nil
	}

	for _, m := range matches {
		if m == keep {
			continue
		}

		_ = os.Remove(m)
	}

	return nil
}

// ReadBase64 reads the binary file for photoUID and returns it base64-encoded alongside its
// extension. Returns found=false when no file exists for photoUID.
func (s *Store) ReadBase64(photoUID string) (contentBase64 string, extension string, found bool, err error) {
	path, ext, found := s.existingPath(photoUID)
	if !found {
		return "", "", false, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", "", false, fmt.Errorf("photostore: read %q: %w", path, err)
	}

	return base64.StdEncoding.EncodeToString(raw), ext, true, nil
}

// Delete best-effort removes every "<photoUID>.*" file under root. A missing file is not an
// error — deleting an already-absent photo file is the idempotent-success case.
func (s *Store) Delete(photoUID string) error {
	matches, err := filepath.Glob(filepath.Join(s.root, photoUID+".*"))
	if err != nil {
		return nil
	}

	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("photostore: remove %q: %w", m, err)
		}
	}

	return nil
}
