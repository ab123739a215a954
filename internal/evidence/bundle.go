// Package evidence writes incident snapshots as ZIP bundles for handoff.
package evidence

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"
	"time"
)

// ManifestName is the bundle entry describing every other entry.
const ManifestName = "package_info.json"

// Entry is one file placed in the bundle.
type Entry struct {
	Name string
	Data []byte
}

// JSONEntry marshals v as indented JSON under name.
func JSONEntry(name string, v any) (Entry, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Entry{}, fmt.Errorf("marshal %s: %w", name, err)
	}
	return Entry{Name: name, Data: data}, nil
}

// Manifest is written to ManifestName.
type Manifest struct {
	Version     string    `json:"version"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
	ToolVersion string    `json:"tool_version"`
	Files       []File    `json:"files"`
}

// File records an entry's hash and size.
type File struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// Write creates a ZIP at zipPath holding entries under a directory named after
// the archive, plus a manifest. Returns the manifest written.
func Write(zipPath, source, toolVersion string, createdAt time.Time, entries []Entry) (*Manifest, error) {
	zipFile, err := os.Create(zipPath)
	if err != nil {
		return nil, fmt.Errorf("create zip: %w", err)
	}
	defer zipFile.Close()

	w := zip.NewWriter(zipFile)
	defer w.Close()

	dirBase := strings.TrimSuffix(path.Base(strings.ReplaceAll(zipPath, "\\", "/")), ".zip")
	manifest := &Manifest{
		Version:     "1.0",
		Source:      source,
		CreatedAt:   createdAt.UTC(),
		ToolVersion: toolVersion,
		Files:       make([]File, 0, len(entries)),
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Name == "" || e.Name == ManifestName || seen[e.Name] {
			return nil, fmt.Errorf("invalid or duplicate entry name %q", e.Name)
		}
		seen[e.Name] = true

		if err := writeEntry(w, dirBase+"/"+e.Name, e.Data); err != nil {
			return nil, err
		}
		h := sha256.Sum256(e.Data)
		manifest.Files = append(manifest.Files, File{
			Name:   e.Name,
			SHA256: hex.EncodeToString(h[:]),
			Size:   int64(len(e.Data)),
		})
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeEntry(w, dirBase+"/"+ManifestName, data); err != nil {
		return nil, err
	}

	// Flush before the deferred closes so write errors surface.
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close zip writer: %w", err)
	}
	if err := zipFile.Close(); err != nil {
		return nil, fmt.Errorf("close zip file: %w", err)
	}
	return manifest, nil
}

func writeEntry(w *zip.Writer, name string, data []byte) error {
	zf, err := w.Create(name)
	if err != nil {
		return fmt.Errorf("zip create %s: %w", name, err)
	}
	if _, err := zf.Write(data); err != nil {
		return fmt.Errorf("zip write %s: %w", name, err)
	}
	return nil
}
