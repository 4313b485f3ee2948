// Package output lays generated and processed icons out on disk.
//
// A session directory looks like:
//
//	<root>/<subject>-<YYYYmmdd_HHMMSS>/
//	  metadata.json
//	  prompt.txt
//	  originals/variant-1.png
//	  processed/variant-1/AppIcon-1024.png
//	  processed/variant-1/icon.ico
//	  processed/variant-1/metadata.json
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-icongen/generation"
	"github.com/nvr-ai/go-icongen/iconset"
)

// File and directory names inside a session.
const (
	OriginalsDir  = "originals"
	ProcessedDir  = "processed"
	MetadataFile  = "metadata.json"
	PromptFile    = "prompt.txt"
	ContainerFile = "icon.ico"
	IconPrefix    = "AppIcon-"
	TimestampFmt  = "20060102_150405"
)

// GenerationRecord is the session-level metadata.json.
type GenerationRecord struct {
	GeneratedAt    time.Time                  `json:"generated_at"`
	Subject        string                     `json:"subject"`
	Style          string                     `json:"style"`
	Format         string                     `json:"format"`
	Model          string                     `json:"model"`
	Variations     int                        `json:"variations"`
	Prompt         string                     `json:"prompt"`
	NegativePrompt string                     `json:"negative_prompt"`
	Parameters     generation.InferenceParams `json:"parameters"`
	AspectRatio    string                     `json:"aspect_ratio,omitempty"`
}

// Session is a directory holding one generation run.
type Session struct {
	Dir string
}

// CleanSubject maps subject to a directory name component. Letters, digits,
// '-' and '_' are kept; everything else becomes '_'.
func CleanSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "icon"
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, subject)
}

// SessionName returns the directory name for a session started at t.
func SessionName(subject string, t time.Time) string {
	return CleanSubject(subject) + "-" + t.Format(TimestampFmt)
}

// VariantName returns the name of the 1-based variant index.
func VariantName(index int) string {
	return fmt.Sprintf("variant-%d", index)
}

// IconFileName returns the PNG file name for a size label.
func IconFileName(label string) string {
	return IconPrefix + label + ".png"
}

// NewSession creates a session directory with its originals and processed
// subdirectories.
//
// Arguments:
//   - root: The output root directory.
//   - subject: The icon subject, cleaned into the directory name.
//   - t: The session start time.
//
// Returns:
//   - *Session: The created session.
//   - error: If a directory cannot be created.
func NewSession(root, subject string, t time.Time) (*Session, error) {
	s := &Session{Dir: filepath.Join(root, SessionName(subject, t))}
	for _, dir := range []string{s.OriginalsDir(), s.ProcessedDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create %s", dir)
		}
	}
	return s, nil
}

// OriginalsDir returns the directory holding the generated originals.
func (s *Session) OriginalsDir() string {
	return filepath.Join(s.Dir, OriginalsDir)
}

// ProcessedDir returns the directory holding processed variants.
func (s *Session) ProcessedDir() string {
	return filepath.Join(s.Dir, ProcessedDir)
}

// WriteOriginal stores the PNG bytes of a generated variant.
func (s *Session) WriteOriginal(index int, png []byte) (string, error) {
	path := filepath.Join(s.OriginalsDir(), VariantName(index)+".png")
	if err := writeFile(path, png); err != nil {
		return "", err
	}
	return path, nil
}

// WriteRecord stores metadata.json and prompt.txt.
func (s *Session) WriteRecord(rec GenerationRecord) error {
	if err := writeJSON(filepath.Join(s.Dir, MetadataFile), rec); err != nil {
		return err
	}
	return writeFile(filepath.Join(s.Dir, PromptFile), []byte(rec.Prompt))
}

// WriteVariant stores the artifact set of one variant under processed/.
func (s *Session) WriteVariant(variant string, set *iconset.ArtifactSet) ([]string, error) {
	return WriteArtifactSet(filepath.Join(s.ProcessedDir(), variant), set)
}

// WriteArtifactSet writes every image of set as AppIcon-<label>.png, the
// container as icon.ico when present, and the set metadata as metadata.json.
//
// Arguments:
//   - dir: The target directory, created if missing.
//   - set: The artifacts to write.
//
// Returns:
//   - []string: The written file paths, images first in target order.
//   - error: If any file cannot be written.
func WriteArtifactSet(dir string, set *iconset.ArtifactSet) ([]string, error) {
	if set == nil {
		return nil, errors.New("artifact set is nil")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", dir)
	}

	paths := make([]string, 0, len(set.Sizes)+2)
	for _, size := range set.Sizes {
		data, ok := set.Images[size.Label]
		if !ok {
			return paths, errors.Errorf("artifact set has no image for label %q", size.Label)
		}
		path := filepath.Join(dir, IconFileName(size.Label))
		if err := writeFile(path, data); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	if set.HasContainer() {
		path := filepath.Join(dir, ContainerFile)
		if err := writeFile(path, set.Container); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	path := filepath.Join(dir, MetadataFile)
	if err := writeJSON(path, set); err != nil {
		return paths, err
	}
	return append(paths, path), nil
}

func writeJSON(path string, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", filepath.Base(path))
	}
	return writeFile(path, append(encoded, '\n'))
}

// writeFile writes through a temporary file so readers never see a partial file.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
