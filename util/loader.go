package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// VariantPrefix is the file name prefix of generated originals.
const VariantPrefix = "variant-"

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Index is the 1-based variant number parsed from the file name.
	Index int
}

// Name returns the file name without its extension, e.g. "variant-2".
func (f ImageFile) Name() string {
	base := filepath.Base(f.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsImageExt reports whether ext is a supported image file extension.
func IsImageExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".png", ".jpg", ".jpeg", ".webp":
		return true
	}
	return false
}

// LoadVariantFiles reads every variant-N image from a directory.
//
// Arguments:
// - dir: Directory path containing variant-N.png (or .jpg, .webp) files.
//
// Returns:
// - []ImageFile: The variants sorted by N.
// - error: Error if loading fails or two files share a variant number.
func LoadVariantFiles(dir string) ([]ImageFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var images []ImageFile
	seen := make(map[int]string)
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		name := file.Name()
		ext := filepath.Ext(name)
		if !IsImageExt(ext) || !strings.HasPrefix(name, VariantPrefix) {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, VariantPrefix), ext))
		if err != nil || index < 1 {
			continue
		}
		if prev, ok := seen[index]; ok {
			return nil, errors.Errorf("variant %d is stored in both %s and %s", index, prev, name)
		}
		seen[index] = name

		imgPath := filepath.Join(dir, name)
		data, readErr := os.ReadFile(imgPath)
		if readErr != nil {
			return nil, readErr
		}
		images = append(images, ImageFile{
			Path:  imgPath,
			Data:  data,
			Index: index,
		})
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].Index < images[j].Index
	})

	return images, nil
}

// LoadImageFiles reads the given image paths in order. Index is the 1-based
// position in paths.
func LoadImageFiles(paths []string) ([]ImageFile, error) {
	images := make([]ImageFile, 0, len(paths))
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		images = append(images, ImageFile{Path: p, Data: data, Index: i + 1})
	}
	return images, nil
}
