// Package avatar handles default avatar URLs and uploaded avatar
// processing.
package avatar

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif" // register gif decoder

	"golang.org/x/image/draw"
)

// Size is the square dimension avatars are resized to.
const Size = 250

// GravatarURL derives the default avatar for a new account from its
// email address.
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?s=%d&r=pg&d=mm", hex.EncodeToString(sum[:]), Size)
}

// Processor moves uploaded files into permanent storage and resizes
// them in place.
type Processor struct {
	dir string
}

// NewProcessor creates a Processor storing avatars under dir, creating
// it if needed.
func NewProcessor(dir string) (*Processor, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create avatars dir: %w", err)
	}
	return &Processor{dir: dir}, nil
}

// Process moves the uploaded temp file into the avatars directory under
// a name keyed by user ID, resizes it to Size x Size in place, and
// returns the relative URL it will be served from. The move and the
// resize are two separate steps; a crash in between leaves the original
// file without an updated URL, which callers treat as retryable.
func (p *Processor) Process(tempPath string, userID int64, originalName string) (string, error) {
	fileName := fmt.Sprintf("%d_%s", userID, filepath.Base(originalName))
	destPath := filepath.Join(p.dir, fileName)

	if err := moveFile(tempPath, destPath); err != nil {
		return "", fmt.Errorf("move upload: %w", err)
	}

	if err := resizeInPlace(destPath); err != nil {
		return "", fmt.Errorf("resize avatar: %w", err)
	}

	return "/avatars/" + fileName, nil
}

// moveFile renames src to dst, falling back to copy+remove when the
// rename crosses filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	return os.Remove(src)
}

func resizeInPlace(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	src, format, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	switch format {
	case "png":
		if err := png.Encode(out, dst); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
	default:
		if err := jpeg.Encode(out, dst, &jpeg.Options{Quality: 85}); err != nil {
			return fmt.Errorf("encode jpeg: %w", err)
		}
	}
	return nil
}
