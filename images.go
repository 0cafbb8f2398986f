package letterpress

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const (
	maxImageWidth  = 800
	jpegQuality    = 80
	postImgsSubdir = "post_imgs"
	stagingSubdir  = ".staging"
)

// processUpload decodes an uploaded image, clamps its width to maxImageWidth,
// and re-encodes it as JPEG. Returns the slugified filename and the bytes.
func processUpload(src io.Reader, originalName string) (string, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return "", nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", nil, fmt.Errorf("encode jpeg: %w", err)
	}

	name := slugifyFilename(originalName) + ".jpg"
	return name, buf.Bytes(), nil
}

// slugifyFilename converts a filename (without extension) to a URL-safe slug.
func slugifyFilename(name string) string {
	ext := filepath.Ext(name)
	base := name[:len(name)-len(ext)]
	if s := Slugify(base); s != "" {
		return s
	}
	return "image"
}

// uploadBatch stages processed uploads for one authoring request. Files only
// reach their final id-keyed directory after the database transaction has
// committed (staging-then-publish), so a mid-flight failure never leaves
// orphaned files behind.
type uploadBatch struct {
	staticDir string
	staging   string // created lazily on first Add
	files     []string
}

func (a *App) newUploadBatch() *uploadBatch {
	return &uploadBatch{staticDir: a.Config.StaticDir}
}

// Add processes one multipart file into the staging directory and returns
// the filename that will be persisted. Names are uniquified within the batch
// so two uploads named alike cannot clobber each other.
func (b *uploadBatch) Add(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name, data, err := processUpload(src, fh.Filename)
	if err != nil {
		return "", err
	}
	name = b.uniqueName(name)

	if b.staging == "" {
		dir := filepath.Join(b.staticDir, postImgsSubdir, stagingSubdir, uuid.NewString())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create staging dir: %w", err)
		}
		b.staging = dir
	}
	if err := os.WriteFile(filepath.Join(b.staging, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write staged image: %w", err)
	}
	b.files = append(b.files, name)
	return name, nil
}

func (b *uploadBatch) uniqueName(name string) string {
	base := name[:len(name)-len(".jpg")]
	candidate := name
	counter := 1
	for {
		taken := false
		for _, f := range b.files {
			if f == candidate {
				taken = true
				break
			}
		}
		if !taken {
			return candidate
		}
		counter++
		candidate = fmt.Sprintf("%s-%d.jpg", base, counter)
	}
}

// Publish moves the staged files into the final directory for postID and
// removes the staging directory. Called only after the transaction that
// references these files has committed. A batch with no files publishes
// nothing and creates no directory.
func (b *uploadBatch) Publish(postID int64) error {
	if len(b.files) == 0 {
		return nil
	}
	dst := filepath.Join(b.staticDir, postImgsSubdir, strconv.FormatInt(postID, 10))
	if _, err := os.Stat(dst); os.IsNotExist(err) {
		// Fresh post: a single rename moves the whole batch.
		if err := os.Rename(b.staging, dst); err != nil {
			return fmt.Errorf("publish images: %w", err)
		}
		return nil
	}
	// Directory already exists (edit): move files individually.
	for _, name := range b.files {
		if err := os.Rename(filepath.Join(b.staging, name), filepath.Join(dst, name)); err != nil {
			return fmt.Errorf("publish image %s: %w", name, err)
		}
	}
	return os.Remove(b.staging)
}

// Discard removes any staged files. Safe to call on an empty batch.
func (b *uploadBatch) Discard() {
	if b.staging != "" {
		_ = os.RemoveAll(b.staging)
	}
}
