package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/webp"
)

// ============================================================
// Panorama Storage
// ============================================================

var (
	ErrOutsideRoot = errors.New("path escapes panorama root")
	ErrNotImage    = errors.New("file is not a supported image")
)

// filetype смотрит только на первые 262 байта.
const sniffLen = 262

// Texture - метаданные загруженной картинки панорамы.
type Texture struct {
	Path   string `json:"path"`
	MIME   string `json:"mime"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int64  `json:"size"`
}

type FileStorage struct {
	root string
}

func NewFileStorage(root string) *FileStorage {
	return &FileStorage{root: root}
}

func (s *FileStorage) Root() string {
	return s.root
}

// Resolve переводит путь вида "panorama/floor1/Panorama7.png" в путь на
// диске. Пути за пределами корня отклоняются.
func (s *FileStorage) Resolve(rel string) (string, error) {
	rel = filepath.FromSlash(strings.TrimPrefix(rel, "/"))
	full := filepath.Join(s.root, rel)

	back, err := filepath.Rel(s.root, full)
	if err != nil || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return full, nil
}

func (s *FileStorage) Exists(rel string) bool {
	full, err := s.Resolve(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

// Load читает картинку и проверяет, что это действительно изображение.
// Декодируется только заголовок, пиксели никому не нужны.
func (s *FileStorage) Load(ctx context.Context, rel string) (Texture, error) {
	if err := ctx.Err(); err != nil {
		return Texture{}, err
	}

	full, err := s.Resolve(rel)
	if err != nil {
		return Texture{}, err
	}

	f, err := os.Open(full)
	if err != nil {
		return Texture{}, fmt.Errorf("open panorama: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Texture{}, fmt.Errorf("stat panorama: %w", err)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Texture{}, fmt.Errorf("read panorama: %w", err)
	}
	head = head[:n]

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown || !filetype.IsImage(head) {
		return Texture{}, fmt.Errorf("%w: %s", ErrNotImage, rel)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Texture{}, fmt.Errorf("seek panorama: %w", err)
	}
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Texture{}, fmt.Errorf("%w: %s: %v", ErrNotImage, rel, err)
	}

	if err := ctx.Err(); err != nil {
		return Texture{}, err
	}

	return Texture{
		Path:   filepath.ToSlash(rel),
		MIME:   kind.MIME.Value,
		Width:  cfg.Width,
		Height: cfg.Height,
		Size:   info.Size(),
	}, nil
}
