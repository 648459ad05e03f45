package utils

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Direktori publik tempat file upload disimpan, relatif terhadap root upload.
const (
	DirChatUploads  = "uploads"
	DirPatientFiles = "patientFiles"
	DirDoctorFiles  = "doctorFiles"
	DirProfileImage = "image"
)

var PublicDirs = []string{DirChatUploads, DirPatientFiles, DirDoctorFiles, DirProfileImage}

var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".heic": true,
	".mp4": true, ".mov": true, ".webm": true,
	".mp3": true, ".m4a": true, ".ogg": true, ".wav": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".txt": true,
}

var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrFileTypeRejected = errors.New("file type not allowed")
	ErrUnsafePath       = errors.New("unsafe file path")
)

type StoredFile struct {
	Path     string `json:"url"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// FileStorage menyimpan file upload di disk lokal.
type FileStorage struct {
	Root    string
	MaxSize int64
}

func NewFileStorage(root string, maxSize int64) *FileStorage {
	return &FileStorage{Root: root, MaxSize: maxSize}
}

// EnsureDirs membuat semua direktori publik jika belum ada.
func (fs *FileStorage) EnsureDirs() error {
	for _, dir := range PublicDirs {
		if err := os.MkdirAll(filepath.Join(fs.Root, dir), 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FileStorage) Save(fh *multipart.FileHeader, dir string) (StoredFile, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtensions[ext] {
		return StoredFile{}, fmt.Errorf("%w: %s", ErrFileTypeRejected, fh.Filename)
	}
	if fs.MaxSize > 0 && fh.Size > fs.MaxSize {
		return StoredFile{}, fmt.Errorf("%w: %s", ErrFileTooLarge, fh.Filename)
	}

	src, err := fh.Open()
	if err != nil {
		return StoredFile{}, err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Join(fs.Root, dir), 0o755); err != nil {
		return StoredFile{}, err
	}
	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(fs.Root, dir, name))
	if err != nil {
		return StoredFile{}, err
	}
	defer dst.Close()

	written, err := io.Copy(dst, src)
	if err != nil {
		os.Remove(dst.Name())
		return StoredFile{}, err
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			mimeType = byExt
		}
	}
	return StoredFile{
		Path:     "/" + dir + "/" + name,
		Name:     fh.Filename,
		MimeType: mimeType,
		Size:     written,
	}, nil
}

// SaveAll menyimpan semua file; jika satu gagal, file yang sudah tersimpan dihapus.
func (fs *FileStorage) SaveAll(files []*multipart.FileHeader, dir string) ([]StoredFile, error) {
	saved := make([]StoredFile, 0, len(files))
	for _, fh := range files {
		sf, err := fs.Save(fh, dir)
		if err != nil {
			for _, done := range saved {
				fs.Remove(done.Path)
			}
			return nil, err
		}
		saved = append(saved, sf)
	}
	return saved, nil
}

// Remove menghapus file berdasarkan path publik ("/doctorFiles/x.pdf").
// File yang sudah tidak ada tidak dianggap error.
func (fs *FileStorage) Remove(publicPath string) error {
	rel := filepath.Clean(strings.TrimLeft(publicPath, "/"))
	if rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s", ErrUnsafePath, publicPath)
	}
	err := os.Remove(filepath.Join(fs.Root, rel))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (fs *FileStorage) RemoveAll(paths []string) {
	for _, p := range paths {
		fs.Remove(p)
	}
}

func Paths(files []StoredFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}
