package upload

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gabriel-vasile/mimetype"
)

type testFile struct {
	name string
	data []byte
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, G: 30, B: 30, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func gifBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewPaletted(image.Rect(0, 0, 4, 4), []color.Color{color.White, color.Black})
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding gif: %v", err)
	}
	return buf.Bytes()
}

// formFiles builds a multipart form and returns the file headers stored under field.
func formFiles(t *testing.T, field string, files ...testFile) []*multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, file := range files {
		part, err := writer.CreateFormFile(field, file.name)
		if err != nil {
			t.Fatalf("creating form file: %v", err)
		}
		if _, err := part.Write(file.data); err != nil {
			t.Fatalf("writing form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	form, err := multipart.NewReader(&body, writer.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("reading form: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form.File[field]
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name()
	}
	return names
}

func TestUploader_Save(t *testing.T) {
	t.Run("should store accepted files and return their paths in order", func(t *testing.T) {
		root := t.TempDir()
		uploader := New(PackageImages(root, 5<<20), nil)

		files := formFiles(t, "images",
			testFile{name: "Praia.PNG", data: pngBytes(t)},
			testFile{name: "mapa.gif", data: gifBytes(t)},
		)

		paths, err := uploader.Save(files)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(paths) != 2 {
			t.Fatalf("\nwanted:\n2 paths\ngot:\n%v", paths)
		}
		if !strings.HasPrefix(paths[0], "/uploads/packages/images-") || !strings.HasSuffix(paths[0], ".png") {
			t.Fatalf("\nwanted:\n/uploads/packages/images-<id>.png\ngot:\n%s", paths[0])
		}
		if !strings.HasSuffix(paths[1], ".gif") {
			t.Fatalf("\nwanted:\n.gif suffix\ngot:\n%s", paths[1])
		}

		for _, p := range paths {
			stored := filepath.Join(root, "packages", filepath.Base(p))
			if _, err := os.Stat(stored); err != nil {
				t.Fatalf("\nwanted:\n%s on disk\ngot:\n%v", stored, err)
			}
		}
	})

	t.Run("should give identically named files distinct paths", func(t *testing.T) {
		root := t.TempDir()
		uploader := New(PackageImages(root, 5<<20), nil)

		data := pngBytes(t)
		files := formFiles(t, "images",
			testFile{name: "foto.png", data: data},
			testFile{name: "foto.png", data: data},
		)

		paths, err := uploader.Save(files)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if paths[0] == paths[1] {
			t.Fatalf("\nwanted:\ndistinct paths\ngot:\n%v", paths)
		}
		if got := dirEntries(t, filepath.Join(root, "packages")); len(got) != 2 {
			t.Fatalf("\nwanted:\n2 files\ngot:\n%v", got)
		}
	})

	t.Run("should reject text files without writing anything", func(t *testing.T) {
		root := t.TempDir()
		uploader := New(PackageImages(root, 5<<20), nil)

		files := formFiles(t, "images",
			testFile{name: "ok.png", data: pngBytes(t)},
			testFile{name: "notes.txt", data: []byte("just some text")},
		)

		_, err := uploader.Save(files)
		if !errors.Is(err, ErrInvalidType) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrInvalidType, err)
		}
		if got := dirEntries(t, filepath.Join(root, "packages")); len(got) != 0 {
			t.Fatalf("\nwanted:\nno files\ngot:\n%v", got)
		}
	})

	t.Run("should trust content over the file name", func(t *testing.T) {
		root := t.TempDir()
		uploader := New(PackageImages(root, 5<<20), nil)

		files := formFiles(t, "images", testFile{name: "disfarce.png", data: []byte("plain text posing as png")})

		if _, err := uploader.Save(files); !errors.Is(err, ErrInvalidType) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrInvalidType, err)
		}
	})

	t.Run("should reject oversized files", func(t *testing.T) {
		root := t.TempDir()
		data := pngBytes(t)
		uploader := New(PackageImages(root, int64(len(data)-1)), nil)

		files := formFiles(t, "images", testFile{name: "grande.png", data: data})

		if _, err := uploader.Save(files); !errors.Is(err, ErrTooLarge) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrTooLarge, err)
		}
		if got := dirEntries(t, filepath.Join(root, "packages")); len(got) != 0 {
			t.Fatalf("\nwanted:\nno files\ngot:\n%v", got)
		}
	})

	t.Run("should reject more files than allowed", func(t *testing.T) {
		root := t.TempDir()
		uploader := New(PackageImages(root, 5<<20), nil)

		data := pngBytes(t)
		var many []testFile
		for i := 0; i < 6; i++ {
			many = append(many, testFile{name: "f.png", data: data})
		}

		if _, err := uploader.Save(formFiles(t, "images", many...)); !errors.Is(err, ErrTooManyFiles) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrTooManyFiles, err)
		}
	})

	t.Run("should reject an empty request", func(t *testing.T) {
		uploader := New(PackageImages(t.TempDir(), 5<<20), nil)

		if _, err := uploader.Save(nil); !errors.Is(err, ErrNoFiles) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrNoFiles, err)
		}
	})
}

func TestExtension(t *testing.T) {
	pngType := mimetype.Lookup("image/png")

	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{name: "lower-cases the original extension", filename: "Foto.JPG", want: ".jpg"},
		{name: "falls back when there is none", filename: "foto", want: ".png"},
		{name: "falls back on odd characters", filename: "foto.p$g", want: ".png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extension(tt.filename, pngType); got != tt.want {
				t.Fatalf("\nwanted:\n%q\ngot:\n%q", tt.want, got)
			}
		})
	}
}
