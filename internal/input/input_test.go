package input

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"plain", []byte("Smith, J. (2019)."), "Smith, J. (2019)."},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "Émotions"...), "Émotions"},
		{"utf16le bom", []byte{0xFF, 0xFE, 'A', 0, 'b', 0}, "Ab"},
		{"utf16be bom", []byte{0xFE, 0xFF, 0, 'A', 0, 'b'}, "Ab"},
		{"windows-1252", []byte("Caf\xe9 \x93quoted\x94"), "Café “quoted”"},
		{"nfkc ligature", []byte("ﬁsh"), "fish"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeEmpty(t *testing.T) {
	for _, data := range [][]byte{nil, []byte(" \n\t"), {0xEF, 0xBB, 0xBF}} {
		if _, err := Decode(data); !errors.Is(err, ErrEmpty) {
			t.Errorf("Decode(%q) error = %v, want ErrEmpty", data, err)
		}
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.txt")
	if err := os.WriteFile(path, []byte("[1] A reference.\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got != "[1] A reference.\n" {
		t.Errorf("ReadFile() = %q", got)
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("ReadFile() on a missing file returned no error")
	}
}

func TestReadFileBrokenPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\nnot really a pdf"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(path); err == nil {
		t.Error("ReadFile() on a broken PDF returned no error")
	}
}
