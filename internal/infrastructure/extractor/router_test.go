package extractor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestRouterReadsMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.md")
	if err := os.WriteFile(path, []byte("# Title\n\nbody"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := NewRouter().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "# Title\n\nbody" {
		t.Fatalf("got %q", got)
	}
}

func TestRouterRejectsBinaryText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.md")
	if err := os.WriteFile(path, []byte{0xff, 0xfe, 0x00}, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewRouter().Extract(context.Background(), path); err == nil {
		t.Fatalf("expected invalid utf-8 error")
	}
}

func TestRouterReadsWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trips.xlsx")
	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "Peak")
	_ = f.SetCellValue("Sheet1", "B1", "Height")
	_ = f.SetCellValue("Sheet1", "A2", "Eiger")
	_ = f.SetCellValue("Sheet1", "B2", "3967")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	got, err := NewRouter().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "## Sheet1\nPeak\tHeight\nEiger\t3967" {
		t.Fatalf("got %q", got)
	}
}

func TestRouterReportsBrokenPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewRouter().Extract(context.Background(), path); err == nil {
		t.Fatalf("expected pdf error")
	}
}

func TestRouterMissingFile(t *testing.T) {
	if _, err := NewRouter().Extract(context.Background(), "/nonexistent/note.md"); err == nil {
		t.Fatalf("expected error")
	}
}
