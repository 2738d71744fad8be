package e2e

import (
	"strings"
	"testing"

	"github.com/covebank/teller/internal/extract"
)

func TestWriteMinimalFileExtractable(t *testing.T) {
	ex := extract.NewExtractor()
	for _, ext := range []string{".txt", ".md", ".docx", ".xlsx"} {
		content, err := WriteMinimalFile(ext, "overdraft fees are waived once per year")
		if err != nil {
			t.Fatalf("%s: %v", ext, err)
		}
		text, err := ex.ExtractBytes(content, ext)
		if err != nil {
			t.Fatalf("%s: extract: %v", ext, err)
		}
		if !strings.Contains(text, "overdraft fees") {
			t.Errorf("%s: extracted %q", ext, text)
		}
	}
}
