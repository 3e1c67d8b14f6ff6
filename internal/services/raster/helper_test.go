package raster

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/profyagosales/correction-engine-api/internal/services/document"
)

// decodeTestDoc builds and decodes a minimal multi-page PDF. Pages are
// US Letter (612x792 points) and empty.
func decodeTestDoc(t *testing.T, pages int) *document.Handle {
	t.Helper()

	var buf bytes.Buffer
	offsets := make([]int, 0, pages+2)
	object := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.4\n")
	object("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	object(fmt.Sprintf(
		"2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>\nendobj\n",
		kids, pages))
	for i := 0; i < pages; i++ {
		object(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R >>\nendobj\n", 3+i))
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefOffset)

	h, err := document.Decode("test.pdf", buf.Bytes())
	if err != nil {
		t.Fatalf("decoding test document: %v", err)
	}
	return h
}

// decodeBrokenDoc builds a single-page PDF whose content stream is garbage
// the library chokes on, but whose structure decodes fine.
func decodeBrokenDoc(t *testing.T) *document.Handle {
	t.Helper()

	stream := "q Q Q Q ) ] >> garbage"
	var buf bytes.Buffer
	offsets := make([]int, 0, 4)
	object := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.4\n")
	object("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	object("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>\nendobj\n")
	object("3 0 obj\n<< /Type /Page /Parent 2 0 R /Contents 4 0 R >>\nendobj\n")
	object(fmt.Sprintf("4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n",
		len(stream)+1, stream))

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefOffset)

	h, err := document.Decode("broken.pdf", buf.Bytes())
	if err != nil {
		t.Fatalf("decoding broken test document: %v", err)
	}
	return h
}
