package daemon

import (
	"bytes"
	"fmt"
	"io"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

const maxPDFSize = 32 << 20

func init() {
	pdfapi.DisableConfigDir()
}

// checkPDF reads one statement and validates its structure.
func checkPDF(r io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(r, maxPDFSize+1))
	if err != nil {
		return err
	}
	if len(data) > maxPDFSize {
		return fmt.Errorf("larger than %d MiB", maxPDFSize>>20)
	}

	return pdfapi.Validate(bytes.NewReader(data), nil)
}
