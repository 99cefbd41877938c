// Package output serializes tender records through the fixed column schema.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/jonesrussell/tenderwatch/internal/domain"
)

// Columns is the fixed output column order. Missing fields render as empty
// strings.
var Columns = []string{
	"fuente",
	"expediente",
	"objeto",
	"organo",
	"estado",
	"importe",
	"cpv",
	"fecha_published",
	"fecha_updated",
	"enlace",
}

// Write emits the header and one row per record.
func Write(w io.Writer, records []domain.TenderRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := range records {
		if err := cw.Write(row(&records[i])); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	return nil
}

// WriteFile writes records to path, creating or truncating it.
func WriteFile(path string, records []domain.TenderRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := Write(f, records); err != nil {
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	return nil
}

func row(r *domain.TenderRecord) []string {
	return []string{
		r.Source,
		r.CaseID,
		r.Title,
		r.Authority,
		r.Status,
		r.Amount,
		r.CPVJoined(),
		r.Published,
		r.Updated,
		r.Link,
	}
}
