package detail_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/tenderwatch/internal/detail"
)

// madridHTML models a Comunidad de Madrid tender page: label/value blocks
// and a structured CPV table under a heading.
const madridHTML = `<!DOCTYPE html>
<html>
<body>
  <h1>Obras de impermeabilización de cubierta</h1>
  <div>
    <span>Órgano de contratación</span>
    <span>Consejería de Vivienda</span>
  </div>
  <div>
    <span>Presupuesto base de licitación</span>
    <span>245.678,90 € (IVA incluido)</span>
  </div>
  <p>Número de expediente: A/2025/004321</p>
  <h3>Códigos CPV</h3>
  <table>
    <tr><td>45261215-4</td><td>Trabajos de cubierta</td></tr>
    <tr><td>45261000</td><td>Trabajos de estructura</td></tr>
  </table>
</body>
</html>`

// galiciaHTML models a PcPG page with Galician labels and no CPV table, so
// code extraction falls back to whole-page regex.
const galiciaHTML = `<!DOCTYPE html>
<html>
<body>
  <h2>Subministración de paneis solares</h2>
  <div>
    <span>Organismo</span>
    <span>Concello de Vigo</span>
  </div>
  <p>Expediente CON/2025/88 · CPV 09330000-1</p>
  <p>Orzamento: 99.500,00 €</p>
</body>
</html>`

// bareHTML has no labels, headings beyond h2, or tables.
const bareHTML = `<html><body>
  <h2>Anuncio de licitación</h2>
  <p>Expediente OBR/2025/15. Importe 12.345,67 €. CPV: 45315300-1.</p>
</body></html>`

func parse(t *testing.T, raw string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	require.NoError(t, err)
	return doc
}

func TestRegistryLookupExact(t *testing.T) {
	r := detail.NewRegistry()

	_, matched := r.Lookup("contratos-publicos.comunidad.madrid")
	assert.True(t, matched)

	_, matched = r.Lookup("www.contratosdegalicia.gal")
	assert.True(t, matched)
}

func TestRegistryLookupSuffix(t *testing.T) {
	r := detail.NewRegistry()

	// A subdomain of a registered portal hits the portal extractor.
	_, matched := r.Lookup("perfil.contratosdegalicia.gal")
	assert.True(t, matched)
}

func TestRegistryLookupCaseInsensitive(t *testing.T) {
	r := detail.NewRegistry()

	_, matched := r.Lookup("Contratos-Publicos.Comunidad.Madrid")
	assert.True(t, matched)
}

func TestRegistryLookupUnknownFallsBack(t *testing.T) {
	r := detail.NewRegistry()

	e, matched := r.Lookup("tenders.example.org")
	assert.False(t, matched)
	require.NotNil(t, e)

	// The fallback still extracts whole-page fields.
	fields := e.Extract(parse(t, bareHTML))
	assert.Equal(t, "Anuncio de licitación", fields.Title)
	assert.Equal(t, "OBR/2025/15", fields.CaseID)
	assert.Equal(t, "12.345,67 €", fields.Amount)
	assert.Equal(t, []string{"45315300"}, fields.CPV)
}

func TestMadridExtractor(t *testing.T) {
	r := detail.NewRegistry()
	e, matched := r.Lookup("contratos-publicos.comunidad.madrid")
	require.True(t, matched)

	fields := e.Extract(parse(t, madridHTML))

	assert.Equal(t, "Obras de impermeabilización de cubierta", fields.Title)
	assert.Equal(t, "A/2025/004321", fields.CaseID)
	assert.Equal(t, "Consejería de Vivienda", fields.Authority)
	assert.Equal(t, "245.678,90 €", fields.Amount)
	// Codes come from the table's first column, leading 8 digits only.
	assert.Equal(t, []string{"45261000", "45261215"}, fields.CPV)
}

func TestGaliciaExtractorFallbackCPV(t *testing.T) {
	r := detail.NewRegistry()
	e, matched := r.Lookup("contratosdegalicia.gal")
	require.True(t, matched)

	fields := e.Extract(parse(t, galiciaHTML))

	assert.Equal(t, "Subministración de paneis solares", fields.Title)
	assert.Equal(t, "CON/2025/88", fields.CaseID)
	assert.Equal(t, "Concello de Vigo", fields.Authority)
	assert.Equal(t, "99.500,00 €", fields.Amount)
	// No CPV table on the page: whole-page regex extraction applies.
	assert.Equal(t, []string{"09330000"}, fields.CPV)
}

func TestExtractorsTolerateMissingFields(t *testing.T) {
	r := detail.NewRegistry()
	e, _ := r.Lookup("contratos-publicos.comunidad.madrid")

	fields := e.Extract(parse(t, `<html><body><p>página vacía</p></body></html>`))

	assert.Empty(t, fields.Title)
	assert.Empty(t, fields.CaseID)
	assert.Empty(t, fields.Authority)
	assert.Empty(t, fields.Amount)
	assert.Empty(t, fields.CPV)
}
