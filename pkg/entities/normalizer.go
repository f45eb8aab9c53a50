package entities

import "github.com/caseforge/caseforge/pkg/models"

// Record is a single normalized entity plus its provenance.
type Record struct {
	Type             models.EntityType
	Value            string
	OriginalField    string
	OriginalValue    string
	Confidence       float64
	ValidationPassed bool
}

// Normalizer turns raw case fields into the canonical entity bag.
type Normalizer struct{}

// NewNormalizer builds a Normalizer. It holds no state; resolution order
// and validation rules are fixed package-level tables.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize resolves one entity per type from raw case data (first
// matching field wins) and returns both the per-record detail and the
// canonical bag built from the deduped normalized values, including values
// that failed validation.
func (n *Normalizer) Normalize(raw map[string]interface{}) ([]Record, models.EntityBag) {
	var records []Record
	var bag models.EntityBag

	for _, t := range []models.EntityType{models.EntityUser, models.EntityHost, models.EntityIP, models.EntityDomain} {
		rawValue, field := resolve(raw, resolutionOrder[t])
		if rawValue == "" {
			continue
		}

		var nv normalizedValue
		switch t {
		case models.EntityUser:
			nv = normalizeUser(rawValue)
		case models.EntityHost:
			nv = normalizeHost(rawValue)
		case models.EntityIP:
			nv = normalizeIP(rawValue)
		case models.EntityDomain:
			nv = normalizeDomain(rawValue)
		}

		records = append(records, Record{
			Type:             t,
			Value:            nv.Value,
			OriginalField:    field,
			OriginalValue:    rawValue,
			Confidence:       nv.Confidence,
			ValidationPassed: nv.ValidationPassed,
		})
		bag.Add(t, nv.Value)
	}

	return records, bag
}
