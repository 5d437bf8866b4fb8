// Package provenance stamps canonical payloads with their origin. The
// metadata is a pure function of the source bytes and extraction
// context: tagging the same document twice always yields the same
// record, which is what makes backfilled months auditable years later.
package provenance

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"meralcocli/pkg/contracts/domain"
)

// ParserVersion identifies the canonicalization logic revision. Bump it
// whenever keyword rules, bracket parsing or value cleaning change
// behavior, so republished months are distinguishable from their
// earlier extractions.
const ParserVersion = "v3_generic"

// Digest returns the lowercase hex SHA-256 of the raw document bytes.
func Digest(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Tag builds the provenance record for one extracted document.
func Tag(sourceURL, itemURL string, raw []byte, signature domain.LayoutSignature, fetchedAt time.Time) domain.ProvenanceMetadata {
	return domain.ProvenanceMetadata{
		SourcePDFURL:         sourceURL,
		SourceItemURL:        itemURL,
		PDFSHA256:            Digest(raw),
		TableLayoutSignature: signature,
		FetchedAt:            fetchedAt.UTC(),
		ParserVersion:        ParserVersion,
	}
}
