// Package staging normalizes spreadsheet rows into the transient import
// relation and reconciles the artifact sheet against it.
package staging

import (
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgtype"
)

// Collected-material categories a staging row can carry.
const (
	CmBulk      = "bulk"
	CmSample    = "sample"
	CmSmallFind = "small_find"
)

// SampleArchDomain is the literal arch_domain tag for sample rows.
const SampleArchDomain = "S"

var (
	contextPattern = regexp.MustCompile(`^[A-D]\d{3}$`)
	trenchPattern  = regexp.MustCompile(`^[A-D]$`)
)

// ValidContext reports whether a raw context cell matches the trench-prefixed
// three-digit pattern (e.g. "A123").
func ValidContext(context string) bool {
	return contextPattern.MatchString(context)
}

// ValidTrench reports whether a trench cell is a single known trench letter.
func ValidTrench(trench string) bool {
	return trenchPattern.MatchString(trench)
}

// FormatLocus turns a raw context "A123" into the locus identifier "A-123".
func FormatLocus(context string) string {
	return fmt.Sprintf("%s-%s", context[:1], context[1:])
}

// ArchContext derives the production key for a lot within its locus:
// "A-123" and lot "5" yield "A-123-5".
func ArchContext(locus, lot string) string {
	return fmt.Sprintf("%s-%s", locus, lot)
}

// Record is one normalized staging row produced from a Lots or Samples sheet
// entry. The lot number is the natural key of the staging relation.
type Record struct {
	LineRef      int
	CmType       string
	Lot          string
	Locus        string
	Unit         string
	ArchDomain   pgtype.Text
	ArchContext  string
	LocalNr      int
	Type         pgtype.Text
	DateExcavated pgtype.Timestamp
	DateEntered  pgtype.Timestamp
	Photographed bool
	Description  pgtype.Text
	Count        pgtype.Float8
	Location     pgtype.Text
}

// SmallFindUpdate carries the artifact-sheet fields attached to an existing
// staging row during the reconciliation pass.
type SmallFindUpdate struct {
	LineRef         int
	Lot             string
	Locus           string
	SfType          pgtype.Text
	SfMeasures      pgtype.Text
	LengthMM        pgtype.Float8
	HeightMM        pgtype.Float8
	WidthMM         pgtype.Float8
	ThicknessMM     pgtype.Float8
	DiameterMM      pgtype.Float8
	DiameterPerfMM  pgtype.Float8
	Weight          pgtype.Float8
	SfDescription   pgtype.Text
	SfDateExcavated pgtype.Timestamp
	SfDateEntered   pgtype.Timestamp
	SfPhotographed  bool
}
