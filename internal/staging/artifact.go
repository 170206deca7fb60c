package staging

import (
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"
)

// ArtifactResult is the outcome of normalizing one Artifacts-sheet row.
// Accepted artifact rows carry an update for an existing staging record
// rather than a new record; the cross-sheet join happens in the loader.
type ArtifactResult struct {
	Kind   ResultKind
	Update *SmallFindUpdate
	Reason string
}

// Artifact normalizes one row of the Artifacts sheet.
//
// Column order: lot number, context, trench, type, date excavated, other
// dimensions, weight, description, date entered, photographed?.
func (n *Normalizer) Artifact(row []string, rowNr int) ArtifactResult {
	if cell(row, 0) == "" {
		return ArtifactResult{Kind: Terminate}
	}

	lotNr, err := strconv.Atoi(cell(row, 0))
	if err != nil || lotNr <= 0 {
		n.rep.Warnf("Line %d: invalid lot number %q. Line skipped.", rowNr, cell(row, 0))
		return ArtifactResult{Kind: Skipped, Reason: "invalid lot number"}
	}
	lot := strconv.Itoa(lotNr)

	context, ok := n.checkContext(row, rowNr, lot)
	if !ok {
		return ArtifactResult{Kind: Skipped, Reason: "invalid context"}
	}
	if !n.checkTrench(row, rowNr, lot, context) {
		return ArtifactResult{Kind: Skipped, Reason: "invalid trench"}
	}

	upd := &SmallFindUpdate{
		LineRef:        rowNr,
		Lot:            lot,
		Locus:          FormatLocus(context),
		SfDescription:  toText(cell(row, 7)),
		SfPhotographed: cell(row, 9) != "",
	}

	upd.SfType = n.checkType(row, rowNr, lot)
	if upd.SfType.Valid {
		upd.SfType = toText(MapMaterial(upd.SfType.String))
	} else if upd.SfDescription.Valid {
		// The registrars often leave the type blank when the description
		// names the object; fall back to inferring it.
		if inferred, ok := InferSmallFindType(upd.SfDescription.String); ok {
			n.rep.Infof("Line %d, lot# %s: type inferred as %q from the description.", rowNr, lot, inferred)
			upd.SfType = toText(inferred)
		}
	}

	upd.SfDateExcavated = n.checkDate(cell(row, 4), rowNr, lot, "date excavated", true)
	upd.SfDateEntered = n.checkDate(cell(row, 8), rowNr, lot, "date entered", false)

	if measures := cell(row, 5); measures != "" {
		upd.SfMeasures = toText(measures)
		tokens, issues := ParseMeasures(measures)
		for _, issue := range issues {
			n.rep.Infof("Line %d, lot# %s: other dimensions has part %q that I can't interpret (%s). That part is dropped.",
				rowNr, lot, issue.Fragment, issue.Reason)
		}
		for _, tok := range tokens {
			n.assignDimension(upd, tok, rowNr, lot)
		}
	}

	if raw := cell(row, 6); raw != "" {
		grams, err := ParseGrams(raw)
		if err != nil {
			n.rep.Infof("Line %d, lot# %s: weight %q looks fishy (%v). Value dropped.", rowNr, lot, raw, err)
		} else {
			upd.Weight = pgtype.Float8{Float64: grams, Valid: true}
		}
	}

	return ArtifactResult{Kind: Accepted, Update: upd}
}

// assignDimension stores a parsed measurement token into its staging column,
// normalized to millimeters.
func (n *Normalizer) assignDimension(upd *SmallFindUpdate, tok Token, rowNr int, lot string) {
	mm := pgtype.Float8{Float64: tok.Millimeters(), Valid: true}
	switch tok.Dim {
	case DimLength:
		upd.LengthMM = mm
	case DimWidth:
		upd.WidthMM = mm
	case DimHeight:
		upd.HeightMM = mm
	case DimThickness:
		upd.ThicknessMM = mm
	case DimDiameter:
		upd.DiameterMM = mm
	case DimPerforation:
		upd.DiameterPerfMM = mm
	case DimWeight:
		// Weight belongs in its own column; a weight token inside the
		// dimensions field is dropped rather than guessed at.
		n.rep.Errorf("Line %d, lot# %s: other dimensions has a weight part %q. That part is dropped.", rowNr, lot, tok.Raw)
	}
}
