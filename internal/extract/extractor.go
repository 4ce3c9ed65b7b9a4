// Package extract turns raw profile files into depth-resolved
// measurements, applying the archive's per-level quality-control flags.
// The binary decoding lives behind the Extractor so the rest of the
// pipeline never sees file structure.
package extract

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Ayushi40804/visualize-ocean/internal/domain"
	"github.com/Ayushi40804/visualize-ocean/internal/regions"
)

// Profile timestamps are days since this epoch (the JULD convention).
var juldEpoch = time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC)

// defaultFill is assumed when a variable declares no _FillValue.
const defaultFill = 99999.0

// Extractor parses profile files into measurements.
type Extractor struct {
	regionMap *regions.Map
}

// NewExtractor creates an extractor that labels measurements with the
// given region map.
func NewExtractor(regionMap *regions.Map) *Extractor {
	if regionMap == nil {
		regionMap = regions.Empty("Open Ocean")
	}
	return &Extractor{regionMap: regionMap}
}

// Extract decodes one profile file. The returned dropped count is the
// number of levels discarded by QC gating or missing values; routine
// filtering, not an error. A file whose structure cannot be decoded at
// all returns a *domain.ParseError.
func (e *Extractor) Extract(raw *domain.RawProfileFile) ([]domain.Measurement, int, error) {
	f, err := DecodeCDF(raw.Data)
	if err != nil {
		return nil, 0, &domain.ParseError{FileRef: raw.FileRef, Err: err}
	}

	pres, presShape, err := readProfileVar(f, "PRES")
	if err != nil {
		return nil, 0, &domain.ParseError{FileRef: raw.FileRef, Err: err}
	}
	nProf, nLevels := presShape[0], presShape[1]

	juld, err := f.ReadFloats("JULD")
	if err != nil {
		return nil, 0, &domain.ParseError{FileRef: raw.FileRef, Err: fmt.Errorf("no time axis: %w", err)}
	}
	lats, err := f.ReadFloats("LATITUDE")
	if err != nil {
		return nil, 0, &domain.ParseError{FileRef: raw.FileRef, Err: fmt.Errorf("no coordinates: %w", err)}
	}
	lons, err := f.ReadFloats("LONGITUDE")
	if err != nil {
		return nil, 0, &domain.ParseError{FileRef: raw.FileRef, Err: fmt.Errorf("no coordinates: %w", err)}
	}

	floatIDs := platformNumbers(f, nProf)

	temp := levelVar(f, "TEMP", nProf, nLevels)
	psal := levelVar(f, "PSAL", nProf, nLevels)
	doxy := levelVar(f, "DOXY", nProf, nLevels)
	ph := levelVar(f, "PH_IN_SITU_TOTAL", nProf, nLevels)

	presFill := fillValueOf(f, "PRES")
	juldFill := fillValueOf(f, "JULD")

	var (
		out     []domain.Measurement
		dropped int
	)

	for i := 0; i < nProf; i++ {
		if i >= len(juld) || !validValue(juld[i], juldFill) {
			dropped += nLevels
			continue
		}
		ts := juldEpoch.Add(time.Duration(juld[i] * float64(24*time.Hour)))
		lat := indexOrLast(lats, i)
		lon := indexOrLast(lons, i)
		region := e.regionMap.Classify(lat, lon)
		floatID := floatIDs[i]

		for j := 0; j < nLevels; j++ {
			p := pres[i*nLevels+j]
			if !validValue(p, presFill) || p < 0 {
				dropped++
				continue
			}

			tVal, tFlag, tOK := temp.at(i, j)
			sVal, sFlag, sOK := psal.at(i, j)
			if !tOK || !sOK {
				dropped++
				continue
			}

			m := domain.Measurement{
				FloatID:     floatID,
				Latitude:    lat,
				Longitude:   lon,
				Timestamp:   ts,
				Pressure:    p,
				Depth:       p, // pressure in dbar approximates depth in meters
				Temperature: tVal,
				Salinity:    sVal,
				QCFlag:      worstFlag(tFlag, sFlag),
				Region:      region,
			}
			if v, _, ok := doxy.at(i, j); ok {
				m.DissolvedOxygen = &v
			}
			if v, _, ok := ph.at(i, j); ok {
				m.Ph = &v
			}
			out = append(out, m)
		}
	}

	log.Debug().
		Str("file_ref", raw.FileRef).
		Int("measurements", len(out)).
		Int("dropped", dropped).
		Msg("Extracted profile file")

	return out, dropped, nil
}

// readProfileVar reads a per-level variable and normalizes its shape to
// (profiles, levels). Single-profile files store it one-dimensional.
func readProfileVar(f *CDFFile, name string) ([]float64, [2]int, error) {
	vals, err := f.ReadFloats(name)
	if err != nil {
		return nil, [2]int{}, err
	}
	shape, err := f.Shape(name)
	if err != nil {
		return nil, [2]int{}, err
	}
	switch len(shape) {
	case 1:
		return vals, [2]int{1, shape[0]}, nil
	case 2:
		return vals, [2]int{shape[0], shape[1]}, nil
	default:
		return nil, [2]int{}, fmt.Errorf("variable %s: unexpected rank %d", name, len(shape))
	}
}

// qcVar is one physical variable together with its per-level QC flags.
type qcVar struct {
	values  []float64
	flags   []byte
	fill    float64
	nLevels int
	present bool
}

// levelVar loads a per-level variable and its _QC companion. A missing
// variable yields a zero qcVar whose at() always reports not-ok.
func levelVar(f *CDFFile, name string, nProf, nLevels int) qcVar {
	if !f.HasVariable(name) {
		return qcVar{}
	}
	vals, shape, err := readProfileVar(f, name)
	if err != nil || shape[0] != nProf || shape[1] != nLevels {
		return qcVar{}
	}
	v := qcVar{
		values:  vals,
		fill:    fillValueOf(f, name),
		nLevels: nLevels,
		present: true,
	}
	if flags, err := f.ReadChars(name + "_QC"); err == nil {
		v.flags = flags
	}
	return v
}

// at returns the value and flag at (profile, level). ok is false when the
// variable is absent, the value is missing, or QC rejects it. Files
// without a QC companion are treated as unflagged good data.
func (v *qcVar) at(i, j int) (float64, byte, bool) {
	if !v.present {
		return 0, 0, false
	}
	idx := i*v.nLevels + j
	if idx >= len(v.values) {
		return 0, 0, false
	}
	val := v.values[idx]
	if !validValue(val, v.fill) {
		return 0, 0, false
	}
	flag := byte(domain.QCGood)
	if idx < len(v.flags) {
		flag = v.flags[idx]
	}
	if !domain.AcceptedQC(flag) {
		return 0, 0, false
	}
	return val, flag, true
}

// indexOrLast returns vals[i], or the last element when the variable has
// fewer entries than profiles (some files share one position row).
func indexOrLast(vals []float64, i int) float64 {
	if len(vals) == 0 {
		return 0
	}
	if i < len(vals) {
		return vals[i]
	}
	return vals[len(vals)-1]
}

// worstFlag keeps the more pessimistic of two accepted flags
func worstFlag(a, b byte) byte {
	if a == domain.QCProbablyGood || b == domain.QCProbablyGood {
		return domain.QCProbablyGood
	}
	return domain.QCGood
}

// validValue treats the declared fill value and NaN as missing, never as
// zero.
func validValue(v, fill float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return math.Abs(v-fill) > 1e-6
}

// fillValueOf returns the variable's declared _FillValue, or the format's
// conventional default.
func fillValueOf(f *CDFFile, name string) float64 {
	switch v := f.VarAttr(name, "_FillValue").(type) {
	case float64:
		return v
	case []float64:
		if len(v) > 0 {
			return v[0]
		}
	}
	return defaultFill
}

// platformNumbers resolves the per-profile float identifier from the
// PLATFORM_NUMBER char array, falling back to a global attribute.
func platformNumbers(f *CDFFile, nProf int) []string {
	ids := make([]string, nProf)
	fallback := "unknown"
	if v, ok := f.Attributes["platform_number"].(string); ok && v != "" {
		fallback = strings.TrimSpace(v)
	}
	for i := range ids {
		ids[i] = fallback
	}

	if !f.HasVariable("PLATFORM_NUMBER") {
		return ids
	}
	chars, err := f.ReadChars("PLATFORM_NUMBER")
	if err != nil {
		return ids
	}
	shape, err := f.Shape("PLATFORM_NUMBER")
	if err != nil || len(shape) != 2 || shape[0] == 0 {
		return ids
	}
	width := shape[1]
	for i := 0; i < nProf && (i+1)*width <= len(chars); i++ {
		id := strings.TrimRight(string(chars[i*width:(i+1)*width]), "\x00 ")
		id = strings.TrimSpace(id)
		if id != "" {
			ids[i] = id
		}
	}
	return ids
}
