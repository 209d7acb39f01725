// Package features turns raw track rows into the numeric feature table the
// similarity engines rank against.
package features

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/cesargomez89/mias/internal/constants"
	"github.com/cesargomez89/mias/internal/domain"
	"github.com/cesargomez89/mias/internal/logger"
)

// Pipeline transforms a raw track table into a feature table keyed by uri.
//
// When reuse is nil the pipeline fits a new text model on the batch and
// returns it. When reuse is set its vocabulary and idf weights are applied
// unchanged and the same model is returned.
type Pipeline interface {
	Transform(raw *RawTable, reuse *TextModel) (*Table, *TextModel, error)
}

// SelectedColumns are the raw columns the pipeline reads; every other
// column is dropped.
var SelectedColumns = []string{
	domain.ColURI, domain.ColArtistPop, domain.ColArtistGenres, domain.ColTrackPop,
	domain.ColDanceability, domain.ColEnergy, domain.ColKey, domain.ColLoudness,
	domain.ColMode, domain.ColSpeechiness, domain.ColAcousticness,
	domain.ColInstrumentalness, domain.ColLiveness, domain.ColValence,
	domain.ColTempo, domain.ColDurationMs, domain.ColTimeSignature,
}

// CategoricalColumns are one-hot encoded, in this order.
var CategoricalColumns = []string{domain.ColMode, domain.ColKey, domain.ColTimeSignature}

// GenrePrefix prefixes every text-frequency column name.
const GenrePrefix = "genre|"

// CosinePipeline is the reference pipeline: column selection, batch driven
// one-hot encoding, min-max scaling and genre TF-IDF.
type CosinePipeline struct {
	TermCap int
	log     *logger.Logger
}

func NewCosinePipeline(log *logger.Logger) *CosinePipeline {
	if log == nil {
		log = logger.Discard()
	}
	return &CosinePipeline{
		TermCap: constants.GenreTermCap,
		log:     log.WithComponent("pipeline"),
	}
}

var _ Pipeline = (*CosinePipeline)(nil)

func (p *CosinePipeline) Transform(raw *RawTable, reuse *TextModel) (*Table, *TextModel, error) {
	if err := checkSchema(raw); err != nil {
		return nil, nil, err
	}

	keys, err := rowKeys(raw)
	if err != nil {
		return nil, nil, err
	}
	n := len(keys)

	numericCols := numericColumns()
	p.log.Debug("After select columns", "rows", n, "cols", len(numericCols)+len(CategoricalColumns)+2)

	numeric := make([][]float64, len(numericCols))
	for j, col := range numericCols {
		vals, err := parseColumn(raw, col, keys)
		if err != nil {
			return nil, nil, err
		}
		numeric[j] = vals
	}

	var oheCols []string
	var ohe [][]float64
	for _, col := range CategoricalColumns {
		names, vals, err := oneHot(raw, col, keys)
		if err != nil {
			return nil, nil, err
		}
		oheCols = append(oheCols, names...)
		ohe = append(ohe, vals...)
	}
	p.log.Debug("After ohe", "rows", n, "cols", len(numericCols)+len(oheCols)+2)

	for _, vals := range numeric {
		minMaxScale(vals)
	}
	p.log.Debug("After scaling", "rows", n, "cols", len(numericCols)+len(oheCols)+2)

	docs := make([]string, n)
	for r := range docs {
		docs[r] = raw.Get(r, domain.ColArtistGenres)
	}
	model := reuse
	if model == nil {
		model, err = FitTextModel(docs, p.TermCap)
		if err != nil {
			return nil, nil, err
		}
	}
	genre := model.Transform(docs)
	genreCols := make([]string, 0, len(model.vocabulary))
	for _, term := range model.vocabulary {
		genreCols = append(genreCols, GenrePrefix+term)
	}
	p.log.Debug("After tfidf", "rows", n, "cols", len(numericCols)+len(oheCols)+len(genreCols)+1,
		"documents", model.DocCount(), "refit", reuse == nil)

	columns := slices.Concat(numericCols, oheCols, genreCols)
	rows := make([][]float64, n)
	for r := range rows {
		row := make([]float64, 0, len(columns))
		for _, vals := range numeric {
			row = append(row, vals[r])
		}
		for _, vals := range ohe {
			row = append(row, vals[r])
		}
		row = append(row, genre[r]...)
		rows[r] = row
	}

	table, err := NewTable(keys, columns, rows)
	if err != nil {
		return nil, nil, err
	}
	p.log.Debug("After index reset", "rows", table.Len(), "cols", table.Width())
	return table, model, nil
}

// numericColumns lists the selected columns that pass through as scaled
// numbers, in selection order.
func numericColumns() []string {
	var out []string
	for _, c := range SelectedColumns {
		if c == domain.ColURI || c == domain.ColArtistGenres || slices.Contains(CategoricalColumns, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func checkSchema(raw *RawTable) error {
	var missing []string
	for _, c := range SelectedColumns {
		if !raw.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

func rowKeys(raw *RawTable) ([]string, error) {
	keys := raw.Keys()
	seen := make(map[string]bool, len(keys))
	for r, k := range keys {
		if k == "" {
			return nil, &InvalidValueError{Column: domain.ColURI, Row: r, Reason: "empty key"}
		}
		if seen[k] {
			return nil, &InvalidValueError{Column: domain.ColURI, Row: r, URI: k, Value: k, Reason: "duplicate key"}
		}
		seen[k] = true
	}
	return keys, nil
}

func parseCell(raw *RawTable, r int, col, key string) (float64, error) {
	cell := strings.TrimSpace(raw.Get(r, col))
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, &InvalidValueError{Column: col, Row: r, URI: key, Value: cell, Reason: "not a number"}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &InvalidValueError{Column: col, Row: r, URI: key, Value: cell, Reason: "not finite"}
	}
	return v, nil
}

func parseColumn(raw *RawTable, col string, keys []string) ([]float64, error) {
	vals := make([]float64, len(keys))
	for r, key := range keys {
		v, err := parseCell(raw, r, col, key)
		if err != nil {
			return nil, err
		}
		vals[r] = v
	}
	return vals, nil
}

// oneHot returns one indicator column per distinct value of col in this
// batch, sorted by value and named "<col>_<value>".
func oneHot(raw *RawTable, col string, keys []string) ([]string, [][]float64, error) {
	vals, err := parseColumn(raw, col, keys)
	if err != nil {
		return nil, nil, err
	}

	distinct := slices.Clone(vals)
	slices.Sort(distinct)
	distinct = slices.Compact(distinct)

	names := make([]string, len(distinct))
	pos := make(map[float64]int, len(distinct))
	for i, v := range distinct {
		names[i] = col + "_" + categoryLabel(v)
		pos[v] = i
	}

	out := make([][]float64, len(distinct))
	for i := range out {
		out[i] = make([]float64, len(vals))
	}
	for r, v := range vals {
		out[pos[v]][r] = 1
	}
	return names, out, nil
}

func categoryLabel(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// minMaxScale rescales vals in place to [0,1]. A constant column maps to 0.
func minMaxScale(vals []float64) {
	if len(vals) == 0 {
		return
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo
	for i, v := range vals {
		if span == 0 {
			vals[i] = 0
			continue
		}
		vals[i] = (v - lo) / span
	}
}
