// Package snapshot maps the collector's JSON document to typed records and
// back. Absent keys become MissingField diagnostics, never errors.
package snapshot

import (
	"encoding/json"
	"fmt"

	"MarketBrief/internal/domain/models"
	"MarketBrief/internal/services/marketdata"
)

// View is a snapshot together with every record parsed out of it.
type View struct {
	Snapshot    models.MarketSnapshot `json:"-"`
	Indices     []models.IndexRecord  `json:"indices"`
	Equities    []models.EquityRecord `json:"equities"`
	Indicators  []models.Indicator    `json:"indicators"`
	News        []models.NewsItem     `json:"news"`
	NewsSkipped int                   `json:"news_skipped"`
	Unavailable []string              `json:"unavailable,omitempty"`
	Diagnostics []models.Diagnostic   `json:"diagnostics,omitempty"`
}

// Available reports whether field was present in the document.
func (v *View) Available(field string) bool {
	for _, f := range v.Unavailable {
		if f == field {
			return false
		}
	}
	return true
}

// Decoded is a snapshot document together with what decoding could not recover.
type Decoded struct {
	Doc models.SnapshotDocument
	// Missing lists keys that are absent or null.
	Missing []string
	// Invalid lists keys whose value has the wrong shape.
	Invalid     []string
	Diagnostics []models.Diagnostic
}

// Decode unmarshals a snapshot document key by key. A key with the wrong
// shape is reported and left empty; the other keys still load. Only invalid
// JSON is an error.
func Decode(data []byte) (*Decoded, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	d := &Decoded{}
	if v, ok := d.list(raw, models.FieldSpreadSeries); ok {
		d.Doc.SpreadSeries = v
	}
	d.text(raw, models.FieldIndices, &d.Doc.Indices)
	d.text(raw, models.FieldEquities, &d.Doc.Equities)
	d.text(raw, models.FieldNews, &d.Doc.News)
	d.Doc.EconomicIndicators = d.textMap(raw, models.FieldIndicators)
	d.Doc.YieldData = d.curve(raw, models.FieldYieldData)
	d.Doc.YieldSpreads = d.curve(raw, models.FieldYieldSpreads)

	if v, ok := raw["meta"]; ok && !isNull(v) {
		var meta models.SnapshotMeta
		if err := json.Unmarshal(v, &meta); err != nil {
			d.malformed("meta", v, err)
		} else {
			d.Doc.Meta = &meta
		}
	}
	return d, nil
}

// Build parses the decoded document. Keys that failed to decode are
// unavailable, with their diagnostics first.
func (d *Decoded) Build() *View {
	v := Build(d.Doc, d.Missing)
	v.Unavailable = append(v.Unavailable, d.Invalid...)
	v.Diagnostics = append(append([]models.Diagnostic{}, d.Diagnostics...), v.Diagnostics...)
	return v
}

func isNull(v json.RawMessage) bool {
	return len(v) == 0 || string(v) == "null"
}

// present returns the raw value of field, recording it as missing when absent or null.
func (d *Decoded) present(raw map[string]json.RawMessage, field string) (json.RawMessage, bool) {
	v, ok := raw[field]
	if !ok || isNull(v) {
		d.Missing = append(d.Missing, field)
		return nil, false
	}
	return v, true
}

func (d *Decoded) invalid(field string, v json.RawMessage, err error) {
	d.Invalid = append(d.Invalid, field)
	d.malformed(field, v, err)
}

func (d *Decoded) malformed(field string, v json.RawMessage, err error) {
	d.Diagnostics = append(d.Diagnostics, models.Diagnostic{
		Kind:    models.MalformedRecord,
		Field:   field,
		Input:   clip(string(v)),
		Message: err.Error(),
	})
}

func (d *Decoded) text(raw map[string]json.RawMessage, field string, dst *string) {
	v, ok := d.present(raw, field)
	if !ok {
		return
	}
	if err := json.Unmarshal(v, dst); err != nil {
		d.invalid(field, v, err)
	}
}

// list decodes an array of strings, skipping elements that are not strings.
func (d *Decoded) list(raw map[string]json.RawMessage, field string) ([]string, bool) {
	v, ok := d.present(raw, field)
	if !ok {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		d.invalid(field, v, err)
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		var s string
		if err := json.Unmarshal(it, &s); err != nil {
			d.malformed(field, it, err)
			continue
		}
		out = append(out, s)
	}
	return out, true
}

// textMap decodes an object of strings, skipping values that are not strings.
func (d *Decoded) textMap(raw map[string]json.RawMessage, field string) map[string]string {
	v, ok := d.present(raw, field)
	if !ok {
		return nil
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(v, &entries); err != nil {
		d.invalid(field, v, err)
		return nil
	}
	out := make(map[string]string, len(entries))
	for k, e := range entries {
		var s string
		if err := json.Unmarshal(e, &s); err != nil {
			d.malformed(field+"."+k, e, err)
			continue
		}
		out[k] = s
	}
	return out
}

// curve decodes name -> date -> number. Null points are gaps, never zeros.
func (d *Decoded) curve(raw map[string]json.RawMessage, field string) map[string]map[string]float64 {
	v, ok := d.present(raw, field)
	if !ok {
		return nil
	}
	var series map[string]json.RawMessage
	if err := json.Unmarshal(v, &series); err != nil {
		d.invalid(field, v, err)
		return nil
	}
	out := make(map[string]map[string]float64, len(series))
	for name, sv := range series {
		sub := field + "." + name
		var points map[string]*float64
		if err := json.Unmarshal(sv, &points); err != nil {
			d.malformed(sub, sv, err)
			continue
		}
		values := make(map[string]float64, len(points))
		for date, p := range points {
			if p == nil {
				d.Diagnostics = append(d.Diagnostics, models.Diagnostic{
					Kind:    models.MissingField,
					Field:   sub,
					Input:   date,
					Message: "null value",
				})
				continue
			}
			values[date] = *p
		}
		out[name] = values
	}
	return out
}

func clip(s string) string {
	const limit = 120
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// Build parses every text field of doc. missing lists keys known to be absent.
func Build(doc models.SnapshotDocument, missing []string) *View {
	v := &View{Unavailable: missing}
	for _, f := range missing {
		v.Diagnostics = append(v.Diagnostics, models.Diagnostic{
			Kind:    models.MissingField,
			Field:   f,
			Message: "data unavailable",
		})
	}

	spread, d := marketdata.ParseDatedSeries(models.FieldSpreadSeries, doc.SpreadSeries)
	v.Diagnostics = append(v.Diagnostics, d...)

	v.Indices, d = marketdata.ParseIndices(doc.Indices)
	v.Diagnostics = append(v.Diagnostics, d...)

	v.Equities, d = marketdata.ParseEquities(doc.Equities)
	v.Diagnostics = append(v.Diagnostics, d...)

	v.Indicators, d = marketdata.ParseIndicators(doc.EconomicIndicators)
	v.Diagnostics = append(v.Diagnostics, d...)

	v.News, v.NewsSkipped = marketdata.SplitNewsBlob(doc.News)

	v.Snapshot = models.MarketSnapshot{
		SpreadSeries:       spread,
		IndicesText:        doc.Indices,
		EquitiesText:       doc.Equities,
		NewsText:           doc.News,
		EconomicIndicators: nonNilStrings(doc.EconomicIndicators),
		YieldCurve:         nonNilCurve(doc.YieldData),
		YieldSpreads:       nonNilCurve(doc.YieldSpreads),
	}
	if doc.Meta != nil {
		v.Snapshot.Meta = *doc.Meta
	}
	return v
}

// Load decodes and builds in one step.
func Load(data []byte) (*View, error) {
	d, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return d.Build(), nil
}

func nonNilStrings(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nonNilCurve(m map[string]map[string]float64) map[string]map[string]float64 {
	if m == nil {
		return map[string]map[string]float64{}
	}
	return m
}
