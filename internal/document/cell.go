package document

import (
	"bytes"
	"encoding/json"
	"math"
)

// Cell is one extracted value together with its OCR provenance.
//
// Raw and Conf are written by the backend only. Operator edits change Value
// and NeedsReview and leave the provenance untouched.
type Cell struct {
	Value       Value    `json:"value"`
	Raw         *string  `json:"raw,omitempty"`
	Conf        *float64 `json:"conf,omitempty"`
	NeedsReview bool     `json:"needsReview,omitempty"`
}

// TextCell is shorthand for a cell holding s with no provenance.
func TextCell(s string) Cell { return Cell{Value: Text(s)} }

// UnmarshalJSON never fails: anything that is not a recognisable cell
// becomes a null cell flagged for review.
func (c *Cell) UnmarshalJSON(data []byte) error {
	*c = decodeCell(data)
	return nil
}

func (c Cell) clone() Cell {
	out := Cell{Value: c.Value, NeedsReview: c.NeedsReview}
	if c.Raw != nil {
		raw := *c.Raw
		out.Raw = &raw
	}
	if c.Conf != nil {
		conf := *c.Conf
		out.Conf = &conf
	}
	return out
}

// decodeCell accepts a bare scalar or an object {value, raw, conf, needsReview}.
func decodeCell(data json.RawMessage) Cell {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Cell{}
	}
	if data[0] != '{' {
		v, ok := parseValue(data)
		if !ok {
			return Cell{NeedsReview: true}
		}
		return Cell{Value: v}
	}

	var obj struct {
		Value       json.RawMessage `json:"value"`
		Raw         json.RawMessage `json:"raw"`
		Conf        json.RawMessage `json:"conf"`
		NeedsReview json.RawMessage `json:"needsReview"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return Cell{NeedsReview: true}
	}

	var cell Cell
	v, ok := parseValue(obj.Value)
	if !ok {
		cell.NeedsReview = true
	}
	cell.Value = v

	if raw, ok := parseValue(obj.Raw); ok && !raw.IsNull() {
		s := raw.String()
		cell.Raw = &s
	}

	var conf float64
	if len(obj.Conf) > 0 && json.Unmarshal(obj.Conf, &conf) == nil && !math.IsNaN(conf) {
		conf = math.Max(0, math.Min(1, conf))
		cell.Conf = &conf
	}

	var flag bool
	if len(obj.NeedsReview) > 0 && json.Unmarshal(obj.NeedsReview, &flag) == nil && flag {
		cell.NeedsReview = true
	}
	return cell
}
