package a2a

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Part kinds.
const (
	KindText = "text"
	KindData = "data"
)

// Part is one segment of message content: a TextPart, a DataPart, or an
// UnknownPart carrying any other kind verbatim.
type Part interface {
	PartKind() string
	// Flatten renders the part as plain text for a chat model.
	Flatten() string
}

// TextPart carries plain text.
type TextPart struct {
	Kind     string          `json:"kind"`
	Text     string          `json:"text"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// NewTextPart creates a text part.
func NewTextPart(text string) TextPart {
	return TextPart{Kind: KindText, Text: text}
}

func (p TextPart) PartKind() string { return KindText }
func (p TextPart) Flatten() string  { return p.Text }

// DataPart carries arbitrary structured data.
type DataPart struct {
	Kind     string          `json:"kind"`
	Data     any             `json:"data,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// NewDataPart creates a data part.
func NewDataPart(data any) DataPart {
	return DataPart{Kind: KindData, Data: data}
}

func (p DataPart) PartKind() string { return KindData }

// Flatten returns the data as compact JSON, or "" when there is no data.
func (p DataPart) Flatten() string {
	switch d := p.Data.(type) {
	case nil:
		return ""
	case json.RawMessage:
		var buf bytes.Buffer
		if err := json.Compact(&buf, d); err != nil {
			return string(d)
		}
		return buf.String()
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// UnknownPart preserves a part of an unrecognized kind, or one that is not a
// JSON object at all, so it round-trips unchanged.
type UnknownPart struct {
	Kind string
	Raw  json.RawMessage
}

func (p UnknownPart) PartKind() string { return p.Kind }
func (p UnknownPart) Flatten() string  { return "" }

// MarshalJSON returns the bytes the part was decoded from.
func (p UnknownPart) MarshalJSON() ([]byte, error) {
	if len(p.Raw) == 0 {
		return []byte("null"), nil
	}
	return p.Raw, nil
}

// UnmarshalPart decodes a single part. It never fails: anything that is not
// a well-formed text or data part becomes an UnknownPart. Scalar text values
// are accepted and rendered as strings.
func UnmarshalPart(raw json.RawMessage) Part {
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return UnknownPart{Raw: raw}
	}

	switch head.Kind {
	case KindText:
		var p struct {
			Text     json.RawMessage `json:"text"`
			Metadata json.RawMessage `json:"metadata"`
		}
		if err := json.Unmarshal(raw, &p); err == nil {
			if text, ok := scalarText(p.Text); ok {
				return TextPart{Kind: KindText, Text: text, Metadata: p.Metadata}
			}
		}
	case KindData:
		var p struct {
			Data     json.RawMessage `json:"data"`
			Metadata json.RawMessage `json:"metadata"`
		}
		if err := json.Unmarshal(raw, &p); err == nil {
			dp := DataPart{Kind: KindData, Metadata: p.Metadata}
			if len(p.Data) > 0 {
				dp.Data = p.Data
			}
			return dp
		}
	}
	return UnknownPart{Kind: head.Kind, Raw: raw}
}

// scalarText renders a text member the way string concatenation would:
// strings as is, numbers and booleans in their literal form, null or a
// missing member as "". Objects and arrays are rejected.
func scalarText(raw json.RawMessage) (string, bool) {
	if IsNull(raw) {
		return "", true
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	switch v := v.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e21 {
			return strconv.FormatFloat(v, 'f', -1, 64), true
		}
		return strconv.FormatFloat(v, 'g', -1, 64), true
	}
	return "", false
}

func decodeParts(raws []json.RawMessage) []Part {
	if raws == nil {
		return nil
	}
	parts := make([]Part, 0, len(raws))
	for _, raw := range raws {
		parts = append(parts, UnmarshalPart(raw))
	}
	return parts
}
