package correlation

import (
	"github.com/valyala/fastjson"

	pkgerrors "quietlog/pkg/errors"
)

// Record is one ingested line. It is never modified after parsing.
type Record struct {
	Raw           string
	Fields        *fastjson.Value
	CorrelationID string
	ReceivedAt    int64 // milliseconds since the Unix epoch
}

// Parser extracts records from raw lines.
type Parser struct {
	idField string
}

func NewParser(idField string) *Parser {
	return &Parser{idField: idField}
}

// Parse turns raw into a Record stamped with receivedAt. It fails with
// ErrMalformedRecord when raw is not strict JSON and with
// ErrMissingCorrelationField when the id field is absent or not a string.
func (p *Parser) Parse(raw string, receivedAt int64) (*Record, error) {
	// fastjson.Parse tolerates bad escapes, NaN and leading zeros.
	if err := fastjson.Validate(raw); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrMalformedRecord)
	}
	fields, err := fastjson.Parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrMalformedRecord)
	}

	id := lookup(fields, p.idField)
	if id == nil || id.Type() != fastjson.TypeString {
		return nil, pkgerrors.ErrMissingCorrelationField.WithDetail("field", p.idField)
	}

	idBytes, err := id.StringBytes()
	if err != nil {
		return nil, pkgerrors.ErrMissingCorrelationField.WithDetail("field", p.idField).WithCause(err)
	}

	return &Record{
		Raw:           raw,
		Fields:        fields,
		CorrelationID: string(idBytes),
		ReceivedAt:    receivedAt,
	}, nil
}

// Field returns the top-level field with the given name, or nil. When the
// key repeats, the last occurrence wins.
func (r *Record) Field(name string) *fastjson.Value {
	return lookup(r.Fields, name)
}

func lookup(v *fastjson.Value, name string) *fastjson.Value {
	if v == nil || v.Type() != fastjson.TypeObject {
		return nil
	}
	obj, err := v.Object()
	if err != nil {
		return nil
	}
	var found *fastjson.Value
	obj.Visit(func(key []byte, field *fastjson.Value) {
		if string(key) == name {
			found = field
		}
	})
	return found
}
