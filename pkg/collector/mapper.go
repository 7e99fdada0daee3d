package collector

import (
	"github.com/httprunner/ScysCollector/internal/feishusdk"
	"github.com/rs/zerolog/log"
)

// WireFields is the create-record payload: remote field name to encoded value.
type WireFields map[string]any

// Resolution pairs a non-empty logical value with the remote field it maps to.
type Resolution struct {
	Entry
	Remote feishusdk.Field
}

// Mapper resolves logical fields against a schema and encodes their values.
// It does no I/O.
type Mapper struct {
	rules []FieldRule
	table EncodingTable
}

// NewMapper builds a Mapper over the default field rules. A nil table means
// DefaultEncodingTable.
func NewMapper(table EncodingTable) *Mapper {
	if table == nil {
		table = DefaultEncodingTable()
	}
	return &Mapper{rules: DefaultFieldRules, table: table}
}

// Table returns the encoding table in use.
func (m *Mapper) Table() EncodingTable {
	return m.table
}

// Resolve finds the remote field for a logical field.
func (m *Mapper) Resolve(logical string, schema []feishusdk.Field) (feishusdk.Field, bool) {
	return Resolve(candidatesFor(m.rules, logical), schema)
}

// Plan resolves every non-empty field of rec. Unmatched fields are dropped
// and logged.
func (m *Mapper) Plan(rec Record, schema []feishusdk.Field) []Resolution {
	entries := rec.Entries()
	out := make([]Resolution, 0, len(entries))
	for _, e := range entries {
		remote, ok := m.Resolve(e.Field, schema)
		if !ok {
			log.Debug().Str("field", e.Field).Int("schema_fields", len(schema)).
				Msg("collector: no matching remote field, dropped")
			continue
		}
		out = append(out, Resolution{Entry: e, Remote: remote})
	}
	return out
}

// Build returns the wire payload for rec under the given encoding. When two
// logical fields resolve to the same remote field the later one wins. The
// text encoding leaves timestamp out, since a date column rejects strings.
func (m *Mapper) Build(rec Record, schema []feishusdk.Field, enc Encoding) WireFields {
	out := WireFields{}
	for _, r := range m.Plan(rec, schema) {
		if enc == EncodingText && r.Field == FieldTimestamp {
			continue
		}
		out[r.Remote.Name] = Encode(m.table.Strategy(r.Remote.Type), r.Value, enc)
	}
	return out
}
