package collector

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/httprunner/ScysCollector/internal/feishusdk"
)

// Encoding selects how values are shaped for the wire.
type Encoding int

const (
	// EncodingPrimary sends URL fields as {text, link} cells.
	EncodingPrimary Encoding = iota
	// EncodingText forces every value except checkbox and multi-select
	// values to its string form.
	EncodingText
)

func (e Encoding) String() string {
	switch e {
	case EncodingPrimary:
		return "primary"
	case EncodingText:
		return "text"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// Strategy is the value shaping applied to a remote field type.
type Strategy string

const (
	StrategyPlain       Strategy = "plain"
	StrategyCheckbox    Strategy = "checkbox"
	StrategyMultiSelect Strategy = "multi_select"
	StrategyURL         Strategy = "url"
)

// EncodingTable maps remote field type codes to strategies. Codes that are
// absent use StrategyPlain.
type EncodingTable map[int]Strategy

// DefaultEncodingTable returns the built-in table: 7 checkbox, 4 multi-select
// and 15 URL.
func DefaultEncodingTable() EncodingTable {
	return EncodingTable{
		feishusdk.FieldTypeCheckbox:    StrategyCheckbox,
		feishusdk.FieldTypeMultiSelect: StrategyMultiSelect,
		feishusdk.FieldTypeURL:         StrategyURL,
	}
}

// WithURLTypes returns a copy of t with codes added as URL fields.
func (t EncodingTable) WithURLTypes(codes ...int) EncodingTable {
	out := make(EncodingTable, len(t)+len(codes))
	for code, s := range t {
		out[code] = s
	}
	for _, code := range codes {
		if code > 0 {
			out[code] = StrategyURL
		}
	}
	return out
}

// Strategy returns the strategy for a type code.
func (t EncodingTable) Strategy(code int) Strategy {
	if s, ok := t[code]; ok {
		return s
	}
	return StrategyPlain
}

// URLTypes lists the codes mapped to StrategyURL in ascending order.
func (t EncodingTable) URLTypes() []int {
	var codes []int
	for code, s := range t {
		if s == StrategyURL {
			codes = append(codes, code)
		}
	}
	sort.Ints(codes)
	return codes
}

// Encode shapes value for a field of the given strategy.
func Encode(s Strategy, value any, enc Encoding) any {
	switch s {
	case StrategyCheckbox:
		str, ok := value.(string)
		return ok && str == Yes
	case StrategyMultiSelect:
		if list, ok := value.([]string); ok {
			return list
		}
	case StrategyURL:
		if enc == EncodingPrimary {
			str := stringForm(value)
			return feishusdk.URLCell{Text: str, Link: str}
		}
	}
	if enc == EncodingText {
		return stringForm(value)
	}
	return value
}

func stringForm(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
