package ces

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// FilterExpression maps a field name to the patterns tested against it.
//
// A pattern is either numeric, optionally prefixed with >, <, >=, <= or !=
// (also ≥, ≤, ≠ and <>), or a glob where * matches any run of characters.
// Every positive term, numeric or glob, in every field is ORed together;
// glob patterns prefixed with != are then applied one after another as
// exclusions over the survivors. A non-empty expression without positive
// terms therefore keeps nothing.
type FilterExpression map[string][]string

// With returns a copy of f with patterns appended under field.
func (f FilterExpression) With(field string, patterns ...string) FilterExpression {
	out := make(FilterExpression, len(f)+1)
	for key, values := range f {
		out[key] = append([]string(nil), values...)
	}

	out[field] = append(out[field], patterns...)

	return out
}

type compareOp int

const (
	opEQ compareOp = iota
	opGT
	opLT
	opGE
	opLE
	opNE
)

const operatorChars = "><≥≤!=≠"

var operatorAliases = map[string]compareOp{
	"":   opEQ,
	"=":  opEQ,
	"==": opEQ,
	">":  opGT,
	"<":  opLT,
	">=": opGE,
	"≥":  opGE,
	"<=": opLE,
	"≤":  opLE,
	"!=": opNE,
	"≠":  opNE,
	"<>": opNE,
}

type filterTerm struct {
	field    string
	numeric  bool
	op       compareOp
	number   float64
	negative bool
	glob     *regexp.Regexp
}

// splitOperator separates the leading run of operator characters.
func splitOperator(pattern string) (string, string) {
	end := 0

	for end < len(pattern) {
		r, size := utf8.DecodeRuneInString(pattern[end:])
		if !strings.ContainsRune(operatorChars, r) {
			break
		}

		end += size
	}

	return pattern[:end], pattern[end:]
}

func isNegation(prefix string) bool {
	return strings.HasPrefix(prefix, "!=") || strings.HasPrefix(prefix, "≠") || strings.HasPrefix(prefix, "<>")
}

func parseFilterTerm(field, pattern string) filterTerm {
	prefix, remainder := splitOperator(pattern)

	number, err := strconv.ParseFloat(strings.TrimSpace(remainder), 64)
	if err == nil {
		op, ok := operatorAliases[prefix]
		if !ok {
			op = opEQ
		}

		return filterTerm{field: field, numeric: true, op: op, number: number}
	}

	if isNegation(prefix) {
		return filterTerm{field: field, negative: true, glob: compileGlob(remainder)}
	}

	return filterTerm{field: field, glob: compileGlob(pattern)}
}

// compileGlob anchors pattern and turns * into a wildcard; everything else is literal.
func compileGlob(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}

	return regexp.MustCompile("(?s)^" + strings.Join(parts, ".*") + "$")
}

func (t filterTerm) matches(record *Record) bool {
	value, ok := record.Get(t.field)
	if !ok || value == nil {
		return false
	}

	if t.numeric {
		f, ok := toFloat64(value)
		if !ok {
			return false
		}

		switch t.op {
		case opGT:
			return f > t.number
		case opLT:
			return f < t.number
		case opGE:
			return f >= t.number
		case opLE:
			return f <= t.number
		case opNE:
			return f != t.number
		default:
			return f == t.number
		}
	}

	return t.glob.MatchString(filterString(value))
}

func filterString(value interface{}) string {
	if t, ok := value.(time.Time); ok {
		return t.Format(time.RFC3339Nano)
	}

	return FormatValue(value)
}

// ApplyFilters returns the records kept by expr and the filtered fields
// that no record carries. Unknown fields are skipped.
func ApplyFilters(records []*Record, expr FilterExpression) ([]*Record, []string) {
	if len(expr) == 0 {
		return records, nil
	}

	var (
		positives []filterTerm
		negatives []filterTerm
		unknown   []string
	)

	for _, field := range sortedKeys(expr) {
		if !anyHasField(records, field) {
			if len(records) > 0 {
				unknown = append(unknown, field)
			}

			continue
		}

		for _, pattern := range expr[field] {
			term := parseFilterTerm(field, pattern)
			if term.negative {
				negatives = append(negatives, term)
			} else {
				positives = append(positives, term)
			}
		}
	}

	kept := make([]*Record, 0, len(records))

	for _, record := range records {
		for _, term := range positives {
			if term.matches(record) {
				kept = append(kept, record)

				break
			}
		}
	}

	for _, term := range negatives {
		survivors := make([]*Record, 0, len(kept))

		for _, record := range kept {
			if !term.matches(record) {
				survivors = append(survivors, record)
			}
		}

		kept = survivors
	}

	return kept, unknown
}

func anyHasField(records []*Record, field string) bool {
	for _, record := range records {
		if record.Has(field) {
			return true
		}
	}

	return false
}
