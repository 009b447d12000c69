package format

import (
	"math"
	"strconv"
	"strings"

	"github.com/grafana/metricreduce/pkg/errors"
)

// Decimal formats values through a decimal pattern such as "###.##",
// "#,##0.00" or "0.0%".
//
// pattern syntax:
//   0        mandatory digit
//   #        optional digit
//   ,        grouping separator (integer part only)
//   .        decimal separator
//   %        multiply by 100 and render a percent sign
//   'text'   quoted literal, '' is a single quote
// any other leading or trailing characters are literal.
// Negative subpatterns (;) and exponents are not supported.
//
// Output is locale independent: '.' and ',' are always the decimal and
// grouping separators. Values are rounded half-even on their exact binary
// value. A value that rounds to zero is rendered without sign.
type Decimal struct {
	pattern    string
	prefix     string
	suffix     string
	minInt     int
	minFrac    int
	maxFrac    int
	grouping   int
	alwaysDot  bool
	multiplier float64
}

// NewDecimal returns the formatter for pattern.
// compiled patterns are shared through the pattern cache.
func NewDecimal(pattern string) (*Decimal, error) {
	if d, ok := patternCache.Get(pattern); ok {
		return d.(*Decimal), nil
	}
	d, err := compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Add(pattern, d)
	return d, nil
}

// MustDecimal is like NewDecimal but panics on an invalid pattern.
func MustDecimal(pattern string) *Decimal {
	d, err := NewDecimal(pattern)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Decimal) Pattern() string {
	return d.pattern
}

func (d *Decimal) Descriptor() string {
	return decimalPrefix + d.pattern
}

func (d *Decimal) String() string {
	return d.Descriptor()
}

func (d *Decimal) Format(v float64) (string, bool) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "", false
	}
	v *= d.multiplier
	if math.IsInf(v, 0) {
		return "", false
	}

	digits := strconv.FormatFloat(math.Abs(v), 'f', d.maxFrac, 64)
	intDigits, fracDigits := digits, ""
	if idx := strings.IndexByte(digits, '.'); idx >= 0 {
		intDigits, fracDigits = digits[:idx], digits[idx+1:]
	}

	end := len(fracDigits)
	for end > d.minFrac && fracDigits[end-1] == '0' {
		end--
	}
	fracDigits = fracDigits[:end]

	zero := strings.Trim(intDigits, "0") == "" && strings.Trim(fracDigits, "0") == ""

	intDigits = strings.TrimLeft(intDigits, "0")
	if pad := d.minInt - len(intDigits); pad > 0 {
		intDigits = strings.Repeat("0", pad) + intDigits
	}
	if intDigits == "" && fracDigits == "" {
		intDigits = "0"
	}

	var b strings.Builder
	b.Grow(len(d.prefix) + len(intDigits) + len(fracDigits) + len(d.suffix) + len(intDigits)/3 + 2)
	if v < 0 && !zero {
		b.WriteByte('-')
	}
	b.WriteString(d.prefix)
	writeGrouped(&b, intDigits, d.grouping)
	if fracDigits != "" || d.alwaysDot {
		b.WriteByte('.')
		b.WriteString(fracDigits)
	}
	b.WriteString(d.suffix)
	return b.String(), true
}

func writeGrouped(b *strings.Builder, digits string, size int) {
	if size <= 0 || len(digits) <= size {
		b.WriteString(digits)
		return
	}
	first := len(digits) % size
	if first == 0 {
		first = size
	}
	b.WriteString(digits[:first])
	for i := first; i < len(digits); i += size {
		b.WriteByte(',')
		b.WriteString(digits[i : i+size])
	}
}

func isNumberChar(r rune) bool {
	return r == '#' || r == '0' || r == ',' || r == '.'
}

func compile(pattern string) (*Decimal, error) {
	d := &Decimal{
		pattern:    pattern,
		multiplier: 1,
	}
	rs := []rune(pattern)

	prefix, i, err := d.literal(rs, 0, true)
	if err != nil {
		return nil, err
	}
	start := i
	for i < len(rs) && isNumberChar(rs[i]) {
		i++
	}
	number := string(rs[start:i])
	if i < len(rs) && rs[i] == 'E' {
		return nil, errors.NewBadRequestf("decimal pattern %q: exponent notation is not supported", pattern)
	}
	suffix, _, err := d.literal(rs, i, false)
	if err != nil {
		return nil, err
	}
	d.prefix, d.suffix = prefix, suffix

	if err := d.number(number); err != nil {
		return nil, err
	}
	return d, nil
}

// literal reads prefix or suffix text starting at i. A prefix stops at the
// first unquoted number character; a suffix runs until the end.
func (d *Decimal) literal(rs []rune, i int, isPrefix bool) (string, int, error) {
	var b strings.Builder
	for i < len(rs) {
		r := rs[i]
		switch {
		case r == '\'':
			if i+1 < len(rs) && rs[i+1] == '\'' {
				b.WriteRune('\'')
				i += 2
				continue
			}
			end := i + 1
			for end < len(rs) && rs[end] != '\'' {
				end++
			}
			if end == len(rs) {
				return "", 0, errors.NewBadRequestf("decimal pattern %q: unterminated quote", d.pattern)
			}
			b.WriteString(string(rs[i+1 : end]))
			i = end + 1
			continue
		case isNumberChar(r):
			if isPrefix {
				return b.String(), i, nil
			}
			return "", 0, errors.NewBadRequestf("decimal pattern %q: unexpected %q after the number part", d.pattern, r)
		case r == ';':
			return "", 0, errors.NewBadRequestf("decimal pattern %q: negative subpatterns are not supported", d.pattern)
		case r == '%':
			if d.multiplier != 1 {
				return "", 0, errors.NewBadRequestf("decimal pattern %q: too many percent signs", d.pattern)
			}
			d.multiplier = 100
		}
		b.WriteRune(r)
		i++
	}
	return b.String(), i, nil
}

func (d *Decimal) number(number string) error {
	intPart, fracPart := number, ""
	if idx := strings.IndexByte(number, '.'); idx >= 0 {
		intPart, fracPart = number[:idx], number[idx+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return errors.NewBadRequestf("decimal pattern %q: multiple decimal separators", d.pattern)
		}
		d.alwaysDot = fracPart == ""
	}

	digits := 0
	sinceComma := -1
	for _, r := range intPart {
		switch r {
		case '#':
			if d.minInt > 0 {
				return errors.NewBadRequestf("decimal pattern %q: '#' after '0' in integer part", d.pattern)
			}
			digits++
		case '0':
			d.minInt++
			digits++
		case ',':
			sinceComma = 0
			continue
		}
		if sinceComma >= 0 {
			sinceComma++
		}
	}
	if sinceComma == 0 {
		return errors.NewBadRequestf("decimal pattern %q: grouping separator without digits after it", d.pattern)
	}
	if sinceComma > 0 {
		d.grouping = sinceComma
	}

	optional := false
	for _, r := range fracPart {
		switch r {
		case '0':
			if optional {
				return errors.NewBadRequestf("decimal pattern %q: '0' after '#' in fraction part", d.pattern)
			}
			d.minFrac++
		case '#':
			optional = true
		case ',':
			return errors.NewBadRequestf("decimal pattern %q: grouping separator in fraction part", d.pattern)
		}
		d.maxFrac++
	}

	if digits == 0 && d.maxFrac == 0 {
		return errors.NewBadRequestf("decimal pattern %q: no digits", d.pattern)
	}
	return nil
}
