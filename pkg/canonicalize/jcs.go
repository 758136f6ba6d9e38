// Package canonicalize produces deterministic, RFC-8785-flavored canonical
// JSON bytes for hashing and signing chain-of-custody records.
//
// Grounded on the teacher's core/pkg/canonicalize/jcs.go: marshal once through
// encoding/json to respect struct tags, decode into a generic tree with
// json.Number preserved, then re-serialize recursively with sorted keys and
// HTML escaping disabled. This version additionally NFC-normalizes strings
// and reformats numbers to match ECMA-262 ToString(Number), per spec.md §4.1.
package canonicalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// JCS returns the canonical JSON byte representation of v.
func JCS(v interface{}) ([]byte, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: pre-marshal failed: %w", err)
	}

	var generic interface{}
	decoder := json.NewDecoder(bytes.NewReader(intermediate))
	decoder.UseNumber()
	if err := decoder.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonicalize: intermediate decode failed: %w", err)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JCSString is JCS as a string.
func JCSString(v interface{}) (string, error) {
	b, err := JCS(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeCanonical(buf *bytes.Buffer, v interface{}) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case json.Number:
		s, err := canonicalNumber(t)
		if err != nil {
			return err
		}
		buf.WriteString(s)
		return nil
	case string:
		return writeCanonicalString(buf, t)
	case []interface{}:
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys) // code-point lexicographic order for ASCII-safe JSON keys

		buf.WriteByte('{')
		// Undefined-removal happens upstream, at struct marshal time via
		// `omitempty`/pointer fields; a literal JSON null reaching here is a
		// value (object key present, value null) and is preserved.
		first := true
		for _, k := range keys {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			if err := writeCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		return fmt.Errorf("canonicalize: unsupported type %T", v)
	}
}

// canonicalNumber reformats a decoded json.Number to match ECMA-262
// ToString(Number): no trailing zeros, no '+' in exponents, integers in
// safe range emitted without a fraction, non-finite values rejected.
func canonicalNumber(n json.Number) (string, error) {
	f, err := n.Float64()
	if err != nil {
		return "", fmt.Errorf("canonicalize: invalid number %q: %w", n, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("canonicalize: non-finite number %v is not representable", f)
	}
	if f == 0 {
		// -0 is emitted as 0.
		return "0", nil
	}

	// Integers within the float64-safe range are emitted without a
	// fractional part, matching json.Number's original text when it was
	// already an integer literal.
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		s := n.String()
		if !strings.ContainsAny(s, ".eE") {
			return s, nil
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}

	// ECMA-262 uses plain decimal notation for 1e-6 <= |f| < 1e21 and
	// exponent notation outside that range.
	format := byte('f')
	if abs := math.Abs(f); abs < 1e-6 || abs >= 1e21 {
		format = 'e'
	}
	s := strconv.FormatFloat(f, format, -1, 64)
	// Go emits exponents as e+05 / e-05; ECMA-262 wants e+5 / e-5 (no
	// leading zero) and always includes the sign.
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mantissa, exp := s[:i], s[i+1:]
		sign := "+"
		if len(exp) > 0 && (exp[0] == '+' || exp[0] == '-') {
			sign = string(exp[0])
			exp = exp[1:]
		}
		exp = strings.TrimLeft(exp, "0")
		if exp == "" {
			exp = "0"
		}
		s = mantissa + "e" + sign + exp
	}
	return s, nil
}

// writeCanonicalString NFC-normalizes s, then emits it as a minimally
// escaped JSON string: required control characters, the quote, and the
// backslash only — never HTML entities.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)
	buf.WriteByte('"')
	for _, r := range normalized {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
	return nil
}
