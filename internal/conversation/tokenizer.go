package conversation

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Tokenize splits s on whitespace. Double quotes group words into one token and a backslash
// escapes the next character inside them. A single quote groups only when it starts a token
// and closes only before whitespace or the end, so apostrophes ("Mike's") stay literal.
func Tokenize(s string) (Args, error) {
	var (
		tokens  []string
		cur     strings.Builder
		inToken bool
		quote   rune
		escaped bool
	)
	runes := []rune(s)
	for i, r := range runes {
		if r == '“' || r == '”' {
			r = '"'
		}
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case quote != 0:
			switch {
			case r == '\\' && quote == '"':
				escaped = true
			case r == quote && (quote == '"' || i+1 == len(runes) || unicode.IsSpace(runes[i+1])):
				quote = 0
			default:
				cur.WriteRune(r)
			}
		case r == '"', r == '\'' && !inToken:
			quote = r
			inToken = true
		case unicode.IsSpace(r):
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 || escaped {
		return nil, apperrors.Validationf("a quote is not closed")
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return Args(tokens), nil
}

// Args are the tokens following a command.
type Args []string

// Len returns the number of tokens.
func (a Args) Len() int { return len(a) }

// At returns token i or "" when absent.
func (a Args) At(i int) string {
	if i < 0 || i >= len(a) {
		return ""
	}
	return a[i]
}

// Rest joins the tokens from i on.
func (a Args) Rest(i int) string {
	if i >= len(a) {
		return ""
	}
	return strings.Join(a[i:], " ")
}

// Amount parses token i as a positive amount.
func (a Args) Amount(i int) (decimal.Decimal, error) {
	return ParseAmount(a.At(i))
}

// Day parses token i as a day of the month.
func (a Args) Day(i int) (int, error) {
	return ParseDay(a.At(i))
}

// Role parses token i as a participant role.
func (a Args) Role(i int) (domain.Role, bool) {
	return domain.ParseRole(a.At(i))
}

var currencyMarks = strings.NewReplacer("€", "", "$", "", "£", "", "₹", "", "EUR", "", "eur", "", " ", "")

// ParseAmount reads "12.50", "12,50", "€12.50", "1,234.56" or "1.234,56" as a positive amount
// rounded to cents. With both separators the last one is the decimal mark. A single separator
// followed by exactly three digits ("1,234") is ambiguous and rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	s = currencyMarks.Replace(raw)
	if s == "" {
		return decimal.Zero, apperrors.Validationf("please send an amount, e.g. 12.50")
	}

	normalized, ok := normalizeSeparators(s)
	if !ok {
		return decimal.Zero, apperrors.Validationf("%q is ambiguous; write it as 1234.00 or 1234,00", raw)
	}
	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, apperrors.Validationf("%q is not an amount, e.g. 12.50", raw)
	}
	if !amount.IsPositive() {
		return decimal.Zero, apperrors.Validationf("the amount must be greater than zero")
	}
	return amount.Round(2), nil
}

// normalizeSeparators rewrites s so that "." is the only, decimal, separator. ok is false when
// s cannot be read without guessing.
func normalizeSeparators(s string) (string, bool) {
	lastComma, lastDot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1), strings.Count(s, ",") == 1
		}
		return strings.ReplaceAll(s, ",", ""), strings.Count(s, ".") == 1
	case lastComma >= 0:
		return singleSeparator(s, ",")
	case lastDot >= 0:
		return singleSeparator(s, ".")
	}
	return s, true
}

// singleSeparator handles s containing only sep. Repeated separators group thousands
// ("1,234,567"); a lone one is the decimal mark unless three digits follow it.
func singleSeparator(s, sep string) (string, bool) {
	parts := strings.Split(s, sep)
	if len(parts) > 2 {
		for _, group := range parts[1:] {
			if len(group) != 3 {
				return s, false
			}
		}
		return strings.Join(parts, ""), true
	}
	if len(parts[1]) == 3 {
		return s, false
	}
	return parts[0] + "." + parts[1], true
}

// ParseDay reads a day of the month between 1 and 31.
func ParseDay(s string) (int, error) {
	day, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || day < 1 || day > 31 {
		return 0, apperrors.Validationf("the day must be a number between 1 and 31")
	}
	return day, nil
}

// ParseSplit reads "60/40", "60 40", "60", "0.6/0.4" or "60%" as a split for A and B.
// A single value is A's share.
func ParseSplit(s string) (domain.Split, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "%", "")
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == ':' || unicode.IsSpace(r) })
	if len(fields) == 0 || len(fields) > 2 {
		return domain.Split{}, apperrors.Validationf("send the split as A/B, e.g. 60/40")
	}

	hundred := decimal.NewFromInt(100)
	values := make([]decimal.Decimal, len(fields))
	percent := false
	for i, f := range fields {
		v, err := decimal.NewFromString(strings.Replace(f, ",", ".", 1))
		if err != nil {
			return domain.Split{}, apperrors.Validationf("%q is not a number", f)
		}
		if v.GreaterThan(decimal.NewFromInt(1)) {
			percent = true
		}
		values[i] = v
	}
	if percent {
		for i := range values {
			values[i] = values[i].Div(hundred)
		}
	}

	split := domain.SplitFromA(values[0])
	if len(values) == 2 {
		split = domain.Split{A: values[0], B: values[1]}
	}
	if err := split.Validate(); err != nil {
		return domain.Split{}, err
	}
	return split, nil
}
