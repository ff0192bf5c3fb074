package reconcile

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"catalog-service/internal/models"

	"github.com/shopspring/decimal"
)

// sizePattern matches "205/55", "205/55R16" and "205/55 R16" once whitespace
// has been stripped and the string upper-cased.
var sizePattern = regexp.MustCompile(`^(\d+)/(\d+)(?:R(\d+))?`)

// Candidate is an import row after normalization. It carries no identity.
type Candidate struct {
	Row       int
	Brand     string
	Name      string
	Width     string
	Profile   string
	Diameter  string
	Price     decimal.Decimal
	ImageURL  string
	ModelText string
}

// Rejection records a row that failed validation before matching
type Rejection struct {
	Row    models.ImportRow
	Reason string
}

func (r Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Row.Label(), r.Reason)
}

// Normalize turns one raw row into a Candidate, or explains why it cannot.
func Normalize(row models.ImportRow) (Candidate, *Rejection) {
	brand := cleanString(row.Brand)
	name := cleanString(row.Model)
	width, profile := ParseSize(row.Size)
	diameter := NormalizeDiameter(row.Rim.String())

	var problems []string
	if brand == "" {
		problems = append(problems, "brand is required")
	}
	if name == "" {
		problems = append(problems, "model is required")
	}

	price, err := parsePrice(row.Price.String())
	if err != nil {
		problems = append(problems, err.Error())
	}

	if width == "" || profile == "" {
		problems = append(problems, fmt.Sprintf("size %q is not WIDTH/PROFILE", row.Size))
	}
	if diameter == "" {
		problems = append(problems, "rim is required")
	}

	if len(problems) > 0 {
		return Candidate{}, &Rejection{Row: row, Reason: strings.Join(problems, "; ")}
	}

	return Candidate{
		Row:       row.Row,
		Brand:     brand,
		Name:      name,
		Width:     width,
		Profile:   profile,
		Diameter:  diameter,
		Price:     price,
		ImageURL:  strings.TrimSpace(row.Image),
		ModelText: row.Model,
	}, nil
}

// ParseSize extracts width and profile from a size string. The diameter part,
// if present, is ignored: diameter always comes from the rim column.
func ParseSize(size string) (width, profile string) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, strings.ToUpper(size))

	m := sizePattern.FindStringSubmatch(compact)
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}

// NormalizeDiameter returns the rim as an "R"-prefixed token: "12", "R12" and
// "r12" all become "R12". Empty input stays empty.
func NormalizeDiameter(rim string) string {
	d := strings.ToUpper(strings.TrimSpace(rim))
	d = strings.TrimSpace(strings.TrimPrefix(d, "R"))
	d = strings.TrimSuffix(d, ".0")
	if d == "" {
		return ""
	}
	return "R" + d
}

// parsePrice accepts "99.5", "99,50", "2 581,00", "1,299.00", "1.299,00"
// and "$99.50"
func parsePrice(raw string) (decimal.Decimal, error) {
	cleaned := cleanPrice(raw)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("price is required")
	}

	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price %q is not a number", raw)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("price %q must be greater than zero", raw)
	}
	return price, nil
}

// cleanPrice drops whitespace and currency symbols and rewrites the decimal
// mark to ".". With both "," and "." present the last one is the decimal
// mark; a mark that repeats is a thousands separator.
func cleanPrice(raw string) string {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, raw)

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case dot >= 0 && strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	return s
}

// cleanString trims and collapses internal whitespace runs to one space
func cleanString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
