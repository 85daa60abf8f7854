package valuation

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind classifies a movement for costing purposes.
type Kind int

const (
	// KindOther is any category that is neither an entry nor an exit; costing ignores it.
	KindOther Kind = iota
	KindEntry
	KindExit
)

func (k Kind) String() string {
	switch k {
	case KindEntry:
		return "entry"
	case KindExit:
		return "exit"
	default:
		return "other"
	}
}

// Stems are matched against the folded (lowercase, no diacritics) type string.
var (
	entryStems = []string{"entr", "compr", "purch", "receipt", "achat"}
	exitStems  = []string{"sai", "salid", "sale", "exit", "vend", "sold", "sort", "vent"}
)

// NormalizeKind classifies a raw movement type by prefix, ignoring case and diacritics:
// "Entrada", "entrée", "Compra", "purchase", "achat" are entries; "Saída", "salida",
// "sortie", "exit", "Venda", "vente", "sale" are exits.
func NormalizeKind(raw string) Kind {
	folded := foldType(raw)
	for _, stem := range entryStems {
		if strings.HasPrefix(folded, stem) {
			return KindEntry
		}
	}
	for _, stem := range exitStems {
		if strings.HasPrefix(folded, stem) {
			return KindExit
		}
	}
	return KindOther
}

// foldType lowercases s and strips combining marks. The transformer holds buffers,
// so a fresh one is built per call.
func foldType(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

var (
	isoDate   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	localDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// ParseTimestamp converts a movement date into Unix milliseconds at UTC.
//
// Recognized in order: YYYY-MM-DD, DD/MM/YYYY (both at UTC midnight), then any format
// dateparse understands, truncated to its UTC calendar day. The second return value is false for unparseable dates, which
// map to 0 so they sort first instead of failing the batch.
func ParseTimestamp(date string) (int64, bool) {
	s := strings.TrimSpace(date)
	if s == "" {
		return 0, false
	}

	if m := isoDate.FindStringSubmatch(s); m != nil {
		if t, ok := calendarDate(m[1], m[2], m[3]); ok {
			return t.UnixMilli(), true
		}
		return 0, false
	}

	if m := localDate.FindStringSubmatch(s); m != nil {
		if t, ok := calendarDate(m[3], m[2], m[1]); ok {
			return t.UnixMilli(), true
		}
		return 0, false
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return 0, false
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).UnixMilli(), true
}

// calendarDate builds UTC midnight and rejects dates time.Date would normalize (31/02).
func calendarDate(year, month, day string) (time.Time, bool) {
	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)

	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}
