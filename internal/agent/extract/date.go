package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	isoRe     = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	slashRe   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})\b`)
	thatDayRe = regexp.MustCompile(`(?i)\bthat day\b`)
)

const isoLayout = "2006-01-02"

// NormalizeDates rewrites every M/D/YY or M/D/YYYY date in text to YYYY-MM-DD.
// Forms that are not real calendar dates are left as they are.
func NormalizeDates(text string) string {
	return slashRe.ReplaceAllStringFunc(text, func(m string) string {
		if iso, ok := slashToISO(slashRe.FindStringSubmatch(m)); ok {
			return iso
		}
		return m
	})
}

// Date returns the first date mentioned in text as YYYY-MM-DD, or "".
func Date(text string) string {
	return isoRe.FindString(NormalizeDates(text))
}

// ResolveThatDay substitutes lastDate for the phrase "that day".
func ResolveThatDay(text, lastDate string) string {
	if lastDate == "" {
		return text
	}
	return thatDayRe.ReplaceAllLiteralString(text, lastDate)
}

func slashToISO(groups []string) (string, bool) {
	if len(groups) != 4 {
		return "", false
	}
	month, _ := strconv.Atoi(groups[1])
	day, _ := strconv.Atoi(groups[2])
	year := groups[3]
	if len(year) == 2 {
		year = "20" + year
	}
	iso := fmt.Sprintf("%s-%02d-%02d", year, month, day)
	if _, err := time.Parse(isoLayout, iso); err != nil {
		return "", false
	}
	return iso, true
}
