// Package period implements the relative-date grammar and calendar
// arithmetic used by stale's --since flag.
//
// Grammar (EBNF, case-insensitive, whitespace between components
// insignificant):
//
//	period    := component* , end
//	component := digits , suffix
//	suffix    := year | month | week | day
//	year      := "y" | "yr" | "yrs" | "year" | "years"
//	month     := "mo" | "month" | "months"
//	week      := "w" | "week" | "weeks"
//	day       := "d" | "day" | "days"
package period

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cobwebtools/dah/internal/errs"
)

// Period is a non-negative count of calendar components. After
// Canonicalize, Weeks is 0-3 and Months is 0-11 (years absorb whole
// multiples of 12 months, and months absorb whole groups of 4 weeks).
type Period struct {
	Years  int
	Months int
	Weeks  int
	Days   int
}

// IsZero reports whether p is the empty period.
func (p Period) IsZero() bool {
	return p.Years == 0 && p.Months == 0 && p.Weeks == 0 && p.Days == 0
}

var componentRe = regexp.MustCompile(`(?i)^(\d+)(years|year|yrs|yr|y|months|month|mo|weeks|week|w|days|day|d)`)

// Parse parses a period string per the grammar above. Parsing fails with
// *errs.InvalidPeriod when any character cannot be consumed, when a
// number has no suffix, or when a suffix has no number.
func Parse(input string) (Period, error) {
	var p Period
	rest := input
	consumedAny := false

	for {
		rest = strings.TrimLeft(rest, " \t\n\r")
		if rest == "" {
			break
		}

		loc := componentRe.FindStringSubmatchIndex(rest)
		if loc == nil {
			// Distinguish "digits with no suffix" from "garbage" for a
			// slightly more useful diagnostic; both are InvalidPeriod.
			if isLeadingDigits(rest) {
				return Period{}, &errs.InvalidPeriod{Input: input, Reason: "number has no suffix"}
			}
			return Period{}, &errs.InvalidPeriod{Input: input, Reason: "unrecognized character at " + rest}
		}

		numStr := rest[loc[2]:loc[3]]
		suffix := strings.ToLower(rest[loc[4]:loc[5]])

		n, err := strconv.Atoi(numStr)
		if err != nil {
			return Period{}, &errs.InvalidPeriod{Input: input, Reason: "invalid number " + numStr}
		}

		switch suffix {
		case "y", "yr", "yrs", "year", "years":
			p.Years += n
		case "mo", "month", "months":
			p.Months += n
		case "w", "week", "weeks":
			p.Weeks += n
		case "d", "day", "days":
			p.Days += n
		}

		rest = rest[loc[1]:]
		consumedAny = true
	}

	if !consumedAny {
		return Period{}, &errs.InvalidPeriod{Input: input, Reason: "empty period"}
	}

	return Canonicalize(p), nil
}

func isLeadingDigits(s string) bool {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i > 0 && i == len(s)
}

// Canonicalize folds 12 months into 1 year and, per the "4 weeks rounds
// up" rule, folds complete groups of 4 weeks into 1 month each —
// residual 0-3 weeks remain as weeks. The rule applies only when
// Weeks >= 4.
func Canonicalize(p Period) Period {
	if p.Weeks >= 4 {
		p.Months += p.Weeks / 4
		p.Weeks = p.Weeks % 4
	}
	if p.Months >= 12 {
		p.Years += p.Months / 12
		p.Months = p.Months % 12
	}
	return p
}

// Format emits the canonical form "NyNmoNwNd", omitting zero components.
// The empty period formats to "0d".
func Format(p Period) string {
	p = Canonicalize(p)
	var sb strings.Builder
	if p.Years > 0 {
		sb.WriteString(strconv.Itoa(p.Years) + "y")
	}
	if p.Months > 0 {
		sb.WriteString(strconv.Itoa(p.Months) + "mo")
	}
	if p.Weeks > 0 {
		sb.WriteString(strconv.Itoa(p.Weeks) + "w")
	}
	if p.Days > 0 {
		sb.WriteString(strconv.Itoa(p.Days) + "d")
	}
	if sb.Len() == 0 {
		return "0d"
	}
	return sb.String()
}

// LessOrEqual reports whether, after canonicalization, p1's total months
// (years*12+months) and total days (weeks*7+days) are each no greater
// than p2's, used to establish the monotonicity property of Subtract.
// Every pair that is ordered componentwise is also ordered by this test.
func LessOrEqual(p1, p2 Period) bool {
	p1, p2 = Canonicalize(p1), Canonicalize(p2)
	totalMonths1, totalMonths2 := p1.Years*12+p1.Months, p2.Years*12+p2.Months
	totalDays1, totalDays2 := p1.Weeks*7+p1.Days, p2.Weeks*7+p2.Days
	return totalMonths1 <= totalMonths2 && totalDays1 <= totalDays2
}
