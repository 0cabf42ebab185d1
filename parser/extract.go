package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	intPattern   = regexp.MustCompile(`\d[\d,]*`)
	floatPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// ExtractInt returns the first integer-like token in s with thousands
// separators removed, or nil when there is none.
func ExtractInt(s string) *int64 {
	if s == "" {
		return nil
	}
	match := intPattern.FindString(s)
	if match == "" {
		return nil
	}
	return toInt(match)
}

// ExtractFloat returns the first decimal number in s, or nil.
func ExtractFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	match := floatPattern.FindString(s)
	if match == "" {
		return nil
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ExtractInts returns every integer-like token in s, in order. Tokens that
// overflow int64 are skipped.
func ExtractInts(s string) []int64 {
	if s == "" {
		return nil
	}
	matches := intPattern.FindAllString(s, -1)
	out := make([]int64, 0, len(matches))
	for _, m := range matches {
		if v := toInt(m); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// MaxInt returns the largest integer-like token in s, or nil.
func MaxInt(s string) *int64 {
	values := ExtractInts(s)
	if len(values) == 0 {
		return nil
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return &max
}

func toInt(token string) *int64 {
	digits := strings.ReplaceAll(token, ",", "")
	if digits == "" {
		return nil
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
