// Package textfmt turns content IDs and numbers into display text.
package textfmt

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// Title turns a snake_case ID into a title-cased label:
// "whispering_grove" becomes "Whispering Grove".
func Title(id string) string {
	if id == "" {
		return ""
	}
	return titleCaser.String(strings.ReplaceAll(id, "_", " "))
}

// Signed formats n with an explicit sign, or "0".
func Signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// Bar draws value out of total as a fixed-width bar of filled and empty
// cells.
func Bar(value, total, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 {
		filled = value * width / total
	}
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Percent formats part of total as a whole percentage.
func Percent(part, total int) string {
	if total <= 0 {
		return "0%"
	}
	return strconv.Itoa(part*100/total) + "%"
}
