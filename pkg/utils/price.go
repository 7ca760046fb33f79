package utils

import (
	"strconv"
	"strings"
)

// FormatINR renders a price as rupees with Indian digit grouping,
// e.g. 2499999 -> "₹24,99,999". Fractional paise are kept only when non-zero.
func FormatINR(price float64) string {
	sign := ""
	if price < 0 {
		sign = "-"
		price = -price
	}

	whole, frac, _ := strings.Cut(strconv.FormatFloat(price, 'f', 2, 64), ".")

	label := sign + "₹" + groupIndian(whole)
	if frac != "00" {
		label += "." + frac
	}
	return label
}

// FormatRating renders a rating with one decimal, e.g. 4 -> "4.0".
func FormatRating(rating float64) string {
	return strconv.FormatFloat(rating, 'f', 1, 64)
}

// groupIndian inserts separators after the last three digits and then after
// every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}

	return strings.Join(groups, ",") + "," + tail
}
