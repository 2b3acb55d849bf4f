package transform

import (
	"regexp"
	"strconv"
	"strings"

	benefit "benefit-gateway/internal/benefit/models"
)

// amountPattern matches a rupee marker followed by a comma-groupable
// digit run, e.g. "₹12,000".
var amountPattern = regexp.MustCompile(`₹([\d,]+)`)

// EstimateTotalValue scans every benefit item's description for rupee
// amounts and sums all matches. This is a best-effort, locale-coupled
// estimate over free text, not an authoritative total.
func EstimateTotalValue(items []benefit.BenefitItem) string {
	total := 0
	for _, item := range items {
		for _, match := range amountPattern.FindAllStringSubmatch(item.Description, -1) {
			n, err := strconv.Atoi(strings.ReplaceAll(match[1], ",", ""))
			if err != nil {
				continue
			}
			total += n
		}
	}
	return strconv.Itoa(total)
}
