package form

import (
	"fmt"
	"strings"
)

const controls = "*[self::input or self::textarea or self::select]"

// PlaceholderXPath matches a form control by its exact placeholder text
func PlaceholderXPath(placeholder string) string {
	return fmt.Sprintf("//%s[@placeholder=%s]", controls, xpathLiteral(placeholder))
}

// LabelXPath matches a form control whose accessible label contains text, ignoring case.
// The label may be a <label for>, a wrapping <label>, aria-label or aria-labelledby.
func LabelXPath(text string) string {
	matches := func(expr string) string { return containsFold(expr, text) }
	return strings.Join([]string{
		fmt.Sprintf("//%s[@id = //label[%s]/@for]", controls, matches(".")),
		fmt.Sprintf("//label[%s]//%s", matches("."), controls),
		fmt.Sprintf("//%s[%s]", controls, matches("@aria-label")),
		fmt.Sprintf("//%s[@aria-labelledby = //*[%s]/@id]", controls, matches(".")),
	}, " | ")
}

// ButtonXPath matches an element with the button role whose accessible name contains name, ignoring case
func ButtonXPath(name string) string {
	matches := func(expr string) string { return containsFold(expr, name) }
	return strings.Join([]string{
		fmt.Sprintf("//button[%s or %s]", matches("."), matches("@aria-label")),
		fmt.Sprintf("//*[@role='button'][%s or %s]", matches("."), matches("@aria-label")),
		fmt.Sprintf("//input[@type='submit' or @type='button'][%s]", matches("@value")),
	}, " | ")
}

func containsFold(expr, text string) string {
	return fmt.Sprintf(
		"contains(translate(normalize-space(%s), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), %s)",
		expr, xpathLiteral(strings.ToLower(text)),
	)
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences
func xpathLiteral(s string) string {
	switch {
	case !strings.Contains(s, "'"):
		return "'" + s + "'"
	case !strings.Contains(s, `"`):
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = "'" + p + "'"
	}
	return "concat(" + strings.Join(quoted, `, "'", `) + ")"
}
