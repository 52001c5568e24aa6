// Package format escapes user text for the legacy Markdown parse mode that
// bot texts are sent in.
package format

import "strings"

var legacy = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// MD escapes the four characters legacy Markdown treats as markup.
func MD(text string) string {
	return legacy.Replace(text)
}
