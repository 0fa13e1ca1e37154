// Package sanitize strips markup from user supplied free text before it is
// persisted. Values are stored and served as plain text.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func strict() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// maxPasses bounds how many layers of entity encoding are peeled off.
const maxPasses = 5

// Text removes every HTML element and trims surrounding whitespace.
// Entities are decoded between passes so markup written as "&lt;b&gt;" is
// stripped as well, and a lone "&" survives as-is. Input still changing
// after maxPasses is returned in its escaped form.
func Text(value string) string {
	if value == "" {
		return ""
	}
	for i := 0; i < maxPasses; i++ {
		next := html.UnescapeString(strict().Sanitize(value))
		if next == value {
			return strings.TrimSpace(value)
		}
		value = next
	}
	return strings.TrimSpace(strict().Sanitize(value))
}

// Fields sanitises each pointer target in place. Nil pointers are skipped.
func Fields(values ...*string) {
	for _, v := range values {
		if v != nil {
			*v = Text(*v)
		}
	}
}
