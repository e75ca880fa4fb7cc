package render

import (
	"github.com/microcosm-cc/bluemonday"
)

// HTMLPolicy decides what happens to rendered output given the isHTML hint.
type HTMLPolicy interface {
	Apply(output string, isHTML bool) string
}

// HTMLPolicyFunc adapts a function to HTMLPolicy.
type HTMLPolicyFunc func(output string, isHTML bool) string

// Apply implements HTMLPolicy.
func (f HTMLPolicyFunc) Apply(output string, isHTML bool) string {
	return f(output, isHTML)
}

// PassthroughHTML accepts the hint and leaves output untouched. It is the
// default policy.
var PassthroughHTML HTMLPolicy = HTMLPolicyFunc(func(output string, _ bool) string {
	return output
})

// SanitizeHTML runs HTML output through a bluemonday policy. Output rendered
// with isHTML=false is returned unchanged.
func SanitizeHTML(policy *bluemonday.Policy) HTMLPolicy {
	if policy == nil {
		return PassthroughHTML
	}
	return HTMLPolicyFunc(func(output string, isHTML bool) string {
		if !isHTML || output == "" {
			return output
		}
		return policy.Sanitize(output)
	})
}

// UGCSanitizer allows the markup bluemonday considers safe for user generated
// content, which covers typical mail bodies.
func UGCSanitizer() HTMLPolicy {
	return SanitizeHTML(bluemonday.UGCPolicy())
}

// StrictSanitizer strips every tag, leaving text only.
func StrictSanitizer() HTMLPolicy {
	return SanitizeHTML(bluemonday.StrictPolicy())
}
