package secrets

import (
	"regexp"
	"strings"
)

// DefaultNamespace is the first path segment of every credential store key.
const DefaultNamespace = "keyvault"

var whitespace = regexp.MustCompile(`\s+`)

// Slug lower-cases name and replaces each run of whitespace with a hyphen.
func Slug(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// SSMPath derives the credential store key of a secret:
// /<namespace>/<slug(projectName)>/<secretName>. The secret name is used
// verbatim.
func SSMPath(namespace, projectName, secretName string) string {
	return "/" + namespace + "/" + Slug(projectName) + "/" + secretName
}
