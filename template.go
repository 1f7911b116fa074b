package pingsync

import (
	"regexp"
	"strings"
)

// Placeholder tokens recognized in a ping-list document.
const (
	TokenWebsiteURL  = "#WEBSITE_URL#"
	TokenWebsiteName = "#WEBSITE_NAME#"
)

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a display name into a URL-safe slug.
//
// The input is lowercased, every run of characters outside [a-z0-9] becomes
// a single hyphen, and leading and trailing hyphens are trimmed. Non-ASCII
// letters are not transliterated. Stored ping lists depend on this exact
// output, so the algorithm must not change.
//
//	Slugify("My Site!") // "my-site"
//	Slugify("!!!")      // ""
func Slugify(name string) string {
	slug := nonSlugRun.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

// ExpandTokens replaces every [TokenWebsiteURL] with site.URL and every
// [TokenWebsiteName] with Slugify(site.Name).
//
// Replacement is literal, case-sensitive, and global. No escaping is
// applied: a site URL containing characters significant to the document's
// format (for example '&' in an XML document) is inserted verbatim. Existing
// ping-list documents rely on this, so do not reuse ExpandTokens for
// untrusted templating.
func ExpandTokens(body string, site Site) string {
	body = strings.ReplaceAll(body, TokenWebsiteURL, site.URL)
	return strings.ReplaceAll(body, TokenWebsiteName, Slugify(site.Name))
}
