// Package coach classifies coach advice ids into the three fixed
// roll-up categories. The id set is closed: an id the classifier does
// not know is reported as unknown and must never be guessed into a
// default category.
package coach

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Category is one of the three roll-up buckets for advice items.
type Category string

// The only three categories.
const (
	CategoryPerformance  Category = "performance"
	CategoryPrivacy      Category = "privacy"
	CategoryBestPractice Category = "bestpractice"
)

// Categories lists all categories in a stable order.
var Categories = []Category{
	CategoryPerformance,
	CategoryPrivacy,
	CategoryBestPractice,
}

// IsCategory reports whether the id is one of the three category names
// themselves. Category-level scores are persisted as pseudo-advice rows
// keyed by the category name, and consumers must not treat those rows
// as advice items.
func IsCategory(id string) bool {
	switch Category(id) {
	case CategoryPerformance, CategoryPrivacy, CategoryBestPractice:
		return true
	default:
		return false
	}
}

// DefaultCategoryMap is the built-in mapping of known advice ids to
// their category. Operators extend it through configuration; every id
// must appear in exactly one category.
var DefaultCategoryMap = map[Category][]string{
	CategoryPerformance: {
		"assetsRedirects", "avoidRenderBlocking", "avoidScalingImages",
		"cacheHeaders", "cacheHeadersLong", "compressAssets",
		"connectionKeepAlive", "cpuTimeSpentInRendering",
		"cpuTimeSpentInScripting", "cssPrint", "cssSize",
		"documentRedirect", "favicon", "fewFonts", "fewRequestsPerDomain",
		"firstContentfulPaint", "googleTagManager", "headerSize",
		"imageSize", "inlineCss", "javascriptSize", "jquery",
		"largestContentfulPaint", "longHeaders", "longTasks",
		"manyHeaders", "mimeTypes", "optimalCssSize", "pageSize",
		"privateAssets", "responseOk", "spof", "spdy",
	},
	CategoryPrivacy: {
		"amp", "contentSecurityPolicyHeader", "facebook", "fingerprint",
		"ga", "googleReCaptcha", "https", "mixedContent",
		"referrerPolicyHeader", "strictTransportSecurityHeader",
		"surveillance", "thirdParty", "thirdPartyCookies",
		"thirdPartyPrivacy", "youtube",
	},
	CategoryBestPractice: {
		"charset", "cumulativeLayoutShift", "doctype", "language",
		"metaDescription", "optimizely", "pageTitle",
		"unnecessaryHeaders", "url",
	},
}

// Classifier maps advice ids to categories.
type Classifier struct {
	byID map[string]Category
}

// NewClassifier builds a classifier from a category map. It fails when
// an id is assigned to more than one category, since a duplicated id
// would make classification ambiguous.
func NewClassifier(categoryMap map[Category][]string) (*Classifier, error) {
	byID := make(map[string]Category, 64)

	for _, category := range Categories {
		for _, id := range categoryMap[category] {
			if existing, ok := byID[id]; ok && existing != category {
				return nil, fmt.Errorf(
					"advice id %q mapped to both %q and %q",
					id, existing, category,
				)
			}

			byID[id] = category
		}
	}

	for category := range categoryMap {
		if !IsCategory(string(category)) {
			return nil, fmt.Errorf("unknown category %q in map", category)
		}
	}

	return &Classifier{byID: byID}, nil
}

// NewDefaultClassifier builds a classifier from the built-in map.
func NewDefaultClassifier() *Classifier {
	c, err := NewClassifier(DefaultCategoryMap)
	if err != nil {
		// The built-in map is validated by tests; reaching this is a bug.
		panic(err)
	}

	return c
}

// Classify returns the category for an advice id. The second return is
// false for unknown ids.
func (c *Classifier) Classify(adviceID string) (Category, bool) {
	category, ok := c.byID[adviceID]

	return category, ok
}

// Len returns the number of known advice ids.
func (c *Classifier) Len() int {
	return len(c.byID)
}

// categoryMapFile is the yaml shape of an operator-provided extension
// file: category name to list of advice ids.
type categoryMapFile map[Category][]string

// LoadCategoryMap reads an operator extension file and merges it over
// the built-in map. Ids already known keep their built-in category; a
// conflicting assignment fails validation in NewClassifier.
func LoadCategoryMap(path string) (map[Category][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category map file: %w", err)
	}

	var extra categoryMapFile
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("parsing category map file: %w", err)
	}

	merged := make(map[Category][]string, len(DefaultCategoryMap))
	for category, ids := range DefaultCategoryMap {
		merged[category] = append([]string(nil), ids...)
	}

	for category, ids := range extra {
		merged[category] = append(merged[category], ids...)
	}

	return merged, nil
}
