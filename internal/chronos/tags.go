package chronos

import "github.com/starford/chronos/internal/models"

// Tags returns the set of tags attached to a note: inline occurrences plus
// the front matter "tags" field, which may be a string or a list of strings.
// Values are kept verbatim. A nil cache yields an empty set.
func Tags(cache *models.FileCache) Set {
	tags := Set{}
	if cache == nil {
		return tags
	}
	for _, occ := range cache.Tags {
		tags.Add(occ.Tag)
	}
	switch v := cache.Frontmatter["tags"].(type) {
	case string:
		tags.Add(v)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				tags.Add(s)
			}
		}
	}
	return tags
}
