package chronos

import (
	"fmt"
	"io/fs"
	"path"

	"github.com/starford/chronos/internal/models"
)

// ChildCount returns how many children a parent note lists under field. A
// single string counts as one child; any other shape counts as none.
func ChildCount(cache *models.FileCache, field string) int {
	if cache == nil {
		return 0
	}
	if field == "" {
		field = DefaultParentField
	}
	switch v := cache.Frontmatter[field].(type) {
	case string:
		return 1
	case []any:
		return len(v)
	}
	return 0
}

// FolderChildCount counts every file and folder below dir in fsys, at any
// depth. The walk uses an explicit stack, so deep trees cannot exhaust the
// goroutine stack.
func FolderChildCount(fsys fs.FS, dir string) (int, error) {
	count := 0
	stack := []string{dir}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := fs.ReadDir(fsys, cur)
		if err != nil {
			return 0, fmt.Errorf("chronos: read dir %s: %w", cur, err)
		}
		for _, e := range entries {
			count++
			if e.IsDir() {
				stack = append(stack, path.Join(cur, e.Name()))
			}
		}
	}
	return count, nil
}
