package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirSource loads every *.json curriculum file under a directory.
type DirSource struct {
	Dir string
}

// Load parses all curriculum files in the directory. A duplicate item
// id across files is an authoring error and fails the whole load.
func (s DirSource) Load(ctx context.Context) (map[string]*Item, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read catalog dir %s: %w", s.Dir, err)
	}

	items := map[string]*Item{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(s.Dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		f, err := ParseFile(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		for i := range f.Items {
			it := &f.Items[i]
			if _, dup := items[it.ID]; dup {
				return nil, fmt.Errorf("%s: duplicate item id %q", e.Name(), it.ID)
			}
			items[it.ID] = it
		}
	}
	return items, nil
}
