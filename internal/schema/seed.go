package schema

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed seed/*.yaml
var seedFS embed.FS

// LoadSeedCatalog читает встроенный каталог модулей (retailer, product,
// bill). Каталог используется только для первичного bootstrap'а:
// существующие, возможно отредактированные админом определения он
// никогда не перетирает — это забота движка (EnsureDefaults).
func LoadSeedCatalog() ([]*Module, error) {
	entries, err := seedFS.ReadDir("seed")
	if err != nil {
		return nil, err
	}

	var out []*Module
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := seedFS.ReadFile("seed/" + e.Name())
		if err != nil {
			return nil, err
		}
		var m Module
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("seed %s: %w", e.Name(), err)
		}
		m.Fields = NormalizeFields(m.Fields)
		m.Version = 1
		if issues := Lint(&m); len(issues) > 0 {
			return nil, fmt.Errorf("seed %s: %s", e.Name(), issues[0].Message)
		}
		out = append(out, &m)
	}

	// стабильный порядок по ключу, чтобы bootstrap был детерминированным
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
