package ruleset

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/solatis/importgate/internal/rules"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Builtin returns the embedded rule sets, ordered by file name.
func Builtin() ([]*File, error) {
	names, err := fs.Glob(builtinFS, "builtin/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to list builtin rule sets: %w", err)
	}
	sort.Strings(names)

	files := make([]*File, 0, len(names))
	for _, name := range names {
		data, err := builtinFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		f, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("builtin rule set %s: %w", path.Base(name), err)
		}
		f.Source = "builtin:" + path.Base(name)
		files = append(files, f)
	}
	return files, nil
}

// ApplyBuiltin registers every embedded rule set with r.
func ApplyBuiltin(r *rules.Registry) error {
	files, err := Builtin()
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := f.Apply(r); err != nil {
			return fmt.Errorf("%s: %w", f.Source, err)
		}
	}
	return nil
}
