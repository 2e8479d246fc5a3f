// Package source collects raw dataset files from an input directory of zip
// archives and loose JSON files.
package source

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/denosys/InferenceMAX/internal/fetcher"
)

// Input is one dataset file before parsing.
type Input struct {
	// Name is the flat, filesystem-safe dataset file name.
	Name string
	// Origin is where the bytes came from: a path, or archive!member.
	Origin string
	Data   []byte
}

// Inventory describes what Collect found.
type Inventory struct {
	Archives    []string
	BadArchives []string
	LooseFiles  []string
	Duplicates  []string
}

// SafeName keeps ASCII letters, digits, '-', '_' and '.', replacing every
// other character with '_'.
func SafeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// MemberName is the dataset name of an archive member:
// <archive stem>__<member path>, made safe, with a .json suffix.
func MemberName(archive, member string) string {
	stem := strings.TrimSuffix(filepath.Base(archive), filepath.Ext(archive))
	return ensureJSON(SafeName(stem) + "__" + SafeName(member))
}

func ensureJSON(name string) string {
	if !isJSON(name) {
		name += ".json"
	}
	return name
}

func isJSON(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".json")
}

// Collect reads every JSON member of every *.zip in dir and every loose
// *.json file, and returns them sorted by dataset name. When two inputs
// map to the same name the first one read wins. Archives are read before
// loose files.
func Collect(dir string) ([]Input, *Inventory, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "source: read dir %s", dir)
	}

	inv := &Inventory{}
	var zips, loose []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch {
		case strings.EqualFold(filepath.Ext(e.Name()), ".zip"):
			zips = append(zips, filepath.Join(dir, e.Name()))
		case isJSON(e.Name()):
			loose = append(loose, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(zips)
	sort.Strings(loose)

	seen := make(map[string]bool)
	var out []Input
	keep := func(in Input) {
		if seen[in.Name] {
			inv.Duplicates = append(inv.Duplicates, in.Origin)
			zap.L().Warn("source: duplicate dataset name, keeping first",
				zap.String("file", in.Name),
				zap.String("origin", in.Origin),
			)
			return
		}
		seen[in.Name] = true
		out = append(out, in)
	}

	for _, z := range zips {
		inv.Archives = append(inv.Archives, filepath.Base(z))
		members, err := fetcher.ReadZIP(z, isJSON)
		if err != nil {
			inv.BadArchives = append(inv.BadArchives, filepath.Base(z))
			zap.L().Warn("source: skipping bad archive", zap.String("archive", z), zap.Error(err))
			continue
		}
		for _, m := range members {
			keep(Input{
				Name:   MemberName(z, m.Name),
				Origin: filepath.Base(z) + "!" + m.Name,
				Data:   m.Data,
			})
		}
	}

	for _, p := range loose {
		b, err := os.ReadFile(p)
		if err != nil {
			zap.L().Warn("source: skipping unreadable file", zap.String("file", p), zap.Error(err))
			continue
		}
		inv.LooseFiles = append(inv.LooseFiles, filepath.Base(p))
		keep(Input{Name: SafeName(filepath.Base(p)), Origin: p, Data: b})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, inv, nil
}
