// Package inbox finds force/velocity export pairs in an input directory laid
// out as <dir>/force/<name> and <dir>/velocity/<name>, and watches it for
// new arrivals.
package inbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lucasjlepore/cmj-analyzer/hawkin"
)

// Source subdirectories.
const (
	ForceDir    = "force"
	VelocityDir = "velocity"
)

// Pair is one jump with both exports present.
type Pair struct {
	Name         hawkin.Name
	ForcePath    string
	VelocityPath string
}

// Skipped is a file that could not be paired.
type Skipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Scan lists the complete pairs under dir, ordered by last name, first name
// and date. Files whose names do not parse, duplicates of an already seen
// key, and files without a counterpart are reported as skipped.
func Scan(dir string) ([]Pair, []Skipped, error) {
	forces, skipped, err := scanSide(filepath.Join(dir, ForceDir))
	if err != nil {
		return nil, nil, err
	}
	velocities, vSkipped, err := scanSide(filepath.Join(dir, VelocityDir))
	if err != nil {
		return nil, nil, err
	}
	skipped = append(skipped, vSkipped...)

	names := make([]hawkin.Name, 0, len(forces))
	for key, f := range forces {
		if _, ok := velocities[key]; !ok {
			skipped = append(skipped, Skipped{Path: f.path, Reason: "no matching velocity export"})
			continue
		}
		names = append(names, f.name)
	}
	for key, v := range velocities {
		if _, ok := forces[key]; !ok {
			skipped = append(skipped, Skipped{Path: v.path, Reason: "no matching force export"})
		}
	}
	// Keys are unique per side; sort them first so equal names keep a stable order.
	sort.Slice(names, func(i, j int) bool { return names[i].Key < names[j].Key })
	hawkin.Sort(names)

	pairs := make([]Pair, 0, len(names))
	for _, n := range names {
		pairs = append(pairs, Pair{
			Name:         n,
			ForcePath:    forces[n.Key].path,
			VelocityPath: velocities[n.Key].path,
		})
	}
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Path < skipped[j].Path })
	return pairs, skipped, nil
}

type sideFile struct {
	name hawkin.Name
	path string
}

func scanSide(dir string) (map[string]sideFile, []Skipped, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", dir, err)
	}
	files := make(map[string]sideFile, len(entries))
	var skipped []Skipped
	// ReadDir sorts by file name, so the first of several exports sharing a key wins.
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		name, err := hawkin.Parse(e.Name())
		if err != nil {
			skipped = append(skipped, Skipped{Path: path, Reason: err.Error()})
			continue
		}
		if prev, dup := files[name.Key]; dup {
			skipped = append(skipped, Skipped{Path: path, Reason: fmt.Sprintf("duplicate of %s", filepath.Base(prev.path))})
			continue
		}
		files[name.Key] = sideFile{name: name, path: path}
	}
	return files, skipped, nil
}
