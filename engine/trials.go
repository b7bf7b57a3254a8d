package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var ErrMissingStimulusDir = errors.New("stimulus directory not found")

type Condition int

const (
	Face Condition = iota + 1
	House
)

func (c Condition) String() string {
	switch c {
	case Face:
		return "face"
	case House:
		return "house"
	}
	return fmt.Sprintf("Condition(%d)", int(c))
}

func ParseCondition(s string) (Condition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "face", "1":
		return Face, nil
	case "house", "2":
		return House, nil
	}
	return 0, fmt.Errorf("unknown condition %q", s)
}

type Trial struct {
	Filename  string
	Condition Condition
	// Path is Filename joined with its category directory.
	Path string
}

// CheckStimulusDir reports ErrMissingStimulusDir when dir is absent or not a directory.
func CheckStimulusDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrMissingStimulusDir, dir)
	}
	return nil
}

func isJPEG(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}

// ListImages returns the sorted names of the JPEG files in dir.
func ListImages(dir string) ([]string, error) {
	if err := CheckStimulusDir(dir); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !isJPEG(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// BuildTrials lists both category directories, replicates the combined set
// reps times and shuffles it.
func BuildTrials(faceDir, houseDir string, reps int, rng *rand.Rand) ([]Trial, error) {
	faces, err := ListImages(faceDir)
	if err != nil {
		return nil, err
	}
	houses, err := ListImages(houseDir)
	if err != nil {
		return nil, err
	}

	base := make([]Trial, 0, len(faces)+len(houses))
	for _, name := range faces {
		base = append(base, Trial{Filename: name, Condition: Face, Path: filepath.Join(faceDir, name)})
	}
	for _, name := range houses {
		base = append(base, Trial{Filename: name, Condition: House, Path: filepath.Join(houseDir, name)})
	}

	trials := make([]Trial, 0, len(base)*reps)
	for i := 0; i < reps; i++ {
		trials = append(trials, base...)
	}
	rng.Shuffle(len(trials), func(i, j int) {
		trials[i], trials[j] = trials[j], trials[i]
	})
	return trials, nil
}

// SelectFixChanges picks n distinct trial indices in [0, count).
func SelectFixChanges(n, count int, rng *rand.Rand) ([]int, error) {
	if n < 0 || n > count {
		return nil, fmt.Errorf("cannot select %d fixation changes from %d trials", n, count)
	}
	idx := rng.Perm(count)[:n]
	sort.Ints(idx)
	return idx, nil
}

func PickISI(jitter []time.Duration, rng *rand.Rand) time.Duration {
	return jitter[rng.IntN(len(jitter))]
}

// Plan is the full ordered trial sequence for one run.
type Plan struct {
	Trials     []Trial
	ISIs       []time.Duration
	FixChanges []int

	fixSet map[int]bool
}

func newPlan(trials []Trial, isis []time.Duration, fix []int) *Plan {
	p := &Plan{Trials: trials, ISIs: isis, FixChanges: fix, fixSet: make(map[int]bool, len(fix))}
	for _, i := range fix {
		p.fixSet[i] = true
	}
	return p
}

func NewPlan(cfg *Config, rng *rand.Rand) (*Plan, error) {
	trials, err := BuildTrials(cfg.FaceDir, cfg.HouseDir, cfg.Reps, rng)
	if err != nil {
		return nil, err
	}
	fix, err := SelectFixChanges(cfg.FixChanges, len(trials), rng)
	if err != nil {
		return nil, err
	}
	isis := make([]time.Duration, len(trials))
	for i := range isis {
		isis[i] = PickISI(cfg.ISIJitter, rng)
	}
	return newPlan(trials, isis, fix), nil
}

// FixChange reports whether trial i shows the changed fixation color.
func (p *Plan) FixChange(i int) bool {
	return p.fixSet[i]
}

// Paths returns each distinct image path once, in first-use order.
func (p *Plan) Paths() []string {
	seen := make(map[string]bool, len(p.Trials))
	var paths []string
	for _, t := range p.Trials {
		if !seen[t.Path] {
			seen[t.Path] = true
			paths = append(paths, t.Path)
		}
	}
	return paths
}

func (p *Plan) Count(c Condition) int {
	n := 0
	for _, t := range p.Trials {
		if t.Condition == c {
			n++
		}
	}
	return n
}
