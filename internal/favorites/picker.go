package favorites

import (
	"fmt"
	"sort"
	"sync"
)

// Candidate is a partner offered by the picker
type Candidate struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MemoryPicker is an in-memory Picker. Each Reset starts a new generation
// with an empty selection.
type MemoryPicker struct {
	mu         sync.Mutex
	generation int
	exclusions map[int64]bool
	selected   []int64
}

// NewMemoryPicker creates an empty picker.
func NewMemoryPicker() *MemoryPicker {
	return &MemoryPicker{exclusions: make(map[int64]bool)}
}

// Reset implements Picker.
func (p *MemoryPicker) Reset(exclusions []int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.generation++
	p.selected = nil
	p.exclusions = make(map[int64]bool, len(exclusions))
	for _, id := range exclusions {
		p.exclusions[id] = true
	}
}

// Select adds ids to the selection. Excluded ids are rejected and nothing
// is selected.
func (p *MemoryPicker) Select(ids ...int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range ids {
		if p.exclusions[id] {
			return fmt.Errorf("%w: %d", ErrExcluded, id)
		}
	}
	for _, id := range ids {
		if !containsID(p.selected, id) {
			p.selected = append(p.selected, id)
		}
	}
	return nil
}

// Selected implements Picker.
func (p *MemoryPicker) Selected() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.selected...)
}

// Excluded returns the current exclusions in ascending order.
func (p *MemoryPicker) Excluded() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]int64, 0, len(p.exclusions))
	for id := range p.exclusions {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Search drops the excluded candidates.
func (p *MemoryPicker) Search(candidates []Candidate) []Candidate {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !p.exclusions[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

// Generation counts the resets.
func (p *MemoryPicker) Generation() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
