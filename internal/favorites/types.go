package favorites

import (
	"context"
	"errors"
	"sort"

	"github.com/teemow/odoocal/internal/calendar"
)

// EverybodyID is the filter value of the "everybody" entry
const EverybodyID int64 = -1

// Labels of the fixed entries and the removal prompt
const (
	MeSuffix             = " [Me]"
	EverybodyLabel       = "Everybody's calendars"
	ConfirmRemoveMessage = "Do you really want to delete this filter from favorites ?"
)

var (
	// ErrNotRemovable is returned when removing the current user or everybody entry
	ErrNotRemovable = errors.New("filter cannot be removed")

	// ErrNotInitialized is returned by operations that need a loaded filter set
	ErrNotInitialized = errors.New("favorites not loaded")

	// ErrUnknownFilter is returned when removing a value absent from the filter set
	ErrUnknownFilter = errors.New("unknown filter")

	// ErrExcluded is returned when the picker is asked to select an excluded value
	ErrExcluded = errors.New("partner is already a filter")
)

// FilterEntry is one row of the calendar filter sidebar
type FilterEntry struct {
	// Value is a partner id, or EverybodyID
	Value        int64  `json:"value"`
	Label        string `json:"label"`
	Color        int    `json:"color"`
	IsChecked    bool   `json:"is_checked"`
	CanBeRemoved bool   `json:"can_be_removed"`
}

// FilterSet maps filter values to their entries
type FilterSet map[int64]FilterEntry

// Keys returns the filter values in ascending order
func (s FilterSet) Keys() []int64 {
	keys := make([]int64, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Clone returns an independent copy
func (s FilterSet) Clone() FilterSet {
	if s == nil {
		return nil
	}
	out := make(FilterSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ContactStore is the server-side list of favorite calendars
type ContactStore interface {
	Favorites(ctx context.Context, uid int64) ([]calendar.Contact, error)
	Create(ctx context.Context, partnerID int64) (int64, error)
	UnlinkFromPartnerID(ctx context.Context, partnerID int64) (bool, error)
}

// Picker is the combo-box used to choose new favorites.
// Reset replaces it by a fresh, empty instance excluding the given values.
type Picker interface {
	Reset(exclusions []int64)
	Selected() []int64
}

// Confirmer asks the user to approve a destructive action
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, message string) (bool, error)

// Confirm implements Confirmer
func (f ConfirmFunc) Confirm(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}

// AlwaysConfirm approves every prompt. For callers that collected consent beforehand.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) {
	return true, nil
})

// ColorFunc maps a filter value to a color index
type ColorFunc func(value int64) int

// DefaultColor returns a deterministic color index between 1 and 24
func DefaultColor(value int64) int {
	return int(((value%24)+24)%24) + 1
}
