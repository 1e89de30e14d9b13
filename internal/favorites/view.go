package favorites

import "context"

// BaseView is the stock filter sidebar that favorites extend
type BaseView interface {
	Filters() []FilterEntry
}

// StaticView is a BaseView with a fixed list of filters
type StaticView []FilterEntry

// Filters implements BaseView.
func (v StaticView) Filters() []FilterEntry {
	return append([]FilterEntry(nil), v...)
}

// View is a calendar sidebar composed of a base view and, optionally, the
// favorite synchronizer that owns its filters.
type View struct {
	Base      BaseView
	Favorites *Synchronizer
}

// Filters returns the ordered favorites when a synchronizer is attached and
// the base filters otherwise.
func (v *View) Filters() []FilterEntry {
	if v.Favorites != nil {
		return v.Favorites.Ordered()
	}
	if v.Base == nil {
		return nil
	}
	return v.Base.Filters()
}

// Init initializes the attached synchronizer. Views without favorites have
// nothing to load.
func (v *View) Init(ctx context.Context) error {
	if v.Favorites == nil {
		return nil
	}
	return v.Favorites.Init(ctx)
}
