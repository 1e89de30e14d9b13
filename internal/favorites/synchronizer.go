package favorites

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/teemow/odoocal/internal/instrumentation"
	"github.com/teemow/odoocal/internal/logging"
	"github.com/teemow/odoocal/internal/rpc"
)

// maxConcurrentCreates bounds the create calls of a single Add
const maxConcurrentCreates = 8

// Config holds the collaborators of a Synchronizer
type Config struct {
	// Session is the current user; UID and PartnerID are required
	Session rpc.Session

	// Store is the server-side contact list
	Store ContactStore

	// Color defaults to DefaultColor
	Color ColorFunc

	// Picker defaults to a new MemoryPicker
	Picker Picker

	// Confirmer is required for Remove
	Confirmer Confirmer

	// OnFiltersChanged is called after every successful mutation, once the
	// filter set was reloaded and the picker reset
	OnFiltersChanged func(ctx context.Context)

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Synchronizer keeps the filter sidebar, the picker and the server-side
// contact list in agreement.
type Synchronizer struct {
	session   rpc.Session
	store     ContactStore
	color     ColorFunc
	picker    Picker
	confirmer Confirmer
	onChanged func(ctx context.Context)
	logger    *slog.Logger
	metrics   *instrumentation.Metrics

	// writeQueue admits one mutation chain at a time
	writeQueue *semaphore.Weighted

	mu      sync.RWMutex
	filters FilterSet
}

// New creates a Synchronizer.
func New(cfg Config) (*Synchronizer, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("contact store cannot be nil")
	}
	if cfg.Session.UID == 0 || cfg.Session.PartnerID == 0 {
		return nil, fmt.Errorf("session must identify a user and partner")
	}

	s := &Synchronizer{
		session:    cfg.Session,
		store:      cfg.Store,
		color:      cfg.Color,
		picker:     cfg.Picker,
		confirmer:  cfg.Confirmer,
		onChanged:  cfg.OnFiltersChanged,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		writeQueue: semaphore.NewWeighted(1),
	}
	if s.color == nil {
		s.color = DefaultColor
	}
	if s.picker == nil {
		s.picker = NewMemoryPicker()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = logging.WithService(s.logger, instrumentation.ServiceFavorites)
	return s, nil
}

// Picker returns the picker the synchronizer resets.
func (s *Synchronizer) Picker() Picker {
	return s.picker
}

// Init loads the filter set and configures the picker with its exclusions.
func (s *Synchronizer) Init(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}
	s.picker.Reset(s.Filters().Keys())
	return nil
}

// Reload rebuilds the filter set from the server. On error the previous set
// is kept.
func (s *Synchronizer) Reload(ctx context.Context) error {
	contacts, err := s.store.Favorites(ctx, s.session.UID)
	if err != nil {
		return fmt.Errorf("failed to reload favorites: %w", err)
	}

	me := s.session.PartnerID
	set := FilterSet{
		me: {
			Value:     me,
			Label:     s.session.Name + MeSuffix,
			Color:     s.color(me),
			IsChecked: true,
		},
		EverybodyID: {
			Value: EverybodyID,
			Label: EverybodyLabel,
			Color: s.color(EverybodyID),
		},
	}
	for _, c := range contacts {
		id := c.PartnerID()
		if id == 0 || id == me || id == EverybodyID {
			continue
		}
		set[id] = FilterEntry{
			Value:        id,
			Label:        c.DisplayName(),
			Color:        s.color(id),
			IsChecked:    true,
			CanBeRemoved: true,
		}
	}

	s.mu.Lock()
	s.filters = set
	s.mu.Unlock()

	s.logger.Debug("favorites reloaded", slog.Int("filters", len(set)))
	return nil
}

// Filters returns a copy of the current filter set.
func (s *Synchronizer) Filters() FilterSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters.Clone()
}

// Ordered returns the filters with the current user first, the other
// partners by ascending id and everybody last.
func (s *Synchronizer) Ordered() []FilterEntry {
	return OrderedList(s.Filters(), s.session.PartnerID)
}

// OrderedList orders set for display. me comes first, EverybodyID last.
func OrderedList(set FilterSet, me int64) []FilterEntry {
	if len(set) == 0 {
		return nil
	}

	out := make([]FilterEntry, 0, len(set))
	if e, ok := set[me]; ok {
		out = append(out, e)
	}

	middle := make([]FilterEntry, 0, len(set))
	for v, e := range set {
		if v != me && v != EverybodyID {
			middle = append(middle, e)
		}
	}
	sort.Slice(middle, func(i, j int) bool { return middle[i].Value < middle[j].Value })
	out = append(out, middle...)

	if e, ok := set[EverybodyID]; ok {
		out = append(out, e)
	}
	return out
}

// AddSelected adds the values selected in the picker. The selection is read
// while the write queue is held.
func (s *Synchronizer) AddSelected(ctx context.Context) error {
	return s.add(ctx, s.picker.Selected)
}

// CheckAddable returns ErrExcluded for the first id that already has a
// filter. The current user's own partner is ignored since Add skips it.
func (s *Synchronizer) CheckAddable(partnerIDs []int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range partnerIDs {
		if id == s.session.PartnerID {
			continue
		}
		if _, ok := s.filters[id]; ok {
			return fmt.Errorf("partner %d: %w", id, ErrExcluded)
		}
	}
	return nil
}

// Add makes the given partners favorites. The current user's own partner
// and everybody's pseudo partner are skipped. All creations run
// concurrently and must all succeed; then the filter set is reloaded, the
// picker reset and OnFiltersChanged called.
func (s *Synchronizer) Add(ctx context.Context, partnerIDs []int64) error {
	return s.add(ctx, func() []int64 { return partnerIDs })
}

func (s *Synchronizer) add(ctx context.Context, selected func() []int64) (err error) {
	ctx, span := instrumentation.StartSpan(ctx, "favorites.add")
	defer span.End()
	defer func() { s.finishMutation(ctx, instrumentation.MutationAdd, err) }()

	if err := s.writeQueue.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.writeQueue.Release(1)

	partnerIDs := selected()
	targets := make([]int64, 0, len(partnerIDs))
	seen := make(map[int64]bool, len(partnerIDs))
	for _, id := range partnerIDs {
		if id == s.session.PartnerID || id == EverybodyID || seen[id] {
			continue
		}
		seen[id] = true
		targets = append(targets, id)
	}

	var g errgroup.Group
	g.SetLimit(maxConcurrentCreates)
	for _, id := range targets {
		g.Go(func() error {
			if _, err := s.store.Create(ctx, id); err != nil {
				return err
			}
			instrumentation.AddSpanEvent(span, "favorite.created",
				instrumentation.NewSpanAttributeBuilder().WithResource("partner", strconv.FormatInt(id, 10)).Build()...)
			s.logger.Debug("favorite created", logging.Partner(id))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		instrumentation.SetSpanError(span, err)
		return fmt.Errorf("failed to add favorites: %w", err)
	}

	return s.refresh(ctx)
}

// Remove asks for confirmation and removes partnerID from the favorites.
// A declined confirmation leaves everything untouched and returns nil.
func (s *Synchronizer) Remove(ctx context.Context, partnerID int64) (err error) {
	entry, ok, loaded := s.lookup(partnerID)
	switch {
	case !loaded:
		return ErrNotInitialized
	case !ok:
		return fmt.Errorf("%w: %d", ErrUnknownFilter, partnerID)
	case !entry.CanBeRemoved:
		return fmt.Errorf("%w: %s", ErrNotRemovable, entry.Label)
	}
	if s.confirmer == nil {
		return fmt.Errorf("no confirmer configured")
	}

	confirmed, err := s.confirmer.Confirm(ctx, ConfirmRemoveMessage)
	if err != nil {
		return fmt.Errorf("failed to confirm removal: %w", err)
	}
	if !confirmed {
		s.logger.Info("favorite removal declined", logging.Partner(partnerID))
		return nil
	}

	ctx, span := instrumentation.StartSpan(ctx, "favorites.remove")
	defer span.End()
	defer func() { s.finishMutation(ctx, instrumentation.MutationRemove, err) }()

	if err := s.writeQueue.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.writeQueue.Release(1)

	if _, err := s.store.UnlinkFromPartnerID(ctx, partnerID); err != nil {
		instrumentation.SetSpanError(span, err)
		return fmt.Errorf("failed to remove favorite: %w", err)
	}

	return s.refresh(ctx)
}

func (s *Synchronizer) lookup(value int64) (FilterEntry, bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.filters[value]
	return e, ok, len(s.filters) > 0
}

// refresh runs reload, picker reset and change notification in order.
func (s *Synchronizer) refresh(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}
	s.picker.Reset(s.Filters().Keys())
	if s.onChanged != nil {
		s.onChanged(ctx)
	}
	return nil
}

func (s *Synchronizer) finishMutation(ctx context.Context, op string, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		s.logger.Warn("favorite mutation failed", logging.Operation(op), logging.Err(err))
	}
	s.metrics.RecordFavoriteMutation(ctx, op, status)
}
