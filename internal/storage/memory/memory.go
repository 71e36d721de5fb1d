// Package memory is an in-process promotion store. It owns the catalog and
// golfer records and serializes redemption transactions with a single lock.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/fairway-promos/internal/domain/promotion"
)

var (
	_ promotion.LedgerStore = (*Store)(nil)
	_ promotion.AdminStore  = (*Store)(nil)
)

// Store keeps definitions in catalog order and golfers by id.
type Store struct {
	mu      sync.RWMutex
	defs    []promotion.Definition
	golfers map[string]promotion.Golfer
}

// New returns an empty Store.
func New() *Store {
	return &Store{golfers: make(map[string]promotion.Golfer)}
}

type txKey struct{}

// tx records undo steps so a failed callback leaves no partial writes.
type tx struct {
	store *Store
	undo  []func()
}

func (s *Store) txFromContext(ctx context.Context) *tx {
	t, _ := ctx.Value(txKey{}).(*tx)
	if t == nil || t.store != s {
		return nil
	}
	return t
}

// WithTx runs fn holding the store's write lock. Nested calls join the
// outer transaction. If fn fails every write it made is reverted.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txFromContext(ctx) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{store: s}
	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		return err
	}
	return nil
}

func (s *Store) rlock(ctx context.Context) func() {
	if s.txFromContext(ctx) != nil {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) lock(ctx context.Context) (unlock func(), t *tx) {
	if t := s.txFromContext(ctx); t != nil {
		return func() {}, t
	}
	s.mu.Lock()
	return s.mu.Unlock, nil
}

// ListDefinitions returns copies of all definitions in catalog order.
func (s *Store) ListDefinitions(ctx context.Context) ([]promotion.Definition, error) {
	defer s.rlock(ctx)()

	out := make([]promotion.Definition, len(s.defs))
	for i := range s.defs {
		out[i] = s.defs[i].Clone()
	}
	return out, nil
}

// GetDefinition returns a copy of the definition with the given id.
func (s *Store) GetDefinition(ctx context.Context, id string) (*promotion.Definition, error) {
	defer s.rlock(ctx)()

	i := s.indexByID(id)
	if i < 0 {
		return nil, errors.Wrapf(promotion.ErrDefinitionNotFound, "id %q", id)
	}
	def := s.defs[i].Clone()
	return &def, nil
}

// FindByCode returns a copy of the definition whose code matches, ignoring case.
func (s *Store) FindByCode(ctx context.Context, code string) (*promotion.Definition, error) {
	defer s.rlock(ctx)()

	for i := range s.defs {
		if s.defs[i].MatchesCode(code) {
			def := s.defs[i].Clone()
			return &def, nil
		}
	}
	return nil, promotion.ErrCouponNotFound
}

// CreateDefinition appends def to the catalog.
func (s *Store) CreateDefinition(ctx context.Context, def *promotion.Definition) error {
	unlock, t := s.lock(ctx)
	defer unlock()

	if s.indexByID(def.ID) >= 0 {
		return errors.Errorf("definition %q already exists", def.ID)
	}
	if s.codeTaken(def.Code, "") {
		return errors.Wrapf(promotion.ErrDuplicateCode, "code %q", def.Code)
	}
	s.defs = append(s.defs, def.Clone())
	if t != nil {
		n := len(s.defs) - 1
		t.undo = append(t.undo, func() { s.defs = s.defs[:n] })
	}
	return nil
}

// ImportDefinitions appends defs, skipping any whose id or code is already
// taken. It returns the number of definitions added.
func (s *Store) ImportDefinitions(ctx context.Context, defs []promotion.Definition) (int, error) {
	var inserted int
	err := s.WithTx(ctx, func(ctx context.Context) error {
		for i := range defs {
			if s.indexByID(defs[i].ID) >= 0 || s.codeTaken(defs[i].Code, "") {
				continue
			}
			if err := s.CreateDefinition(ctx, &defs[i]); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// UpdateDefinition replaces the stored definition, keeping its counter.
func (s *Store) UpdateDefinition(ctx context.Context, def *promotion.Definition) error {
	unlock, t := s.lock(ctx)
	defer unlock()

	i := s.indexByID(def.ID)
	if i < 0 {
		return errors.Wrapf(promotion.ErrDefinitionNotFound, "id %q", def.ID)
	}
	if s.codeTaken(def.Code, def.ID) {
		return errors.Wrapf(promotion.ErrDuplicateCode, "code %q", def.Code)
	}
	prev := s.defs[i]
	next := def.Clone()
	next.TotalUsed = prev.TotalUsed
	s.defs[i] = next
	if t != nil {
		t.undo = append(t.undo, func() { s.defs[i] = prev })
	}
	return nil
}

// GetGolfer returns a copy of the golfer or promotion.ErrInvalidGolfer.
func (s *Store) GetGolfer(ctx context.Context, id string) (*promotion.Golfer, error) {
	defer s.rlock(ctx)()

	g, ok := s.golfers[id]
	if !ok {
		return nil, promotion.ErrInvalidGolfer
	}
	c := g.Clone()
	return &c, nil
}

// PutGolfer inserts or replaces a golfer record.
func (s *Store) PutGolfer(ctx context.Context, g promotion.Golfer) error {
	unlock, t := s.lock(ctx)
	defer unlock()

	prev, existed := s.golfers[g.ID]
	s.golfers[g.ID] = g.Clone()
	if t != nil {
		t.undo = append(t.undo, func() {
			if existed {
				s.golfers[g.ID] = prev
			} else {
				delete(s.golfers, g.ID)
			}
		})
	}
	return nil
}

// RecordRedemption increments both counters for the pair.
func (s *Store) RecordRedemption(ctx context.Context, definitionID, golferID string) error {
	unlock, t := s.lock(ctx)
	defer unlock()

	i := s.indexByID(definitionID)
	if i < 0 {
		return errors.Wrapf(promotion.ErrDefinitionNotFound, "id %q", definitionID)
	}
	g, ok := s.golfers[golferID]
	if !ok {
		return promotion.ErrInvalidGolfer
	}

	s.defs[i].TotalUsed++
	if g.Redemptions == nil {
		g.Redemptions = make(promotion.Redemptions)
		s.golfers[golferID] = g
	}
	g.Redemptions[definitionID]++

	if t != nil {
		t.undo = append(t.undo, func() {
			s.defs[i].TotalUsed--
			s.golfers[golferID].Redemptions[definitionID]--
		})
	}
	return nil
}

func (s *Store) indexByID(id string) int {
	return slices.IndexFunc(s.defs, func(d promotion.Definition) bool { return d.ID == id })
}

func (s *Store) codeTaken(code, exceptID string) bool {
	return slices.ContainsFunc(s.defs, func(d promotion.Definition) bool {
		return d.ID != exceptID && d.MatchesCode(code)
	})
}
