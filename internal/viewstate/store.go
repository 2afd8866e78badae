// Package viewstate keeps the client-local favorites and view preferences.
// Values are persisted through a Storage and kept consistent between
// concurrently running instances through a Notifier.
package viewstate

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"trade-viewer/internal/logger"
)

// Storage keys. The names are shared with the web client and must not change.
const (
	SetFavoritesOverview = "favorites-overview"
	SetFavoritesPrices   = "favorites-prices"
	SetVisibleStations   = "visibleStations"

	KeySelectedStation = "selectedStation"
	KeySortOrder       = "sortOrder"
	KeyShowPercent     = "showPercent"
)

const DefaultSortOrder = "default"

var validSortOrders = map[string]bool{
	"default":    true,
	"price-high": true,
	"price-low":  true,
}

var knownSets = []string{SetFavoritesOverview, SetFavoritesPrices, SetVisibleStations}

// Store is one instance's view of the persisted state.
type Store struct {
	id       string
	storage  Storage
	notifier Notifier
	log      *logger.Entry

	// writeMu serializes local writes so storage sees them in call order.
	// Listeners run while it is held and must not write to the store.
	writeMu sync.Mutex

	mu              sync.RWMutex
	sets            map[string]*keySet
	selectedStation *string
	sortOrder       string
	showPercent     bool

	listenerMu sync.RWMutex
	listeners  []func(key string)

	unsubscribe func()
}

// New loads every known key from storage. notifier may be nil, in which case
// the store neither publishes nor receives changes.
func New(storage Storage, notifier Notifier, log *logger.Log) *Store {
	s := &Store{
		id:        uuid.NewString(),
		storage:   storage,
		notifier:  notifier,
		log:       log.WithComponent("viewstate"),
		sets:      make(map[string]*keySet),
		sortOrder: DefaultSortOrder,
	}

	for _, name := range knownSets {
		s.sets[name] = s.loadSet(name)
	}
	s.selectedStation = parseOptionalString(s.read(KeySelectedStation))
	s.sortOrder = parseSortOrder(s.read(KeySortOrder))
	s.showPercent = parseBool(s.read(KeyShowPercent))

	if notifier != nil {
		s.unsubscribe = notifier.Subscribe(s.handleChange)
	}
	return s
}

// ID identifies the instance as the Origin of its changes.
func (s *Store) ID() string {
	return s.id
}

// Close stops receiving changes from other instances.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// OnChange registers fn to run after any key changes, locally or remotely.
func (s *Store) OnChange(fn func(key string)) {
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenerMu.Unlock()
}

// Toggle flips key in the named set, persists the whole set and notifies the
// other instances. It returns the new membership of key. When the write
// fails the set is restored and the previous membership is returned.
func (s *Store) Toggle(setName, key string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	set := s.setLocked(setName)
	prev := set.members()
	member := set.toggle(key)
	raw := set.serialize()
	s.mu.Unlock()

	if err := s.persist(setName, &raw); err != nil {
		s.restoreSet(setName, set, prev)
		return !member, err
	}
	return member, nil
}

// Has reports membership of key in the named set.
func (s *Store) Has(setName, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(setName).has(key)
}

// Members returns the named set's keys in insertion order.
func (s *Store) Members(setName string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(setName).members()
}

// Set returns a point-in-time copy of the named set.
func (s *Store) Set(setName string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(setName).snapshot()
}

// Replace overwrites the named set, e.g. to make every station visible again.
func (s *Store) Replace(setName string, keys []string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	prev := s.setLocked(setName).members()
	set := newKeySet(keys)
	s.sets[setName] = set
	raw := set.serialize()
	s.mu.Unlock()

	if err := s.persist(setName, &raw); err != nil {
		s.restoreSet(setName, set, prev)
		return err
	}
	return nil
}

// restoreSet puts prev back unless another instance replaced the set since.
func (s *Store) restoreSet(setName string, written *keySet, prev []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sets[setName] == written {
		s.sets[setName] = newKeySet(prev)
	}
}

func (s *Store) SelectedStation() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedStation == nil {
		return "", false
	}
	return *s.selectedStation, true
}

// SetSelectedStation stores the card-view station filter; an empty id clears it.
func (s *Store) SetSelectedStation(stationID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var next, raw *string
	if stationID != "" {
		next = &stationID
		encoded := mustJSON(stationID)
		raw = &encoded
	}

	s.mu.Lock()
	prev := s.selectedStation
	s.selectedStation = next
	s.mu.Unlock()

	if err := s.persist(KeySelectedStation, raw); err != nil {
		s.mu.Lock()
		s.selectedStation = prev
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) SortOrder() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortOrder
}

// SetSortOrder stores order; unknown values reset to the default order.
func (s *Store) SetSortOrder(order string) error {
	if !validSortOrders[order] {
		order = DefaultSortOrder
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	prev := s.sortOrder
	s.sortOrder = order
	s.mu.Unlock()

	raw := mustJSON(order)
	if err := s.persist(KeySortOrder, &raw); err != nil {
		s.mu.Lock()
		s.sortOrder = prev
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) ShowPercent() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showPercent
}

func (s *Store) SetShowPercent(v bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	prev := s.showPercent
	s.showPercent = v
	s.mu.Unlock()

	raw := mustJSON(v)
	if err := s.persist(KeyShowPercent, &raw); err != nil {
		s.mu.Lock()
		s.showPercent = prev
		s.mu.Unlock()
		return err
	}
	return nil
}

// persist writes or removes key and announces the change.
func (s *Store) persist(key string, raw *string) error {
	var err error
	if raw == nil {
		err = s.storage.Remove(key)
	} else {
		err = s.storage.Set(key, *raw)
	}
	if err != nil {
		s.log.WithError(err).WithFields(logger.Fields{"key": key}).Warn("failed to persist view state")
		return err
	}

	if s.notifier != nil {
		change := Change{Key: key, NewValue: raw, Origin: s.id}
		if err := s.notifier.Publish(context.Background(), change); err != nil {
			s.log.WithError(err).WithFields(logger.Fields{"key": key}).Warn("failed to publish view state change")
		}
	}
	s.fire(key)
	return nil
}

// handleChange applies a change written by another instance.
func (s *Store) handleChange(change Change) {
	if change.Origin == s.id {
		return
	}

	s.mu.Lock()
	switch change.Key {
	case KeySelectedStation:
		s.selectedStation = parseOptionalString(change.NewValue)
	case KeySortOrder:
		s.sortOrder = parseSortOrder(change.NewValue)
	case KeyShowPercent:
		s.showPercent = parseBool(change.NewValue)
	default:
		if _, observed := s.sets[change.Key]; !observed {
			s.mu.Unlock()
			return
		}
		s.sets[change.Key] = newKeySet(parseSet(change.NewValue))
	}
	s.mu.Unlock()

	s.fire(change.Key)
}

func (s *Store) fire(key string) {
	s.listenerMu.RLock()
	fns := append([]func(string){}, s.listeners...)
	s.listenerMu.RUnlock()
	for _, fn := range fns {
		fn(key)
	}
}

// setLocked returns the named set, loading it on first use. Callers hold mu.
func (s *Store) setLocked(name string) *keySet {
	set, ok := s.sets[name]
	if !ok {
		set = s.loadSet(name)
		s.sets[name] = set
	}
	return set
}

func (s *Store) loadSet(name string) *keySet {
	return newKeySet(parseSet(s.read(name)))
}

// read returns nil when the key is absent or unreadable.
func (s *Store) read(key string) *string {
	v, err := s.storage.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.WithError(err).WithFields(logger.Fields{"key": key}).Debug("view state unreadable, using default")
		}
		return nil
	}
	return &v
}

func parseSet(raw *string) []string {
	if raw == nil {
		return nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(*raw), &keys); err != nil {
		return nil
	}
	return keys
}

// parseOptionalString accepts a JSON string and, for values written by older
// clients, the bare unquoted value (station ids are often all digits).
// Arrays, objects, booleans and null are type mismatches.
func parseOptionalString(raw *string) *string {
	if raw == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*raw)
	var v string
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		switch {
		case trimmed == "", trimmed == "null", trimmed == "true", trimmed == "false":
			return nil
		case strings.HasPrefix(trimmed, "["), strings.HasPrefix(trimmed, "{"):
			return nil
		}
		v = trimmed
	}
	if v == "" {
		return nil
	}
	return &v
}

func parseSortOrder(raw *string) string {
	v := parseOptionalString(raw)
	if v == nil || !validSortOrders[*v] {
		return DefaultSortOrder
	}
	return *v
}

func parseBool(raw *string) bool {
	if raw == nil {
		return false
	}
	var v bool
	if err := json.Unmarshal([]byte(*raw), &v); err != nil {
		return false
	}
	return v
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
