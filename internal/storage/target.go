package storage

import "time"

// KindCombined is the resource_state kind for combined light targets.
const KindCombined = "combined"

// TargetState is the persisted part of a combined light.
type TargetState struct {
	Target    uint8     `json:"target"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TargetStore keeps combined light target brightness across restarts.
type TargetStore struct {
	store *Store
}

// NewTargetStore creates a target store on top of store.
func NewTargetStore(store *Store) *TargetStore {
	return &TargetStore{store: store}
}

// LoadTarget returns the stored target for name; ok is false if none was saved.
func (s *TargetStore) LoadTarget(name string) (uint8, bool, error) {
	var st TargetState
	version, err := s.store.Load(KindCombined, name, &st)
	if err != nil {
		return 0, false, err
	}
	return st.Target, version > 0, nil
}

// SaveTarget stores the target for name.
func (s *TargetStore) SaveTarget(name string, target uint8) error {
	return s.store.Save(KindCombined, name, TargetState{Target: target, UpdatedAt: s.store.now().UTC()})
}

// Reset forgets every stored target.
func (s *TargetStore) Reset() error {
	return s.store.Clear(KindCombined)
}
