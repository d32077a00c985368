package cache

// Preference holds client-only display settings for one figure.
type Preference struct {
	LabelVisible bool `json:"labelVisible"`
}

// DefaultPreference is what a figure gets until the user changes something.
var DefaultPreference = Preference{LabelVisible: true}

// PreferenceStore maps figure ids to local display preferences.
// Entries survive snapshot replacement; the authority never sees them.
type PreferenceStore struct {
	prefs map[string]Preference
}

// NewPreferenceStore creates an empty PreferenceStore.
func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{
		prefs: make(map[string]Preference),
	}
}

// Get returns the preference for id, or DefaultPreference.
func (s *PreferenceStore) Get(id string) Preference {
	if p, ok := s.prefs[id]; ok {
		return p
	}
	return DefaultPreference
}

// SetLabelVisible stores the label visibility for id.
func (s *PreferenceStore) SetLabelVisible(id string, visible bool) {
	p := s.Get(id)
	p.LabelVisible = visible
	s.prefs[id] = p
}

// ToggleLabel flips the label visibility for id and returns the new value.
func (s *PreferenceStore) ToggleLabel(id string) bool {
	visible := !s.Get(id).LabelVisible
	s.SetLabelVisible(id, visible)
	return visible
}

// Len returns the number of stored entries.
func (s *PreferenceStore) Len() int {
	return len(s.prefs)
}
