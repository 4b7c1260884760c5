// Package markertype keeps the set of marker categories, their colors and
// display names, and which category new markers are created with.
package markertype

import (
	"errors"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/jwulff/tubemarker/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StorageKey is the preference key holding the registry snapshot.
const StorageKey = "customMarkerTypes"

// ErrEmptyType is returned when a type name is blank.
var ErrEmptyType = errors.New("marker type name is empty")

// NeutralHex is the color of markers without a usable type.
const NeutralHex = "#b2bec3"

// Palette is assigned round-robin to newly created types.
var Palette = []string{
	"#0984e3", // blue
	"#fdcb6e", // yellow
	"#d63031", // red
	"#00b894", // green
	"#6c5ce7", // purple
	"#ff7675", // salmon
	"#2d3436", // dark grey
	"#e17055", // coral
}

// Prefs is the durable key/value store the registry snapshot is written to.
type Prefs interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Type is the display metadata of a marker type.
type Type struct {
	Key         string `json:"-"`
	Hex         string `json:"hex"`
	DisplayName string `json:"displayName"`
}

// Registry maps normalized type keys to display metadata.
type Registry struct {
	types  map[string]Type
	active string
	prefs  Prefs
}

// Normalize trims and lowercases a type name. ok is false for empty names.
func Normalize(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	return key, key != ""
}

func defaults() map[string]Type {
	return map[string]Type{
		"question":  {Key: "question", Hex: Palette[0], DisplayName: "Question"},
		"summary":   {Key: "summary", Hex: Palette[1], DisplayName: "Summary"},
		"action":    {Key: "action", Hex: Palette[2], DisplayName: "Action"},
		"reference": {Key: "reference", Hex: Palette[3], DisplayName: "Reference"},
	}
}

// Load restores the registry from prefs, seeding the default types on first run.
// A nil prefs gives a session-only registry.
func Load(prefs Prefs) *Registry {
	r := &Registry{types: map[string]Type{}, prefs: prefs}
	if prefs == nil {
		r.types = defaults()
		return r
	}

	stored, ok, err := prefs.Get(StorageKey)
	if err != nil {
		logger.Errorf("[MarkerTypes] failed to load registry: %v", err)
		return r
	}
	if !ok || stored == "" {
		r.types = defaults()
		r.save()
		logger.Infof("[MarkerTypes] no stored registry, seeded %d default types", len(r.types))
		return r
	}

	var snapshot map[string]Type
	if err := json.Unmarshal([]byte(stored), &snapshot); err != nil {
		logger.Errorf("[MarkerTypes] failed to parse stored registry: %v", err)
		return r
	}
	for key, t := range snapshot {
		t.Key = key
		if _, err := colorful.Hex(t.Hex); err != nil {
			logger.Warnf("[MarkerTypes] type %q has invalid color %q, using neutral", key, t.Hex)
			t.Hex = NeutralHex
		}
		r.types[key] = t
	}
	logger.Debugf("[MarkerTypes] loaded %d types", len(r.types))
	return r
}

func (r *Registry) save() {
	if r.prefs == nil {
		return
	}
	data, err := json.Marshal(r.types)
	if err != nil {
		logger.Errorf("[MarkerTypes] failed to encode registry: %v", err)
		return
	}
	if err := r.prefs.Set(StorageKey, string(data)); err != nil {
		logger.Errorf("[MarkerTypes] failed to save registry: %v", err)
	}
}

// Resolve returns the color of name, creating and persisting the type when
// it is unknown. Empty names get the neutral color and are not registered.
func (r *Registry) Resolve(name string) string {
	key, ok := Normalize(name)
	if !ok {
		return NeutralHex
	}
	if t, ok := r.types[key]; ok {
		return t.Hex
	}

	hex := Palette[len(r.types)%len(Palette)]
	r.types[key] = Type{
		Key:         key,
		Hex:         hex,
		DisplayName: strings.TrimSpace(name),
	}
	r.save()
	logger.Infof("[MarkerTypes] created type %s with color %s", key, hex)

	return hex
}

// Lookup returns the type registered under name, without creating it.
func (r *Registry) Lookup(name string) (Type, bool) {
	key, ok := Normalize(name)
	if !ok {
		return Type{}, false
	}
	t, ok := r.types[key]
	return t, ok
}

// Color returns the color of a known type, or the neutral color.
func (r *Registry) Color(name string) string {
	if t, ok := r.Lookup(name); ok {
		return t.Hex
	}
	return NeutralHex
}

// DisplayName returns the display name of name, resolving it if needed.
func (r *Registry) DisplayName(name string) string {
	r.Resolve(name)
	if t, ok := r.Lookup(name); ok {
		return t.DisplayName
	}
	return name
}

// Types returns all registered types ordered by key.
func (r *Registry) Types() []Type {
	out := make([]Type, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	return len(r.types)
}

// Active returns the type new markers are created with.
func (r *Registry) Active() (string, bool) {
	return r.active, r.active != ""
}

// SetActive toggles the active type: selecting the already active type
// clears it. It returns the resulting active type.
func (r *Registry) SetActive(name string) (string, bool) {
	key, ok := Normalize(name)
	if !ok || key == r.active {
		r.active = ""
		logger.Debugf("[MarkerTypes] marker mode off")
		return "", false
	}
	r.active = key
	logger.Debugf("[MarkerTypes] marker mode %s", key)
	return key, true
}

// ClearActive deselects the active type.
func (r *Registry) ClearActive() {
	r.active = ""
}

// CreateType registers name if needed and makes it the active type.
func (r *Registry) CreateType(name string) (string, error) {
	key, ok := Normalize(name)
	if !ok {
		logger.Warn("[MarkerTypes] refusing to create an empty type")
		return "", ErrEmptyType
	}
	r.Resolve(name)
	r.active = key
	return key, nil
}

// Overlay blends hex toward black, leaving opacity of the original color.
func Overlay(hex string, opacity float64) string {
	c, err := colorful.Hex(hex)
	if err != nil {
		c, _ = colorful.Hex(NeutralHex)
	}
	black := colorful.Color{}
	return black.BlendRgb(c, opacity).Clamped().Hex()
}
