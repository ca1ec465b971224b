package interact

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/canvas/scene"
)

// Action is an editor command reachable from the keyboard.
type Action string

const (
	ActionDesktop    Action = "breakpoint.desktop"
	ActionTablet     Action = "breakpoint.tablet"
	ActionMobile     Action = "breakpoint.mobile"
	ActionAddText    Action = "add.text"
	ActionAddImage   Action = "add.image"
	ActionAddButton  Action = "add.button"
	ActionAddSection Action = "add.section"
	ActionAddVideo   Action = "add.video"
	ActionAddCustom  Action = "add.custom"
	ActionUndo       Action = "undo"
	ActionRedo       Action = "redo"
	ActionDelete     Action = "delete"
	ActionEscape     Action = "escape"
	ActionToggleGrid Action = "grid.toggle"
)

// Actions lists every bindable action.
var Actions = []Action{
	ActionDesktop, ActionTablet, ActionMobile,
	ActionAddText, ActionAddImage, ActionAddButton, ActionAddSection, ActionAddVideo, ActionAddCustom,
	ActionUndo, ActionRedo, ActionDelete, ActionEscape, ActionToggleGrid,
}

func (a Action) valid() bool {
	for _, k := range Actions {
		if a == k {
			return true
		}
	}
	return false
}

// Breakpoint returns the breakpoint a switch action selects.
func (a Action) Breakpoint() (scene.Breakpoint, bool) {
	switch a {
	case ActionDesktop:
		return scene.Desktop, true
	case ActionTablet:
		return scene.Tablet, true
	case ActionMobile:
		return scene.Mobile, true
	}
	return "", false
}

// ElementType returns the type an add action creates.
func (a Action) ElementType() (scene.ElementType, bool) {
	t, ok := strings.CutPrefix(string(a), "add.")
	if !ok {
		return "", false
	}
	et := scene.ElementType(t)
	return et, et.Valid()
}

// Key is a key press with its modifiers.
type Key struct {
	Name  string
	Ctrl  bool
	Shift bool
	Alt   bool
	Meta  bool
}

// String renders k in the chord syntax ParseChord accepts.
func (k Key) String() string {
	var parts []string
	if k.Ctrl {
		parts = append(parts, "ctrl")
	}
	if k.Alt {
		parts = append(parts, "alt")
	}
	if k.Meta {
		parts = append(parts, "meta")
	}
	if k.Shift {
		parts = append(parts, "shift")
	}
	return strings.Join(append(parts, k.Name), "+")
}

var keyAliases = map[string]string{
	"esc":    "escape",
	"del":    "delete",
	"return": "enter",
	"bksp":   "backspace",
}

// ParseChord parses "ctrl+shift+z" style chords. Matching is case
// insensitive; modifiers may appear in any order.
func ParseChord(s string) (Key, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	var k Key
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i == len(parts)-1 {
			if alias, ok := keyAliases[p]; ok {
				p = alias
			}
			if p == "" {
				return Key{}, fmt.Errorf("interact: chord %q has no key", s)
			}
			k.Name = p
			break
		}
		switch p {
		case "ctrl", "control":
			k.Ctrl = true
		case "shift":
			k.Shift = true
		case "alt", "option":
			k.Alt = true
		case "meta", "cmd", "super":
			k.Meta = true
		default:
			return Key{}, fmt.Errorf("interact: chord %q: unknown modifier %q", s, p)
		}
	}
	return k, nil
}

// Keymap maps chords to actions. It is safe for concurrent use.
type Keymap struct {
	mu       sync.RWMutex
	bindings map[Key]Action
}

// NewKeymap returns an empty keymap.
func NewKeymap() *Keymap {
	return &Keymap{bindings: make(map[Key]Action)}
}

// DefaultBindings is the stock chord table.
var DefaultBindings = map[Action][]string{
	ActionDesktop:    {"1"},
	ActionTablet:     {"2"},
	ActionMobile:     {"3"},
	ActionAddText:    {"t"},
	ActionAddImage:   {"i"},
	ActionAddButton:  {"b"},
	ActionAddSection: {"s"},
	ActionAddVideo:   {"v"},
	ActionAddCustom:  {"c"},
	ActionUndo:       {"ctrl+z", "meta+z"},
	ActionRedo:       {"ctrl+shift+z", "meta+shift+z", "ctrl+y"},
	ActionDelete:     {"delete", "backspace"},
	ActionEscape:     {"escape"},
	ActionToggleGrid: {"g"},
}

// DefaultKeymap returns a keymap loaded with DefaultBindings.
func DefaultKeymap() *Keymap {
	m := NewKeymap()
	if err := m.Apply(DefaultBindings); err != nil {
		panic(err)
	}
	return m
}

// Bind maps chord to a. An existing binding of chord is replaced.
func (m *Keymap) Bind(chord string, a Action) error {
	if !a.valid() {
		return fmt.Errorf("interact: unknown action %q", a)
	}
	k, err := ParseChord(chord)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.bindings[k] = a
	m.mu.Unlock()
	return nil
}

// Unbind removes chord.
func (m *Keymap) Unbind(chord string) error {
	k, err := ParseChord(chord)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.bindings, k)
	m.mu.Unlock()
	return nil
}

// Apply rebinds every action named in overrides to exactly the given
// chords. Actions not named keep their bindings. Nothing changes on error.
func (m *Keymap) Apply(overrides map[Action][]string) error {
	parsed := make(map[Action][]Key, len(overrides))
	for a, chords := range overrides {
		if !a.valid() {
			return fmt.Errorf("interact: unknown action %q", a)
		}
		for _, c := range chords {
			k, err := ParseChord(c)
			if err != nil {
				return err
			}
			parsed[a] = append(parsed[a], k)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, a := range m.bindings {
		if _, ok := parsed[a]; ok {
			delete(m.bindings, k)
		}
	}
	for a, keys := range parsed {
		for _, k := range keys {
			m.bindings[k] = a
		}
	}
	return nil
}

// Lookup returns the action bound to k.
func (m *Keymap) Lookup(k Key) (Action, bool) {
	m.mu.RLock()
	a, ok := m.bindings[k]
	m.mu.RUnlock()
	return a, ok
}

// Chords lists the chords bound to a, sorted.
func (m *Keymap) Chords(a Action) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for k, b := range m.bindings {
		if b == a {
			out = append(out, k.String())
		}
	}
	sort.Strings(out)
	return out
}

// keymapFile is the YAML layout of a keymap file:
//
//	bindings:
//	  undo: ["ctrl+z"]
//	  add.text: ["shift+t"]
type keymapFile struct {
	Bindings map[Action][]string `yaml:"bindings"`
}

// LoadKeymap reads overrides from a YAML file on top of the defaults.
func LoadKeymap(path string) (*Keymap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("interact: read keymap: %w", err)
	}
	var f keymapFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("interact: parse keymap: %w", err)
	}
	m := DefaultKeymap()
	if err := m.Apply(f.Bindings); err != nil {
		return nil, err
	}
	return m, nil
}
