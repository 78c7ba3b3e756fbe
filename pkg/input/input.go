package input

import (
	"strings"
	"sync"
)

// Controls is the set of held driving controls
type Controls uint8

const (
	Forward Controls = 1 << iota
	Reverse
	Left
	Right
)

// PauseKey is the discrete pause toggle, it never counts as a held key
const PauseKey = "escape"

var keyMap = map[string]Controls{
	"w":          Forward,
	"arrowup":    Forward,
	"s":          Reverse,
	"arrowdown":  Reverse,
	"a":          Left,
	"arrowleft":  Left,
	"d":          Right,
	"arrowright": Right,
}

func (c Controls) Has(o Controls) bool {
	return c&o != 0
}

func (c Controls) String() string {
	parts := []string{}
	for _, e := range []struct {
		c    Controls
		name string
	}{{Forward, "forward"}, {Reverse, "reverse"}, {Left, "left"}, {Right, "right"}} {
		if c.Has(e.c) {
			parts = append(parts, e.name)
		}
	}
	return strings.Join(parts, "+")
}

// Keys returns the primary key names producing c
func (c Controls) Keys() []string {
	ret := []string{}
	for _, e := range []struct {
		c   Controls
		key string
	}{{Forward, "w"}, {Reverse, "s"}, {Left, "a"}, {Right, "d"}} {
		if c.Has(e.c) {
			ret = append(ret, e.key)
		}
	}
	return ret
}

// FromKeys maps raw key names (case insensitive) to controls.
// Unknown keys are ignored.
func FromKeys(keys ...string) Controls {
	var ret Controls
	for _, k := range keys {
		ret |= keyMap[strings.ToLower(k)]
	}
	return ret
}

// KeySet holds the currently pressed raw keys. Safe for concurrent use.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]struct{})}
}

func (k *KeySet) Press(key string) {
	key = strings.ToLower(key)
	if key == PauseKey {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[key] = struct{}{}
}

func (k *KeySet) Release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, strings.ToLower(key))
}

// Set replaces the held keys
func (k *KeySet) Set(keys ...string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys = make(map[string]struct{}, len(keys))
	for _, key := range keys {
		key = strings.ToLower(key)
		if key != PauseKey {
			k.keys[key] = struct{}{}
		}
	}
}

func (k *KeySet) Clear() {
	k.Set()
}

func (k *KeySet) Held() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	ret := make([]string, 0, len(k.keys))
	for key := range k.keys {
		ret = append(ret, key)
	}
	return ret
}

// Controls samples the held keys
func (k *KeySet) Controls() Controls {
	k.mu.RLock()
	defer k.mu.RUnlock()
	var ret Controls
	for key := range k.keys {
		ret |= keyMap[key]
	}
	return ret
}
