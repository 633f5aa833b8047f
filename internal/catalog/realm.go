package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRealm возвращается для неизвестного имени мира
var ErrUnknownRealm = errors.New("unknown realm")

// Realm — независимо настраиваемый мир (измерение) со своим каталогом
type Realm struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

var (
	Overworld = Realm{ID: 0, Name: "overworld"}
	Nether    = Realm{ID: -1, Name: "nether"}
	End       = Realm{ID: 1, Name: "end"}
)

var knownRealms = []Realm{Overworld, Nether, End}

// ParseRealm находит мир по имени или числовому ID измерения
func ParseRealm(s string) (Realm, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, r := range knownRealms {
		if r.Name == key || fmt.Sprint(r.ID) == key {
			return r, nil
		}
	}
	return Realm{}, fmt.Errorf("%w: %q", ErrUnknownRealm, s)
}

func (r Realm) String() string {
	return r.Name
}
