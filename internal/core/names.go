package core

import (
	"strings"

	"golang.org/x/text/cases"
)

// Named is implemented by the catalog entities.
type Named interface {
	Category | Account | Tag
}

// FoldName returns the comparison key for a catalog name. A Caser is
// stateful, so each call gets its own.
func FoldName(name string) string {
	return cases.Fold().String(name)
}

// NameTaken reports whether another entity (different id) already uses name,
// ignoring case. Entities without a name never collide.
func NameTaken[T Named](items []T, id, name string) bool {
	key := FoldName(name)
	for _, it := range items {
		itemID, itemName := identify(it)
		n, ok := itemName.Get()
		if !ok || itemID == id {
			continue
		}
		if FoldName(n) == key {
			return true
		}
	}
	return false
}

// CleanName trims the name and rejects blanks.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}

func identify[T Named](it T) (string, Optional[string]) {
	switch v := any(it).(type) {
	case Category:
		return v.ID, v.Name
	case Account:
		return v.ID, v.Name
	case Tag:
		return v.ID, v.Name
	}
	return "", None[string]()
}
