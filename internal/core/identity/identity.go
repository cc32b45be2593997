// Package identity decides whether two controller records from different
// snapshots describe the same physical controller.
package identity

import (
	"reflect"

	"usbmap/internal/domain"
)

// unstable kinds are reassigned on replug or reboot and carry no identity.
var unstable = map[domain.IdentifierKind]bool{
	domain.KindInstanceID: true,
	domain.KindLocationID: true,
}

// Same reports whether a and b identify the same controller.
//
// Only kinds present on both sides are compared. A revision that is the only
// shared kind is never enough. Instance and location ids are skipped,
// location paths match on any overlap, and every other kind must be equal.
func Same(a, b domain.Identifiers) bool {
	shared := sharedKinds(a, b)
	if len(shared) == 0 {
		return false
	}
	if len(shared) == 1 && shared[0] == domain.KindPCIRevision {
		return false
	}

	var evaluated []domain.IdentifierKind
	for _, k := range shared {
		if !unstable[k] {
			evaluated = append(evaluated, k)
		}
	}
	if len(evaluated) == 0 {
		return false
	}

	for _, k := range evaluated {
		if k == domain.KindLocationPaths {
			if !overlaps(a.LocationPaths, b.LocationPaths) {
				return false
			}
			continue
		}
		av, _ := a.Value(k)
		bv, _ := b.Value(k)
		if !reflect.DeepEqual(av, bv) {
			return false
		}
	}
	return true
}

// Find returns the index of the first controller in list that is the same
// controller as c, or -1.
func Find(c *domain.Controller, list []domain.Controller) int {
	for i := range list {
		if Same(c.Identifiers, list[i].Identifiers) {
			return i
		}
	}
	return -1
}

func sharedKinds(a, b domain.Identifiers) []domain.IdentifierKind {
	var shared []domain.IdentifierKind
	for _, k := range a.Kinds() {
		if _, ok := b.Value(k); ok {
			shared = append(shared, k)
		}
	}
	return shared
}

func overlaps(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
