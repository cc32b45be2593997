// Package matchkey picks the identifier that binds an emitted configuration
// entry to one physical controller.
package matchkey

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"usbmap/internal/core/encoding"
	"usbmap/internal/domain"
)

// Tier is a matching-key strategy, in priority order.
type Tier int

const (
	TierBusNumber Tier = iota + 1
	TierACPI
	TierBDF
	TierPath
	TierPCIID
)

func (t Tier) String() string {
	switch t {
	case TierBusNumber:
		return "bus-number"
	case TierACPI:
		return "acpi"
	case TierBDF:
		return "bdf"
	case TierPath:
		return "path"
	case TierPCIID:
		return "pci-id"
	default:
		return "unknown"
	}
}

// Key is a chosen matching key. Match holds the plist properties that
// express it.
type Key struct {
	Tier  Tier
	Match map[string]any
}

// Options control which tiers are eligible.
type Options struct {
	// Native disables the ACPI tier: native binding cannot tell whether the
	// name conflicts with another device.
	Native bool
}

// Choose returns the most specific usable key for c. Uniqueness is judged
// against every other controller in all; c itself is skipped when it points
// into all.
func Choose(c *domain.Controller, all []domain.Controller, opts Options) (Key, error) {
	ids := c.Identifiers

	if ids.BusNumber != nil {
		return Key{Tier: TierBusNumber, Match: map[string]any{
			"IOPropertyMatch": map[string]any{"bus-number": encoding.Uint32(*ids.BusNumber)},
		}}, nil
	}

	if !opts.Native && ids.ACPIPath != "" && Unique(c, all, acpiLeaf) {
		return Key{Tier: TierACPI, Match: map[string]any{"IONameMatch": ids.ACPILeaf()}}, nil
	}

	if len(ids.BDF) > 0 {
		return Key{Tier: TierBDF, Match: map[string]any{
			"IOPropertyMatch": map[string]any{"pcidebug": BDFString(ids.BDF)},
		}}, nil
	}

	if ids.Path != "" && Unique(c, all, path) {
		return Key{Tier: TierPath, Match: map[string]any{"IOPathMatch": ids.Path}}, nil
	}

	if len(ids.PCIID) >= 2 && Unique(c, all, pciID) {
		m := map[string]any{"IOPCIPrimaryMatch": pciWord(ids.PCIID[0], ids.PCIID[1])}
		if len(ids.PCIID) >= 4 {
			m["IOPCISecondaryMatch"] = pciWord(ids.PCIID[2], ids.PCIID[3])
		}
		return Key{Tier: TierPCIID, Match: m}, nil
	}

	return Key{}, &domain.NoMatchError{Controller: c.Name}
}

// Field extracts a comparable identifier value and whether it is present.
type Field func(domain.Identifiers) (any, bool)

// Unique reports whether c has the field and no other controller in all
// carries the same value for it.
func Unique(c *domain.Controller, all []domain.Controller, field Field) bool {
	v, ok := field(c.Identifiers)
	if !ok {
		return false
	}
	for i := range all {
		if &all[i] == c {
			continue
		}
		other, ok := field(all[i].Identifiers)
		if ok && reflect.DeepEqual(v, other) {
			return false
		}
	}
	return true
}

func acpiLeaf(ids domain.Identifiers) (any, bool) {
	return ids.ACPILeaf(), ids.ACPIPath != ""
}

func path(ids domain.Identifiers) (any, bool) {
	return ids.Path, ids.Path != ""
}

func pciID(ids domain.Identifiers) (any, bool) {
	return ids.PCIID, len(ids.PCIID) > 0
}

// ACPILeafField exposes the ACPI leaf comparison to personality naming.
var ACPILeafField Field = acpiLeaf

// BDFString joins a bus/device/function triplet as decimal b:d:f.
func BDFString(bdf []int) string {
	parts := make([]string, len(bdf))
	for i, v := range bdf {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ":")
}

// pciWord packs a vendor and device id into the 0xDDDDVVVV form.
func pciWord(vendor, device string) string {
	return fmt.Sprintf("0x%s%s", device, vendor)
}
