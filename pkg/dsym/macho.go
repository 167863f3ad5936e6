package dsym

import (
	"context"
	"errors"
	"fmt"

	"github.com/blacktop/go-macho"
	"github.com/blacktop/go-macho/types"
	"github.com/blacktop/symbolicator/pkg/crashlog"
)

var armSubtypes = map[types.CPUSubtype]crashlog.Arch{
	types.CPUSubtypeArmV6:  "armv6",
	types.CPUSubtypeArmV7:  "armv7",
	types.CPUSubtypeArmV7F: "armv7f",
	types.CPUSubtypeArmV7S: "armv7s",
	types.CPUSubtypeArmV7K: "armv7k",
	types.CPUSubtypeArmV8:  "armv8",
}

// Macho reads LC_UUID from the DWARF binary of a bundle without any
// external tool.
type Macho struct{}

// ReadUUIDs implements UUIDReader
func (Macho) ReadUUIDs(_ context.Context, path string) (map[crashlog.Arch]crashlog.UUID, error) {
	bin, err := resolveBinaryPath(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	uuids := make(map[crashlog.Arch]crashlog.UUID)

	if fat, err := macho.OpenFat(bin); err == nil { // UNIVERSAL MACHO
		defer fat.Close()
		for _, arch := range fat.Arches {
			addMachoUUID(uuids, arch.File)
		}
	} else if errors.Is(err, macho.ErrNotFat) { // SINGLE MACHO ARCH
		m, err := macho.Open(bin)
		if err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
		defer m.Close()
		addMachoUUID(uuids, m)
	} else {
		return nil, &ParseError{Path: path, Err: err}
	}

	if len(uuids) == 0 {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("no LC_UUID in %s", bin)}
	}

	return uuids, nil
}

func addMachoUUID(uuids map[crashlog.Arch]crashlog.UUID, m *macho.File) {
	lc := m.UUID()
	if lc == nil {
		return
	}
	u, ok := crashlog.ParseUUID(lc.String())
	if !ok {
		return
	}
	uuids[machoArch(m.CPU, m.SubCPU)] = u
}

func machoArch(cpu types.CPU, sub types.CPUSubtype) crashlog.Arch {
	sub &= 0xff // strip capability bits
	switch cpu {
	case types.CPUI386:
		return crashlog.ArchX86
	case types.CPUAmd64:
		return crashlog.ArchX86_64
	case types.CPUArm64:
		if sub == types.CPUSubtypeArm64E {
			return "arm64e"
		}
		return crashlog.ArchARM64
	case types.CPUArm:
		if a, ok := armSubtypes[sub]; ok {
			return a
		}
		return crashlog.ArchARM
	}
	return crashlog.Arch(cpu.String())
}
