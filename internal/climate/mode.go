package climate

// Mode is a standard HVAC operating mode.
type Mode string

// Standard modes exposed to the platform.
const (
	ModeOff     Mode = "OFF"
	ModeHeat    Mode = "HEAT"
	ModeCool    Mode = "COOL"
	ModeDry     Mode = "DRY"
	ModeFanOnly Mode = "FAN_ONLY"
)

// StandardModes lists every mode an entity can be asked to enter,
// in display order.
func StandardModes() []Mode {
	return []Mode{ModeOff, ModeHeat, ModeCool, ModeDry, ModeFanOnly}
}

// Valid reports whether m is one of the standard modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeOff, ModeHeat, ModeCool, ModeDry, ModeFanOnly:
		return true
	default:
		return false
	}
}

// ModeFromLegacy derives the standard mode from a legacy API mode
// string. A unit reported off is OFF regardless of its stored mode;
// unmapped strings are OFF.
func ModeFromLegacy(raw string, on bool) Mode {
	if !on {
		return ModeOff
	}

	switch raw {
	case "cool-air", "cool-radiant", "cool-both":
		return ModeCool
	case "heat-air", "heat-radiant", "heat-both":
		return ModeHeat
	case "ventilate":
		return ModeFanOnly
	case "dehumidify":
		return ModeDry
	default:
		return ModeOff
	}
}

// ModeFromCloud derives the standard mode from a current API mode
// string. A unit reported off is OFF regardless of its stored mode;
// unmapped strings are OFF.
func ModeFromCloud(raw string, on bool) Mode {
	if !on {
		return ModeOff
	}

	switch raw {
	case "cooling", "air-cooling", "radiant-cooling", "combined-cooling":
		return ModeCool
	case "heating", "air-heating", "radiant-heating", "combined-heating", "emergency-heating":
		return ModeHeat
	case "ventilation":
		return ModeFanOnly
	case "dehumidify":
		return ModeDry
	default:
		return ModeOff
	}
}

// LegacyModeCommand returns the representative legacy API command
// string for a standard mode. OFF maps to "stop", which is only valid
// on a system.
func LegacyModeCommand(m Mode) (string, bool) {
	switch m {
	case ModeHeat:
		return "heat-both", true
	case ModeCool:
		return "cool-both", true
	case ModeDry:
		return "dehumidify", true
	case ModeFanOnly:
		return "ventilate", true
	case ModeOff:
		return "stop", true
	default:
		return "", false
	}
}

// CloudModeCommand returns the representative current API command
// string for a standard mode. OFF has no command string on this
// generation; entities use their dedicated turn-off instead.
func CloudModeCommand(m Mode) (string, bool) {
	switch m {
	case ModeHeat:
		return "heating", true
	case ModeCool:
		return "cooling", true
	case ModeDry:
		return "dehumidify", true
	case ModeFanOnly:
		return "ventilation", true
	default:
		return "", false
	}
}
