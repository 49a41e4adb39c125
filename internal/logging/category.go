package logging

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrUnknownCategory = errors.New("logging: unknown category")
	ErrInvalidLevel    = errors.New("logging: invalid level")
)

// Level uses the numeric values accepted in debug masks ("DL1C,1").
type Level int

const (
	LevelDebug  Level = 1
	LevelInfo   Level = 3
	LevelNotice Level = 5
	LevelError  Level = 7
	LevelFatal  Level = 8
)

func (l Level) String() string {
	switch {
	case l <= LevelDebug:
		return "DEBUG"
	case l <= LevelInfo:
		return "INFO"
	case l <= LevelNotice:
		return "NOTICE"
	case l <= LevelError:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// Category names one subsystem in the layer2/3 stack.
type Category string

const (
	DRSL   Category = "DRSL"
	DRR    Category = "DRR"
	DMM    Category = "DMM"
	DCC    Category = "DCC"
	DLAPDM Category = "DLAPDM"
	DL1C   Category = "DL1C"
	DSAP   Category = "DSAP"
	DSUM   Category = "DSUM"
	DSIM   Category = "DSIM"
)

type categoryInfo struct {
	description string
	level       Level
}

var categories = map[Category]categoryInfo{
	DRSL:   {description: "Radio Signalling Link", level: LevelNotice},
	DRR:    {description: "Radio Resource", level: LevelInfo},
	DMM:    {description: "Mobility Management", level: LevelInfo},
	DCC:    {description: "Call Control", level: LevelInfo},
	DLAPDM: {description: "LAPDm data link", level: LevelNotice},
	DL1C:   {description: "Layer 1 control", level: LevelInfo},
	DSAP:   {description: "SIM Access Profile", level: LevelInfo},
	DSUM:   {description: "Application summary", level: LevelInfo},
	DSIM:   {description: "SIM client", level: LevelInfo},
}

// Categories returns every known category in name order.
func Categories() []Category {
	out := make([]Category, 0, len(categories))
	for cat := range categories {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c Category) Description() string {
	return categories[c].description
}

type categoryFilter struct {
	enabled bool
	level   Level
}

func defaultFilters() map[Category]categoryFilter {
	out := make(map[Category]categoryFilter, len(categories))
	for cat, info := range categories {
		out[cat] = categoryFilter{enabled: true, level: info.level}
	}
	return out
}

// parseCategoryMask applies a colon separated mask such as "DL1C:DLAPDM,1".
// Every category not named by the mask is disabled. A named category with an
// unparsable level stays enabled at its current level. Unknown names and bad
// levels are reported together after the whole mask is applied.
func parseCategoryMask(filters map[Category]categoryFilter, mask string) error {
	for cat, f := range filters {
		f.enabled = false
		filters[cat] = f
	}

	var errs []error
	unknown := make([]string, 0)
	for _, token := range strings.Split(mask, ":") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		name, levelRaw, hasLevel := strings.Cut(token, ",")
		cat := Category(strings.ToUpper(strings.TrimSpace(name)))
		f, ok := filters[cat]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		f.enabled = true
		if hasLevel {
			lvl, err := strconv.Atoi(strings.TrimSpace(levelRaw))
			if err != nil {
				errs = append(errs, fmt.Errorf("%w %q for %s", ErrInvalidLevel, levelRaw, cat))
			} else {
				f.level = Level(lvl)
			}
		}
		filters[cat] = f
	}
	if len(unknown) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownCategory, strings.Join(unknown, ",")))
	}
	return errors.Join(errs...)
}
