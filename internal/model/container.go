package model

// container.go provides the derived views of a Container.
//
// A container is up to three nested (type, indicator) pairs, e.g.
// Box 1 / Folder 2 / Item 3. Levels are filled left to right. Its string
// and path forms are always derived and never stored:
//
//	ContainerToString -> "Box 1, Folder 2, Item 3"
//	ContainerToPath   -> "Box_001/Folder_002/Item_003/"

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxContainerDepth is the number of (type, indicator) levels a container holds.
const MaxContainerDepth = 3

// ErrContainerFull is returned when a child level is requested for a
// container whose three levels are already filled.
var ErrContainerFull = errors.New("container already has three levels")

// Container is a hierarchical physical or logical location.
type Container struct {
	Type1      string `json:"type_1"`
	Indicator1 string `json:"indicator_1"`
	Type2      string `json:"type_2,omitempty"`
	Indicator2 string `json:"indicator_2,omitempty"`
	Type3      string `json:"type_3,omitempty"`
	Indicator3 string `json:"indicator_3,omitempty"`
}

// Level is a single (type, indicator) pair.
type Level struct {
	Type      string
	Indicator string
}

// Levels returns the filled levels, outermost first.
func (c Container) Levels() []Level {
	all := []Level{
		{c.Type1, c.Indicator1},
		{c.Type2, c.Indicator2},
		{c.Type3, c.Indicator3},
	}
	levels := make([]Level, 0, MaxContainerDepth)
	for _, l := range all {
		if l.Type == "" {
			break
		}
		levels = append(levels, l)
	}
	return levels
}

// Depth returns the number of filled levels.
func (c Container) Depth() int {
	return len(c.Levels())
}

// IsEmpty reports whether no level is filled.
func (c Container) IsEmpty() bool {
	return c.Type1 == ""
}

// containerFromLevels rebuilds a container from at most three levels.
func containerFromLevels(levels []Level) Container {
	var c Container
	for i, l := range levels {
		switch i {
		case 0:
			c.Type1, c.Indicator1 = l.Type, l.Indicator
		case 1:
			c.Type2, c.Indicator2 = l.Type, l.Indicator
		case 2:
			c.Type3, c.Indicator3 = l.Type, l.Indicator
		}
	}
	return c
}

// ContainerToString renders "Type N, Type N, Type N" for the filled levels.
func ContainerToString(c Container) string {
	levels := c.Levels()
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = strings.TrimSpace(l.Type + " " + l.Indicator)
	}
	return strings.Join(parts, ", ")
}

// ContainerToPath renders "Type_NNN/" per filled level. Numeric indicators
// are zero-padded to three digits; spaces become underscores.
func ContainerToPath(c Container) string {
	var b strings.Builder
	for _, l := range c.Levels() {
		b.WriteString(underscore(l.Type))
		b.WriteString("_")
		b.WriteString(padIndicator(l.Indicator))
		b.WriteString("/")
	}
	return b.String()
}

func underscore(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
}

func padIndicator(indicator string) string {
	indicator = strings.TrimSpace(indicator)
	if n, err := strconv.Atoi(indicator); err == nil && n >= 0 {
		return fmt.Sprintf("%03d", n)
	}
	return underscore(indicator)
}

// Parent returns the container with its deepest level removed.
func Parent(c Container) Container {
	levels := c.Levels()
	if len(levels) == 0 {
		return Container{}
	}
	return containerFromLevels(levels[:len(levels)-1])
}

// Child returns a container one level deeper than c.
func Child(c Container, typ, indicator string) (Container, error) {
	levels := c.Levels()
	if len(levels) >= MaxContainerDepth {
		return Container{}, ErrContainerFull
	}
	return containerFromLevels(append(levels, Level{Type: typ, Indicator: indicator})), nil
}

// NextItemNumberFromContainer returns the indicator that follows the
// container's item level. If the deepest filled level is not an item, the
// numbering starts at 1. Non-numeric indicators count as 0.
func NextItemNumberFromContainer(c Container) int {
	levels := c.Levels()
	if len(levels) == 0 {
		return 1
	}
	last := levels[len(levels)-1]
	if !strings.EqualFold(strings.TrimSpace(last.Type), "item") {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(last.Indicator))
	if err != nil {
		n = 0
	}
	return n + 1
}

// NextItemContainer returns the container of the next item. When c ends in an
// item level, the sibling item is returned; otherwise a new Item 1 level is
// appended.
func NextItemContainer(c Container) (Container, error) {
	next := strconv.Itoa(NextItemNumberFromContainer(c))
	levels := c.Levels()
	if len(levels) > 0 && strings.EqualFold(levels[len(levels)-1].Type, "item") {
		levels[len(levels)-1].Indicator = next
		return containerFromLevels(levels), nil
	}
	return Child(c, "Item", next)
}
