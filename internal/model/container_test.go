package model

import (
	"testing"
)

func TestContainerToString_SingleLevel(t *testing.T) {
	c := Container{Type1: "Item", Indicator1: "1"}

	if got := ContainerToString(c); got != "Item 1" {
		t.Errorf("ContainerToString() = %q, want %q", got, "Item 1")
	}
	if got := ContainerToPath(c); got != "Item_001/" {
		t.Errorf("ContainerToPath() = %q, want %q", got, "Item_001/")
	}
}

func TestContainerToString_Nested(t *testing.T) {
	c := Container{
		Type1: "Box", Indicator1: "1",
		Type2: "Folder", Indicator2: "1",
		Type3: "Item", Indicator3: "6",
	}

	if got := ContainerToString(c); got != "Box 1, Folder 1, Item 6" {
		t.Errorf("ContainerToString() = %q", got)
	}
	if got := ContainerToPath(c); got != "Box_001/Folder_001/Item_006/" {
		t.Errorf("ContainerToPath() = %q", got)
	}
}

func TestContainerToPath_Spaces(t *testing.T) {
	c := Container{Type1: "Map Case", Indicator1: "12", Type2: "Drawer", Indicator2: "A 2"}

	want := "Map_Case_012/Drawer_A_2/"
	if got := ContainerToPath(c); got != want {
		t.Errorf("ContainerToPath() = %q, want %q", got, want)
	}
}

func TestContainer_LevelsStopAtFirstGap(t *testing.T) {
	c := Container{Type1: "Box", Indicator1: "1", Type3: "Item", Indicator3: "2"}

	if got := c.Depth(); got != 1 {
		t.Errorf("Depth() = %d, want 1", got)
	}
	if got := ContainerToString(c); got != "Box 1" {
		t.Errorf("ContainerToString() = %q, want %q", got, "Box 1")
	}
}

func TestNextItemNumberFromContainer(t *testing.T) {
	tests := []struct {
		name string
		c    Container
		want int
	}{
		{"empty", Container{}, 1},
		{"box only", Container{Type1: "Box", Indicator1: "3"}, 1},
		{"item numeric", Container{Type1: "Box", Indicator1: "1", Type2: "Item", Indicator2: "4"}, 5},
		{"item case-insensitive", Container{Type1: "ITEM", Indicator1: "9"}, 10},
		{"item non-numeric", Container{Type1: "Item", Indicator1: "a"}, 1},
		{"folder deepest", Container{Type1: "Box", Indicator1: "1", Type2: "Folder", Indicator2: "7"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextItemNumberFromContainer(tt.c); got != tt.want {
				t.Errorf("NextItemNumberFromContainer() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParentAndChild(t *testing.T) {
	c := Container{Type1: "Box", Indicator1: "1", Type2: "Folder", Indicator2: "2"}

	parent := Parent(c)
	if parent != (Container{Type1: "Box", Indicator1: "1"}) {
		t.Errorf("Parent() = %+v", parent)
	}

	child, err := Child(c, "Item", "3")
	if err != nil {
		t.Fatalf("Child() error = %v", err)
	}
	if got := ContainerToString(child); got != "Box 1, Folder 2, Item 3" {
		t.Errorf("Child() = %q", got)
	}

	if _, err := Child(child, "Item", "4"); err != ErrContainerFull {
		t.Errorf("Child() on full container error = %v, want ErrContainerFull", err)
	}
}

func TestNextItemContainer(t *testing.T) {
	c := Container{Type1: "Box", Indicator1: "1", Type2: "Item", Indicator2: "2"}

	next, err := NextItemContainer(c)
	if err != nil {
		t.Fatalf("NextItemContainer() error = %v", err)
	}
	if got := ContainerToString(next); got != "Box 1, Item 3" {
		t.Errorf("NextItemContainer() = %q, want %q", got, "Box 1, Item 3")
	}

	next, err = NextItemContainer(Container{Type1: "Box", Indicator1: "1"})
	if err != nil {
		t.Fatalf("NextItemContainer() error = %v", err)
	}
	if got := ContainerToString(next); got != "Box 1, Item 1" {
		t.Errorf("NextItemContainer() = %q, want %q", got, "Box 1, Item 1")
	}
}
