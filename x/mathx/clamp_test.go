package mathx

import "testing"

func TestClamp(t *testing.T) {
	if Clamp(300, 0, 255) != 255 || Clamp(-5, 0, 255) != 0 || Clamp(7, 0, 255) != 7 {
		t.Fatal("int clamp")
	}
	// Swapped bounds behave like ordered ones.
	if Clamp(-200, 127, -128) != -128 {
		t.Fatal("swapped bounds")
	}
}

func TestMin(t *testing.T) {
	if Min[uint16](10, 4) != 4 || Min(3, 3) != 3 {
		t.Fatal("min")
	}
}
