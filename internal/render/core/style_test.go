package core

import "testing"

func TestColorEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Color
		want bool
	}{
		{"same rgb", RGB(10, 20, 30), RGB(10, 20, 30), true},
		{"different rgb", RGB(10, 20, 30), RGB(10, 20, 31), false},
		{"both default", ColorDefault, ColorDefault, true},
		{"default vs rgb", ColorDefault, RGB(0, 0, 0), false},
		{"same index", Palette(4), Palette(4), true},
		{"index vs rgb with matching r", Palette(4), RGB(4, 0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("%v.Equal(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestColorBlendEndpoints(t *testing.T) {
	a := RGB(0, 0, 0)
	b := RGB(255, 255, 255)
	if got := a.Blend(b, 0); !got.Equal(a) {
		t.Errorf("Blend(t=0) = %v, want %v", got, a)
	}
	if got := a.Blend(b, 1); !got.Equal(b) {
		t.Errorf("Blend(t=1) = %v, want %v", got, b)
	}
	mid := a.Blend(b, 0.5)
	if mid.Equal(a) || mid.Equal(b) {
		t.Errorf("Blend(t=0.5) = %v, want a midpoint", mid)
	}
}

func TestColorBlendSnapsNonRGB(t *testing.T) {
	if got := ColorDefault.Blend(RGB(255, 0, 0), 0.4); !got.IsDefault() {
		t.Errorf("Blend favoring default = %v, want default", got)
	}
	if got := ColorDefault.Blend(RGB(255, 0, 0), 0.6); !got.Equal(RGB(255, 0, 0)) {
		t.Errorf("Blend favoring rgb = %v, want rgb", got)
	}
}

func TestLuminanceOrdering(t *testing.T) {
	dark := RGB(10, 10, 10).Luminance()
	light := RGB(240, 240, 240).Luminance()
	if dark >= light {
		t.Errorf("Luminance ordering: dark %v >= light %v", dark, light)
	}
}

func TestGridLinesHas(t *testing.T) {
	mask := LineTop | LineRight
	if !mask.Has(LineTop) || !mask.Has(LineRight) {
		t.Error("mask missing lines it was built from")
	}
	if mask.Has(LineBottom) || mask.Has(LineLeft) {
		t.Error("mask reports lines it does not contain")
	}
}

func TestTextAttrEqual(t *testing.T) {
	a := TextAttr{Fg: RGB(1, 2, 3), Bg: ColorDefault, Bold: true, Lines: LineBottom}
	b := a
	if !a.Equal(b) {
		t.Error("identical attrs not equal")
	}
	b.Lines = LineNone
	if a.Equal(b) {
		t.Error("attrs with different lines reported equal")
	}
}
