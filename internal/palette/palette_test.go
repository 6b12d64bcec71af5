package palette

import (
	"errors"
	"image/color"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#eee", color.NRGBA{0xee, 0xee, 0xee, 0xff}},
		{"#EEEEEE", color.NRGBA{0xee, 0xee, 0xee, 0xff}},
		{"#ff000080", color.NRGBA{0xff, 0, 0, 0x80}},
		{"red", color.NRGBA{0xff, 0, 0, 0xff}},
		{"Orange", color.NRGBA{0xff, 0xa5, 0, 0xff}},
		{"rgb(1, 2, 3)", color.NRGBA{1, 2, 3, 0xff}},
		{"rgba(208,194,232, 0.5)", color.NRGBA{208, 194, 232, 128}},
		{"rgba(300, -4, 10, 2)", color.NRGBA{255, 0, 10, 255}},
		{" transparent ", Transparent},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse("  "); !errors.Is(err, ErrEmptyColor) {
		t.Errorf("expected ErrEmptyColor, got %v", err)
	}

	for _, in := range []string{"#12", "#gggggg", "rgb(1,2)", "rgba(1,2,3,x)", "rgb(1,2,3", "blurple"} {
		if _, err := Parse(in); !errors.Is(err, ErrBadColor) {
			t.Errorf("Parse(%q): expected ErrBadColor, got %v", in, err)
		}
	}
}

func TestHexAndBlend(t *testing.T) {
	if h := Hex(color.NRGBA{0x12, 0xab, 0xff, 0x10}); h != "#12abff" {
		t.Errorf("expected #12abff, got %s", h)
	}

	black := color.NRGBA{0, 0, 0, 0xff}
	white := color.NRGBA{0xff, 0xff, 0xff, 0xff}
	if got := Blend(black, white, 0); !near(got, black) {
		t.Errorf("blend at 0 should be start colour, got %v", got)
	}
	if got := Blend(black, white, 1); !near(got, white) {
		t.Errorf("blend at 1 should be end colour, got %v", got)
	}
	mid := Blend(black, white, 0.5)
	if mid.R < 60 || mid.R > 200 {
		t.Errorf("blend midpoint out of range: %v", mid)
	}
}

func TestThemes(t *testing.T) {
	for _, th := range Themes {
		for _, c := range []string{string(th.GridLine), string(th.Border), string(th.Label), string(th.Hover), string(th.Selection), string(th.Background)} {
			if _, err := Parse(c); err != nil {
				t.Errorf("theme %s: colour %q does not parse: %v", th.Name, c, err)
			}
		}
	}

	if GetTheme("nonexistent").Name != DefaultTheme.Name {
		t.Error("unknown theme should fall back to default")
	}
	if NextTheme(Themes[len(Themes)-1].Name).Name != Themes[0].Name {
		t.Error("NextTheme should wrap around")
	}
	if len(ThemeNames()) != len(Themes) {
		t.Error("ThemeNames length mismatch")
	}
}

func near(a, b color.NRGBA) bool {
	d := func(x, y uint8) int {
		if x > y {
			return int(x - y)
		}
		return int(y - x)
	}
	return d(a.R, b.R) <= 1 && d(a.G, b.G) <= 1 && d(a.B, b.B) <= 1 && a.A == b.A
}
