package color

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
	}{
		{"#f6f9ff", 0xf6f9ff},
		{"#FFF", 0xffffff},
		{"  #123  ", 0x112233},
		{"0x274c77", 0x274c77},
		{"0X274C77", 0x274c77},
		{"white", 0xffffff},
		{"Grey", 0x808080},
		{"orange", 0xffa500},
		{"16777215", 0xffffff},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.in, err)
			}
			if got := c.Uint32(); got != tt.want {
				t.Errorf("Parse(%q) = %06x, want %06x", tt.in, got, tt.want)
			}
			if c.A != 1 {
				t.Errorf("alpha = %f, want 1", c.A)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "#12", "#gggggg", "0x1000000", "teal", "oficina"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) expected error", in)
		}
	}
}

func TestLooksLikeColor(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"#fff", true},
		{"0xffffff", true},
		{"Purple", true},
		{"oficina", false},
		{"https://cdn/bg.jpg", false},
		{"/img/bg.png", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := LooksLikeColor(tt.in); got != tt.want {
			t.Errorf("LooksLikeColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	c := Hex(0x452c25)
	if c.String() != "#452c25" {
		t.Errorf("String() = %s", c.String())
	}
}

func TestLuma(t *testing.T) {
	if l := White.Luma(); l < 0.999 || l > 1.001 {
		t.Errorf("white luma = %f", l)
	}
	if l := Black.Luma(); l != 0 {
		t.Errorf("black luma = %f", l)
	}
}
