package engine

import "testing"

func TestReferenceDigest(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{
			"Typical",
			"a3f1c2d4-5e6b-4a89-9c01-234567890abc",
			"83904168",
		},
		{
			"LeadingZeroKept",
			"1b4e28ba-2fa1-11d2-883f-0016d3cca427",
			"08474909",
		},
		{
			"AnotherLeadingZero",
			"9f86d081-884c-4d63-9b00-fa530cde61f2",
			"04114390",
		},
		{
			"ShortDecimalNotPadded",
			"00000000-0000-4000-8000-000000000000",
			"1024",
		},
		{
			"KnownReference",
			"0005af31-359e-c624-a9b3-c2d1e0f56a78",
			"48213090",
		},
		{
			"TooShort",
			"abc",
			"",
		},
		{
			"NotHex",
			"zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz",
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReferenceDigest(tt.id); got != tt.want {
				t.Errorf("ReferenceDigest(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestReferenceDigestDeterministic(t *testing.T) {
	id := "d94f5e3a-2c1b-4f6e-8a7d-0b9c8e7f6a5d"
	first := ReferenceDigest(id)
	if first != "83225334" {
		t.Fatalf("ReferenceDigest(%q) = %q, want 83225334", id, first)
	}
	for i := 0; i < 10; i++ {
		if got := ReferenceDigest(id); got != first {
			t.Fatalf("ReferenceDigest not deterministic: %q != %q", got, first)
		}
	}
}
