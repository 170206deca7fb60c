package staging

import "testing"

func TestInferSmallFindType(t *testing.T) {
	tests := []struct {
		description string
		want        string
		wantOK      bool
	}{
		{"bronze coin, corroded", "coin", true},
		{"Ostracon with demotic text", "ostracon", true},
		{"miniature vessel, intact", "miniature vessel", true},
		{"small jar with lid", "vessel", true},
		{"jar sealing fragment", "jar sealing", true},
		{"seal impression on clay", "seal impression", true},
		{"copper alloy blade", "copper blade", true},
		{"flint blade", "lithic", true},
		{"faience shabti", "ushabti", true},
		{"string of beads", "bead", true},
		{"fragment of a stela", "stela", true},
		{"rifle cartridge", "weapon", true},
		{"unidentifiable lump", "", false},
		{"", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			got, ok := InferSmallFindType(tc.description)
			if ok != tc.wantOK || got != tc.want {
				t.Errorf("InferSmallFindType(%q) = %q, %v; want %q, %v",
					tc.description, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestMapMaterial(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ch stone", "chipped stone"},
		{"Ch Stone", "chipped stone"},
		{"clay", "clay/mud"},
		{"gr stone", "ground stone"},
		{"egyptian blue", "Egyptian blue"},
		{"faience", "faience"},
		{"  bone  ", "bone"},
		{"", ""},
	}

	for _, tc := range tests {
		if got := MapMaterial(tc.in); got != tc.want {
			t.Errorf("MapMaterial(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
