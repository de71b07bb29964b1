package psgname

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   Parsed
		wantOK bool
	}{
		{
			name:   "full name",
			input:  "PSG-7-LGPD-02",
			want:   Parsed{SystemTag: "PSG", FolderToken: "7", TopicCode: "LGPD", Version: "02"},
			wantOK: true,
		},
		{
			name:   "textual folder token",
			input:  "PSG-FIN-SEG-10",
			want:   Parsed{SystemTag: "PSG", FolderToken: "FIN", TopicCode: "SEG", Version: "10"},
			wantOK: true,
		},
		{
			name:   "lowercase prefix accepted",
			input:  "psg-3-ABC-01",
			want:   Parsed{SystemTag: "PSG", FolderToken: "3", TopicCode: "ABC", Version: "01"},
			wantOK: true,
		},
		{
			name:   "token only",
			input:  "PSG-7",
			want:   Parsed{SystemTag: "PSG", FolderToken: "7"},
			wantOK: true,
		},
		{
			name:   "extra segments ignored",
			input:  "PSG-7-LGPD-EXTRA-02",
			want:   Parsed{SystemTag: "PSG", FolderToken: "7", TopicCode: "LGPD", Version: "EXTRA"},
			wantOK: true,
		},
		{
			name:   "no separator",
			input:  "foo",
			wantOK: false,
		},
		{
			name:   "wrong system tag",
			input:  "DOC-7-LGPD-02",
			wantOK: false,
		},
		{
			name:   "empty",
			input:  "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFamilyPrefix(t *testing.T) {
	if got := FamilyPrefix("PSG-7-LGPD-02"); got != "PSG-7-LGPD-" {
		t.Errorf("FamilyPrefix = %q, want %q", got, "PSG-7-LGPD-")
	}
	if got := FamilyPrefix("semseparador"); got != "semseparador" {
		t.Errorf("FamilyPrefix without separator = %q", got)
	}
}
