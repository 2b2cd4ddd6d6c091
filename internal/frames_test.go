package internal

import "testing"

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Frame
	}{
		{
			name: "text delta",
			raw:  `data: {"text":"olá"}`,
			want: Frame{Kind: FrameTextDelta, Text: "olá"},
		},
		{
			name: "metadata",
			raw:  `meta: {"lang":"en-US"}`,
			want: Frame{Kind: FrameMetadata, Language: "en-US"},
		},
		{
			name: "end marker",
			raw:  "end",
			want: Frame{Kind: FrameEnd},
		},
		{
			name: "end marker with surrounding whitespace",
			raw:  " end\n",
			want: Frame{Kind: FrameEnd},
		},
		{
			name: "unknown tag",
			raw:  `event: {"text":"x"}`,
			want: Frame{Kind: FrameUnknown},
		},
		{
			name: "missing tag",
			raw:  `{"text":"x"}`,
			want: Frame{Kind: FrameUnknown},
		},
		{
			name: "data frame with broken payload",
			raw:  `data: {"text":`,
			want: Frame{Kind: FrameUnknown},
		},
		{
			name: "meta frame with broken payload",
			raw:  `meta: not json`,
			want: Frame{Kind: FrameUnknown},
		},
		{
			name: "empty delta",
			raw:  `data: {"text":""}`,
			want: Frame{Kind: FrameTextDelta, Text: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFrame(tt.raw)
			if got != tt.want {
				t.Errorf("ParseFrame(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFrameKind_String(t *testing.T) {
	kinds := map[FrameKind]string{
		FrameMetadata:  "metadata",
		FrameTextDelta: "text-delta",
		FrameEnd:       "end",
		FrameUnknown:   "unknown",
	}
	for kind, want := range kinds {
		if got := kind.String(); got != want {
			t.Errorf("FrameKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
