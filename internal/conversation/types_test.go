package conversation

import "testing"

func TestDeriveTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		seed string
		want string
	}{
		{
			name: "short content kept as is",
			seed: "scan sector 4",
			want: "scan sector 4",
		},
		{
			name: "whitespace trimmed",
			seed: "  scan sector 4  ",
			want: "scan sector 4",
		},
		{
			name: "long content truncated with marker",
			seed: "identify all hostile contacts in the north-western quadrant",
			want: "identify all hostile contacts ...",
		},
		{
			name: "exactly at bound not truncated",
			seed: "123456789012345678901234567890",
			want: "123456789012345678901234567890",
		},
		{
			name: "multibyte runes counted as runes",
			seed: "разведка северо-западного квадранта сектора четыре",
			want: "разведка северо-западного квад...",
		},
		{
			name: "empty seed",
			seed: "",
			want: "",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DeriveTitle(tt.seed); got != tt.want {
				t.Fatalf("DeriveTitle(%q) = %q, want %q", tt.seed, got, tt.want)
			}
		})
	}
}
