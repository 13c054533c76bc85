package attachment

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func encodePNG(data []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}

func TestParseImageDataURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		max     int64
		wantErr error
		want    string // expected mime on success
	}{
		{
			name:    "valid png",
			payload: encodePNG([]byte("fake-png-bytes")),
			want:    "image/png",
		},
		{
			name:    "valid jpeg alias",
			payload: "data:image/jpg;base64," + base64.StdEncoding.EncodeToString([]byte("x")),
			want:    "image/jpeg",
		},
		{
			name:    "missing data prefix",
			payload: "image/png;base64,AAAA",
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "missing base64 marker",
			payload: "data:image/png,AAAA",
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "empty body",
			payload: "data:image/png;base64,",
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "invalid base64 body",
			payload: "data:image/png;base64,!!!not-base64!!!",
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "subtype not allow-listed",
			payload: "data:image/bmp;base64," + base64.StdEncoding.EncodeToString([]byte("x")),
			wantErr: ErrUnsupportedType,
		},
		{
			name:    "over size ceiling",
			payload: encodePNG([]byte(strings.Repeat("a", 64))),
			max:     16,
			wantErr: ErrTooLarge,
		},
		{
			name: "oversized disallowed type reports size first",
			payload: "data:image/bmp;base64," +
				base64.StdEncoding.EncodeToString([]byte(strings.Repeat("a", 64))),
			max:     16,
			wantErr: ErrTooLarge,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseImageDataURI(tt.payload, tt.max)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Mime != tt.want {
				t.Fatalf("mime = %q, want %q", got.Mime, tt.want)
			}
			if len(got.Data) == 0 {
				t.Fatalf("expected decoded bytes")
			}
		})
	}
}

func TestParseImageDataURIExactLimit(t *testing.T) {
	t.Parallel()

	data := []byte(strings.Repeat("b", 32))
	got, err := ParseImageDataURI(encodePNG(data), 32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if int64(len(got.Data)) != 32 {
		t.Fatalf("size = %d, want 32", len(got.Data))
	}

	if _, err := ParseImageDataURI(encodePNG(append(data, 'b')), 32); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("want ErrTooLarge, got %v", err)
	}
}
