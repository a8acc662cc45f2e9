package ingest

import (
	"strings"
	"testing"
)

func Test_LikelyGarbled(t *testing.T) {
	t.Parallel()

	prose := strings.Repeat("The ingress controller routes traffic to the backing service. ", 4)

	tests := []struct {
		name string
		text string
		want bool
	}{
		{
			name: "empty text",
			text: "",
			want: true,
		},
		{
			name: "short fragment",
			text: "Chapter 3",
			want: true,
		},
		{
			name: "normal prose",
			text: prose,
			want: false,
		},
		{
			name: "prose with many newlines",
			text: strings.ReplaceAll(prose, " ", "\n"),
			want: false,
		},
		{
			name: "symbol soup",
			text: strings.Repeat("~!@#$%^&*()_+ ", 10) + "ab",
			want: true,
		},
		{
			name: "control characters",
			text: prose + strings.Repeat("\x00\x01\x02", 4),
			want: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := likelyGarbled(tc.text); got != tc.want {
				t.Errorf("likelyGarbled(%.30q...) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}
