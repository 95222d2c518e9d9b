package geocode

import (
	"math"
	"reflect"
	"testing"
)

func TestBuildCandidates(t *testing.T) {
	tests := []struct {
		name    string
		address string
		city    string
		want    []string
	}{
		{
			name:    "venue with dash and accent",
			address: "Café Central - Calle Mayor 5, Centro",
			city:    "Madrid",
			want: []string{
				"Café Central - Calle Mayor 5, Centro, Madrid",
				"Caf Central - Calle Mayor 5, Centro, Madrid",
				"Caf Central - Calle Mayor 5, Centro",
				"Caf Central, Madrid",
				"Caf Central",
			},
		},
		{
			name:    "comma prefixes capped at four parts",
			address: "Calle Mayor 5, Centro, 28013, Madrid, Spain",
			city:    "Madrid",
			want: []string{
				"Calle Mayor 5, Centro, 28013, Madrid, Spain, Madrid",
				"Calle Mayor 5, Centro, 28013, Madrid, Spain",
				"Calle Mayor 5, Centro, 28013, Madrid, Madrid",
				"Calle Mayor 5, Centro, 28013, Madrid",
				"Calle Mayor 5, Centro, Madrid",
				"Calle Mayor 5, Madrid",
			},
		},
		{
			name:    "no city",
			address: "  Gran   Via 1 ",
			city:    "",
			want:    []string{"Gran Via 1"},
		},
		{
			name:    "case-insensitive duplicates collapse",
			address: "SOL",
			city:    "sol",
			want:    []string{"SOL, sol", "SOL"},
		},
		{
			name:    "empty address",
			address: "",
			city:    "Madrid",
			want:    []string{"Madrid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildCandidates(tt.address, tt.city)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildCandidates(%q, %q)\n got  %q\n want %q", tt.address, tt.city, got, tt.want)
			}
		})
	}
}

func TestBuildCandidatesDeterministic(t *testing.T) {
	first := BuildCandidates("Plaza Mayor - Calle 1, Barrio", "Madrid")
	for i := 0; i < 10; i++ {
		if !reflect.DeepEqual(first, BuildCandidates("Plaza Mayor - Calle 1, Barrio", "Madrid")) {
			t.Fatal("candidate order changed between calls")
		}
	}
}

func TestCoordinateValid(t *testing.T) {
	tests := []struct {
		c    Coordinate
		want bool
	}{
		{Coordinate{40.4, -3.7}, true},
		{Coordinate{91, 0}, false},
		{Coordinate{0, 181}, false},
		{Coordinate{math.NaN(), 0}, false},
		{Coordinate{0, math.Inf(1)}, false},
	}
	for _, tt := range tests {
		if got := tt.c.Valid(); got != tt.want {
			t.Errorf("%+v.Valid() = %v, want %v", tt.c, got, tt.want)
		}
	}
}
