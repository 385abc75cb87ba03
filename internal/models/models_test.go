package models

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTrack(t *testing.T) {
	details := TrackDetails{
		ID:      "4uLU6hMCjMI75M1A2tKUQC",
		Name:    "Never Gonna Give You Up",
		Album:   "Whenever You Need Somebody",
		Artists: []Artist{{ID: "0gxyHStUsqpMadRV0Di1Qt", Name: "Rick Astley"}},
	}

	t.Run("from details", func(t *testing.T) {
		track := details.Track("U1", "https://example.slack.com/archives/C1/p1700000000000100")
		want := &Track{
			ID:          details.ID,
			Title:       details.Name,
			Album:       details.Album,
			User:        "U1",
			MessageLink: "https://example.slack.com/archives/C1/p1700000000000100",
			Artists:     details.Artists,
		}
		if diff := cmp.Diff(want, track); diff != "" {
			t.Errorf("Track() mismatch (-want +got):\n%s", diff)
		}
		if !track.HasCanonicalMessage() {
			t.Error("expected canonical message")
		}
		if diff := cmp.Diff([]string{"Rick Astley"}, track.ArtistNames()); diff != "" {
			t.Errorf("ArtistNames() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("artists are copied", func(t *testing.T) {
		track := details.Track("U1", "")
		track.Artists[0].Name = "changed"
		if details.Artists[0].Name != "Rick Astley" {
			t.Error("details artists should not be aliased")
		}
		if track.HasCanonicalMessage() {
			t.Error("expected no canonical message")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name    string
			track   Track
			wantErr bool
		}{
			{name: "valid", track: Track{ID: "a", Title: "t", User: "U1"}},
			{name: "missing id", track: Track{Title: "t", User: "U1"}, wantErr: true},
			{name: "blank title", track: Track{ID: "a", Title: "  ", User: "U1"}, wantErr: true},
			{name: "missing user", track: Track{ID: "a", Title: "t"}, wantErr: true},
			{name: "bad artist", track: Track{ID: "a", Title: "t", User: "U1", Artists: []Artist{{Name: "x"}}}, wantErr: true},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.track.Validate()
				if (err != nil) != tt.wantErr {
					t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
				if err != nil && !errors.Is(err, ErrInvalidModel) {
					t.Errorf("expected ErrInvalidModel, got %v", err)
				}
			})
		}
	})
}

func TestReactionValidate(t *testing.T) {
	for _, v := range []int{1, 5, 10} {
		r := Reaction{TrackID: "a", User: "U1", Value: v}
		if err := r.Validate(); err != nil {
			t.Errorf("value %d should be valid: %v", v, err)
		}
	}
	for _, v := range []int{0, 11, -1} {
		r := Reaction{TrackID: "a", User: "U1", Value: v}
		if err := r.Validate(); !errors.Is(err, ErrInvalidModel) {
			t.Errorf("value %d should be invalid, got %v", v, err)
		}
	}
	if err := (&Reaction{Value: 5}).Validate(); err == nil {
		t.Error("expected error without track and user")
	}
}
