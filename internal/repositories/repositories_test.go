package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/desertthunder/ratebot/internal/models"
	"github.com/desertthunder/ratebot/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func newTrack(id, title, user, link string, artists ...string) *models.Track {
	track := &models.Track{ID: id, Title: title, Album: title + " (album)", User: user, MessageLink: link}
	for _, name := range artists {
		track.Artists = append(track.Artists, models.Artist{ID: "artist-" + name, Name: name})
	}
	return track
}

func mustCreate(t *testing.T, store *Store, track *models.Track) {
	t.Helper()
	if err := store.CreateTrack(track); err != nil {
		t.Fatalf("failed to create track %s: %v", track.ID, err)
	}
}

func mustRate(t *testing.T, store *Store, trackID, user string, value int) {
	t.Helper()
	if err := store.AddReaction(&models.Reaction{TrackID: trackID, User: user, Value: value}); err != nil {
		t.Fatalf("failed to rate %s by %s: %v", trackID, user, err)
	}
}

func TestTrackRepository(t *testing.T) {
	t.Run("Create And Get", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		track := newTrack("t1", "Song One", "U1", "https://x.slack.com/archives/C1/p1700000000000100", "Alpha", "Beta")

		mustCreate(t, store, track)

		got, err := store.GetTrack("t1")
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}

		if got.CreatedAt.IsZero() {
			t.Error("created_at should be set")
		}
		got.CreatedAt = track.CreatedAt

		if diff := cmp.Diff(track, got); diff != "" {
			t.Errorf("track mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Create Without Link", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		mustCreate(t, store, newTrack("t1", "Song One", "U1", "", "Alpha"))

		got, err := store.GetTrack("t1")
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}
		if got.HasCanonicalMessage() {
			t.Errorf("expected no canonical message, got %q", got.MessageLink)
		}
	})

	t.Run("Create Duplicate", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		mustCreate(t, store, newTrack("t1", "Song One", "U1", "", "Alpha"))

		if err := store.CreateTrack(newTrack("t1", "Song One", "U2", "", "Alpha")); err == nil {
			t.Fatal("expected error creating duplicate track")
		}
	})

	t.Run("Create Invalid", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		err := store.CreateTrack(&models.Track{ID: "t1", User: "U1"})
		if !errors.Is(err, models.ErrInvalidModel) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("Shared Artist By Name", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		mustCreate(t, store, newTrack("t1", "Song One", "U1", "", "Alpha"))

		second := newTrack("t2", "Song Two", "U1", "")
		second.Artists = []models.Artist{{ID: "other-id", Name: "Alpha"}}
		mustCreate(t, store, second)

		artists, err := store.Artists.ListForTrack("t2")
		if err != nil {
			t.Fatalf("failed to list artists: %v", err)
		}
		if diff := cmp.Diff([]models.Artist{{ID: "artist-Alpha", Name: "Alpha"}}, artists); diff != "" {
			t.Errorf("artists mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Get NotFound", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		if _, err := store.GetTrack("missing"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Fatalf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("SetMessageLink Writes Once", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		mustCreate(t, store, newTrack("t1", "Song One", "U1", "", "Alpha"))

		updated, err := store.SetMessageLink("t1", "https://x.slack.com/archives/C1/p1")
		if err != nil || !updated {
			t.Fatalf("expected first link to be written, got %v, %v", updated, err)
		}

		updated, err = store.SetMessageLink("t1", "https://x.slack.com/archives/C1/p2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated {
			t.Error("second link must not overwrite the first")
		}

		got, _ := store.GetTrack("t1")
		if got.MessageLink != "https://x.slack.com/archives/C1/p1" {
			t.Errorf("expected first link to remain, got %q", got.MessageLink)
		}

		if _, err := store.SetMessageLink("t1", ""); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for empty link, got %v", err)
		}
	})

	t.Run("UpdateMetadata", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		mustCreate(t, store, newTrack("t1", "Old", "U1", ""))

		details := models.TrackDetails{
			ID:      "t1",
			Name:    "New",
			Album:   "New Album",
			Artists: []models.Artist{{ID: "a1", Name: "Alpha"}},
		}
		if err := store.Tracks.UpdateMetadata(details); err != nil {
			t.Fatalf("failed to update metadata: %v", err)
		}

		got, _ := store.GetTrack("t1")
		if got.Title != "New" || got.Album != "New Album" || len(got.Artists) != 1 {
			t.Errorf("metadata not updated: %+v", got)
		}

		details.ID = "missing"
		if err := store.Tracks.UpdateMetadata(details); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("Delete Cascades", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		mustCreate(t, store, newTrack("t1", "Song One", "U1", "l", "Alpha"))
		mustRate(t, store, "t1", "U2", 7)

		if err := store.Tracks.Delete("t1"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}

		var joins, reactions int
		store.DB().QueryRow("SELECT COUNT(*) FROM song_artists").Scan(&joins)
		store.DB().QueryRow("SELECT COUNT(*) FROM reactions").Scan(&reactions)
		if joins != 0 || reactions != 0 {
			t.Errorf("expected cascade, got %d joins and %d reactions", joins, reactions)
		}

		if err := store.Tracks.Delete("t1"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound on second delete, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		mustCreate(t, store, newTrack("t1", "Blue Monday", "U1", "l1", "Alpha"))
		mustCreate(t, store, newTrack("t2", "Monday Morning", "U2", ""))
		mustCreate(t, store, newTrack("t3", "100% Pure", "U1", "l3", "Beta"))

		tc := []struct {
			name     string
			criteria map[string]any
			want     []string
		}{
			{name: "all", criteria: map[string]any{}, want: []string{"t1", "t2", "t3"}},
			{name: "by user", criteria: map[string]any{"user": "U1"}, want: []string{"t1", "t3"}},
			{name: "title case insensitive", criteria: map[string]any{"title": "monday"}, want: []string{"t1", "t2"}},
			{name: "title escapes wildcards", criteria: map[string]any{"title": "0%"}, want: []string{"t3"}},
			{name: "missing link", criteria: map[string]any{"missing_link": true}, want: []string{"t2"}},
			{name: "without artists", criteria: map[string]any{"without_artists": true}, want: []string{"t2"}},
			{name: "limit", criteria: map[string]any{"limit": 2}, want: []string{"t1", "t2"}},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				tracks, err := store.Tracks.List(tt.criteria)
				if err != nil {
					t.Fatalf("failed to list: %v", err)
				}
				var got []string
				for _, track := range tracks {
					got = append(got, track.ID)
				}
				if diff := cmp.Diff(tt.want, got); diff != "" {
					t.Errorf("ids mismatch (-want +got):\n%s", diff)
				}
			})
		}
	})
}

func TestArtistRepository(t *testing.T) {
	store := NewStore(setupTestDB(t))
	mustCreate(t, store, newTrack("t1", "Song", "U1", "", "Daft Punk"))

	artist, err := store.Artists.GetByName("daft punk")
	if err != nil {
		t.Fatalf("failed to get artist: %v", err)
	}
	if artist.Name != "Daft Punk" {
		t.Errorf("expected Daft Punk, got %s", artist.Name)
	}

	if _, err := store.Artists.GetByName("nobody"); !errors.Is(err, shared.ErrArtistNotFound) {
		t.Errorf("expected ErrArtistNotFound, got %v", err)
	}
}

func TestReactionRepository(t *testing.T) {
	t.Run("Add", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		mustCreate(t, store, newTrack("t1", "Song", "U1", "l", "Alpha"))

		reaction := &models.Reaction{TrackID: "t1", User: "U2", Value: 8}
		if err := store.AddReaction(reaction); err != nil {
			t.Fatalf("failed to add reaction: %v", err)
		}
		if reaction.ID == "" {
			t.Error("reaction ID should be set")
		}

		got, err := store.Reactions.Get("t1", "U2")
		if err != nil {
			t.Fatalf("failed to get reaction: %v", err)
		}
		if got.Value != 8 || got.ID != reaction.ID {
			t.Errorf("unexpected reaction %+v", got)
		}
	})

	t.Run("Add Duplicate Keeps Original", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		mustCreate(t, store, newTrack("t1", "Song", "U1", "l", "Alpha"))
		mustRate(t, store, "t1", "U2", 8)

		err := store.AddReaction(&models.Reaction{TrackID: "t1", User: "U2", Value: 3})
		if !errors.Is(err, shared.ErrReactionExists) {
			t.Fatalf("expected ErrReactionExists, got %v", err)
		}

		reactions, _ := store.Reactions.ListForTrack("t1")
		if len(reactions) != 1 || reactions[0].Value != 8 {
			t.Errorf("expected only the original rating, got %+v", reactions)
		}
	})

	t.Run("Add Invalid Value", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		mustCreate(t, store, newTrack("t1", "Song", "U1", "l", "Alpha"))

		if err := store.AddReaction(&models.Reaction{TrackID: "t1", User: "U2", Value: 0}); err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("Add Unknown Track", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		if err := store.AddReaction(&models.Reaction{TrackID: "missing", User: "U2", Value: 4}); err == nil {
			t.Fatal("expected foreign key error")
		}
	})

	t.Run("Remove", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		mustCreate(t, store, newTrack("t1", "Song", "U1", "l", "Alpha"))
		mustRate(t, store, "t1", "U2", 8)

		if err := store.RemoveReaction("t1", "U2", 5); !errors.Is(err, shared.ErrReactionMismatch) {
			t.Fatalf("expected ErrReactionMismatch, got %v", err)
		}

		if err := store.RemoveReaction("t1", "U2", 8); err != nil {
			t.Fatalf("failed to remove: %v", err)
		}

		if err := store.RemoveReaction("t1", "U2", 8); !errors.Is(err, shared.ErrReactionNotFound) {
			t.Fatalf("expected ErrReactionNotFound, got %v", err)
		}

		count, err := store.Reactions.Count()
		if err != nil || count != 0 {
			t.Errorf("expected no reactions, got %d (%v)", count, err)
		}
	})
}

func TestStatsRepository(t *testing.T) {
	t.Run("TopTracks Ordering", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		mustCreate(t, store, newTrack("A", "Track A", "U0", "la", "Alpha"))
		mustCreate(t, store, newTrack("B", "Track B", "U0", "lb", "Beta"))
		mustCreate(t, store, newTrack("C", "Track C", "U0", "lc"))
		mustCreate(t, store, newTrack("D", "Track D", "U0", "ld", "Delta"))

		for _, u := range []string{"U1", "U2", "U3"} {
			mustRate(t, store, "A", u, 9)
		}
		for _, u := range []string{"U1", "U2", "U3", "U4", "U5"} {
			mustRate(t, store, "B", u, 9)
		}
		mustRate(t, store, "C", "U1", 10)

		entries, err := store.TopTracks(2)
		if err != nil {
			t.Fatalf("failed to get top tracks: %v", err)
		}

		want := []models.LeaderboardEntry{
			{ID: "B", Title: "Track B", Album: "Track B (album)", Artists: []string{"Beta"}, MessageLink: "lb", Mean: 9, Count: 5},
			{ID: "A", Title: "Track A", Album: "Track A (album)", Artists: []string{"Alpha"}, MessageLink: "la", Mean: 9, Count: 3},
		}
		if diff := cmp.Diff(want, entries); diff != "" {
			t.Errorf("top tracks mismatch (-want +got):\n%s", diff)
		}

		all, _ := store.TopTracks(10)
		if len(all) != 3 || all[2].ID != "D" || all[2].Mean != 0 || all[2].Count != 0 {
			t.Errorf("expected unrated D last and C excluded, got %+v", all)
		}
	})

	t.Run("TopTracks Ties Keep Submission Order", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		mustCreate(t, store, newTrack("x", "X", "U0", "", "Alpha"))
		mustCreate(t, store, newTrack("y", "Y", "U0", "", "Alpha"))
		mustRate(t, store, "y", "U1", 6)
		mustRate(t, store, "x", "U1", 6)

		entries, _ := store.TopTracks(10)
		if len(entries) != 2 || entries[0].ID != "x" || entries[1].ID != "y" {
			t.Errorf("expected submission order on ties, got %+v", entries)
		}
	})

	t.Run("Unrated", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		mustCreate(t, store, newTrack("own", "Own", "U1", "l1", "Alpha"))
		mustCreate(t, store, newTrack("rated", "Rated", "U2", "l2", "Beta"))
		mustCreate(t, store, newTrack("open", "Open", "U2", "l3", "Gamma", "Delta"))
		mustRate(t, store, "rated", "U1", 4)

		tracks, err := store.Unrated("U1")
		if err != nil {
			t.Fatalf("failed to get unrated: %v", err)
		}

		want := []models.UnratedTrack{{ID: "open", Title: "Open", Artists: []string{"Gamma", "Delta"}, MessageLink: "l3"}}
		if diff := cmp.Diff(want, tracks); diff != "" {
			t.Errorf("unrated mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("UserStats", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		mustCreate(t, store, newTrack("a", "A", "U1", "l", "Alpha"))
		mustCreate(t, store, newTrack("b", "B", "U2", "l", "Beta"))
		mustCreate(t, store, newTrack("c", "C", "U2", "l", "Beta"))
		mustRate(t, store, "a", "U2", 6)
		mustRate(t, store, "a", "U3", 8)
		mustRate(t, store, "b", "U1", 3)
		mustRate(t, store, "a", "U1", 9)

		stats, err := store.UserStats("U1")
		if err != nil {
			t.Fatalf("failed to get user stats: %v", err)
		}

		want := &models.UserStats{
			User:            "U1",
			Submitted:       1,
			RatingsGiven:    2,
			RatingsReceived: 3,
			AvgGiven:        6,
			AvgReceived:     23.0 / 3.0,
			Rated:           1,
			Rateable:        2,
		}
		if diff := cmp.Diff(want, stats); diff != "" {
			t.Errorf("user stats mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("UserStats Empty", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		stats, err := store.UserStats("nobody")
		if err != nil {
			t.Fatalf("failed to get user stats: %v", err)
		}
		if diff := cmp.Diff(&models.UserStats{User: "nobody"}, stats); diff != "" {
			t.Errorf("expected zero stats (-want +got):\n%s", diff)
		}
	})

	t.Run("UserTopTracks And Artists", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		mustCreate(t, store, newTrack("a", "A", "U1", "l", "Alpha"))
		mustCreate(t, store, newTrack("b", "B", "U1", "l", "Beta", "Alpha"))
		mustCreate(t, store, newTrack("c", "C", "U1", "l", "Gamma"))
		mustCreate(t, store, newTrack("d", "D", "U2", "l", "Delta"))
		mustRate(t, store, "a", "U2", 5)
		mustRate(t, store, "b", "U2", 9)
		mustRate(t, store, "b", "U3", 7)
		mustRate(t, store, "d", "U1", 10)

		tracks, err := store.UserTopTracks("U1", 3)
		if err != nil {
			t.Fatalf("failed to get user top tracks: %v", err)
		}
		wantTracks := []models.TopTrack{
			{ID: "b", Title: "B", Artists: []string{"Beta", "Alpha"}, Mean: 8, Count: 2},
			{ID: "a", Title: "A", Artists: []string{"Alpha"}, Mean: 5, Count: 1},
		}
		if diff := cmp.Diff(wantTracks, tracks); diff != "" {
			t.Errorf("top tracks mismatch (-want +got):\n%s", diff)
		}

		artists, err := store.UserTopArtists("U1", 3)
		if err != nil {
			t.Fatalf("failed to get user top artists: %v", err)
		}
		wantArtists := []models.TopArtist{
			{Name: "Beta", Mean: 8, Count: 2, Tracks: 1},
			{Name: "Alpha", Mean: 7, Count: 3, Tracks: 2},
		}
		if diff := cmp.Diff(wantArtists, artists); diff != "" {
			t.Errorf("top artists mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("TrackStats", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		mustCreate(t, store, newTrack("a", "A", "U1", "l", "Alpha"))
		mustRate(t, store, "a", "U2", 4)
		mustRate(t, store, "a", "U3", 7)

		stats, err := store.TrackStats("a")
		if err != nil {
			t.Fatalf("failed to get track stats: %v", err)
		}
		if stats.Mean != 5.5 || stats.Count != 2 {
			t.Errorf("unexpected mean/count %v/%d", stats.Mean, stats.Count)
		}
		if diff := cmp.Diff([]models.UserRating{{User: "U2", Value: 4}, {User: "U3", Value: 7}}, stats.Ratings); diff != "" {
			t.Errorf("ratings mismatch (-want +got):\n%s", diff)
		}

		if _, err := store.TrackStats("missing"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("ArtistStats", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		mustCreate(t, store, newTrack("a", "A", "U1", "l", "Alpha"))
		mustCreate(t, store, newTrack("b", "B", "U2", "l", "Alpha"))
		mustCreate(t, store, newTrack("c", "C", "U2", "l", "Alpha"))
		mustRate(t, store, "a", "U2", 4)
		mustRate(t, store, "b", "U1", 8)

		stats, err := store.ArtistStats("ALPHA", 5)
		if err != nil {
			t.Fatalf("failed to get artist stats: %v", err)
		}
		if stats.Tracks != 3 || stats.Count != 2 || stats.Mean != 6 {
			t.Errorf("unexpected totals %+v", stats)
		}
		if len(stats.TopTracks) != 2 || stats.TopTracks[0].ID != "b" {
			t.Errorf("unexpected top tracks %+v", stats.TopTracks)
		}

		if _, err := store.ArtistStats("nobody", 5); !errors.Is(err, shared.ErrArtistNotFound) {
			t.Errorf("expected ErrArtistNotFound, got %v", err)
		}
	})

	t.Run("Totals", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		mustCreate(t, store, newTrack("a", "A", "U1", "l", "Alpha", "Beta"))
		mustRate(t, store, "a", "U2", 4)

		tracks, artists, reactions, err := store.Stats.Totals()
		if err != nil {
			t.Fatalf("failed to get totals: %v", err)
		}
		if tracks != 1 || artists != 2 || reactions != 1 {
			t.Errorf("unexpected totals %d/%d/%d", tracks, artists, reactions)
		}
	})
}
