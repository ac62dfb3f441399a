package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	matchmodels "trapper/internal/match/models"
	"trapper/internal/match/store"
	id "trapper/pkg/domain"
)

func TestScore_Tiers(t *testing.T) {
	r := NewReviewer(store.NewMemory())

	source := SourceRecord{
		SourceSystem:   "clinichq",
		SourceRecordID: "appt-9",
		DisplayName:    "Jane Doe",
		Email:          "jane@sonoma.net",
		Phone:          "(707) 555-0101",
	}

	t.Run("exact phone is tier zero", func(t *testing.T) {
		c := r.Score(source, CandidatePerson{PersonID: id.NewEntityID(), DisplayName: "J Doe", Phone: "707-555-0101"})
		require.NotNil(t, c)
		require.Equal(t, 1.0, c.Confidence)
	})

	t.Run("exact email just below phone", func(t *testing.T) {
		c := r.Score(source, CandidatePerson{PersonID: id.NewEntityID(), DisplayName: "Someone Else", Email: "Jane@Sonoma.NET"})
		require.NotNil(t, c)
		require.Equal(t, 0.98, c.Confidence)
	})

	t.Run("fuzzy name with area code", func(t *testing.T) {
		c := r.Score(source, CandidatePerson{PersonID: id.NewEntityID(), DisplayName: "Jane Does", Phone: "707-555-9999"})
		require.NotNil(t, c)
		require.GreaterOrEqual(t, c.Confidence, 0.85)
		require.Less(t, c.Confidence, 0.96)
	})

	t.Run("fuzzy name only", func(t *testing.T) {
		c := r.Score(source, CandidatePerson{PersonID: id.NewEntityID(), DisplayName: "Jane Does"})
		require.NotNil(t, c)
		require.GreaterOrEqual(t, c.Confidence, 0.50)
		require.Less(t, c.Confidence, 0.85)
	})

	t.Run("no signal returns nil", func(t *testing.T) {
		c := r.Score(source, CandidatePerson{PersonID: id.NewEntityID(), DisplayName: "Robert Smith", Phone: "415-555-2222"})
		require.Nil(t, c)
	})
}

func TestQueue_TopFiveAndGreatestConfidence(t *testing.T) {
	mem := store.NewMemory()
	r := NewReviewer(mem)
	ctx := context.Background()

	source := SourceRecord{
		SourceSystem:   "clinichq",
		SourceRecordID: "appt-9",
		DisplayName:    "Jane Doe",
		Phone:          "707-555-0101",
	}

	var people []CandidatePerson
	exact := CandidatePerson{PersonID: id.NewEntityID(), DisplayName: "Jane Doe", Phone: "707-555-0101"}
	people = append(people, exact)
	for i := 0; i < 8; i++ {
		people = append(people, CandidatePerson{PersonID: id.NewEntityID(), DisplayName: "Jane Does"})
	}

	n, err := r.Queue(ctx, source, people)
	require.NoError(t, err)
	require.Equal(t, 5, n, "queue caps at five candidates per source record")

	stored, err := mem.ListBySource(ctx, "clinichq", "appt-9")
	require.NoError(t, err)
	require.Len(t, stored, 5)
	require.Equal(t, exact.PersonID, stored[0].CandidatePersonID)
	require.Equal(t, 1.0, stored[0].Confidence)

	// Re-queue with a weaker scoring of the same person; confidence holds.
	weaker := SourceRecord{SourceSystem: "clinichq", SourceRecordID: "appt-9", DisplayName: "Jane Doe"}
	_, err = r.Queue(ctx, weaker, []CandidatePerson{{PersonID: exact.PersonID, DisplayName: "Jane Doe"}})
	require.NoError(t, err)

	stored, err = mem.ListBySource(ctx, "clinichq", "appt-9")
	require.NoError(t, err)
	require.Equal(t, 1.0, stored[0].Confidence, "upsert keeps the greatest confidence")
}

func TestHaversineMeters(t *testing.T) {
	// One degree of latitude is ~111km.
	d := matchmodels.HaversineMeters(38.0, -122.0, 39.0, -122.0)
	require.InDelta(t, 111000, d, 400)

	require.InDelta(t, 0, matchmodels.HaversineMeters(38.31, -122.96, 38.31, -122.96), 0.001)
}
