package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/simulado/internal/subscription"
)

type recordedChange struct {
	ch Change
	c  Criteria
}

func newRecordingBuilder() (*Builder, *[]recordedChange) {
	b := NewBuilder()
	var changes []recordedChange
	b.OnChange(func(ch Change, c Criteria) {
		changes = append(changes, recordedChange{ch, c})
	})
	return b, &changes
}

func TestBuilder_Defaults(t *testing.T) {
	c := NewBuilder().Criteria()
	assert.Empty(t, c.Disciplines)
	assert.Empty(t, c.Sources)
	assert.Empty(t, c.Exam)
	assert.Empty(t, c.SearchText)
	assert.False(t, c.OnlyWrong)
	assert.False(t, c.OnlyNotAnswered)
	assert.Equal(t, 20, c.Limit)
	assert.Equal(t, ReviewNone, c.ReviewMode)
}

func TestBuilder_Disciplines(t *testing.T) {
	b, changes := newRecordingBuilder()

	b.AddDiscipline("Direito Penal")
	b.AddDiscipline("  Direito   Civil ")
	b.AddDiscipline("Direito Penal")
	b.AddDiscipline("   ")
	assert.Equal(t, []string{"Direito Penal", "Direito Civil"}, b.Criteria().Disciplines)
	assert.Len(t, *changes, 2)

	b.RemoveDiscipline("Direito Penal")
	b.RemoveDiscipline("Nope")
	assert.Equal(t, []string{"Direito Civil"}, b.Criteria().Disciplines)
	require.Len(t, *changes, 3)
	assert.Equal(t, ChangeDisciplines, (*changes)[2].ch)
}

func TestBuilder_SourcesAreSticky(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddSource("Vunesp"))
	b.AddDiscipline("Portugues")

	b.SetSourceOptions([]string{"FGV"})
	assert.Equal(t, []string{"Vunesp"}, b.Criteria().Sources)
	assert.Equal(t, []string{"Vunesp"}, b.StaleSources())

	err := b.AddSource("Cespe")
	assert.ErrorIs(t, err, ErrUnknownSource)
	require.NoError(t, b.AddSource("FGV"))
	assert.Equal(t, []string{"Vunesp", "FGV"}, b.Criteria().Sources)

	b.RemoveSource("Vunesp")
	assert.Equal(t, []string{"FGV"}, b.Criteria().Sources)
	assert.Empty(t, b.StaleSources())
}

func TestBuilder_ExamSearchLimit(t *testing.T) {
	b, changes := newRecordingBuilder()

	b.SetExam("PC-SP 2023")
	b.SetSearchText("  legitima defesa  ")
	require.NoError(t, b.SetLimit(50))

	c := b.Criteria()
	assert.Equal(t, "PC-SP 2023", c.Exam)
	assert.Equal(t, "legitima defesa", c.SearchText)
	assert.Equal(t, 50, c.Limit)

	b.SetSearchText("   ")
	assert.Empty(t, b.Criteria().SearchText)

	assert.ErrorIs(t, b.SetLimit(15), ErrInvalidLimit)
	assert.Equal(t, 50, b.Criteria().Limit)
	assert.Len(t, *changes, 4)
}

func TestBuilder_GatedFlagsWithoutPremium(t *testing.T) {
	b, changes := newRecordingBuilder()

	err := b.SetOnlyWrong(true)
	assert.True(t, subscription.IsUpsell(err))
	err = b.SetOnlyNotAnswered(true)
	assert.True(t, subscription.IsUpsell(err))

	c := b.Criteria()
	assert.False(t, c.OnlyWrong)
	assert.False(t, c.OnlyNotAnswered)
	assert.Empty(t, *changes, "a rejected toggle must not notify")

	// Switching off is always allowed.
	assert.NoError(t, b.SetOnlyWrong(false))
}

func TestBuilder_GatedFlagsWithPremium(t *testing.T) {
	b := NewBuilder()
	b.SetPremium(true)

	require.NoError(t, b.SetOnlyWrong(true))
	require.NoError(t, b.SetOnlyNotAnswered(true))
	c := b.Criteria()
	assert.True(t, c.OnlyWrong)
	assert.True(t, c.OnlyNotAnswered)

	b.SetPremium(false)
	c = b.Criteria()
	assert.False(t, c.OnlyWrong)
	assert.False(t, c.OnlyNotAnswered)
}

func TestBuilder_ClearKeepsReviewMode(t *testing.T) {
	b := NewBuilder()
	b.SetPremium(true)
	b.AddDiscipline("Direito Penal")
	require.NoError(t, b.AddSource("FGV"))
	b.SetExam("PC-RJ 2022")
	b.SetSearchText("crase")
	require.NoError(t, b.SetLimit(100))
	require.NoError(t, b.SetOnlyWrong(true))
	b.SetReviewMode(ReviewBookmarks)

	b.Clear()

	want := DefaultCriteria()
	want.ReviewMode = ReviewBookmarks
	assert.Equal(t, want, b.Criteria())
}

func TestBuilder_CriteriaIsACopy(t *testing.T) {
	b := NewBuilder()
	b.AddDiscipline("Direito Penal")

	c := b.Criteria()
	c.Disciplines[0] = "mutated"
	assert.Equal(t, []string{"Direito Penal"}, b.Criteria().Disciplines)
}

func TestNewBuilderFrom_SeedsCriteria(t *testing.T) {
	seed := DefaultCriteria()
	seed.Disciplines = []string{"Português"}
	seed.OnlyWrong = true
	seed.Limit = 50

	b := NewBuilderFrom(seed)
	assert.True(t, b.Premium())
	var got []Change
	b.OnChange(func(ch Change, _ Criteria) { got = append(got, ch) })

	b.SetReviewMode(ReviewBookmarks)
	c := b.Criteria()
	assert.Equal(t, ReviewBookmarks, c.ReviewMode)
	assert.Equal(t, []string{"Português"}, c.Disciplines)
	assert.Equal(t, 50, c.Limit)
	assert.True(t, c.OnlyWrong)
	assert.Equal(t, []Change{ChangeReviewMode}, got)

	c.Disciplines[0] = "changed"
	assert.Equal(t, "Português", seed.Disciplines[0])
	assert.Equal(t, ReviewNone, seed.ReviewMode)
}

func TestParseReviewMode(t *testing.T) {
	tests := []struct {
		in   string
		want ReviewMode
	}{
		{"", ReviewNone},
		{"wrong", ReviewWrong},
		{"Bookmarks", ReviewBookmarks},
	}
	for _, tt := range tests {
		got, err := ParseReviewMode(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	_, err := ParseReviewMode("later")
	assert.Error(t, err)
}
