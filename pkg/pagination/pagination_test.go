package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
)

func TestNormalizeLimit(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, DefaultLimit, NormalizeLimit(-3))
	require.Equal(t, MaxLimit, NormalizeLimit(1000))
	require.Equal(t, 40, NormalizeLimit(40))
	require.Equal(t, 41, FetchSize(40))
}

func TestCursorRoundTrip(t *testing.T) {
	t.Parallel()

	want := Cursor{
		CreatedAt: time.Date(2026, 3, 14, 12, 30, 0, 500, time.UTC),
		ID:        uuid.New(),
	}

	got, err := Parse(want.Encode())
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.CreatedAt.Equal(want.CreatedAt))
	require.Equal(t, want.ID, got.ID)
}

func TestParseBlankMeansFirstPage(t *testing.T) {
	t.Parallel()

	got, err := Parse("  ")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestParseRejectsFabricatedCursors(t *testing.T) {
	t.Parallel()

	for _, value := range []string{
		"!!!not-base64!!!",
		"aGVsbG8=",       // no separator
		"bm9wZXxub3BlCg", // separator but junk fields
	} {
		_, err := Parse(value)
		require.Error(t, err)
		require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	}
}
