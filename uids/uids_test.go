package uids_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	abtests "github.com/dklovas/A-B-Tests"
	"github.com/dklovas/A-B-Tests/uids"
)

func TestGetUid(t *testing.T) {
	uid := uids.GetUid()

	require.Contains(t, uid, "-")
	parts := strings.SplitN(uid, "-", 2)
	require.Len(t, parts[1], 32, "uuid part is 32 hex characters")
	require.Equal(t, strings.ToUpper(uid), uid)

	require.NotEqual(t, uid, uids.GetUid())
}

func TestGetUlidList(t *testing.T) {
	ulids := uids.GetUlidList(5)
	require.Len(t, ulids, 5)

	seen := make(map[string]bool)
	for _, ulid := range ulids {
		require.Len(t, ulid, 26)
		require.False(t, seen[ulid], "ulids are unique")
		seen[ulid] = true
	}
}

func TestGetMd5Hash(t *testing.T) {
	require.Equal(t, "5d41402abc4b2a76b9719d911017c592", uids.GetMd5Hash("hello"))
}

func TestGetFileMd5Hash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	hash, err := uids.GetFileMd5Hash(path)
	require.NoError(t, err)
	require.Equal(t, "5d41402abc4b2a76b9719d911017c592", hash)
}

func TestPseudonymizer(t *testing.T) {
	p, err := uids.NewPseudonymizer("secret", "salt")
	require.NoError(t, err)

	t.Run("deterministic", func(t *testing.T) {
		require.Equal(t, p.Token("alice@example.com"), p.Token("alice@example.com"))

		again, err := uids.NewPseudonymizer("secret", "salt")
		require.NoError(t, err)
		require.Equal(t, p.Token("alice@example.com"), again.Token("alice@example.com"))
	})

	t.Run("distinct values stay distinct", func(t *testing.T) {
		require.NotEqual(t, p.Token("alice@example.com"), p.Token("bob@example.com"))
	})

	t.Run("different secret changes tokens", func(t *testing.T) {
		other, err := uids.NewPseudonymizer("another", "salt")
		require.NoError(t, err)
		require.NotEqual(t, p.Token("alice@example.com"), other.Token("alice@example.com"))
	})

	t.Run("empty secret rejected", func(t *testing.T) {
		_, err := uids.NewPseudonymizer("", "salt")
		require.Error(t, err)
	})
}

func TestPseudonymizeColumn(t *testing.T) {
	p, err := uids.NewPseudonymizer("secret", "salt")
	require.NoError(t, err)

	dataset := abtests.NewDataset()
	require.NoError(t, dataset.AddCategoricalColumn("email", []string{"a@x.com", "b@x.com", "a@x.com", ""}))
	require.NoError(t, dataset.AddNumericColumn("age", []float64{20, 30, 40, 50}))

	result, err := p.PseudonymizeColumn(dataset, "email")
	require.NoError(t, err)

	tokens, err := result.Categorical("email")
	require.NoError(t, err)

	require.NotEqual(t, "a@x.com", tokens[0])
	require.Equal(t, tokens[0], tokens[2], "equal labels map to equal tokens")
	require.NotEqual(t, tokens[0], tokens[1])
	require.Equal(t, "", tokens[3], "missing stays missing")

	ages, err := result.Numeric("age")
	require.NoError(t, err)
	require.Equal(t, []float64{20, 30, 40, 50}, ages, "other columns untouched")

	original, err := dataset.Categorical("email")
	require.NoError(t, err)
	require.Equal(t, "a@x.com", original[0], "source dataset is unchanged")
}
