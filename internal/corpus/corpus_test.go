package corpus

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
)

func writeCorpusFile(t *testing.T, f File) string {
	t.Helper()
	data, err := json.Marshal(f)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "keywords.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoad_DedupCaseInsensitiveKeepsFirst(t *testing.T) {
	t.Parallel()

	path := writeCorpusFile(t, File{
		KeywordsByLanguage: map[string][]string{
			"en": {"Ivory Carving", "rhino horn", "ivory carving"},
			"es": {"IVORY CARVING", "marfil antiguo"},
		},
		TotalKeywords: 3,
		Version:       "test-1",
	})

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, c.Size())
	// First occurrence wins: "Ivory Carving" from en, original casing kept.
	all := c.All()
	assert.Equal(t, "Ivory Carving", all[0].Text)
	assert.Equal(t, "en", all[0].Language)
}

func TestLoad_TierAssignment(t *testing.T) {
	t.Parallel()

	path := writeCorpusFile(t, File{
		KeywordsByLanguage: map[string][]string{
			"en": {"antique ivory figure", "shark fin soup", "traditional medicine kit", "wooden mask"},
		},
		Version: "test-1",
	})

	c, err := Load(path)
	require.NoError(t, err)

	require.Len(t, c.ByTier(model.TierCritical), 1)
	assert.Equal(t, "antique ivory figure", c.ByTier(model.TierCritical)[0].Text)
	require.Len(t, c.ByTier(model.TierHigh), 1)
	require.Len(t, c.ByTier(model.TierMedium), 1)
	require.Len(t, c.ByTier(model.TierGeneral), 1)
	assert.Equal(t, "wooden mask", c.ByTier(model.TierGeneral)[0].Text)
}

func TestLoad_RejectsBelowCoverageThreshold(t *testing.T) {
	t.Parallel()

	// 10 declared, only 2 distinct terms survive.
	path := writeCorpusFile(t, File{
		KeywordsByLanguage: map[string][]string{
			"en": {"ivory", "ivory", "ivory", "pangolin"},
		},
		TotalKeywords: 10,
	})

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared keywords")
}

func TestLoad_AcceptsNinetyPercent(t *testing.T) {
	t.Parallel()

	path := writeCorpusFile(t, File{
		KeywordsByLanguage: map[string][]string{
			"en": {"a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8", "a9"},
		},
		TotalKeywords: 10,
	})

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, c.Size())
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	t.Parallel()

	c, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Greater(t, c.Size(), 0)
	// The fallback is critical-only.
	assert.Equal(t, c.Size(), len(c.ByTier(model.TierCritical)))
	assert.Equal(t, "embedded-fallback", c.Version())
}

func TestLoad_EmptyFileIsConfigError(t *testing.T) {
	t.Parallel()

	path := writeCorpusFile(t, File{})
	_, err := Load(path)
	require.Error(t, err)
}

func TestLanguagesSorted(t *testing.T) {
	t.Parallel()

	path := writeCorpusFile(t, File{
		KeywordsByLanguage: map[string][]string{
			"zh": {"象牙"},
			"en": {"ivory"},
			"es": {"marfil"},
		},
	})

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "es", "zh"}, c.Languages())
}

func TestWriteFile_RoundTrip(t *testing.T) {
	t.Parallel()

	f := &File{
		KeywordsByLanguage: map[string][]string{"en": {"ivory", "rhino horn"}},
		TotalKeywords:      2,
		TotalLanguages:     1,
		Version:            "v2",
	}
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteFile(f, path))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Size())
	assert.Equal(t, "v2", c.Version())
}
