package features

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	assert.Equal(t, []string{"api-tests.feature", "ui-tests.feature"}, Paths())
}

func TestFeaturesAreTagged(t *testing.T) {
	for path, tag := range map[string]string{"api-tests.feature": TagAPI, "ui-tests.feature": TagUI} {
		raw, err := fs.ReadFile(FS(), path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), tag+"\nFeature:", path)
	}
}
