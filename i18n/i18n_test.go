package i18n

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestT(t *testing.T) {
	t.Run("test known key resolves in both locales", func(t *testing.T) {
		key := "assistance.greeting.operation.greeting"
		de := T(LocaleDE, key)
		en := T(LocaleEN, key)
		require.NotEqual(t, key, de)
		require.NotEqual(t, key, en)
		require.NotEqual(t, de, en)
	})

	t.Run("test unknown locale falls back to english", func(t *testing.T) {
		key := "assistance.greeting.operation.greeting"
		require.Equal(t, T(LocaleEN, key), T("fr", key))
	})

	t.Run("test missing key resolves to itself", func(t *testing.T) {
		require.Equal(t, "assistance.nope.missing", T(LocaleDE, "assistance.nope.missing"))
	})
}
