package screens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle(t *testing.T) {
	assert.Equal(t, "Step 1: Locale", ScreenLocale.Title())
	assert.Equal(t, "Step 4: Manual Partitioning", ScreenPartitions.Title())
	assert.Equal(t, "Installing", ScreenProgress.Title())
}

func TestMenus(t *testing.T) {
	assert.Equal(t, MethodChoices, GetMenuChoices(ScreenMethod))
	assert.Empty(t, GetMenuChoices(ScreenProgress))
	assert.Equal(t, 2, IndexOf(LocaleChoices, "de_DE.UTF-8"))
	assert.Equal(t, 0, IndexOf(LocaleChoices, "xx_XX"))
}
