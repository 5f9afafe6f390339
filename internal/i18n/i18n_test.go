package i18n

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	require.NoError(t, Initialize())

	assert.Equal(t,
		`Insufficient remaining quantity for the selected product "Mug". Only "2" remaining.`,
		T("en", KeyOrderInsufficientQuantity, "Mug", 2))
	assert.Equal(t, "找不到商品", T("zh_TW", KeyProductNotFound))
}

func TestTranslateFallsBack(t *testing.T) {
	assert.Equal(t, "Product not found", T("fr", KeyProductNotFound))
	assert.Equal(t, "no.such.key", T("en", "no.such.key"))
}

func TestLanguageInContext(t *testing.T) {
	assert.Equal(t, DefaultLang, LangFrom(context.Background()))

	ctx := WithLang(context.Background(), "zh_TW")
	assert.Equal(t, "zh_TW", LangFrom(ctx))
	assert.Equal(t, "找不到訂單", TC(ctx, KeyOrderNotFound))
}

func TestLocalesHaveSameKeys(t *testing.T) {
	require.NoError(t, Initialize())

	en := instance.translations["en"]
	zh := instance.translations["zh_TW"]
	require.NotEmpty(t, en)
	for key := range en {
		assert.Contains(t, zh, key)
	}
}
