package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

func sampleItems() []types.ItemView {
	return []types.ItemView{
		{ID: 3, Name: "ペットボトル", GarbageCategory: "資源ごみ", SearchAliases: "PET ぺっとぼとる"},
		{ID: 1, Name: "生ごみ", GarbageCategory: "可燃ごみ", Note: "水気を切る", SearchAliases: "なまごみ 食べ残し"},
		{ID: 2, Name: "ペットボトルのキャップ", GarbageCategory: "プラスチック", SearchAliases: "ふた"},
		{ID: 4, Name: "乾電池", GarbageCategory: "有害ごみ", Note: "テープで絶縁", SearchAliases: "でんち バッテリー"},
		{ID: 5, Name: "新聞紙", GarbageCategory: "資源ごみ", Note: "ひもでしばる"},
	}
}

func names(items []types.ItemView) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestSearch(t *testing.T) {
	ix := BuildIndex(sampleItems())

	tests := []struct {
		name  string
		query string
		check func(t *testing.T, got []types.ItemView)
	}{
		{
			name:  "blank query returns snapshot order",
			query: "   ",
			check: func(t *testing.T, got []types.ItemView) {
				assert.Equal(t, names(sampleItems()), names(got))
			},
		},
		{
			name:  "exact name ranks first",
			query: "ペットボトル",
			check: func(t *testing.T, got []types.ItemView) {
				require.NotEmpty(t, got)
				assert.Equal(t, "ペットボトル", got[0].Name)
				assert.Contains(t, names(got), "ペットボトルのキャップ")
			},
		},
		{
			name:  "hiragana query finds katakana name",
			query: "ぺっとぼとる",
			check: func(t *testing.T, got []types.ItemView) {
				require.NotEmpty(t, got)
				assert.Equal(t, "ペットボトル", got[0].Name)
			},
		},
		{
			name:  "full-width ascii matches alias",
			query: "ＰＥＴ",
			check: func(t *testing.T, got []types.ItemView) {
				require.NotEmpty(t, got)
				assert.Equal(t, "ペットボトル", got[0].Name)
			},
		},
		{
			name:  "typo is tolerated",
			query: "ペッドボトル",
			check: func(t *testing.T, got []types.ItemView) {
				require.NotEmpty(t, got)
				assert.Equal(t, "ペットボトル", got[0].Name)
			},
		},
		{
			name:  "note matches",
			query: "絶縁",
			check: func(t *testing.T, got []types.ItemView) {
				assert.Equal(t, []string{"乾電池"}, names(got))
			},
		},
		{
			name:  "no match returns empty",
			query: "冷蔵庫",
			check: func(t *testing.T, got []types.ItemView) {
				assert.Empty(t, got)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, ix.Search(tt.query))
		})
	}
}

func TestSearch_TiesBrokenByID(t *testing.T) {
	items := []types.ItemView{
		{ID: 9, Name: "缶"},
		{ID: 2, Name: "缶"},
		{ID: 5, Name: "缶"},
	}
	got := BuildIndex(items).Search("缶")
	require.Len(t, got, 3)
	assert.Equal(t, []int64{2, 5, 9}, []int64{got[0].ID, got[1].ID, got[2].ID})
}

func TestSearch_NameOutranksNote(t *testing.T) {
	items := []types.ItemView{
		{ID: 1, Name: "ガラス", Note: "びん"},
		{ID: 2, Name: "びん"},
	}
	got := BuildIndex(items).SearchScored("びん")
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].Item.ID)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestBuildIndex_DoesNotMutateInput(t *testing.T) {
	items := sampleItems()
	before := names(items)
	ix := BuildIndex(items)

	items[0].Name = "changed"
	assert.Equal(t, before, names(sampleItems()))
	assert.Equal(t, "ペットボトル", ix.Search("")[0].Name, "index keeps its own copy")
	assert.Equal(t, 5, ix.Len())
}

func TestSearch_ReturnsFreshSlices(t *testing.T) {
	ix := BuildIndex(sampleItems())
	first := ix.Search("")
	first[0].Name = "mutated"
	assert.Equal(t, "ペットボトル", ix.Search("")[0].Name)
}

func TestSearch_AliasOnlyTerm(t *testing.T) {
	items := []types.ItemView{
		{ID: 1, Name: "ペットボトル", SearchAliases: "PET プラスチック"},
		{ID: 2, Name: "新聞紙"},
	}
	got := BuildIndex(items).Search("プラスチック")
	assert.Equal(t, []string{"ペットボトル"}, names(got))
}

func TestSearch_RepeatedCallsAreStable(t *testing.T) {
	ix := BuildIndex(sampleItems())
	first := names(ix.Search("ごみ"))
	for range 5 {
		assert.Equal(t, first, names(ix.Search("ごみ")))
	}
}
