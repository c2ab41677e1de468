package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ascii lower", "PET Bottle", "pet bottle"},
		{"full-width ascii", "ＰＥＴ", "pet"},
		{"half-width katakana with voicing mark", "ﾍﾟｯﾄﾎﾞﾄﾙ", "ペットボトル"},
		{"hiragana to katakana", "ぺっとぼとる", "ペットボトル"},
		{"kanji untouched", "生ごみ", "生ゴミ"},
		{"whitespace collapsed and trimmed", "  空き　　缶 ", "空キ 缶"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestSubstringDistance(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		text    string
		limit   int
		want    int
	}{
		{"exact substring", "ボトル", "ペットボトル", 1, 0},
		{"one substitution", "ペッドボトル", "ペットボトル", 2, 1},
		{"one deletion", "ペトボトル", "ペットボトル", 2, 1},
		{"no match beyond limit", "冷蔵庫", "ペットボトル", 1, 2},
		{"empty text", "abc", "", 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := substringDistance([]rune(tt.pattern), []rune(tt.text), tt.limit)
			assert.Equal(t, tt.want, got)
		})
	}
}
