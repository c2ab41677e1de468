// This file holds the starter catalog written by `bunbetsu init --seed`.
package store

// Seed colors follow the bag colors used by many Japanese municipalities.
var seedCategories = []Record{
	{Type: RecordCategory, Name: "可燃ごみ", Color: "#e74c3c"},
	{Type: RecordCategory, Name: "不燃ごみ", Color: "#3498db"},
	{Type: RecordCategory, Name: "資源ごみ", Color: "#27ae60"},
	{Type: RecordCategory, Name: "プラスチック", Color: "#f39c12"},
	{Type: RecordCategory, Name: "粗大ごみ", Color: "#8e44ad"},
	{Type: RecordCategory, Name: "有害ごみ", Color: "#7f8c8d"},
}

var seedItems = []Record{
	{Type: RecordItem, Name: "生ごみ", Category: "可燃ごみ", Note: "水気をよく切ってください", SearchAliases: "なまごみ 食べ残し 野菜くず"},
	{Type: RecordItem, Name: "紙くず", Category: "可燃ごみ", SearchAliases: "かみくず ティッシュ"},
	{Type: RecordItem, Name: "ペットボトル", Category: "資源ごみ", Note: "キャップとラベルは外してプラスチックへ", SearchAliases: "PET ぺっとぼとる"},
	{Type: RecordItem, Name: "空き缶", Category: "資源ごみ", Note: "中を軽くすすいでください", SearchAliases: "あきかん アルミ缶 スチール缶"},
	{Type: RecordItem, Name: "ガラスびん", Category: "資源ごみ", SearchAliases: "びん 瓶 ガラス瓶"},
	{Type: RecordItem, Name: "新聞紙", Category: "資源ごみ", Note: "ひもで十字にしばって出してください", SearchAliases: "しんぶんし 新聞"},
	{Type: RecordItem, Name: "食品トレイ", Category: "プラスチック", SearchAliases: "しょくひんとれい 発泡スチロール"},
	{Type: RecordItem, Name: "ペットボトルのキャップ", Category: "プラスチック", SearchAliases: "キャップ ふた"},
	{Type: RecordItem, Name: "陶磁器", Category: "不燃ごみ", Note: "割れたものは紙に包んで「キケン」と表示", SearchAliases: "とうじき 茶碗 皿"},
	{Type: RecordItem, Name: "乾電池", Category: "有害ごみ", Note: "端子部分にテープを貼ってください", SearchAliases: "かんでんち 電池 バッテリー"},
	{Type: RecordItem, Name: "蛍光灯", Category: "有害ごみ", SearchAliases: "けいこうとう 電球"},
	{Type: RecordItem, Name: "自転車", Category: "粗大ごみ", Note: "事前申し込みが必要です", SearchAliases: "じてんしゃ チャリ"},
}

// SeedRecords returns the starter catalog as import records.
func SeedRecords() []Record {
	records := make([]Record, 0, len(seedCategories)+len(seedItems))
	records = append(records, seedCategories...)
	records = append(records, seedItems...)
	return records
}
