// Package entity はjournalフィーチャーのドメインモデルを定義します。
package entity

import "strings"

// Entry は1件の日記エントリを表します。
type Entry struct {
	ID         string   // クライアント生成のUUID。更新をまたいで不変
	UserID     string   // 所有ユーザーのID。作成後は変更されない
	Title      string   // タイトル（保存時は空不可）
	Content    string   // 本文（保存時は空不可）
	Mood       Mood     // 気分タグ
	Date       int64    // 初回保存時刻（エポックミリ秒）。更新時も保持される
	AIAnalysis string   // AIによる振り返り。未生成なら空
	Tags       []string // 予約フィールド。現在は常に空
}

// WordCount は本文の空白区切りの単語数を返します。
func (e Entry) WordCount() int {
	return len(strings.Fields(e.Content))
}
