package entity

import "strings"

// Mood はエントリに付与する気分タグです。固定の7値のみ有効です。
type Mood string

const (
	MoodHappy     Mood = "Happy"
	MoodCalm      Mood = "Calm"
	MoodSad       Mood = "Sad"
	MoodAnxious   Mood = "Anxious"
	MoodEnergized Mood = "Energized"
	MoodTired     Mood = "Tired"
	MoodGrateful  Mood = "Grateful"
)

// DefaultMood はエディタで気分が未選択のときに使う値です。
const DefaultMood = MoodHappy

// Moods は表示順に並んだ全ての気分です。
var Moods = []Mood{
	MoodHappy,
	MoodCalm,
	MoodSad,
	MoodAnxious,
	MoodEnergized,
	MoodTired,
	MoodGrateful,
}

// Valid は m が定義済みの気分かどうかを返します。
func (m Mood) Valid() bool {
	for _, v := range Moods {
		if v == m {
			return true
		}
	}
	return false
}

// ParseMood は大文字小文字を区別せずに気分名を解釈します。
func ParseMood(s string) (Mood, bool) {
	s = strings.TrimSpace(s)
	for _, v := range Moods {
		if strings.EqualFold(string(v), s) {
			return v, true
		}
	}
	return "", false
}
