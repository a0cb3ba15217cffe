// Package api はHTTP APIのリクエスト/レスポンスのJSON型を定義します。
package api

// ErrorResponse はすべてのエラーレスポンスのボディです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse は本文を持たない成功レスポンスのボディです。
type MessageResponse struct {
	Message string `json:"message"`
}

// SignupRequest は /signup のリクエストボディです。
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"omitempty,max=80"`
}

// LoginRequest は /login のリクエストボディです。
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest は /refresh のリクエストボディです。
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse はログインおよびリフレッシュ成功時のレスポンスです。
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// LogoutAllResponse は /logout/all のレスポンスです。
type LogoutAllResponse struct {
	Revoked int `json:"revoked"`
}

// UserResponse はサインイン中ユーザーの最小限の情報です。
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

// EntryRequest はエントリの作成/更新リクエストです。
// moodは省略可能で、省略時はサーバー側の既定値が使われます。
type EntryRequest struct {
	Title      string `json:"title" binding:"required,max=200"`
	Content    string `json:"content" binding:"required"`
	Mood       string `json:"mood" binding:"omitempty,mood"`
	AIAnalysis string `json:"ai_analysis"`
}

// EntryResponse は1件のエントリです。dateはエポックミリ秒です。
type EntryResponse struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Mood       string   `json:"mood"`
	Date       int64    `json:"date"`
	AIAnalysis string   `json:"ai_analysis,omitempty"`
	Tags       []string `json:"tags"`
	WordCount  int      `json:"word_count"`
}

// EntryListResponse はエントリ一覧です。
// 一覧の取得に失敗した場合もEntriesは空配列で、Unavailableがtrueになります。
type EntryListResponse struct {
	Entries     []EntryResponse `json:"entries"`
	Total       int             `json:"total"`
	Unavailable bool            `json:"unavailable,omitempty"`
}

// MoodShareResponse は気分分布の1行です。
type MoodShareResponse struct {
	Mood    string `json:"mood"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

// DashboardResponse は /dashboard のレスポンスです。
type DashboardResponse struct {
	Entries     []EntryResponse     `json:"entries"`
	Total       int                 `json:"total"`
	MoodStats   []MoodShareResponse `json:"mood_stats"`
	TopMoods    []MoodShareResponse `json:"top_moods"`
	Prompt      string              `json:"prompt"`
	Unavailable bool                `json:"unavailable,omitempty"`
}

// PromptResponse は今日のプロンプトです。
type PromptResponse struct {
	Prompt string `json:"prompt"`
}

// ReflectionRequest は /reflections のリクエストボディです。
type ReflectionRequest struct {
	Content string `json:"content" binding:"required"`
}

// ReflectionResponse はAIによる振り返りです。
type ReflectionResponse struct {
	Reflection string `json:"reflection"`
}

// MoodsResponse は選択可能な気分の一覧です。
type MoodsResponse struct {
	Moods []string `json:"moods"`
}
