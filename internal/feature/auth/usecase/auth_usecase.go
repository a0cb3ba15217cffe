package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"lumina_backend/internal/feature/auth/domain/entity"
)

const (
	// minPasswordLength はパスワードの最低文字数を定義します。
	minPasswordLength = 8
	// DefaultMaxSessions はユーザーごとに同時に有効なセッションの上限です。
	DefaultMaxSessions = 5
	// refreshTokenBytes はリフレッシュトークンのバイト長です（16進で64文字）。
	refreshTokenBytes = 32
)

// UserRepository はユーザーエンティティの永続化層を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type UserRepository interface {
	// Create は新しいユーザーをストレージに永続化します。
	// 同じメールアドレスのユーザーが既に存在する場合、ErrEmailAlreadyExistsを返します。
	Create(ctx context.Context, user *entity.User) error

	// FindByEmail は指定されたメールアドレスに一致するユーザーを取得します。
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindByID は指定されたIDに一致するユーザーを取得します。
	FindByID(ctx context.Context, id string) (*entity.User, error)
}

// TokenGenerator はアクセストークン生成のインターフェースを定義します。
type TokenGenerator interface {
	GenerateToken(userID, sessionID, email string) (string, error)
	Expiration() time.Duration
}

// TokenPair はログインおよびリフレッシュの結果です。
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // アクセストークンの有効秒数
}

// ClientInfo はセッションに記録するクライアント情報です。
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// authUsecase は認証ビジネスロジックを実装します。
// セッションの開始・終了はSubscribeで登録したリスナーに通知されます。
type authUsecase struct {
	users       UserRepository
	sessions    SessionRepository
	tokens      TokenGenerator
	refreshTTL  time.Duration
	maxSessions int
	events      *notifier
	now         func() time.Time
}

// NewAuthUsecase はauthUsecaseの新しいインスタンスを生成します。
func NewAuthUsecase(users UserRepository, sessions SessionRepository, tokens TokenGenerator, refreshTTL time.Duration) *authUsecase {
	return &authUsecase{
		users:       users,
		sessions:    sessions,
		tokens:      tokens,
		refreshTTL:  refreshTTL,
		maxSessions: DefaultMaxSessions,
		events:      newNotifier(),
		now:         time.Now,
	}
}

// Subscribe はセッション状態の変化を受け取るリスナーを登録します。
func (u *authUsecase) Subscribe(l Listener) Subscription {
	return u.events.subscribe(l)
}

// validatePassword はパスワードがセキュリティ要件を満たしているかチェックします。
func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters long", ErrWeakPassword, minPasswordLength)
	}
	return nil
}

// Signup はハッシュ化されたパスワードで新規ユーザーを登録します。
// メールアドレスは小文字に正規化して保存します。
func (u *authUsecase) Signup(ctx context.Context, email, password, name string) error {
	if err := validatePassword(password); err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user := &entity.User{
		ID:       uuid.NewString(),
		Email:    normalizeEmail(email),
		Password: string(hashed),
		Name:     strings.TrimSpace(name),
	}
	return u.users.Create(ctx, user)
}

// Login はユーザーを認証し、新しいセッションのトークンペアを返します。
// タイミング攻撃を防止するため、ユーザーが存在しない場合でもbcrypt比較を実行します。
func (u *authUsecase) Login(ctx context.Context, email, password string, client ClientInfo) (TokenPair, error) {
	user, err := u.users.FindByEmail(ctx, normalizeEmail(email))

	// ユーザーが存在しない場合のタイミング攻撃緩和用ダミーハッシュ
	passwordHash := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
	if err == nil {
		passwordHash = user.Password
	} else if !errors.Is(err, ErrUserNotFound) {
		return TokenPair{}, fmt.Errorf("failed to load user: %w", err)
	}

	compareErr := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))
	if err != nil || compareErr != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	return u.startSession(ctx, user, client)
}

// Refresh はリフレッシュトークンをローテーションし、新しいトークンペアを返します。
// 古いセッションは失効し、SignedOut→SignedInの順に通知されます。
func (u *authUsecase) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (TokenPair, error) {
	if !isRefreshToken(refreshToken) {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	session, user, err := u.GetSession(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, err
	}

	if err := u.sessions.Revoke(ctx, session.ID); err != nil {
		return TokenPair{}, fmt.Errorf("failed to revoke session: %w", err)
	}
	u.events.publish(Event{Type: SignedOut, SessionID: session.ID, User: *user})

	return u.startSession(ctx, user, client)
}

// Logout はセッションを失効させます。既に存在しないセッションの場合もエラーにしません。
func (u *authUsecase) Logout(ctx context.Context, sessionID string) error {
	if err := u.sessions.Revoke(ctx, sessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	u.events.publish(Event{Type: SignedOut, SessionID: sessionID})
	return nil
}

// LogoutAll はユーザーの有効なセッションをすべて失効させ、それぞれのSignedOutを通知します。
// 失効させたセッション数を返します。
func (u *authUsecase) LogoutAll(ctx context.Context, userID string) (int, error) {
	active, err := u.sessions.FindByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	if err := u.sessions.RevokeAllByUserID(ctx, userID); err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	for _, s := range active {
		u.events.publish(Event{Type: SignedOut, SessionID: s.ID})
	}
	slog.Info("all sessions revoked", "user_id", userID, "count", len(active))
	return len(active), nil
}

// GetSession は有効なセッションとその所有ユーザーを返します。
// 失効済み・期限切れのセッションはそれぞれErrSessionRevoked・ErrSessionExpiredになります。
func (u *authUsecase) GetSession(ctx context.Context, sessionID string) (*entity.Session, *entity.User, error) {
	session, err := u.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session.IsRevoked() {
		return nil, nil, ErrSessionRevoked
	}
	if session.ExpiredAt(u.now()) {
		return nil, nil, ErrSessionExpired
	}

	user, err := u.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// PurgeExpiredSessions は期限切れのセッションを削除し、削除件数を返します。
func (u *authUsecase) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return u.sessions.DeleteExpired(ctx)
}

// startSession はセッションを作成してトークンを発行し、SignedInを通知します。
// 有効なセッションが上限に達している場合は最も古いものを削除します。
func (u *authUsecase) startSession(ctx context.Context, user *entity.User, client ClientInfo) (TokenPair, error) {
	count, err := u.sessions.CountByUserID(ctx, user.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to count sessions: %w", err)
	}
	if count >= int64(u.maxSessions) {
		evicted, err := u.sessions.DeleteOldestByUserID(ctx, user.ID)
		if err != nil {
			return TokenPair{}, fmt.Errorf("failed to evict oldest session: %w", err)
		}
		if evicted != "" {
			slog.Info("evicted oldest session", "user_id", user.ID, "active", count)
			u.events.publish(Event{Type: SignedOut, SessionID: evicted, User: *user})
		}
	}

	id, err := newRefreshToken()
	if err != nil {
		return TokenPair{}, err
	}
	now := u.now()
	session := &entity.Session{
		ID:        id,
		UserID:    user.ID,
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
		CreatedAt: now,
		ExpiresAt: now.Add(u.refreshTTL),
	}
	if err := u.sessions.Create(ctx, session); err != nil {
		return TokenPair{}, fmt.Errorf("failed to create session: %w", err)
	}

	access, err := u.tokens.GenerateToken(user.ID, session.ID, user.Email)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to generate token: %w", err)
	}

	u.events.publish(Event{Type: SignedIn, SessionID: session.ID, User: *user, ExpiresAt: session.ExpiresAt})
	return TokenPair{
		AccessToken:  access,
		RefreshToken: session.ID,
		ExpiresIn:    int64(u.tokens.Expiration().Seconds()),
	}, nil
}

func newRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func isRefreshToken(s string) bool {
	if len(s) != refreshTokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
