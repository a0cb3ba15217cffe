package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"lumina_backend/internal/feature/auth/domain/entity"
)

// mockUserRepository はUserRepositoryのモック実装です。
type mockUserRepository struct {
	CreateFunc      func(ctx context.Context, user *entity.User) error
	FindByEmailFunc func(ctx context.Context, email string) (*entity.User, error)
	FindByIDFunc    func(ctx context.Context, id string) (*entity.User, error)
}

func (m *mockUserRepository) Create(ctx context.Context, user *entity.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, ErrUserNotFound
}

// mockTokenGenerator はTokenGeneratorのモック実装です。
type mockTokenGenerator struct {
	GenerateTokenFunc func(userID, sessionID, email string) (string, error)
}

func (m *mockTokenGenerator) GenerateToken(userID, sessionID, email string) (string, error) {
	if m.GenerateTokenFunc != nil {
		return m.GenerateTokenFunc(userID, sessionID, email)
	}
	return "access:" + userID + ":" + sessionID, nil
}

func (m *mockTokenGenerator) Expiration() time.Duration { return 15 * time.Minute }

// memorySessions はSessionRepositoryのインメモリ実装です。
type memorySessions struct {
	mu   sync.Mutex
	rows map[string]*entity.Session
}

func newMemorySessions() *memorySessions {
	return &memorySessions{rows: map[string]*entity.Session{}}
}

func (m *memorySessions) Create(ctx context.Context, s *entity.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.rows[s.ID] = &cp
	return nil
}

func (m *memorySessions) FindByID(ctx context.Context, id string) (*entity.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memorySessions) FindByUserID(ctx context.Context, userID string) ([]*entity.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Session
	for _, s := range m.rows {
		if s.UserID == userID && s.ActiveAt(time.Now()) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memorySessions) Revoke(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return ErrSessionNotFound
	}
	now := time.Now()
	s.RevokedAt = &now
	return nil
}

func (m *memorySessions) RevokeAllByUserID(ctx context.Context, userID string) error {
	active, _ := m.FindByUserID(ctx, userID)
	for _, s := range active {
		_ = m.Revoke(ctx, s.ID)
	}
	return nil
}

func (m *memorySessions) DeleteExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.rows {
		if s.ExpiredAt(time.Now()) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memorySessions) CountByUserID(ctx context.Context, userID string) (int64, error) {
	active, err := m.FindByUserID(ctx, userID)
	return int64(len(active)), err
}

func (m *memorySessions) DeleteOldestByUserID(ctx context.Context, userID string) (string, error) {
	active, _ := m.FindByUserID(ctx, userID)
	if len(active) == 0 {
		return "", nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, active[0].ID)
	return active[0].ID, nil
}

// eventRecorder はSubscribeで受け取ったイベントを記録します。
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) listen(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(b)
}

func newUsersWith(t *testing.T, user entity.User, password string) *mockUserRepository {
	user.Password = hashPassword(t, password)
	return &mockUserRepository{
		FindByEmailFunc: func(ctx context.Context, email string) (*entity.User, error) {
			if email == user.Email {
				cp := user
				return &cp, nil
			}
			return nil, ErrUserNotFound
		},
		FindByIDFunc: func(ctx context.Context, id string) (*entity.User, error) {
			if id == user.ID {
				cp := user
				return &cp, nil
			}
			return nil, ErrUserNotFound
		},
	}
}

var alice = entity.User{ID: "user-1", Email: "alice@example.com", Name: "Alice"}

func TestAuthUsecase_Signup(t *testing.T) {
	t.Run("successful signup", func(t *testing.T) {
		var created *entity.User
		users := &mockUserRepository{CreateFunc: func(ctx context.Context, user *entity.User) error {
			created = user
			return nil
		}}
		uc := NewAuthUsecase(users, newMemorySessions(), &mockTokenGenerator{}, time.Hour)

		err := uc.Signup(context.Background(), "  Alice@Example.com ", "password123", " Alice ")

		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Len(t, created.ID, 36)
		assert.Equal(t, "alice@example.com", created.Email)
		assert.Equal(t, "Alice", created.Name)
		assert.NotEqual(t, "password123", created.Password)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("password123")))
	})

	t.Run("short password", func(t *testing.T) {
		called := false
		users := &mockUserRepository{CreateFunc: func(ctx context.Context, user *entity.User) error {
			called = true
			return nil
		}}
		uc := NewAuthUsecase(users, newMemorySessions(), &mockTokenGenerator{}, time.Hour)

		err := uc.Signup(context.Background(), "a@b.c", "short", "")

		assert.ErrorIs(t, err, ErrWeakPassword)
		assert.False(t, called)
	})

	t.Run("duplicate email", func(t *testing.T) {
		users := &mockUserRepository{CreateFunc: func(ctx context.Context, user *entity.User) error {
			return ErrEmailAlreadyExists
		}}
		uc := NewAuthUsecase(users, newMemorySessions(), &mockTokenGenerator{}, time.Hour)

		err := uc.Signup(context.Background(), "a@b.c", "password123", "")

		assert.ErrorIs(t, err, ErrEmailAlreadyExists)
	})
}

func TestAuthUsecase_Login(t *testing.T) {
	t.Run("success creates a session and notifies", func(t *testing.T) {
		sessions := newMemorySessions()
		uc := NewAuthUsecase(newUsersWith(t, alice, "password123"), sessions, &mockTokenGenerator{}, time.Hour)
		rec := &eventRecorder{}
		uc.Subscribe(rec.listen)

		pair, err := uc.Login(context.Background(), "ALICE@example.com", "password123", ClientInfo{UserAgent: "test", IPAddress: "127.0.0.1"})

		require.NoError(t, err)
		assert.Len(t, pair.RefreshToken, 64)
		assert.Equal(t, "access:user-1:"+pair.RefreshToken, pair.AccessToken)
		assert.Equal(t, int64(900), pair.ExpiresIn)

		s, err := sessions.FindByID(context.Background(), pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, "user-1", s.UserID)
		assert.Equal(t, "test", s.UserAgent)

		require.Len(t, rec.events, 1)
		assert.Equal(t, SignedIn, rec.events[0].Type)
		assert.Equal(t, pair.RefreshToken, rec.events[0].SessionID)
		assert.Equal(t, "Alice", rec.events[0].User.Name)
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		uc := NewAuthUsecase(newUsersWith(t, alice, "password123"), newMemorySessions(), &mockTokenGenerator{}, time.Hour)

		_, err := uc.Login(context.Background(), "alice@example.com", "wrong-password", ClientInfo{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = uc.Login(context.Background(), "bob@example.com", "password123", ClientInfo{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("storage failure is not reported as bad credentials", func(t *testing.T) {
		users := &mockUserRepository{FindByEmailFunc: func(ctx context.Context, email string) (*entity.User, error) {
			return nil, errors.New("connection refused")
		}}
		uc := NewAuthUsecase(users, newMemorySessions(), &mockTokenGenerator{}, time.Hour)

		_, err := uc.Login(context.Background(), "alice@example.com", "password123", ClientInfo{})

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("oldest session is evicted at the limit", func(t *testing.T) {
		sessions := newMemorySessions()
		uc := NewAuthUsecase(newUsersWith(t, alice, "password123"), sessions, &mockTokenGenerator{}, time.Hour)
		base := time.Now()
		step := 0
		uc.now = func() time.Time {
			step++
			return base.Add(time.Duration(step) * time.Second)
		}

		var first string
		for i := 0; i < DefaultMaxSessions; i++ {
			pair, err := uc.Login(context.Background(), "alice@example.com", "password123", ClientInfo{})
			require.NoError(t, err)
			if i == 0 {
				first = pair.RefreshToken
			}
		}

		rec := &eventRecorder{}
		uc.Subscribe(rec.listen)
		_, err := uc.Login(context.Background(), "alice@example.com", "password123", ClientInfo{})
		require.NoError(t, err)

		count, err := sessions.CountByUserID(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, int64(DefaultMaxSessions), count)
		_, err = sessions.FindByID(context.Background(), first)
		assert.ErrorIs(t, err, ErrSessionNotFound)

		// 削除されたセッションもSignedOutとして通知される
		require.Equal(t, []EventType{SignedOut, SignedIn}, rec.types())
		assert.Equal(t, first, rec.events[0].SessionID)
	})

	t.Run("signed in event carries the session expiry", func(t *testing.T) {
		sessions := newMemorySessions()
		uc := NewAuthUsecase(newUsersWith(t, alice, "password123"), sessions, &mockTokenGenerator{}, time.Hour)
		rec := &eventRecorder{}
		uc.Subscribe(rec.listen)

		pair, err := uc.Login(context.Background(), "alice@example.com", "password123", ClientInfo{})
		require.NoError(t, err)

		s, err := sessions.FindByID(context.Background(), pair.RefreshToken)
		require.NoError(t, err)
		require.Len(t, rec.events, 1)
		assert.True(t, s.ExpiresAt.Equal(rec.events[0].ExpiresAt))
	})
}

func TestAuthUsecase_Refresh(t *testing.T) {
	t.Run("rotates the session", func(t *testing.T) {
		sessions := newMemorySessions()
		uc := NewAuthUsecase(newUsersWith(t, alice, "password123"), sessions, &mockTokenGenerator{}, time.Hour)
		pair, err := uc.Login(context.Background(), "alice@example.com", "password123", ClientInfo{})
		require.NoError(t, err)

		rec := &eventRecorder{}
		uc.Subscribe(rec.listen)

		next, err := uc.Refresh(context.Background(), pair.RefreshToken, ClientInfo{})

		require.NoError(t, err)
		assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)
		assert.Equal(t, []EventType{SignedOut, SignedIn}, rec.types())

		old, err := sessions.FindByID(context.Background(), pair.RefreshToken)
		require.NoError(t, err)
		assert.True(t, old.IsRevoked())

		// 使用済みトークンの再利用は拒否される
		_, err = uc.Refresh(context.Background(), pair.RefreshToken, ClientInfo{})
		assert.ErrorIs(t, err, ErrSessionRevoked)
	})

	t.Run("rejects malformed and unknown tokens", func(t *testing.T) {
		uc := NewAuthUsecase(newUsersWith(t, alice, "password123"), newMemorySessions(), &mockTokenGenerator{}, time.Hour)

		_, err := uc.Refresh(context.Background(), "not-a-token", ClientInfo{})
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)

		_, err = uc.Refresh(context.Background(), strings.Repeat("ab", 32), ClientInfo{})
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("rejects expired sessions", func(t *testing.T) {
		sessions := newMemorySessions()
		id := strings.Repeat("cd", 32)
		require.NoError(t, sessions.Create(context.Background(), &entity.Session{
			ID: id, UserID: "user-1", CreatedAt: time.Now().Add(-2 * time.Hour), ExpiresAt: time.Now().Add(-time.Hour),
		}))
		uc := NewAuthUsecase(newUsersWith(t, alice, "password123"), sessions, &mockTokenGenerator{}, time.Hour)

		_, err := uc.Refresh(context.Background(), id, ClientInfo{})
		assert.ErrorIs(t, err, ErrSessionExpired)
		assert.True(t, IsSessionRejected(err))
	})
}

func TestAuthUsecase_LogoutAndGetSession(t *testing.T) {
	sessions := newMemorySessions()
	uc := NewAuthUsecase(newUsersWith(t, alice, "password123"), sessions, &mockTokenGenerator{}, time.Hour)
	pair, err := uc.Login(context.Background(), "alice@example.com", "password123", ClientInfo{})
	require.NoError(t, err)

	s, u, err := uc.GetSession(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshToken, s.ID)
	assert.Equal(t, "alice@example.com", u.Email)

	rec := &eventRecorder{}
	sub := uc.Subscribe(rec.listen)

	require.NoError(t, uc.Logout(context.Background(), pair.RefreshToken))
	assert.Equal(t, []EventType{SignedOut}, rec.types())

	_, _, err = uc.GetSession(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionRevoked)

	// 存在しないセッションのログアウトもエラーにしない
	require.NoError(t, uc.Logout(context.Background(), "unknown"))

	// 購読解除後は通知されない
	sub.Unsubscribe()
	sub.Unsubscribe()
	require.NoError(t, uc.Logout(context.Background(), pair.RefreshToken))
	assert.Len(t, rec.types(), 2)
}

func TestAuthUsecase_LogoutAll(t *testing.T) {
	sessions := newMemorySessions()
	uc := NewAuthUsecase(newUsersWith(t, alice, "password123"), sessions, &mockTokenGenerator{}, time.Hour)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		pair, err := uc.Login(ctx, "alice@example.com", "password123", ClientInfo{})
		require.NoError(t, err)
		ids = append(ids, pair.RefreshToken)
	}
	require.NoError(t, uc.Logout(ctx, ids[0]))

	rec := &eventRecorder{}
	uc.Subscribe(rec.listen)

	n, err := uc.LogoutAll(ctx, "user-1")

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []EventType{SignedOut, SignedOut}, rec.types())
	var signedOut []string
	for _, e := range rec.events {
		signedOut = append(signedOut, e.SessionID)
	}
	assert.ElementsMatch(t, ids[1:], signedOut)

	for _, id := range ids {
		_, _, err := uc.GetSession(ctx, id)
		assert.ErrorIs(t, err, ErrSessionRevoked)
	}

	// 有効なセッションがなければ何も通知しない
	n, err = uc.LogoutAll(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, rec.types(), 2)
}

func TestAuthUsecase_PurgeExpiredSessions(t *testing.T) {
	sessions := newMemorySessions()
	ctx := context.Background()
	require.NoError(t, sessions.Create(ctx, &entity.Session{ID: "old", UserID: "user-1", ExpiresAt: time.Now().Add(-time.Minute)}))
	require.NoError(t, sessions.Create(ctx, &entity.Session{ID: "new", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}))
	uc := NewAuthUsecase(&mockUserRepository{}, sessions, &mockTokenGenerator{}, time.Hour)

	n, err := uc.PurgeExpiredSessions(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = sessions.FindByID(ctx, "new")
	assert.NoError(t, err)
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "signed_in", SignedIn.String())
	assert.Equal(t, "signed_out", SignedOut.String())
	assert.Equal(t, "unknown", EventType(0).String())
}
