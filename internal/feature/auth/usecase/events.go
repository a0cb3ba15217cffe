package usecase

import (
	"sync"
	"time"

	"lumina_backend/internal/feature/auth/domain/entity"
	"lumina_backend/internal/platform/metrics"
)

// EventType はセッション状態の変化の種類です。
type EventType int

const (
	// SignedIn はログインまたはトークンのローテーションで新しいセッションが作られたことを示します。
	SignedIn EventType = iota + 1
	// SignedOut はセッションがログアウトまたはローテーションで無効になったことを示します。
	SignedOut
)

func (t EventType) String() string {
	switch t {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	default:
		return "unknown"
	}
}

// Event はセッション状態の変化の通知です。SignedOutではUserとExpiresAtがゼロ値の場合があります。
type Event struct {
	Type      EventType
	SessionID string
	User      entity.User
	ExpiresAt time.Time
}

// Listener はイベントを受け取るコールバックです。
// 発行元のゴルーチンで同期的に呼ばれるため、ブロックしてはいけません。
type Listener func(Event)

// Subscription は購読の解除ハンドルです。
type Subscription interface {
	Unsubscribe()
}

// notifier は購読者の登録とイベントの配信を行います。
type notifier struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
}

func newNotifier() *notifier {
	return &notifier{listeners: map[int]Listener{}}
}

func (n *notifier) subscribe(l Listener) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = l
	return &subscription{n: n, id: id}
}

func (n *notifier) unsubscribe(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.listeners, id)
}

// publish は登録済みの全リスナーにイベントを配信します。
// リスナー内から購読/解除できるよう、ロックを解放してから呼び出します。
func (n *notifier) publish(e Event) {
	n.mu.RLock()
	ls := make([]Listener, 0, len(n.listeners))
	for _, l := range n.listeners {
		ls = append(ls, l)
	}
	n.mu.RUnlock()

	metrics.AuthEvents.WithLabelValues(e.Type.String()).Inc()
	for _, l := range ls {
		l(e)
	}
}

type subscription struct {
	n    *notifier
	id   int
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.n.unsubscribe(s.id) })
}
