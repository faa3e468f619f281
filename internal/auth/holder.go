package auth

import (
	"context"
	"sync"
	"time"

	"voxnote/models"
)

// Event names a session change delivered to subscribers.
type Event string

const (
	EventInitialSession   Event = "INITIAL_SESSION"
	EventSignedIn         Event = "SIGNED_IN"
	EventSignedOut        Event = "SIGNED_OUT"
	EventTokenRefreshed   Event = "TOKEN_REFRESHED"
	EventUserUpdated      Event = "USER_UPDATED"
	EventPasswordRecovery Event = "PASSWORD_RECOVERY"
)

// Listener receives session changes. session is nil after sign-out.
type Listener func(event Event, session *models.Session)

// refreshMargin is how close to expiry a restored access token may be before it
// is exchanged instead of verified.
const refreshMargin = time.Minute

// Holder owns the single active session of a client and broadcasts changes.
// Listeners are called one change at a time, in the order the changes were
// applied. They may read the Holder but must not change its session.
type Holder struct {
	svc *Service
	now func() time.Time

	// emitMu orders session changes together with their delivery.
	emitMu sync.Mutex

	mu        sync.Mutex
	session   *models.Session
	loading   bool
	listeners map[int]Listener
	nextID    int
}

func NewHolder(svc *Service) *Holder {
	return &Holder{
		svc:       svc,
		now:       time.Now,
		loading:   true,
		listeners: make(map[int]Listener),
	}
}

// Init restores a previously stored session, if any, and ends the loading phase.
// An expired or expiring access token is exchanged using the refresh token, in
// which case TOKEN_REFRESHED follows INITIAL_SESSION. A session that can be
// neither verified nor refreshed is dropped.
func (h *Holder) Init(ctx context.Context, restored *models.Session) {
	session, refreshed := h.restore(ctx, restored)

	h.emitMu.Lock()
	defer h.emitMu.Unlock()

	h.mu.Lock()
	if !h.loading {
		h.mu.Unlock()
		return
	}
	h.session = session
	h.loading = false
	h.mu.Unlock()

	h.dispatch(EventInitialSession, session)
	if refreshed {
		h.dispatch(EventTokenRefreshed, session)
	}
}

func (h *Holder) restore(ctx context.Context, restored *models.Session) (session *models.Session, refreshed bool) {
	if restored == nil {
		return nil, false
	}

	if restored.AccessToken != "" && !h.expiring(restored) {
		current, err := h.svc.Authenticate(ctx, restored.AccessToken)
		if err == nil {
			if current.RefreshToken == "" {
				current.RefreshToken = restored.RefreshToken
			}
			if current.EmailConfirmedAt == nil {
				current.EmailConfirmedAt = restored.EmailConfirmedAt
			}
			if current.ExpiresAt == nil {
				current.ExpiresAt = restored.ExpiresAt
			}
			return current, false
		}
		if KindOf(err) != KindSessionMissing {
			return nil, false
		}
	}

	if restored.RefreshToken == "" {
		return nil, false
	}
	session, err := h.svc.Refresh(ctx, restored.RefreshToken)
	if err != nil {
		return nil, false
	}
	return session, true
}

func (h *Holder) expiring(s *models.Session) bool {
	return s.ExpiresAt != nil && !h.now().Add(refreshMargin).Before(*s.ExpiresAt)
}

// Loading is true until Init has completed once.
func (h *Holder) Loading() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loading
}

// Session returns a copy of the current session, or nil.
func (h *Holder) Session() *models.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return nil
	}
	s := *h.session
	return &s
}

// Subscribe registers fn and returns a function that removes it.
func (h *Holder) Subscribe(fn Listener) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// Notify applies a session change reported from outside the Holder, such as a
// token refresh or an expiry.
func (h *Holder) Notify(event Event, session *models.Session) {
	if event == EventSignedOut {
		session = nil
	}
	h.set(event, session)
}

func (h *Holder) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*SignUpResult, error) {
	res, err := h.svc.SignUp(ctx, email, password, metadata)
	if err != nil {
		return nil, err
	}
	if !res.ConfirmationRequired {
		h.set(EventSignedIn, res.Session)
	}
	return res, nil
}

func (h *Holder) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	session, err := h.svc.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	h.set(EventSignedIn, session)
	return session, nil
}

func (h *Holder) SignOut(ctx context.Context) error {
	current := h.Session()
	if current == nil {
		return nil
	}
	if err := h.svc.SignOut(ctx, current.AccessToken); err != nil {
		return err
	}
	h.set(EventSignedOut, nil)
	return nil
}

// Refresh exchanges the held refresh token for a new session and broadcasts
// TOKEN_REFRESHED.
func (h *Holder) Refresh(ctx context.Context) (*models.Session, error) {
	current := h.Session()
	if current == nil || current.RefreshToken == "" {
		return nil, newError(OpRefresh, KindSessionMissing, nil)
	}
	session, err := h.svc.Refresh(ctx, current.RefreshToken)
	if err != nil {
		return nil, err
	}
	h.set(EventTokenRefreshed, session)
	return session, nil
}

func (h *Holder) ResetPassword(ctx context.Context, email string) error {
	return h.svc.ResetPassword(ctx, email)
}

func (h *Holder) UpdatePassword(ctx context.Context, newPassword string) error {
	var token string
	if current := h.Session(); current != nil {
		token = current.AccessToken
	}
	updated, err := h.svc.UpdatePassword(ctx, token, newPassword)
	if err != nil {
		return err
	}

	h.emitMu.Lock()
	defer h.emitMu.Unlock()

	h.mu.Lock()
	if h.session != nil {
		next := *h.session
		next.Email = updated.Email
		next.Metadata = updated.Metadata
		h.session = &next
	}
	session := h.session
	h.mu.Unlock()

	h.dispatch(EventUserUpdated, session)
	return nil
}

func (h *Holder) ResendConfirmation(ctx context.Context, email string) error {
	return h.svc.ResendConfirmation(ctx, email)
}

func (h *Holder) set(event Event, session *models.Session) {
	h.emitMu.Lock()
	defer h.emitMu.Unlock()

	h.mu.Lock()
	h.session = session
	h.mu.Unlock()

	h.dispatch(event, session)
}

// dispatch delivers one change to every listener. Callers hold emitMu.
func (h *Holder) dispatch(event Event, session *models.Session) {
	h.mu.Lock()
	listeners := make([]Listener, 0, len(h.listeners))
	for id := 0; id < h.nextID; id++ {
		if fn, ok := h.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	h.mu.Unlock()

	for _, fn := range listeners {
		var snapshot *models.Session
		if session != nil {
			s := *session
			snapshot = &s
		}
		fn(event, snapshot)
	}
}
