package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"

	"github.com/sitefront/tenant-gateway/internal/backend"
	"github.com/sitefront/tenant-gateway/internal/storage"
)

// State is the callback flow's state.
type State int

const (
	StateLoading State = iota
	StateError
	StateSuccess
)

func (s State) String() string {
	switch s {
	case StateError:
		return "error"
	case StateSuccess:
		return "success"
	default:
		return "loading"
	}
}

// Callback messages that are not part of the auth_error vocabulary.
const (
	MsgNoToken     = "No authentication token received"
	MsgUnreachable = "Unable to reach the sign-in service. Please try again."
	MsgBadResponse = "Unexpected response from the sign-in service."
)

// CallbackResult is the terminal state of one callback.
type CallbackResult struct {
	State   State
	Message string
	// Redirect is where to navigate on success.
	Redirect string
	Blob     *Blob
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithHTTPClient sets the client used for the identity service.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Bridge) {
		b.http = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = l
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) {
		b.now = now
	}
}

// Bridge owns the persisted session of one tab.
type Bridge struct {
	baseURL string
	http    *http.Client
	store   storage.Store
	bus     *Bus
	logger  *slog.Logger
	now     func() time.Time

	group     singleflight.Group
	mu        sync.Mutex
	lastToken string
	last      CallbackResult
}

// NewBridge creates a bridge that reaches the identity routes under baseURL.
func NewBridge(baseURL string, store storage.Store, bus *Bus, opts ...Option) *Bridge {
	b := &Bridge{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		store:   store,
		bus:     bus,
		logger:  slog.Default(),
		now:     time.Now,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.bus == nil {
		b.bus = NewBus()
	}
	return b
}

// Bus returns the bridge's bus.
func (b *Bridge) Bus() *Bus {
	return b.bus
}

// HandleCallback runs the sign-in callback for the query of the callback URL.
// An auth_error parameter wins over a token. Concurrent calls with the same
// token share one exchange. Once the identity service has answered, repeated
// calls reuse that answer; transport failures and 5xx replies are not kept,
// so a retry exchanges again.
func (b *Bridge) HandleCallback(ctx context.Context, query url.Values) CallbackResult {
	if code := query.Get("auth_error"); code != "" {
		return CallbackResult{State: StateError, Message: ErrorMessage(code)}
	}
	token := query.Get("token")
	if token == "" {
		return CallbackResult{State: StateError, Message: MsgNoToken}
	}

	v, _, _ := b.group.Do(token, func() (any, error) {
		b.mu.Lock()
		if b.lastToken == token {
			res := b.last
			b.mu.Unlock()
			return res, nil
		}
		b.mu.Unlock()

		res, final := b.exchange(ctx, token)
		if final {
			b.mu.Lock()
			b.lastToken, b.last = token, res
			b.mu.Unlock()
		}
		return res, nil
	})
	return v.(CallbackResult)
}

// exchange trades the token for a session. final is false when the outcome
// may differ on retry.
func (b *Bridge) exchange(ctx context.Context, token string) (res CallbackResult, final bool) {
	body, _ := json.Marshal(map[string]string{"token": token})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+PathExchange, bytes.NewReader(body))
	if err != nil {
		return CallbackResult{State: StateError, Message: MsgUnreachable}, false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		b.logger.WarnContext(ctx, "token exchange failed", slog.String("error", err.Error()))
		return CallbackResult{State: StateError, Message: MsgUnreachable}, false
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := backend.ExtractMessage(raw)
		if msg == "" {
			msg = fmt.Sprintf("Sign-in failed (%d)", resp.StatusCode)
		}
		b.logger.InfoContext(ctx, "token exchange rejected", slog.Int("status", resp.StatusCode))
		return CallbackResult{State: StateError, Message: msg}, resp.StatusCode < 500
	}

	var blob Blob
	if err := json.Unmarshal(raw, &blob); err != nil || blob.Session.Token == "" {
		return CallbackResult{State: StateError, Message: MsgBadResponse}, true
	}
	if err := b.persist(ctx, &blob); err != nil {
		b.logger.ErrorContext(ctx, "failed to persist session", slog.String("error", err.Error()))
		return CallbackResult{State: StateError, Message: err.Error()}, false
	}
	b.bus.Publish(SessionUpdated{Blob: blob})
	return CallbackResult{State: StateSuccess, Redirect: "/", Blob: &blob}, true
}

func (b *Bridge) persist(ctx context.Context, blob *Blob) error {
	if err := storage.SetJSON(ctx, b.store, KeyBlob, blob); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := b.store.Set(ctx, KeyToken, blob.Session.Token); err != nil {
		return fmt.Errorf("save session token: %w", err)
	}
	return nil
}

// Current returns the stored session, or nil when there is none. An expired
// or unreadable session is removed and SessionCleared is published.
func (b *Bridge) Current(ctx context.Context) (*Blob, error) {
	var blob Blob
	ok, err := storage.GetJSON(ctx, b.store, KeyBlob, &blob)
	if err != nil {
		b.logger.WarnContext(ctx, "discarding unreadable session", slog.String("error", err.Error()))
		return nil, b.clear(ctx, "expired")
	}
	if !ok {
		return nil, nil
	}
	if blob.Expired(b.now()) {
		return nil, b.clear(ctx, "expired")
	}
	return &blob, nil
}

// Token returns the current session token, or "" when signed out.
func (b *Bridge) Token(ctx context.Context) (string, error) {
	blob, err := b.Current(ctx)
	if err != nil || blob == nil {
		return "", err
	}
	return blob.Session.Token, nil
}

// SignOut tells the identity service, then clears local state regardless of
// the outcome.
func (b *Bridge) SignOut(ctx context.Context) error {
	token, _ := b.Token(ctx)
	if err := b.signOutRemote(ctx, token); err != nil {
		b.logger.WarnContext(ctx, "remote sign-out failed", slog.String("error", err.Error()))
	}
	return b.clear(ctx, "signed_out")
}

func (b *Bridge) signOutRemote(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+PathSignOut, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sign-out returned %d", resp.StatusCode)
	}
	return nil
}

func (b *Bridge) clear(ctx context.Context, reason string) error {
	errBlob := b.store.Delete(ctx, KeyBlob)
	errToken := b.store.Delete(ctx, KeyToken)
	b.bus.Publish(SessionCleared{Reason: reason})
	if errBlob != nil {
		return fmt.Errorf("clear session: %w", errBlob)
	}
	if errToken != nil {
		return fmt.Errorf("clear session token: %w", errToken)
	}
	return nil
}
