package authflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/chachabrian/rescuelink-backend/internal/prefs"
	"github.com/chachabrian/rescuelink-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type call struct {
	method, email, code string
}

type fakeAPI struct {
	mu       sync.Mutex
	calls    []call
	accounts map[string]bool
	code     string
	down     bool
	// gate, when set, blocks SendOTP until it is closed.
	gate chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{accounts: map[string]bool{"a@b.com": true}, code: "042917"}
}

func (f *fakeAPI) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeAPI) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.method)
	}
	return out
}

func (f *fakeAPI) Login(_ context.Context, email string) (*Response, error) {
	f.record(call{"login", email, ""})
	if f.down {
		return nil, errors.New("connection refused")
	}
	if !f.accounts[email] {
		return &Response{Status: "error", Message: "Account not found"}, nil
	}
	return &Response{Success: true, Message: "Login successful", User: &User{ID: 1, Name: "Ada", Email: email}}, nil
}

func (f *fakeAPI) SendOTP(_ context.Context, email string) (*Response, error) {
	f.record(call{"send", email, ""})
	if f.gate != nil {
		<-f.gate
	}
	return &Response{Success: true, Message: "OTP sent to your email"}, nil
}

func (f *fakeAPI) VerifyOTP(_ context.Context, email, code string) (*Response, error) {
	f.record(call{"verify", email, code})
	if code != f.code {
		return &Response{Message: "Invalid OTP"}, nil
	}
	return &Response{Success: true, Message: "OTP verified successfully", Token: "jwt", User: &User{ID: 1, Email: email}}, nil
}

type brokenPrefs struct{ prefs.Session }

func (brokenPrefs) SaveSession(context.Context, string) error { return errors.New("disk full") }
func (b brokenPrefs) LoadSession(context.Context) (prefs.Session, error) {
	return b.Session, nil
}
func (brokenPrefs) ClearSession(context.Context) error { return nil }

func newFlow(t *testing.T, api API) (*Flow, *prefs.Store) {
	t.Helper()
	store, err := prefs.New(testutil.OpenDB(t))
	require.NoError(t, err)
	return New(api, store, zap.NewNop()), store
}

func TestInputSanitising(t *testing.T) {
	f, _ := newFlow(t, newFakeAPI())

	f.SetEmail("o'brien@b.com'")
	assert.Equal(t, "obrien@b.com", f.View().Email)

	f.SetOTP("12-34 a56789")
	assert.Equal(t, "123456", f.View().OTP)

	f.SetOTP("٣٤٥")
	assert.Empty(t, f.View().OTP)
}

func TestHappyPathPersistsSession(t *testing.T) {
	api := newFakeAPI()
	f, store := newFlow(t, api)
	ctx := context.Background()

	f.SetEmail("a@b.com")
	require.NoError(t, f.SendOTP(ctx))
	v := f.View()
	assert.Equal(t, OtpSent, v.State)
	assert.Equal(t, "OTP sent to your email", v.Message)
	assert.Equal(t, []string{"login", "send"}, api.methods())

	f.SetOTP("042917")
	require.NoError(t, f.Verify(ctx))
	v = f.View()
	assert.Equal(t, Verified, v.State)
	assert.Equal(t, "jwt", v.Token)

	sess, err := store.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, prefs.Session{Email: "a@b.com", Verified: true}, sess)
}

func TestUnknownAccountStaysOnEmail(t *testing.T) {
	api := newFakeAPI()
	f, _ := newFlow(t, api)

	f.SetEmail("ghost@x.com")
	err := f.SendOTP(context.Background())

	var failed *FailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "Account not found", failed.Message)
	v := f.View()
	assert.Equal(t, EnteringEmail, v.State)
	assert.Equal(t, "Account not found", v.Error)
	assert.False(t, v.Loading)
	assert.Equal(t, []string{"login"}, api.methods(), "no code is requested for unknown accounts")
}

func TestServerUnreachable(t *testing.T) {
	api := newFakeAPI()
	api.down = true
	f, _ := newFlow(t, api)

	f.SetEmail("a@b.com")
	err := f.SendOTP(context.Background())
	require.Error(t, err)
	assert.Equal(t, EnteringEmail, f.View().State)
	assert.NotEmpty(t, f.View().Error)
}

func TestWrongCodeStaysOnOtp(t *testing.T) {
	f, store := newFlow(t, newFakeAPI())
	ctx := context.Background()

	f.SetEmail("a@b.com")
	require.NoError(t, f.SendOTP(ctx))

	f.SetOTP("111111")
	err := f.Verify(ctx)
	assert.EqualError(t, err, "Invalid OTP")
	assert.Equal(t, OtpSent, f.View().State)

	sess, err := store.LoadSession(ctx)
	require.NoError(t, err)
	assert.False(t, sess.Verified)
}

func TestShortCodeNeverHitsServer(t *testing.T) {
	api := newFakeAPI()
	f, _ := newFlow(t, api)
	ctx := context.Background()

	f.SetEmail("a@b.com")
	require.NoError(t, f.SendOTP(ctx))
	f.SetOTP("123")
	require.Error(t, f.Verify(ctx))
	assert.Equal(t, []string{"login", "send"}, api.methods())
}

func TestResendKeepsState(t *testing.T) {
	api := newFakeAPI()
	f, _ := newFlow(t, api)
	ctx := context.Background()

	assert.ErrorIs(t, f.Resend(ctx), ErrWrongState)

	f.SetEmail("a@b.com")
	require.NoError(t, f.SendOTP(ctx))
	require.NoError(t, f.Resend(ctx))
	assert.Equal(t, OtpSent, f.View().State)
	assert.Equal(t, []string{"login", "send", "send"}, api.methods())
}

func TestBackClearsOtpAndMessages(t *testing.T) {
	api := newFakeAPI()
	f, _ := newFlow(t, api)
	ctx := context.Background()

	assert.ErrorIs(t, f.Back(), ErrWrongState)

	f.SetEmail("a@b.com")
	require.NoError(t, f.SendOTP(ctx))
	f.SetOTP("999999")
	_ = f.Verify(ctx)

	calls := len(api.methods())
	require.NoError(t, f.Back())
	v := f.View()
	assert.Equal(t, View{State: EnteringEmail, Email: "a@b.com"}, v)
	assert.Len(t, api.methods(), calls)
}

func TestLateResponseAfterBackIsIgnored(t *testing.T) {
	api := newFakeAPI()
	f, _ := newFlow(t, api)
	ctx := context.Background()

	f.SetEmail("a@b.com")
	require.NoError(t, f.SendOTP(ctx))

	api.gate = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- f.Resend(ctx) }()

	require.Eventually(t, func() bool { return f.View().Loading }, testTimeout, testTick)
	require.NoError(t, f.Back())
	close(api.gate)

	assert.ErrorIs(t, <-done, ErrStale)
	v := f.View()
	assert.Equal(t, EnteringEmail, v.State)
	assert.Empty(t, v.Message)
	assert.False(t, v.Loading)
}

func TestBusyWhileInFlight(t *testing.T) {
	api := newFakeAPI()
	f, _ := newFlow(t, api)
	ctx := context.Background()

	f.SetEmail("a@b.com")
	require.NoError(t, f.SendOTP(ctx))

	api.gate = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- f.Resend(ctx) }()
	require.Eventually(t, func() bool { return f.View().Loading }, testTimeout, testTick)

	assert.ErrorIs(t, f.Resend(ctx), ErrBusy)
	close(api.gate)
	assert.NoError(t, <-done)
}

func TestPersistFailureIsSwallowed(t *testing.T) {
	f := New(newFakeAPI(), brokenPrefs{}, zap.NewNop())
	ctx := context.Background()

	f.SetEmail("a@b.com")
	require.NoError(t, f.SendOTP(ctx))
	f.SetOTP("042917")
	require.NoError(t, f.Verify(ctx))
	assert.Equal(t, Verified, f.View().State)
}

func TestRestoreAndLogout(t *testing.T) {
	f, store := newFlow(t, newFakeAPI())
	ctx := context.Background()

	restored, err := f.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, restored)

	require.NoError(t, store.SaveSession(ctx, "a@b.com"))
	restored, err = f.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, restored)
	assert.Equal(t, Verified, f.View().State)
	assert.Equal(t, "a@b.com", f.View().Email)

	require.NoError(t, f.Logout(ctx))
	assert.Equal(t, EnteringEmail, f.View().State)
	sess, err := store.LoadSession(ctx)
	require.NoError(t, err)
	assert.False(t, sess.Verified)
}
