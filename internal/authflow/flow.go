// Package authflow drives the two-step email and one-time-code sign-in from
// the device side: collect an email, request a code, verify it, and remember
// the verified session locally.
package authflow

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/chachabrian/rescuelink-backend/internal/prefs"
	"go.uber.org/zap"
)

type State int

const (
	EnteringEmail State = iota
	OtpSent
	Verified
)

func (s State) String() string {
	switch s {
	case EnteringEmail:
		return "entering_email"
	case OtpSent:
		return "otp_sent"
	case Verified:
		return "verified"
	}
	return "unknown"
}

const codeLength = 6

var (
	// ErrWrongState is returned when an action is not valid in the current state.
	ErrWrongState = errors.New("action not allowed in current state")
	// ErrStale reports that the flow moved on while a request was in flight;
	// the response was dropped.
	ErrStale = errors.New("response arrived after the flow changed")
	// ErrBusy is returned while another request is in flight.
	ErrBusy = errors.New("a request is already in progress")
)

// FailedError carries the message shown to the user for a failed step.
type FailedError struct {
	Message string
}

func (e *FailedError) Error() string { return e.Message }

// Preferences is the slice of the device store the flow needs.
type Preferences interface {
	SaveSession(ctx context.Context, email string) error
	LoadSession(ctx context.Context) (prefs.Session, error)
	ClearSession(ctx context.Context) error
}

// View is a copy of the flow's observable state.
type View struct {
	State   State
	Email   string
	OTP     string
	Message string
	Error   string
	Loading bool
	DevCode string
	Token   string
	User    *User
}

// Flow is safe for concurrent use. Network calls run without the lock held;
// every state change bumps a generation so late responses are discarded.
type Flow struct {
	mu    sync.Mutex
	api   API
	prefs Preferences
	log   *zap.Logger

	view View
	gen  uint64
}

func New(api API, p Preferences, log *zap.Logger) *Flow {
	return &Flow{api: api, prefs: p, log: log}
}

func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.view
	if v.User != nil {
		u := *v.User
		v.User = &u
	}
	return v
}

// SetEmail stores the typed address with apostrophes removed.
func (f *Flow) SetEmail(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.view.Email = strings.ReplaceAll(s, "'", "")
}

// SetOTP keeps only digits and at most six of them.
func (f *Flow) SetOTP(s string) {
	var b strings.Builder
	for _, r := range s {
		if b.Len() == codeLength {
			break
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.view.OTP = b.String()
}

// begin checks the state and marks a request in flight. It returns the
// generation the response must still match.
func (f *Flow) begin(want State) (uint64, View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.view.State != want {
		return 0, View{}, ErrWrongState
	}
	if f.view.Loading {
		return 0, View{}, ErrBusy
	}
	f.gen++
	f.view.Loading = true
	f.view.Error = ""
	return f.gen, f.view, nil
}

// finish applies fn if the flow has not moved since begin.
func (f *Flow) finish(gen uint64, fn func(v *View)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.gen {
		return ErrStale
	}
	f.view.Loading = false
	fn(&f.view)
	return nil
}

func (f *Flow) fail(gen uint64, msg string) error {
	if err := f.finish(gen, func(v *View) { v.Error = msg }); err != nil {
		return err
	}
	return &FailedError{Message: msg}
}

// SendOTP checks the account exists and requests a code for it.
func (f *Flow) SendOTP(ctx context.Context) error {
	gen, v, err := f.begin(EnteringEmail)
	if err != nil {
		return err
	}

	email := strings.TrimSpace(v.Email)
	if email == "" {
		return f.fail(gen, "Please enter your email address")
	}

	login, err := f.api.Login(ctx, email)
	if err != nil {
		return f.fail(gen, "Could not reach the server. Check your connection and try again.")
	}
	if !login.Success {
		return f.fail(gen, login.Message)
	}

	resp, err := f.api.SendOTP(ctx, email)
	if err != nil {
		return f.fail(gen, "Could not reach the server. Check your connection and try again.")
	}
	if !resp.Success {
		return f.fail(gen, resp.Message)
	}

	return f.finish(gen, func(v *View) {
		v.State = OtpSent
		v.Message = resp.Message
		v.DevCode = resp.OTPCode
		v.User = login.User
	})
}

// Resend requests a fresh code without leaving OtpSent.
func (f *Flow) Resend(ctx context.Context) error {
	gen, v, err := f.begin(OtpSent)
	if err != nil {
		return err
	}

	resp, err := f.api.SendOTP(ctx, strings.TrimSpace(v.Email))
	if err != nil {
		return f.fail(gen, "Could not reach the server. Check your connection and try again.")
	}
	if !resp.Success {
		return f.fail(gen, resp.Message)
	}
	return f.finish(gen, func(v *View) {
		v.Message = resp.Message
		v.DevCode = resp.OTPCode
	})
}

// Verify submits the entered code. On success the session is remembered on
// the device; a failed write is logged and otherwise ignored.
func (f *Flow) Verify(ctx context.Context) error {
	gen, v, err := f.begin(OtpSent)
	if err != nil {
		return err
	}
	if len(v.OTP) != codeLength {
		return f.fail(gen, "Please enter the 6-digit code")
	}

	email := strings.TrimSpace(v.Email)
	resp, err := f.api.VerifyOTP(ctx, email, v.OTP)
	if err != nil {
		return f.fail(gen, "Could not reach the server. Check your connection and try again.")
	}
	if !resp.Success {
		return f.fail(gen, resp.Message)
	}

	if err := f.finish(gen, func(v *View) {
		v.State = Verified
		v.Message = resp.Message
		v.Token = resp.Token
		v.DevCode = ""
		if resp.User != nil {
			v.User = resp.User
		}
	}); err != nil {
		return err
	}

	if err := f.prefs.SaveSession(ctx, email); err != nil {
		f.log.Warn("could not persist session", zap.Error(err))
	}
	return nil
}

// Back returns to email entry, dropping the code and any messages.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.view.State != OtpSent {
		return ErrWrongState
	}
	f.gen++
	f.view = View{State: EnteringEmail, Email: f.view.Email}
	return nil
}

// Restore starts in Verified when the device remembers a verified session.
func (f *Flow) Restore(ctx context.Context) (bool, error) {
	sess, err := f.prefs.LoadSession(ctx)
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	if sess.Verified && sess.Email != "" {
		f.view = View{State: Verified, Email: sess.Email}
		return true, nil
	}
	f.view = View{State: EnteringEmail}
	return false, nil
}

// Logout forgets the remembered session and resets the flow.
func (f *Flow) Logout(ctx context.Context) error {
	f.mu.Lock()
	f.gen++
	f.view = View{State: EnteringEmail}
	f.mu.Unlock()

	return f.prefs.ClearSession(ctx)
}
