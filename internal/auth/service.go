// Package auth implements passwordless login: an existence check on the
// email, a six-digit code mailed to it, and verification of that code within
// a freshness window.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chachabrian/rescuelink-backend/internal/models"
	"github.com/chachabrian/rescuelink-backend/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sender delivers an issued code out-of-band.
type Sender interface {
	SendLoginOTP(ctx context.Context, to, code string, expiryMinutes int) error
}

// Limiter gates how often a user may request a new code.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

type Options struct {
	// DevMode returns issued codes in the response and tolerates a missing Sender.
	DevMode   bool
	SingleUse bool
	Freshness time.Duration
}

type Service struct {
	db       *gorm.DB
	sender   Sender
	limiter  Limiter
	tokens   *utils.TokenManager
	opts     Options
	log      *zap.Logger
	now      func() time.Time
	generate func() (string, error)
}

// Option customises a Service.
type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.generate = gen }
}

func WithLimiter(l Limiter) Option {
	return func(s *Service) { s.limiter = l }
}

func NewService(db *gorm.DB, sender Sender, tokens *utils.TokenManager, opts Options, log *zap.Logger, options ...Option) *Service {
	if opts.Freshness <= 0 {
		opts.Freshness = 5 * time.Minute
	}
	s := &Service{
		db:       db,
		sender:   sender,
		tokens:   tokens,
		opts:     opts,
		log:      log,
		now:      time.Now,
		generate: utils.GenerateOTP,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// IssueResult describes a freshly issued code.
type IssueResult struct {
	Message string
	// Code is only populated in development mode.
	Code string
}

// VerifyResult is returned after a successful verification.
type VerifyResult struct {
	User  models.Profile
	Token string
}

// Login is the session gate: it only confirms the account exists.
func (s *Service) Login(ctx context.Context, email string) (*models.Profile, error) {
	user, err := s.lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	p := user.Profile()
	return &p, nil
}

// SendOTP issues a new code for the account behind email.
func (s *Service) SendOTP(ctx context.Context, email string) (*IssueResult, error) {
	user, err := s.lookup(ctx, email)
	if err != nil {
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, fmt.Sprintf("%d:login", user.ID)); err != nil {
			return nil, err
		}
	}

	code, err := s.generate()
	if err != nil {
		return nil, fmt.Errorf("generating otp: %w", err)
	}

	record := models.OTP{
		UserID:   user.ID,
		Code:     code,
		IssuedAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("saving otp: %w", err)
	}

	result := &IssueResult{Message: "OTP sent to your email"}

	switch {
	case s.sender != nil:
		if err := s.sender.SendLoginOTP(ctx, user.Email, code, int(s.opts.Freshness.Minutes())); err != nil {
			if !s.opts.DevMode {
				return nil, fmt.Errorf("delivering otp: %w", err)
			}
			s.log.Warn("otp delivery failed in development mode", zap.Uint("user_id", user.ID), zap.Error(err))
			result.Message = "OTP generated (email delivery failed)"
		}
	case s.opts.DevMode:
		result.Message = "OTP generated (development mode)"
	default:
		return nil, errors.New("no otp sender configured")
	}

	if s.opts.DevMode {
		result.Code = code
	}

	s.log.Info("otp issued", zap.Uint("user_id", user.ID), zap.Uint("otp_id", record.ID))
	return result, nil
}

// VerifyOTP checks code against the newest fresh matching code for the account.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*VerifyResult, error) {
	if !utils.IsValidOTPFormat(code) {
		return nil, &ValidationError{Field: "otp_code", Message: "OTP must be 6 digits"}
	}

	user, err := s.lookup(ctx, email)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	q := s.db.WithContext(ctx).
		Where("user_id = ? AND code = ? AND issued_at >= ?", user.ID, code, now.Add(-s.opts.Freshness))
	if s.opts.SingleUse {
		q = q.Where("used_at IS NULL")
	}

	var record models.OTP
	if err := q.Order("issued_at DESC").Order("id DESC").Take(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidOTP
		}
		return nil, fmt.Errorf("looking up otp: %w", err)
	}

	if s.opts.SingleUse {
		// Conditional update so two concurrent submissions cannot both win.
		res := s.db.WithContext(ctx).Model(&models.OTP{}).
			Where("id = ? AND used_at IS NULL", record.ID).
			Update("used_at", now)
		if res.Error != nil {
			return nil, fmt.Errorf("consuming otp: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrInvalidOTP
		}
	}

	result := &VerifyResult{User: user.Profile()}
	if s.tokens != nil {
		token, err := s.tokens.GenerateToken(user.ID, user.Email)
		if err != nil {
			return nil, fmt.Errorf("signing token: %w", err)
		}
		result.Token = token
	}

	s.log.Info("otp verified", zap.Uint("user_id", user.ID), zap.Uint("otp_id", record.ID))
	return result, nil
}

func (s *Service) lookup(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if !utils.IsValidEmail(email) {
		return nil, &ValidationError{Field: "email", Message: "Invalid email address"}
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("LOWER(TRIM(email)) = ?", email).Order("id").Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	return &user, nil
}
