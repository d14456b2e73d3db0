package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/arkvault/userstore/internal/domain/shared"
	"github.com/arkvault/userstore/internal/domain/user"
	"github.com/arkvault/userstore/pkg/logger"
)

// SignInPolicy holds lockout and throttling parameters
type SignInPolicy struct {
	MaxAccessFailed int
	LockoutDuration time.Duration
	AttemptInterval time.Duration
	AttemptBurst    int
}

// SignInService authenticates users against the store: password check,
// failed-attempt counting, lockout enforcement and session token issuance.
// It is the canonical consumer of the user store's mutate-then-persist
// contract.
type SignInService struct {
	logger *logger.Logger
	repo   user.Repository
	tokens *user.JWTService
	policy SignInPolicy

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewSignInService creates a new sign-in service
func NewSignInService(log *logger.Logger, repo user.Repository, tokens *user.JWTService, policy SignInPolicy) *SignInService {
	if policy.AttemptInterval <= 0 {
		policy.AttemptInterval = time.Second
	}
	if policy.AttemptBurst < 1 {
		policy.AttemptBurst = 10
	}

	return &SignInService{
		logger:   log.WithComponent("signin"),
		repo:     repo,
		tokens:   tokens,
		policy:   policy,
		limiters: make(map[string]*rate.Limiter),
	}
}

// SignIn verifies credentials and returns a session token. Failed attempts
// increment the access-failed counter and may trip the lockout window; both
// changes are persisted before the error is returned.
func (s *SignInService) SignIn(ctx context.Context, username, password string) (string, *user.User, error) {
	if username == "" || password == "" {
		return "", nil, shared.ErrInvalidInput("username and password are required")
	}

	if !s.limiterFor(username).Allow() {
		s.logger.Warn("Sign-in throttled", zap.String("username", username))
		return "", nil, shared.ErrThrottled()
	}

	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}
	if u == nil {
		return "", nil, shared.ErrInvalidCredentials()
	}

	now := time.Now().UTC()
	if u.IsLockedOut(now) {
		return "", nil, shared.ErrLockedOut()
	}

	if !u.VerifyPassword(password) {
		return "", nil, s.recordFailure(ctx, u, now)
	}

	// Clear any stale failure state before issuing the token
	if u.AccessFailed > 0 || u.LockoutEnd != nil {
		u.ResetAccessFailedCount()
		u.LockoutEnd = nil
		if _, err := s.repo.Replace(ctx, u); err != nil {
			return "", nil, err
		}
	}

	token, err := s.tokens.GenerateToken(u)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("User signed in", zap.String("user_id", u.ID.String()))
	return token, u, nil
}

// Validate checks a session token and returns the user it belongs to.
// A token whose security stamp no longer matches the stored aggregate is
// rejected as stale.
func (s *SignInService) Validate(ctx context.Context, tokenString string) (*user.User, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, shared.WrapDomainError(err, shared.ErrCodeInvalidCredentials, "invalid session token")
	}

	uid, err := user.ParseUserID(claims.UserID)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, shared.ErrNotFound("user")
	}

	if u.SecurityStamp != claims.SecurityStamp {
		return nil, shared.ErrStaleToken()
	}

	return u, nil
}

// recordFailure bumps the failure counter, trips the lockout window when
// the threshold is reached, and persists the aggregate
func (s *SignInService) recordFailure(ctx context.Context, u *user.User, now time.Time) error {
	count := u.IncrementAccessFailedCount()

	lockedOut := false
	if u.LockoutEnabled && count >= s.policy.MaxAccessFailed {
		u.LockUntil(now.Add(s.policy.LockoutDuration))
		lockedOut = true
	}

	if _, err := s.repo.Replace(ctx, u); err != nil {
		return err
	}

	s.logger.Warn("Sign-in failed",
		zap.String("user_id", u.ID.String()),
		zap.Int("access_failed", count),
		zap.Bool("locked_out", lockedOut),
	)

	if lockedOut {
		return shared.ErrLockedOut()
	}
	return shared.ErrInvalidCredentials()
}

// limiterFor returns the per-username attempt limiter, creating it on
// first use
func (s *SignInService) limiterFor(username string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, ok := s.limiters[username]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(s.policy.AttemptInterval), s.policy.AttemptBurst)
		s.limiters[username] = limiter
	}

	return limiter
}
