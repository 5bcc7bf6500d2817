// Package service implements the session lifecycle: login, validation,
// permission gating, anonymous traffic logging, and logout.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	mailpkg "trasepad/backend/internal/mailer"
	moduledomain "trasepad/backend/internal/module/domain"
	"trasepad/backend/internal/security"
	sessiondomain "trasepad/backend/internal/session/domain"
	userdomain "trasepad/backend/internal/user/domain"
)

// Sentinel errors for the session service; handlers map them to HTTP status codes.
var (
	ErrMalformedToken       = errors.New("malformed session token")
	ErrSessionExpired       = errors.New("session expired or opened from a different address")
	ErrPermissionDenied     = errors.New("permission denied for module")
	ErrUserNotFound         = errors.New("user not found")
	ErrAddressFormatInvalid = errors.New("invalid email address format")
	ErrDomainNotAllowed     = errors.New("email domain not allowed")
	ErrMailDelivery         = errors.New("login mail delivery failed")
)

// Reserved anonymous access pair: presenting AnonymousToken together with
// AnonymousModule bypasses session lookup and only logs traffic. The token
// contains underscores, which is why the format check accepts them.
const (
	AnonymousToken  = "auto_login__sctn"
	AnonymousModule = "sctndd"
)

// MenuModule is exempt from the permission check so every valid session can
// reach its own menu.
const MenuModule = "menu"

// emailPattern is a syntactic sanity check, not full RFC validation.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Access is the outcome of a successful Validate call.
type Access struct {
	// Token is the validated token, or the freshly issued one on the anonymous path.
	Token           string
	UserID          int64
	PermissionFlags int64
}

// LoginResult holds the outcome of Login. TokenByMail reports that the token
// was delivered inside the mailed login link and is the mailbox's proof of
// ownership; callers must not disclose it through any other channel.
type LoginResult struct {
	Token       string
	UserID      int64
	TokenByMail bool
}

// UserRepo is the minimal user repository needed by the session service.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	GetByUsername(ctx context.Context, username string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

// SessionRepo is the minimal session repository needed by the session service.
type SessionRepo interface {
	TokenExists(ctx context.Context, token string) (bool, error)
	Create(ctx context.Context, s *sessiondomain.Session) error
	Close(ctx context.Context, token string) error
	CloseAllOpenForUser(ctx context.Context, userID int64) error
	CloseStaleAnonymous(ctx context.Context, olderThan time.Duration) error
	FindOpenWithUser(ctx context.Context, token, sourceAddr string, maxAge time.Duration) (*sessiondomain.Session, int64, error)
}

// ModuleRepo is the minimal module repository needed by the session service.
type ModuleRepo interface {
	GetByName(ctx context.Context, name string) (*moduledomain.Module, error)
}

// AccessRecorder records per-module access statistics. Best-effort; implementations
// must not return errors to callers.
type AccessRecorder interface {
	Record(ctx context.Context, token, module string)
}

// Mode selects the login strategy.
type Mode string

const (
	// ModeEmail looks users up by email, self-registers recognized domains,
	// and mails a login link carrying the new token (the sole credential).
	ModeEmail Mode = "email"
	// ModePassword looks users up by username and verifies a bcrypt credential.
	ModePassword Mode = "password"
)

// Service owns the session token lifecycle and module permission gating.
type Service struct {
	users    UserRepo
	sessions SessionRepo
	modules  ModuleRepo
	mailer   mailpkg.Mailer
	hasher   *security.Hasher
	stats    AccessRecorder

	mode           Mode
	allowedDomains []string
	baseURL        string
	mailFrom       string
	sessionTTL     time.Duration
	anonTTL        time.Duration
}

// Config carries the session service settings.
type Config struct {
	Mode           Mode
	AllowedDomains []string
	BaseURL        string
	MailFrom       string
	SessionTTL     time.Duration
	AnonTTL        time.Duration
}

// New returns a Service with the given dependencies. stats may be nil (no
// access statistics); mailer may be nil only in password mode.
func New(
	users UserRepo,
	sessions SessionRepo,
	modules ModuleRepo,
	mailer mailpkg.Mailer,
	hasher *security.Hasher,
	stats AccessRecorder,
	cfg Config,
) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 48 * time.Hour
	}
	if cfg.AnonTTL <= 0 {
		cfg.AnonTTL = 12 * time.Hour
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeEmail
	}
	return &Service{
		users:          users,
		sessions:       sessions,
		modules:        modules,
		mailer:         mailer,
		hasher:         hasher,
		stats:          stats,
		mode:           cfg.Mode,
		allowedDomains: cfg.AllowedDomains,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		mailFrom:       cfg.MailFrom,
		sessionTTL:     cfg.SessionTTL,
		anonTTL:        cfg.AnonTTL,
	}
}

// Login authenticates identifier (email or username depending on mode), opens a
// session bound to sourceAddr, and returns its token. Prior open sessions are
// left open: login links are multi-use until expiry, and an explicit logout is
// the only way to close a session early.
//
// In email mode an unknown address self-registers when it is syntactically
// valid and belongs to an allowed domain, and the new token is delivered by
// mail as a deep link; credential is ignored. In password mode credential is
// verified against the stored bcrypt hash.
func (s *Service) Login(ctx context.Context, identifier, credential, sourceAddr string) (*LoginResult, error) {
	var (
		user *userdomain.User
		err  error
	)
	switch s.mode {
	case ModePassword:
		user, err = s.loginPassword(ctx, identifier, credential)
	default:
		user, err = s.loginEmail(ctx, identifier)
	}
	if err != nil {
		return nil, err
	}

	token, err := security.GenerateToken(ctx, s.sessions.TokenExists)
	if err != nil {
		return nil, err
	}
	sess := &sessiondomain.Session{
		Token:      token,
		UserID:     user.ID,
		OpenedAt:   time.Now().UTC(),
		SourceAddr: sourceAddr,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	if s.mode == ModePassword {
		return &LoginResult{Token: token, UserID: user.ID}, nil
	}

	if err := s.sendLoginLink(ctx, user.Email, token); err != nil {
		// The undelivered link is the only way to learn the token; close the
		// session rather than leave it open with no holder.
		_ = s.sessions.Close(ctx, token)
		return nil, fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	return &LoginResult{Token: token, UserID: user.ID, TokenByMail: true}, nil
}

func (s *Service) loginEmail(ctx context.Context, email string) (*userdomain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}
	// Unknown address: self-register when the domain is recognized.
	if !emailPattern.MatchString(email) {
		return nil, ErrAddressFormatInvalid
	}
	if !s.domainAllowed(email) {
		return nil, ErrDomainNotAllowed
	}
	user = &userdomain.User{
		Email:           email,
		Username:        userdomain.UsernameFromEmail(email),
		PermissionFlags: userdomain.DefaultPermissionFlags,
		CreatedAt:       time.Now().UTC(),
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) loginPassword(ctx context.Context, username, password string) (*userdomain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrUserNotFound
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	// Same error for unknown user and wrong password: no account oracle.
	if user == nil || user.PasswordHash == "" {
		return nil, ErrUserNotFound
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *Service) domainAllowed(email string) bool {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	domain := email[at+1:]
	for _, d := range s.allowedDomains {
		if domain == d {
			return true
		}
	}
	return false
}

func (s *Service) sendLoginLink(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/exec?m=%s&u=%s", s.baseURL, MenuModule, token)
	hours := int(s.sessionTTL.Hours())
	body := fmt.Sprintf(
		"Please use the link below to access the data portal.\n\n"+
			"%s\n\n"+
			"This link is only valid from this location and expires in %d hours.\n"+
			"Use the login page to generate a new link as necessary.\n", link, hours)
	return s.mailer.Send(ctx, s.mailFrom, to, "Login link for gc-dz.com", body)
}

// Validate checks token format, resolves the session (closing it when expired
// or relocated), and gates access to the requested module by permission
// bitmask. The reserved anonymous token/module pair bypasses session lookup
// and only logs traffic, succeeding with permission flags zero.
func (s *Service) Validate(ctx context.Context, token, sourceAddr, module string) (*Access, error) {
	if !security.ValidTokenFormat(token) {
		return nil, ErrMalformedToken
	}
	if token == AnonymousToken && module == AnonymousModule {
		anonToken, err := s.LogAnonymousAccess(ctx, sourceAddr)
		if err != nil {
			return nil, err
		}
		return &Access{Token: anonToken, UserID: userdomain.AnonymousUserID, PermissionFlags: 0}, nil
	}

	sess, flags, err := s.sessions.FindOpenWithUser(ctx, token, sourceAddr, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionExpired
	}

	// The menu is reachable by every valid session and is not counted in stats.
	if module != MenuModule {
		mod, err := s.modules.GetByName(ctx, module)
		if err != nil {
			return nil, err
		}
		if mod == nil || !mod.Accessible(flags) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, module)
		}
		if s.stats != nil {
			s.stats.Record(ctx, token, module)
		}
	}
	return &Access{Token: token, UserID: sess.UserID, PermissionFlags: flags}, nil
}

// LogAnonymousAccess closes stale anonymous sessions, opens a new anonymous
// session bound to sourceAddr, and returns its token. Used purely for traffic
// statistics on public tools; the token carries no permissions.
func (s *Service) LogAnonymousAccess(ctx context.Context, sourceAddr string) (string, error) {
	if err := s.sessions.CloseStaleAnonymous(ctx, s.anonTTL); err != nil {
		return "", err
	}
	token, err := security.GenerateToken(ctx, s.sessions.TokenExists)
	if err != nil {
		return "", err
	}
	sess := &sessiondomain.Session{
		Token:      token,
		UserID:     userdomain.AnonymousUserID,
		OpenedAt:   time.Now().UTC(),
		SourceAddr: sourceAddr,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return "", err
	}
	return token, nil
}

// Logout closes the session for token. Closing is terminal; an already closed
// or unknown token is a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	if !security.ValidTokenFormat(token) {
		return ErrMalformedToken
	}
	return s.sessions.Close(ctx, token)
}

// LogoutAll validates token and closes every open session belonging to its
// user, invalidating outstanding login links for that account.
func (s *Service) LogoutAll(ctx context.Context, token, sourceAddr string) error {
	access, err := s.Validate(ctx, token, sourceAddr, MenuModule)
	if err != nil {
		return err
	}
	return s.sessions.CloseAllOpenForUser(ctx, access.UserID)
}
