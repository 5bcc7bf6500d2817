package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	moduledomain "trasepad/backend/internal/module/domain"
	"trasepad/backend/internal/security"
	sessiondomain "trasepad/backend/internal/session/domain"
	userdomain "trasepad/backend/internal/user/domain"
)

type stubUserRepo struct {
	mu      sync.Mutex
	users   []*userdomain.User
	nextID  int64
	getErr  error
	created []*userdomain.User
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*userdomain.User, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *stubUserRepo) GetByUsername(_ context.Context, username string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (r *stubUserRepo) Create(_ context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	u.ID = r.nextID
	r.users = append(r.users, u)
	r.created = append(r.created, u)
	return nil
}

type stubSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*sessiondomain.Session

	findSession *sessiondomain.Session
	findFlags   int64
	findErr     error

	closed      []string
	closedAll   []int64
	staleClosed []time.Duration
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: make(map[string]*sessiondomain.Session)}
}

func (r *stubSessionRepo) TokenExists(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[token]
	return ok, nil
}

func (r *stubSessionRepo) Create(_ context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Token] = s
	return nil
}

func (r *stubSessionRepo) Close(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, token)
	return nil
}

func (r *stubSessionRepo) CloseAllOpenForUser(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closedAll = append(r.closedAll, userID)
	return nil
}

func (r *stubSessionRepo) CloseStaleAnonymous(_ context.Context, olderThan time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staleClosed = append(r.staleClosed, olderThan)
	return nil
}

func (r *stubSessionRepo) FindOpenWithUser(_ context.Context, token, sourceAddr string, maxAge time.Duration) (*sessiondomain.Session, int64, error) {
	if r.findErr != nil {
		return nil, 0, r.findErr
	}
	return r.findSession, r.findFlags, nil
}

type stubModuleRepo struct {
	modules map[string]*moduledomain.Module
}

func (r *stubModuleRepo) GetByName(_ context.Context, name string) (*moduledomain.Module, error) {
	return r.modules[name], nil
}

type recordingStats struct {
	mu      sync.Mutex
	records []string
}

func (s *recordingStats) Record(_ context.Context, token, module string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, module)
}

type capturingMailer struct {
	mu                      sync.Mutex
	from, to, subject, body string
	err                     error
}

func (m *capturingMailer) Send(_ context.Context, from, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.from, m.to, m.subject, m.body = from, to, subject, body
	return nil
}

const testAddr = "203.0.113.7"

func emailService(users *stubUserRepo, sessions *stubSessionRepo, mail *capturingMailer) *Service {
	return New(users, sessions, &stubModuleRepo{}, mail, nil, nil, Config{
		Mode:           ModeEmail,
		AllowedDomains: []string{"globalcanopy.org", "sei.org"},
		BaseURL:        "https://www.gc-dz.com",
		MailFrom:       "noreply@gc-dz.com",
	})
}

func TestLogin_EmailExistingUser(t *testing.T) {
	users := &stubUserRepo{users: []*userdomain.User{
		{ID: 5, Email: "jo@example.org", Username: "jo", PermissionFlags: 3},
	}}
	sessions := newStubSessionRepo()
	mail := &capturingMailer{}
	svc := emailService(users, sessions, mail)

	// A posted credential is ignored in email mode and must not change how
	// the token is delivered.
	res, err := svc.Login(context.Background(), "Jo@Example.org", "anything", testAddr)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.UserID != 5 {
		t.Errorf("UserID = %d, want 5", res.UserID)
	}
	if !res.TokenByMail {
		t.Error("email-mode token is delivered by mail only")
	}
	if !security.ValidTokenFormat(res.Token) {
		t.Errorf("token %q is not a valid session token", res.Token)
	}
	sess, ok := sessions.sessions[res.Token]
	if !ok {
		t.Fatal("session not stored")
	}
	if sess.UserID != 5 || sess.SourceAddr != testAddr {
		t.Errorf("session = %+v", sess)
	}
	if !strings.Contains(mail.body, "/exec?m=menu&u="+res.Token) {
		t.Errorf("mail body should carry the login link, got %q", mail.body)
	}
	if mail.to != "jo@example.org" {
		t.Errorf("mail to = %q", mail.to)
	}
}

func TestLogin_EmailSelfRegistration(t *testing.T) {
	users := &stubUserRepo{}
	sessions := newStubSessionRepo()
	mail := &capturingMailer{}
	svc := emailService(users, sessions, mail)

	res, err := svc.Login(context.Background(), "new.person@globalcanopy.org", "", testAddr)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if len(users.created) != 1 {
		t.Fatalf("want 1 created user, got %d", len(users.created))
	}
	u := users.created[0]
	if u.Username != "new.person" {
		t.Errorf("username = %q, want %q", u.Username, "new.person")
	}
	if u.PermissionFlags != userdomain.DefaultPermissionFlags {
		t.Errorf("flags = %d, want %d", u.PermissionFlags, userdomain.DefaultPermissionFlags)
	}
	if res.UserID != u.ID {
		t.Errorf("UserID = %d, want %d", res.UserID, u.ID)
	}
}

func TestLogin_EmailRejections(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr error
	}{
		{"not an address", "not-an-address", ErrAddressFormatInvalid},
		{"empty", "", ErrAddressFormatInvalid},
		{"foreign domain", "someone@example.com", ErrDomainNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &stubUserRepo{}
			svc := emailService(users, newStubSessionRepo(), &capturingMailer{})
			if _, err := svc.Login(context.Background(), tt.email, "", testAddr); !errors.Is(err, tt.wantErr) {
				t.Errorf("Login(%q) error = %v, want %v", tt.email, err, tt.wantErr)
			}
			if len(users.created) != 0 {
				t.Errorf("rejected login must not register a user")
			}
		})
	}
}

func TestLogin_EmailMailFailureIsFatal(t *testing.T) {
	users := &stubUserRepo{users: []*userdomain.User{
		{ID: 1, Email: "jo@example.org", Username: "jo"},
	}}
	mail := &capturingMailer{err: errors.New("smtp timeout")}
	sessions := newStubSessionRepo()
	svc := emailService(users, sessions, mail)

	_, err := svc.Login(context.Background(), "jo@example.org", "", testAddr)
	if !errors.Is(err, ErrMailDelivery) {
		t.Fatalf("error = %v, want ErrMailDelivery", err)
	}
	if !strings.Contains(err.Error(), "smtp timeout") {
		t.Errorf("error should carry the cause, got %v", err)
	}
	// The undelivered link was the only way to learn the token, so the
	// session opened for it must not stay open.
	if len(sessions.closed) != 1 {
		t.Fatalf("closed = %v, want the orphaned session closed", sessions.closed)
	}
	if _, created := sessions.sessions[sessions.closed[0]]; !created {
		t.Error("close should target the session created for this login")
	}
}

func TestLogin_Password(t *testing.T) {
	hasher := security.NewHasher(4) // minimum bcrypt cost, keeps the test fast
	hash, err := hasher.Hash([]byte("hunter2"))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	users := &stubUserRepo{users: []*userdomain.User{
		{ID: 9, Email: "jo@example.org", Username: "jo", PasswordHash: hash},
	}}
	sessions := newStubSessionRepo()
	svc := New(users, sessions, &stubModuleRepo{}, nil, hasher, nil, Config{Mode: ModePassword})

	res, err := svc.Login(context.Background(), "jo", "hunter2", testAddr)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.UserID != 9 {
		t.Errorf("UserID = %d, want 9", res.UserID)
	}
	if res.TokenByMail {
		t.Error("password-mode token is returned directly, not mailed")
	}

	for _, tc := range []struct{ username, password string }{
		{"jo", "wrong"},
		{"nobody", "hunter2"},
		{"", "hunter2"},
		{"jo", ""},
	} {
		if _, err := svc.Login(context.Background(), tc.username, tc.password, testAddr); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("Login(%q, %q) error = %v, want ErrUserNotFound", tc.username, tc.password, err)
		}
	}
}

func TestLogin_KeepsPriorSessionsOpen(t *testing.T) {
	users := &stubUserRepo{users: []*userdomain.User{
		{ID: 5, Email: "jo@example.org", Username: "jo"},
	}}
	sessions := newStubSessionRepo()
	svc := emailService(users, sessions, &capturingMailer{})

	if _, err := svc.Login(context.Background(), "jo@example.org", "", testAddr); err != nil {
		t.Fatalf("first login: %v", err)
	}
	if _, err := svc.Login(context.Background(), "jo@example.org", "", testAddr); err != nil {
		t.Fatalf("second login: %v", err)
	}
	if len(sessions.closed) != 0 || len(sessions.closedAll) != 0 {
		t.Error("login must not close prior sessions; links stay valid until expiry")
	}
	if len(sessions.sessions) != 2 {
		t.Errorf("want 2 open sessions, got %d", len(sessions.sessions))
	}
}

func validateService(sessions *stubSessionRepo, modules *stubModuleRepo, stats *recordingStats) *Service {
	var recorder AccessRecorder
	if stats != nil {
		recorder = stats
	}
	return New(&stubUserRepo{}, sessions, modules, nil, nil, recorder, Config{})
}

func TestValidate_MalformedToken(t *testing.T) {
	svc := validateService(newStubSessionRepo(), &stubModuleRepo{}, nil)
	for _, token := range []string{"", "short", "has spaces here!", "way-too-long-token-here"} {
		if _, err := svc.Validate(context.Background(), token, testAddr, "menu"); !errors.Is(err, ErrMalformedToken) {
			t.Errorf("Validate(%q) error = %v, want ErrMalformedToken", token, err)
		}
	}
}

func TestValidate_AnonymousPair(t *testing.T) {
	sessions := newStubSessionRepo()
	svc := validateService(sessions, &stubModuleRepo{}, nil)

	access, err := svc.Validate(context.Background(), AnonymousToken, testAddr, AnonymousModule)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if access.UserID != userdomain.AnonymousUserID || access.PermissionFlags != 0 {
		t.Errorf("access = %+v, want anonymous with flags 0", access)
	}
	if access.Token == AnonymousToken {
		t.Error("anonymous access must issue a fresh token")
	}
	if len(sessions.staleClosed) != 1 {
		t.Error("stale anonymous sessions should be closed first")
	}
	sess, ok := sessions.sessions[access.Token]
	if !ok || sess.UserID != userdomain.AnonymousUserID {
		t.Errorf("anonymous session not stored: %+v", sess)
	}
}

func TestValidate_AnonymousTokenWithOtherModule(t *testing.T) {
	// The reserved token only works with its reserved module; anywhere else it
	// goes through normal lookup and fails like any unknown token.
	sessions := newStubSessionRepo()
	svc := validateService(sessions, &stubModuleRepo{}, nil)

	if _, err := svc.Validate(context.Background(), AnonymousToken, testAddr, "menu"); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("error = %v, want ErrSessionExpired", err)
	}
}

func TestValidate_ExpiredOrRelocated(t *testing.T) {
	sessions := newStubSessionRepo() // findSession nil: no surviving open session
	svc := validateService(sessions, &stubModuleRepo{}, nil)

	if _, err := svc.Validate(context.Background(), "abcDEF0123456789", testAddr, "menu"); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("error = %v, want ErrSessionExpired", err)
	}
}

func TestValidate_PermissionGating(t *testing.T) {
	modules := &stubModuleRepo{modules: map[string]*moduledomain.Module{
		"cmatch": {Name: "cmatch", RequiredFlags: 1},
		"f500":   {Name: "f500", RequiredFlags: 4},
		"open":   {Name: "open", RequiredFlags: 0},
	}}
	sessions := newStubSessionRepo()
	sessions.findSession = &sessiondomain.Session{Token: "abcDEF0123456789", UserID: 5}
	sessions.findFlags = 3
	stats := &recordingStats{}
	svc := validateService(sessions, modules, stats)

	access, err := svc.Validate(context.Background(), "abcDEF0123456789", testAddr, "cmatch")
	if err != nil {
		t.Fatalf("Validate(cmatch): %v", err)
	}
	if access.PermissionFlags != 3 || access.UserID != 5 {
		t.Errorf("access = %+v", access)
	}

	if _, err := svc.Validate(context.Background(), "abcDEF0123456789", testAddr, "f500"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Validate(f500) error = %v, want ErrPermissionDenied", err)
	} else if !strings.Contains(err.Error(), "f500") {
		t.Errorf("denial should name the module, got %v", err)
	}

	// Zero required flags means open to any valid session.
	if _, err := svc.Validate(context.Background(), "abcDEF0123456789", testAddr, "open"); err != nil {
		t.Errorf("Validate(open): %v", err)
	}

	// Unknown module reads as a permission problem, not a distinct state.
	if _, err := svc.Validate(context.Background(), "abcDEF0123456789", testAddr, "nosuch"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Validate(nosuch) error = %v, want ErrPermissionDenied", err)
	}

	if len(stats.records) != 2 {
		t.Errorf("stats records = %v, want cmatch and open only", stats.records)
	}
}

func TestValidate_MenuSkipsGatingAndStats(t *testing.T) {
	// No modules registered at all: menu must still validate.
	sessions := newStubSessionRepo()
	sessions.findSession = &sessiondomain.Session{Token: "abcDEF0123456789", UserID: 5}
	sessions.findFlags = 1
	stats := &recordingStats{}
	svc := validateService(sessions, &stubModuleRepo{}, stats)

	access, err := svc.Validate(context.Background(), "abcDEF0123456789", testAddr, MenuModule)
	if err != nil {
		t.Fatalf("Validate(menu): %v", err)
	}
	if access.UserID != 5 || access.PermissionFlags != 1 {
		t.Errorf("access = %+v", access)
	}
	if len(stats.records) != 0 {
		t.Errorf("menu hits are not counted, got %v", stats.records)
	}
}

func TestValidate_StoreFailurePassthrough(t *testing.T) {
	sessions := newStubSessionRepo()
	sessions.findErr = errors.New("pq: connection reset")
	svc := validateService(sessions, &stubModuleRepo{}, nil)

	_, err := svc.Validate(context.Background(), "abcDEF0123456789", testAddr, "menu")
	if err == nil || errors.Is(err, ErrSessionExpired) {
		t.Errorf("store failure must not read as expiry, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	sessions := newStubSessionRepo()
	svc := validateService(sessions, &stubModuleRepo{}, nil)

	if err := svc.Logout(context.Background(), "abcDEF0123456789"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(sessions.closed) != 1 || sessions.closed[0] != "abcDEF0123456789" {
		t.Errorf("closed = %v", sessions.closed)
	}
	if err := svc.Logout(context.Background(), "bad token"); !errors.Is(err, ErrMalformedToken) {
		t.Errorf("error = %v, want ErrMalformedToken", err)
	}
}

func TestLogoutAll(t *testing.T) {
	sessions := newStubSessionRepo()
	sessions.findSession = &sessiondomain.Session{Token: "abcDEF0123456789", UserID: 5}
	svc := validateService(sessions, &stubModuleRepo{}, nil)

	if err := svc.LogoutAll(context.Background(), "abcDEF0123456789", testAddr); err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	if len(sessions.closedAll) != 1 || sessions.closedAll[0] != 5 {
		t.Errorf("closedAll = %v, want [5]", sessions.closedAll)
	}

	sessions.findSession = nil
	if err := svc.LogoutAll(context.Background(), "abcDEF0123456789", testAddr); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("error = %v, want ErrSessionExpired", err)
	}
}
