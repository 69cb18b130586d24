package services

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"authcore/internal/repositories"
)

var testEpoch = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

const testPassword = "Correct-horse1"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type stubNotifier struct {
	mu          sync.Mutex
	phoneCodes  map[string][]string
	resetTokens map[string][]string
	welcomed    []string
	err         error
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{phoneCodes: map[string][]string{}, resetTokens: map[string][]string{}}
}

func (n *stubNotifier) SendPhoneCode(_ context.Context, phone, code string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.phoneCodes[phone] = append(n.phoneCodes[phone], code)
	return n.err
}

func (n *stubNotifier) SendPasswordReset(_ context.Context, email, token string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetTokens[email] = append(n.resetTokens[email], token)
	return n.err
}

func (n *stubNotifier) SendWelcome(_ context.Context, email, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomed = append(n.welcomed, email)
	return n.err
}

func (n *stubNotifier) lastCode(t *testing.T, phone string) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	codes := n.phoneCodes[phone]
	if len(codes) == 0 {
		t.Fatalf("no code delivered to %s", phone)
	}
	return codes[len(codes)-1]
}

func (n *stubNotifier) lastToken(t *testing.T, email string) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	tokens := n.resetTokens[email]
	if len(tokens) == 0 {
		t.Fatalf("no reset token delivered to %s", email)
	}
	return tokens[len(tokens)-1]
}

type testEnv struct {
	db       *sql.DB
	clock    *fakeClock
	users    repositories.UserRepository
	proofs   *ProofStore
	hasher   PasswordHasher
	totp     *TOTPVerifier
	tokens   TokenService
	notifier *stubNotifier

	login     LoginService
	phone     PhoneOTPService
	reset     PasswordResetService
	register  RegistrationService
	twoFactor SecondFactorService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	db, err := repositories.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := repositories.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clock := &fakeClock{t: testEpoch}
	hasher, err := NewPasswordHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	tokens, err := NewTokenService(testTokenConfig(), clock.Now)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}

	e := &testEnv{
		db:       db,
		clock:    clock,
		users:    repositories.NewUserRepository(db),
		hasher:   hasher,
		totp:     NewTOTPVerifier("authcore-test"),
		tokens:   tokens,
		notifier: newStubNotifier(),
	}
	e.proofs = NewProofStore(repositories.NewOneTimeProofRepository(db), clock.Now)
	policy := DefaultPasswordPolicy()
	e.login = NewLoginService(e.users, hasher, e.totp, tokens, nil, clock.Now)
	e.phone = NewPhoneOTPService(db, e.users, e.proofs, tokens, e.notifier, 10*time.Minute, nil, clock.Now)
	e.reset = NewPasswordResetService(db, e.users, e.proofs, hasher, policy, e.notifier, 30*time.Minute, nil, clock.Now)
	e.register = NewRegistrationService(db, e.users, hasher, policy, tokens, e.notifier, nil, clock.Now)
	e.twoFactor = NewSecondFactorService(e.users, e.totp, nil, clock.Now)
	return e
}

func testTokenConfig() TokenConfig {
	return TokenConfig{
		Issuer:        "authcore-test",
		AccessSecret:  []byte("access-secret-access-secret-0123"),
		RefreshSecret: []byte("refresh-secret-refresh-secret-01"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	}
}

func (e *testEnv) mustRegister(t *testing.T, name, email, phone string) string {
	t.Helper()
	res, err := e.register.Register(context.Background(), name, email, phone, testPassword)
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return res.User.ID
}

func expectErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("error = %v, want %v", err, want)
	}
}
