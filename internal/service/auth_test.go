package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bootcamp-directory/internal/apperr"
	"github.com/iliyamo/bootcamp-directory/internal/model"
	"github.com/iliyamo/bootcamp-directory/internal/queue"
	"github.com/iliyamo/bootcamp-directory/internal/repository"
	"github.com/iliyamo/bootcamp-directory/internal/utils"
)

// memStore is an in-memory UserStore.
type memStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]*model.User
}

func newMemStore() *memStore { return &memStore{users: map[uint64]*model.User{}} }

func (m *memStore) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	for _, o := range m.users {
		if o.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uint64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) GetByResetToken(_ context.Context, hash string, now time.Time) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ResetPasswordToken != nil && *u.ResetPasswordToken == hash && u.ResetPasswordExpire.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) UpdateDetails(_ context.Context, id uint64, name, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.users {
		if o.ID != id && o.Email == strings.ToLower(email) {
			return repository.ErrDuplicate
		}
	}
	m.users[id].Name, m.users[id].Email = name, strings.ToLower(email)
	return nil
}

func (m *memStore) UpdatePassword(_ context.Context, id uint64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.PasswordHash = hash
	u.ResetPasswordToken, u.ResetPasswordExpire = nil, nil
	return nil
}

func (m *memStore) ConsumeResetToken(_ context.Context, id uint64, tokenHash string, now time.Time, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.ResetPasswordToken == nil || *u.ResetPasswordToken != tokenHash || !u.ResetPasswordExpire.After(now) {
		return repository.ErrNotFound
	}
	u.PasswordHash = newHash
	u.ResetPasswordToken, u.ResetPasswordExpire = nil, nil
	return nil
}

func (m *memStore) SetResetToken(_ context.Context, id uint64, hash string, expire time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].ResetPasswordToken, m.users[id].ResetPasswordExpire = &hash, &expire
	return nil
}

func (m *memStore) ClearResetToken(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].ResetPasswordToken, m.users[id].ResetPasswordExpire = nil, nil
	return nil
}

// fakeMailer records sent bodies and fails when err is set.
type fakeMailer struct {
	bodies []string
	err    error
}

func (f *fakeMailer) Send(_ context.Context, _, _, body string) error {
	if f.err != nil {
		return f.err
	}
	f.bodies = append(f.bodies, body)
	return nil
}

// lastToken extracts the raw token from the most recent reset email.
func (f *fakeMailer) lastToken(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.bodies)
	body := f.bodies[len(f.bodies)-1]
	return body[strings.LastIndex(body, "/")+1:]
}

type chanPublisher chan queue.AccountEvent

func (c chanPublisher) Publish(_ context.Context, ev queue.AccountEvent) error {
	c <- ev
	return nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newTestService(t *testing.T) (*AuthService, *memStore, *fakeMailer, *clock) {
	t.Helper()
	store := newMemStore()
	mailer := &fakeMailer{}
	clk := &clock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewAuthService(AuthConfig{
		Secret:     "test-secret",
		TokenTTL:   time.Hour,
		BcryptCost: 4,
		ResetTTL:   10 * time.Minute,
		Now:        clk.Now,
	}, store, mailer, nil, nil)
	return svc, store, mailer, clk
}

func register(t *testing.T, svc *AuthService, email, password string) *model.User {
	t.Helper()
	u, _, err := svc.Register(context.Background(), RegisterInput{Name: "Jane", Email: email, Password: password})
	require.NoError(t, err)
	return u
}

func TestRegister_StoresHashNotPlaintext(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	u, sess, err := svc.Register(ctx, RegisterInput{Name: "Jane", Email: "Jane@Example.com", Password: "s3cret!"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, model.RoleUser, u.Role)

	stored, err := store.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", stored.PasswordHash)
	assert.True(t, utils.VerifyPassword(stored.PasswordHash, "s3cret!"))

	logged, _, err := svc.Login(ctx, "jane@example.com", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []RegisterInput{
		{Email: "a@b.co", Password: "123456"},
		{Name: "A", Email: "not-an-email", Password: "123456"},
		{Name: "A", Email: "a@b.co", Password: "12345"},
		{Name: "A", Email: "a@b.co", Password: "123456", Role: "admin"},
	}
	for _, in := range cases {
		_, _, err := svc.Register(ctx, in)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "%+v: %v", in, err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	register(t, svc, "jane@example.com", "123456")

	_, _, err := svc.Register(context.Background(), RegisterInput{Name: "J", Email: "JANE@example.com", Password: "654321"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, MsgEmailTaken, apperr.Message(err))
}

func TestRegister_Publisher(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	u, _, err := svc.Register(context.Background(), RegisterInput{Name: "P", Email: "p@example.com", Password: "123456", Role: "publisher"})
	require.NoError(t, err)
	assert.Equal(t, model.RolePublisher, u.Role)
}

func TestLogin_UniformFailure(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	register(t, svc, "jane@example.com", "123456")
	ctx := context.Background()

	_, _, errUnknown := svc.Login(ctx, "ghost@example.com", "123456")
	_, _, errWrong := svc.Login(ctx, "jane@example.com", "wrong-password")

	for _, err := range []error{errUnknown, errWrong} {
		assert.True(t, apperr.Is(err, apperr.KindAuth))
		assert.Equal(t, MsgInvalidCredentials, apperr.Message(err))
	}

	_, _, errMissing := svc.Login(ctx, "", "123456")
	assert.Equal(t, MsgMissingCredentials, apperr.Message(errMissing))
}

func TestAuthenticate(t *testing.T) {
	svc, _, _, clk := newTestService(t)
	u := register(t, svc, "jane@example.com", "123456")
	ctx := context.Background()

	_, sess, err := svc.Login(ctx, "jane@example.com", "123456")
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	for _, tok := range []string{"", "garbage", sess.Token + "x"} {
		_, err := svc.Authenticate(ctx, tok)
		assert.Equal(t, MsgNotAuthorized, apperr.Message(err))
	}

	clk.t = clk.t.Add(2 * time.Hour)
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.True(t, apperr.Is(err, apperr.KindAuth))
}

func TestAuthenticate_DeletedUser(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	u := register(t, svc, "jane@example.com", "123456")
	_, sess, err := svc.Login(context.Background(), "jane@example.com", "123456")
	require.NoError(t, err)

	delete(store.users, u.ID)
	_, err = svc.Authenticate(context.Background(), sess.Token)
	assert.Equal(t, MsgNotAuthorized, apperr.Message(err))
}

func TestAuthorize(t *testing.T) {
	allowed := model.NewRoleSet(model.RolePublisher, model.RoleAdmin)

	assert.NoError(t, Authorize(&model.User{Role: model.RoleAdmin}, allowed))
	err := Authorize(&model.User{Role: model.RoleUser}, allowed)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Equal(t, "User role user is not authorized to access this route", apperr.Message(err))
	assert.True(t, apperr.Is(Authorize(nil, allowed), apperr.KindAuth))
}

func TestChangePassword(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "jane@example.com", "123456")
	current, _ := store.GetByID(ctx, u.ID)

	_, err := svc.ChangePassword(ctx, current, "nope", "abcdef")
	assert.Equal(t, MsgPasswordIncorrect, apperr.Message(err))
	assert.True(t, apperr.Is(err, apperr.KindAuth))

	sess, err := svc.ChangePassword(ctx, current, "123456", "abcdef")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)

	_, _, err = svc.Login(ctx, "jane@example.com", "abcdef")
	assert.NoError(t, err)
	_, _, err = svc.Login(ctx, "jane@example.com", "123456")
	assert.Error(t, err)
}

func TestUpdateDetails(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	jane := register(t, svc, "jane@example.com", "123456")
	register(t, svc, "john@example.com", "123456")

	got, err := svc.UpdateDetails(ctx, jane, DetailsInput{Name: "Jane Doe", Email: "JaneDoe@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.Name)
	assert.Equal(t, "janedoe@example.com", got.Email)

	_, err = svc.UpdateDetails(ctx, jane, DetailsInput{Name: "Jane", Email: "john@example.com"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestResetFlow_TokenIsSingleUse(t *testing.T) {
	svc, store, mailer, _ := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "jane@example.com", "123456")

	require.NoError(t, svc.RequestPasswordReset(ctx, "jane@example.com", "http://localhost/api/v1/resetpassword/"))
	raw := mailer.lastToken(t)
	assert.Len(t, raw, 40)

	stored, _ := store.GetByID(ctx, u.ID)
	require.NotNil(t, stored.ResetPasswordToken)
	assert.Equal(t, utils.HashToken(raw), *stored.ResetPasswordToken)
	assert.NotEqual(t, raw, *stored.ResetPasswordToken)

	got, sess, err := svc.ResetPassword(ctx, raw, "newpass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NotEmpty(t, sess.Token)

	stored, _ = store.GetByID(ctx, u.ID)
	assert.Nil(t, stored.ResetPasswordToken)
	assert.Nil(t, stored.ResetPasswordExpire)

	_, _, err = svc.ResetPassword(ctx, raw, "another")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, MsgInvalidToken, apperr.Message(err))

	_, _, err = svc.Login(ctx, "jane@example.com", "newpass")
	assert.NoError(t, err)
}

func TestResetFlow_SecondRequestInvalidatesFirst(t *testing.T) {
	svc, _, mailer, _ := newTestService(t)
	ctx := context.Background()
	register(t, svc, "jane@example.com", "123456")

	require.NoError(t, svc.RequestPasswordReset(ctx, "jane@example.com", "http://x/api/v1/resetpassword/"))
	first := mailer.lastToken(t)
	require.NoError(t, svc.RequestPasswordReset(ctx, "jane@example.com", "http://x/api/v1/resetpassword/"))
	second := mailer.lastToken(t)
	require.NotEqual(t, first, second)

	_, _, err := svc.ResetPassword(ctx, first, "newpass")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, _, err = svc.ResetPassword(ctx, second, "newpass")
	assert.NoError(t, err)
}

func TestResetFlow_ExpiredToken(t *testing.T) {
	svc, _, mailer, clk := newTestService(t)
	ctx := context.Background()
	register(t, svc, "jane@example.com", "123456")

	require.NoError(t, svc.RequestPasswordReset(ctx, "jane@example.com", "http://x/api/v1/resetpassword/"))
	raw := mailer.lastToken(t)

	clk.t = clk.t.Add(10 * time.Minute) // expiry must be strictly after now
	_, _, err := svc.ResetPassword(ctx, raw, "newpass")
	assert.Equal(t, MsgInvalidToken, apperr.Message(err))
}

func TestResetFlow_DeliveryFailureClearsToken(t *testing.T) {
	svc, store, mailer, _ := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "jane@example.com", "123456")
	mailer.err = errors.New("smtp down")

	err := svc.RequestPasswordReset(ctx, "jane@example.com", "http://x/api/v1/resetpassword/")
	assert.True(t, apperr.Is(err, apperr.KindDelivery))
	assert.Equal(t, MsgEmailNotSent, apperr.Message(err))

	stored, _ := store.GetByID(ctx, u.ID)
	assert.Nil(t, stored.ResetPasswordToken)
	assert.Nil(t, stored.ResetPasswordExpire)
}

func TestRequestPasswordReset_UnknownEmail(t *testing.T) {
	svc, _, mailer, _ := newTestService(t)
	err := svc.RequestPasswordReset(context.Background(), "ghost@example.com", "http://x/")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, MsgNoUserWithEmail, apperr.Message(err))
	assert.Empty(t, mailer.bodies)
}

func TestEventsArePublished(t *testing.T) {
	events := make(chanPublisher, 4)
	svc := NewAuthService(AuthConfig{Secret: "s", TokenTTL: time.Hour, BcryptCost: 4}, newMemStore(), &fakeMailer{}, events, nil)

	_, _, err := svc.Register(context.Background(), RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "123456"})
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, queue.EventRegistered, ev.Type)
		assert.Equal(t, "jane@example.com", ev.Email)
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
	}
}

// racingStore lets another reset consume the token between the lookup
// and the update of the request under test.
type racingStore struct {
	*memStore
	winner string
}

func (r *racingStore) GetByResetToken(ctx context.Context, hash string, now time.Time) (*model.User, error) {
	u, err := r.memStore.GetByResetToken(ctx, hash, now)
	if err != nil {
		return nil, err
	}
	winnerHash, err := utils.HashPassword(r.winner, 4)
	if err != nil {
		return nil, err
	}
	if err := r.memStore.ConsumeResetToken(ctx, u.ID, hash, now, winnerHash); err != nil {
		return nil, err
	}
	return u, nil
}

func TestResetFlow_ConcurrentConsumeOnlyOneWins(t *testing.T) {
	_, store, mailer, clk := newTestService(t)
	racing := &racingStore{memStore: store, winner: "winner1"}
	svc := NewAuthService(AuthConfig{
		Secret: "test-secret", TokenTTL: time.Hour, BcryptCost: 4, ResetTTL: 10 * time.Minute, Now: clk.Now,
	}, racing, mailer, nil, nil)
	ctx := context.Background()
	register(t, svc, "jane@example.com", "123456")

	require.NoError(t, svc.RequestPasswordReset(ctx, "jane@example.com", "http://localhost/api/v1/resetpassword/"))
	raw := mailer.lastToken(t)

	_, _, err := svc.ResetPassword(ctx, raw, "loser12")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, MsgInvalidToken, apperr.Message(err))

	_, _, err = svc.Login(ctx, "jane@example.com", "loser12")
	assert.Error(t, err)
	_, _, err = svc.Login(ctx, "jane@example.com", "winner1")
	assert.NoError(t, err)
}
