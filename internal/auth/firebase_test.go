package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdmin is an in-memory stand-in for the Admin SDK auth client.
type fakeAdmin struct {
	users   map[string]*fbauth.UserRecord
	revoked map[string]bool
	mu      sync.Mutex
}

func newFakeAdmin(records ...*fbauth.UserRecord) *fakeAdmin {
	f := &fakeAdmin{users: map[string]*fbauth.UserRecord{}, revoked: map[string]bool{}}
	for _, r := range records {
		f.users[r.UID] = r
	}
	return f
}

func record(uid, email string, verified bool) *fbauth.UserRecord {
	return &fbauth.UserRecord{
		UserInfo:      &fbauth.UserInfo{UID: uid, Email: email, DisplayName: "Asha"},
		EmailVerified: verified,
		UserMetadata:  &fbauth.UserMetadata{CreationTimestamp: 1700000000000},
	}
}

func (f *fakeAdmin) CreateUser(context.Context, *fbauth.UserToCreate) (*fbauth.UserRecord, error) {
	return nil, errors.New("not used")
}

func (f *fakeAdmin) GetUser(_ context.Context, uid string) (*fbauth.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.users[uid]; ok {
		return r, nil
	}
	return nil, errors.New("no user")
}

func (f *fakeAdmin) GetUserByEmail(_ context.Context, email string) (*fbauth.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.users {
		if r.Email == email {
			return r, nil
		}
	}
	return nil, errors.New("no user")
}

func (f *fakeAdmin) EmailVerificationLink(_ context.Context, email string) (string, error) {
	return "https://example.firebaseapp.com/verify?oobCode=v-" + email, nil
}

func (f *fakeAdmin) PasswordResetLink(_ context.Context, email string) (string, error) {
	return "https://example.firebaseapp.com/reset?oobCode=r-" + email, nil
}

func (f *fakeAdmin) VerifyIDTokenAndCheckRevoked(_ context.Context, idToken string) (*fbauth.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if idToken != "id-token-u1" || f.revoked["u1"] {
		return nil, errors.New("invalid token")
	}
	return &fbauth.Token{UID: "u1"}, nil
}

func (f *fakeAdmin) RevokeRefreshTokens(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[uid] = true
	return nil
}

func (f *fakeAdmin) CustomToken(_ context.Context, uid string) (string, error) {
	return "custom-" + uid, nil
}

// newToolkitServer fakes the Identity Toolkit REST methods.
func newToolkitServer(t *testing.T) *httptest.Server {
	t.Helper()
	fail := func(w http.ResponseWriter, msg string) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 400, "message": msg}})
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts:signInWithPassword", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch {
		case body["email"] == "asha@example.com" && body["password"] == "secret123":
			_ = json.NewEncoder(w).Encode(map[string]any{"idToken": "id-token-u1", "localId": "u1", "expiresIn": "3600"})
		case body["email"] == "new@example.com":
			_ = json.NewEncoder(w).Encode(map[string]any{"idToken": "id-token-u2", "localId": "u2", "expiresIn": "3600"})
		default:
			fail(w, "INVALID_LOGIN_CREDENTIALS")
		}
	})
	mux.HandleFunc("/v1/accounts:update", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["oobCode"] != "good" {
			fail(w, "EXPIRED_OOB_CODE")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"emailVerified": true})
	})
	mux.HandleFunc("/v1/accounts:resetPassword", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["oobCode"] != "good" {
			fail(w, "INVALID_OOB_CODE")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"email": "asha@example.com"})
	})
	mux.HandleFunc("/v1/accounts:signInWithCustomToken", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "custom-u1", body["token"])
		_ = json.NewEncoder(w).Encode(map[string]any{"idToken": "id-token-u1", "expiresIn": "3600"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestFirebase(t *testing.T, google GoogleIdentity) (*FirebaseProvider, *fakeAdmin, *recordingMailer) {
	t.Helper()
	srv := newToolkitServer(t)
	admin := newFakeAdmin(record("u1", "asha@example.com", true), record("u2", "new@example.com", false))
	mailer := &recordingMailer{}
	p := newFirebaseProvider(admin, mailer, FirebaseOptions{
		Google:  google,
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1",
	})
	return p, admin, mailer
}

func TestFirebaseProvider_Login(t *testing.T) {
	p, _, _ := newTestFirebase(t, nil)
	ctx := context.Background()

	session, err := p.Login(ctx, "Asha@Example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "id-token-u1", session.Token)
	assert.Equal(t, "u1", session.User.ID)
	assert.Equal(t, model.ProviderFirebase, session.User.Provider)
	assert.False(t, session.User.CreatedAt.IsZero())

	_, err = p.Login(ctx, "asha@example.com", "wrong")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	_, err = p.Login(ctx, "new@example.com", "whatever")
	assert.ErrorIs(t, err, common.ErrEmailNotVerified)
}

func TestFirebaseProvider_AuthenticateAndLogout(t *testing.T) {
	p, _, _ := newTestFirebase(t, nil)
	ctx := context.Background()

	var events []*model.User
	cancel := p.Watch(func(u *model.User) { events = append(events, u) })
	defer cancel()

	user, err := p.Authenticate(ctx, "id-token-u1")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", user.Email)

	_, err = p.Authenticate(ctx, "forged")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	require.NoError(t, p.Logout(ctx, "id-token-u1"))
	_, err = p.Authenticate(ctx, "id-token-u1")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	require.Len(t, events, 1)
	assert.Nil(t, events[0])
}

func TestFirebaseProvider_ActionCodes(t *testing.T) {
	p, _, mailer := newTestFirebase(t, nil)
	ctx := context.Background()

	assert.NoError(t, p.VerifyEmail(ctx, "good"))
	assert.ErrorIs(t, p.VerifyEmail(ctx, "stale"), common.ErrInvalidToken)
	assert.ErrorIs(t, p.VerifyEmail(ctx, ""), common.ErrInvalidToken)

	assert.ErrorIs(t, p.ResetPassword(ctx, "good", "123"), common.ErrWeakPassword)
	assert.NoError(t, p.ResetPassword(ctx, "good", "newsecret"))
	assert.ErrorIs(t, p.ResetPassword(ctx, "bad", "newsecret"), common.ErrInvalidToken)

	require.NoError(t, p.SendPasswordReset(ctx, "asha@example.com"))
	require.Len(t, mailer.resets, 1)
	assert.Contains(t, mailer.resets[0].link, "oobCode=r-asha@example.com")
}

func TestFirebaseProvider_LoginWithGoogle(t *testing.T) {
	google := fakeGoogle{profile: &GoogleProfile{Email: "asha@example.com", VerifiedEmail: true}}
	p, _, _ := newTestFirebase(t, google)

	session, err := p.LoginWithGoogle(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, "id-token-u1", session.Token)
	assert.Equal(t, "u1", session.User.ID)
}

func TestMapRESTError(t *testing.T) {
	tests := []struct {
		message string
		want    error
	}{
		{"EMAIL_NOT_FOUND", common.ErrInvalidCredentials},
		{"INVALID_PASSWORD", common.ErrInvalidCredentials},
		{"INVALID_OOB_CODE", common.ErrInvalidToken},
		{"WEAK_PASSWORD : Password should be at least 6 characters", common.ErrWeakPassword},
		{"TOO_MANY_ATTEMPTS_TRY_LATER : Try again later.", common.ErrRateLimit},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.ErrorIs(t, mapRESTError(tt.message), tt.want)
		})
	}

	err := mapRESTError("SOMETHING_ELSE")
	assert.Contains(t, err.Error(), "SOMETHING_ELSE")
}
