package verify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/smallstreet/megabot/pkg/db/models"
	"github.com/smallstreet/megabot/pkg/membership"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDecoder struct {
	payload string
	err     error
	block   chan struct{}
}

func (f *fakeDecoder) Decode(_ context.Context, _ string) (string, error) {
	if f.block != nil {
		<-f.block
	}
	return f.payload, f.err
}

type fakeContacts struct {
	info *ContactInfo
	err  error
}

func (f *fakeContacts) Fetch(_ context.Context, _ string) (*ContactInfo, error) {
	return f.info, f.err
}

type fakeStore struct {
	mu      sync.Mutex
	members map[string]*membership.Member
	records []membership.VerificationRecord
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) (*membership.Member, error) {
	return f.members[email], nil
}

func (f *fakeStore) SubmitVerification(_ context.Context, rec membership.VerificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

type fakeRoles struct {
	result RoleAssignment
	err    error
}

func (f *fakeRoles) Assign(_ context.Context, _, _ string) (RoleAssignment, error) {
	return f.result, f.err
}

type fakeArchive struct {
	mu   sync.Mutex
	rows []*models.VerificationRow
}

func (f *fakeArchive) InsertVerification(_ context.Context, row *models.VerificationRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, row)
	return nil
}

func pioneer(email string) *membership.Member {
	return &membership.Member{
		Email:          email,
		MembershipID:   json.Number("3"),
		MembershipName: "pioneer",
	}
}

type verifierFixture struct {
	v       *Verifier
	decoder *fakeDecoder
	store   *fakeStore
	archive *fakeArchive
}

func newVerifierFixture() *verifierFixture {
	f := &verifierFixture{
		decoder: &fakeDecoder{payload: "https://qr1.be/ABCD"},
		store: &fakeStore{members: map[string]*membership.Member{
			"jane@x.com": pioneer("jane@x.com"),
		}},
		archive: &fakeArchive{},
	}
	f.v = NewVerifier(
		f.decoder,
		&fakeContacts{info: &ContactInfo{Name: "Jane", Email: "jane@x.com"}},
		f.store,
		&fakeRoles{result: RoleAssignment{RoleName: "MEGAvoter"}},
		f.archive,
		zap.NewNop(),
	)
	return f
}

func testRequest() Request {
	return Request{
		GuildID:  "g1",
		UserID:   "u1",
		Username: "jane",
		ImageURL: "https://cdn/img.png",
		JoinedAt: time.Now(),
	}
}

func TestVerifySuccess(t *testing.T) {
	f := newVerifierFixture()

	out, err := f.v.Verify(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "jane@x.com", out.Email)
	assert.Equal(t, "pioneer", out.Membership)
	assert.Equal(t, "MEGAvoter", out.RoleName)
	assert.False(t, out.AlreadyVerified)
	assert.Equal(t, SignupXP, out.XPAwarded)

	require.Len(t, f.store.records, 1)
	assert.Equal(t, membership.RecordTypeVerification, f.store.records[0].RecordType)
	assert.Equal(t, SignupXP, f.store.records[0].XPAwarded)

	require.Len(t, f.archive.rows, 1)
	assert.Equal(t, "jane@x.com", f.archive.rows[0].Email)
	assert.Equal(t, "MEGAvoter", f.archive.rows[0].RoleAssigned)
}

func TestVerifyProgressUpdates(t *testing.T) {
	f := newVerifierFixture()

	var updates []string
	req := testRequest()
	req.Progress = func(text string) { updates = append(updates, text) }

	_, err := f.v.Verify(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, updates, 2)
}

// Re-scanning an already assigned card keeps the role but writes no new
// records and awards no second signup bonus.
func TestVerifyAlreadyHasRole(t *testing.T) {
	f := newVerifierFixture()
	f.v.Roles = &fakeRoles{result: RoleAssignment{RoleName: "MEGAvoter", AlreadyHas: true}}

	out, err := f.v.Verify(context.Background(), testRequest())
	require.NoError(t, err)

	assert.True(t, out.AlreadyVerified)
	assert.Zero(t, out.XPAwarded)
	assert.Empty(t, f.store.records)
	assert.Empty(t, f.archive.rows)
}

func TestVerifyWrongQRDomain(t *testing.T) {
	f := newVerifierFixture()
	f.decoder.payload = "https://example.com/not-a-card"

	_, err := f.v.Verify(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrNotQR1Be)
}

func TestVerifyUnknownEmail(t *testing.T) {
	f := newVerifierFixture()
	f.store.members = nil

	_, err := f.v.Verify(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestVerifyMemberWithoutMembership(t *testing.T) {
	f := newVerifierFixture()
	f.store.members["jane@x.com"].MembershipID = json.Number("0")

	_, err := f.v.Verify(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestVerifyDecodeErrorPropagates(t *testing.T) {
	f := newVerifierFixture()
	f.decoder.err = ErrUnreadableQR

	_, err := f.v.Verify(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrUnreadableQR)
}

// Only one verification per user may run at a time.
func TestVerifyConcurrentSameUserRejected(t *testing.T) {
	f := newVerifierFixture()
	f.decoder.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.v.Verify(context.Background(), testRequest())
		done <- err
	}()

	// Wait until the first attempt holds the in-flight slot.
	require.Eventually(t, func() bool {
		_, loaded := f.v.inflight.Load("u1")
		return loaded
	}, time.Second, 5*time.Millisecond)

	_, err := f.v.Verify(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrBusy)

	close(f.decoder.block)
	require.NoError(t, <-done)
}
