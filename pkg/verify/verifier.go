package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/smallstreet/megabot/pkg/db/models"
	"github.com/smallstreet/megabot/pkg/membership"
	"go.uber.org/zap"
)

// SignupXP is awarded once per successful verification.
const SignupXP int64 = 5_000_000

// RoleAssignment reports what the platform did with the member's role.
type RoleAssignment struct {
	RoleName   string
	AlreadyHas bool
}

// RoleAssigner grants the Discord role matching a membership level.
type RoleAssigner interface {
	Assign(ctx context.Context, userID, membershipName string) (RoleAssignment, error)
}

// MembershipStore is the slice of the membership client the verifier needs.
type MembershipStore interface {
	FindByEmail(ctx context.Context, email string) (*membership.Member, error)
	SubmitVerification(ctx context.Context, rec membership.VerificationRecord) error
}

// Archive persists verification rows for later XP summaries.
type Archive interface {
	InsertVerification(ctx context.Context, row *models.VerificationRow) error
}

// Request is one user's QR verification attempt.
type Request struct {
	GuildID     string
	UserID      string
	Username    string
	DisplayName string
	ImageURL    string
	JoinedAt    time.Time
	InviteURL   string

	// Progress, when set, receives human-readable status updates as the
	// flow advances. Used to edit the reply message in place.
	Progress func(text string)
}

// Outcome is a completed verification.
type Outcome struct {
	Email           string
	Membership      string
	RoleName        string
	AlreadyVerified bool
	XPAwarded       int64
}

// Verifier runs the QR membership verification flow end to end.
type Verifier struct {
	Decoder  Decoder
	Contacts ContactFetcher
	Store    MembershipStore
	Roles    RoleAssigner
	Archive  Archive
	Logger   *zap.Logger

	inflight *xsync.Map[string, struct{}]
}

func NewVerifier(dec Decoder, contacts ContactFetcher, store MembershipStore, roles RoleAssigner, archive Archive, logger *zap.Logger) *Verifier {
	return &Verifier{
		Decoder:  dec,
		Contacts: contacts,
		Store:    store,
		Roles:    roles,
		Archive:  archive,
		Logger:   logger.Named("verify"),
		inflight: xsync.NewMap[string, struct{}](),
	}
}

// Verify decodes the QR image, resolves the contact card, matches the email
// against the membership store, assigns the role and records the result. At
// most one verification per user runs at a time.
func (v *Verifier) Verify(ctx context.Context, req Request) (*Outcome, error) {
	if _, loaded := v.inflight.LoadOrStore(req.UserID, struct{}{}); loaded {
		return nil, ErrBusy
	}
	defer v.inflight.Delete(req.UserID)

	req.progress("Reading your QR code...")

	payload, err := v.Decoder.Decode(ctx, req.ImageURL)
	if err != nil {
		return nil, err
	}

	url := strings.TrimSpace(payload)
	if !strings.Contains(url, "qr1.be") {
		return nil, fmt.Errorf("%w: %s", ErrNotQR1Be, url)
	}

	req.progress("Checking your SmallStreet membership...")

	contact, err := v.Contacts.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	member, err := v.Store.FindByEmail(ctx, contact.Email)
	if err != nil {
		return nil, err
	}
	if member == nil || !member.HasMembership() {
		return nil, fmt.Errorf("%w: %s", ErrNotMember, contact.Email)
	}

	role, err := v.Roles.Assign(ctx, req.UserID, member.MembershipName)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Email:           contact.Email,
		Membership:      member.MembershipName,
		RoleName:        role.RoleName,
		AlreadyVerified: role.AlreadyHas,
	}

	// A member who already holds the right role re-scanned their card.
	// No new records, no second signup award.
	if role.AlreadyHas {
		v.Logger.Info("Member re-verified, skipping record writes",
			zap.String("user_id", req.UserID), zap.String("role", role.RoleName))
		return out, nil
	}

	out.XPAwarded = SignupXP
	v.record(ctx, req, contact, member, role)
	return out, nil
}

// record writes the verification to the membership store and the archive.
// Both writes are best-effort: the member keeps the role either way.
func (v *Verifier) record(ctx context.Context, req Request, contact *ContactInfo, member *membership.Member, role RoleAssignment) {
	rec := membership.VerificationRecord{
		RecordType:  membership.RecordTypeVerification,
		DiscordID:   req.UserID,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Email:       contact.Email,
		GuildID:     req.GuildID,
		JoinedAt:    req.JoinedAt.UTC().Format(time.RFC3339),
		InviteURL:   req.InviteURL,
		XPAwarded:   SignupXP,
	}
	if err := v.Store.SubmitVerification(ctx, rec); err != nil {
		v.Logger.Error("Failed to submit verification record",
			zap.String("user_id", req.UserID), zap.Error(err))
	}

	row := &models.VerificationRow{
		DiscordID:    req.UserID,
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		Email:        contact.Email,
		Membership:   member.MembershipName,
		RoleAssigned: role.RoleName,
		XPAwarded:    SignupXP,
		VerifiedAt:   time.Now().UTC(),
	}
	if err := v.Archive.InsertVerification(ctx, row); err != nil {
		v.Logger.Error("Failed to archive verification",
			zap.String("user_id", req.UserID), zap.Error(err))
	}
}

func (r *Request) progress(text string) {
	if r.Progress != nil {
		r.Progress(text)
	}
}
