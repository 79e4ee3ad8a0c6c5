package membership

// RecordType tags every record submitted to the membership store. The store
// keeps one flat payload per record; the tag is what read sites switch on
// instead of re-parsing ad hoc JSON.
type RecordType string

const (
	RecordTypeVerification RecordType = "verification"
	RecordTypePollVote     RecordType = "poll_vote"
	RecordTypeFinalAward   RecordType = "final_award"
)

// Record is any payload accepted by SubmitRecord.
type Record interface {
	Kind() RecordType
}

// VerificationRecord is written once per successful QR membership
// verification.
type VerificationRecord struct {
	RecordType  RecordType `json:"record_type"`
	DiscordID   string     `json:"discord_id"`
	Username    string     `json:"discord_username"`
	DisplayName string     `json:"discord_display_name"`
	Email       string     `json:"email"`
	GuildID     string     `json:"guild_id"`
	JoinedAt    string     `json:"joined_at"`
	InviteURL   string     `json:"joined_via_invite"`
	XPAwarded   int64      `json:"xp_awarded"`
}

func (VerificationRecord) Kind() RecordType { return RecordTypeVerification }

// PollVoteRecord is one voter's vote line-item, written per choice the voter
// reacted with during a resolution pass.
type PollVoteRecord struct {
	RecordType  RecordType `json:"record_type"`
	PollID      string     `json:"poll_id"`
	BatchID     string     `json:"batch_id"`
	DiscordID   string     `json:"discord_id"`
	Username    string     `json:"discord_username"`
	Choice      string     `json:"choice"`
	VotingPower int64      `json:"voting_power"`
	Verified    bool       `json:"verified"`
	Email       string     `json:"email,omitempty"`
	SubmittedAt string     `json:"submitted_at"`
}

func (PollVoteRecord) Kind() RecordType { return RecordTypePollVote }

// FinalAwardRecord is one voter's XP award for a resolved poll.
type FinalAwardRecord struct {
	RecordType       RecordType `json:"record_type"`
	PollID           string     `json:"poll_id"`
	BatchID          string     `json:"batch_id"`
	DiscordID        string     `json:"discord_id"`
	Username         string     `json:"discord_username"`
	Choice           string     `json:"choice"`
	VotingPower      int64      `json:"voting_power"`
	Verified         bool       `json:"verified"`
	XPAwarded        int64      `json:"xp_awarded"`
	IsWinner         bool       `json:"is_winner"`
	IsTopContributor bool       `json:"is_top_contributor"`
	SubmittedAt      string     `json:"submitted_at"`
}

func (FinalAwardRecord) Kind() RecordType { return RecordTypeFinalAward }
