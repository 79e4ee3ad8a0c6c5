package membership

import (
	"encoding/json"
	"math/big"
)

// Member is one record from the SmallStreet membership API. Fields beyond
// these exist on the wire but are not consumed here.
type Member struct {
	Email           string      `json:"user_email"`
	MembershipID    json.Number `json:"membership_id"`
	MembershipName  string      `json:"membership_name"`
	DiscordUsername string      `json:"discord_username"`
	DisplayName     string      `json:"display_name"`
	XPLevel         json.Number `json:"xp_level"`
}

// HasMembership reports whether the record carries an active membership.
func (m *Member) HasMembership() bool {
	return m.MembershipID.String() != "" && m.MembershipID.String() != "0"
}

// XP parses the member's XP level. The API reports magnitudes well beyond
// float64 integer precision, so the value is carried as big.Float.
func (m *Member) XP() (*big.Float, bool) {
	s := m.XPLevel.String()
	if s == "" {
		return nil, false
	}
	f, _, err := big.ParseFloat(s, 10, 256, big.ToNearestEven)
	if err != nil {
		return nil, false
	}
	return f, true
}
