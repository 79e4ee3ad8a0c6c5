package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Roles maps SmallStreet membership levels onto the two Discord roles the
// bot manages.
type Roles struct {
	MegavoterRoleID string
	PatronRoleID    string
}

// RoleResult reports what role assignment did for a verified member.
type RoleResult struct {
	RoleName   string
	AlreadyHas bool
}

// AssignMembershipRole gives the member the role matching their membership
// level (pioneer → MEGAvoter, patron → Patron), removing the other managed
// role first. When the member already holds the right role this is a no-op
// with AlreadyHas set, which callers use to skip duplicate record writes.
func (c *Client) AssignMembershipRole(ctx context.Context, roles Roles, guildID, userID, membershipName string) (RoleResult, error) {
	if roles.MegavoterRoleID == "" || roles.PatronRoleID == "" {
		return RoleResult{}, fmt.Errorf("role IDs not configured")
	}

	var wantRoleID, wantRoleName, otherRoleID string
	switch strings.ToLower(membershipName) {
	case "pioneer":
		wantRoleID, wantRoleName, otherRoleID = roles.MegavoterRoleID, "MEGAvoter", roles.PatronRoleID
	case "patron":
		wantRoleID, wantRoleName, otherRoleID = roles.PatronRoleID, "Patron", roles.MegavoterRoleID
	default:
		return RoleResult{}, fmt.Errorf("unknown membership type %q", membershipName)
	}

	member, err := c.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return RoleResult{}, wrapErr("fetch guild member", err)
	}

	hasWant, hasOther := false, false
	for _, r := range member.Roles {
		switch r {
		case wantRoleID:
			hasWant = true
		case otherRoleID:
			hasOther = true
		}
	}

	if hasWant && !hasOther {
		return RoleResult{RoleName: wantRoleName, AlreadyHas: true}, nil
	}

	if hasOther {
		if err := c.s.GuildMemberRoleRemove(guildID, userID, otherRoleID, discordgo.WithContext(ctx)); err != nil {
			c.logger.Warn("Failed to remove stale membership role",
				zap.String("user_id", userID), zap.Error(err))
		}
	}

	if !hasWant {
		if err := c.s.GuildMemberRoleAdd(guildID, userID, wantRoleID, discordgo.WithContext(ctx)); err != nil {
			return RoleResult{}, wrapErr("assign role", err)
		}
	}

	return RoleResult{RoleName: wantRoleName}, nil
}
