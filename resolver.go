package voice

// User is the logical user a receive-path SSRC resolves to. When
// neither cache has a record, resolveUser synthesizes a minimal User with
// only ID set, per §4.8 step 8.
type User struct {
	ID       ID
	Username string

	// Synthesized is true if this User was fabricated from just the ID
	// because neither cache had a record for it.
	Synthesized bool
}

// GuildMemberCache is consulted first when resolving a speaking user. It
// is an external collaborator: the voice engine never populates or
// evicts it. Grounded on the lookup-then-fetch chain in
// gabrielpreston-audio-orchestrator's discordResolver.
type GuildMemberCache interface {
	// GuildMember returns the member's display name, or ok=false if the
	// guild has no cached record for userID.
	GuildMember(guildID, userID ID) (username string, ok bool)
}

// UserCache is consulted if GuildMemberCache misses. It is also an
// external collaborator.
type UserCache interface {
	// User returns the user's username, or ok=false if unknown.
	User(userID ID) (username string, ok bool)
}

// resolveUser implements the §4.8 step 8 fallback chain: guild member
// cache, then global user cache, else a synthesized minimal record.
func (c *Connection) resolveUser(userID ID) User {
	if userID == NullID {
		return User{Synthesized: true}
	}

	if c.cfg.GuildMembers != nil {
		if name, ok := c.cfg.GuildMembers.GuildMember(c.GuildID, userID); ok {
			return User{ID: userID, Username: name}
		}
	}

	if c.cfg.Users != nil {
		if name, ok := c.cfg.Users.User(userID); ok {
			return User{ID: userID, Username: name}
		}
	}

	return User{ID: userID, Synthesized: true}
}
