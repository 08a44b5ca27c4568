/*
Package user holds the identity and profile records shared by the relay's components.

An Identity comes from a verified bearer credential and never changes for the life of a
connection. A Profile is the display record kept in the external store and may be edited
at any time, so components re-read it instead of caching it.
*/
package user

import "strings"

// Identity is the caller proven by a bearer credential.
type Identity struct {
	// ID is the credential subject (the platform user id).
	ID string `json:"id"`

	// Email is the address the platform knows the user by. It may be empty.
	Email string `json:"email"`

	// DisplayName is the name to show until a profile says otherwise.
	DisplayName string `json:"display_name"`
}

// Profile is the display record stored for an identity.
type Profile struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
}

// DefaultDisplayName picks the name used for an identity without a profile:
// the explicit metadata name, else the email local-part, else the subject.
func DefaultDisplayName(metadataName, email, subject string) string {
	if name := strings.TrimSpace(metadataName); name != "" {
		return name
	}

	if local, _, found := strings.Cut(email, "@"); found && local != "" {
		return local
	}

	if email != "" {
		return email
	}

	return subject
}

// NewProfile returns the profile created on first connect.
func NewProfile(identity Identity) Profile {
	return Profile{
		ID:       identity.ID,
		Username: identity.DisplayName,
	}
}
