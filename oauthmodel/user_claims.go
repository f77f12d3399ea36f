package oauthmodel

// UserClaims holds the identity claims decoded from an ID token. The standard
// OIDC claims the UI typically renders are first-class fields; anything else
// the server included is passed through unmodified in Extra.
//
// These claims are decoded, not verified - see the identity package for the
// trust boundary.
type UserClaims struct {
	// Sub is the unique subject identifier. Always present in a valid ID token.
	Sub string `json:"sub"`

	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
	GivenName     string `json:"given_name,omitempty"`
	FamilyName    string `json:"family_name,omitempty"`
	Nickname      string `json:"nickname,omitempty"`
	Picture       string `json:"picture,omitempty"`

	// Extra carries every claim not mapped to a field above, keyed by claim
	// name, values as decoded from JSON.
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// Claim returns the named claim, consulting the typed fields first and
// falling back to Extra. The second return reports presence.
func (u *UserClaims) Claim(name string) (interface{}, bool) {
	if u == nil {
		return nil, false
	}
	switch name {
	case "sub":
		return u.Sub, true
	case "email":
		if u.Email == "" {
			break
		}
		return u.Email, true
	case "email_verified":
		return u.EmailVerified, true
	case "name":
		if u.Name == "" {
			break
		}
		return u.Name, true
	case "given_name":
		if u.GivenName == "" {
			break
		}
		return u.GivenName, true
	case "family_name":
		if u.FamilyName == "" {
			break
		}
		return u.FamilyName, true
	case "nickname":
		if u.Nickname == "" {
			break
		}
		return u.Nickname, true
	case "picture":
		if u.Picture == "" {
			break
		}
		return u.Picture, true
	}
	v, ok := u.Extra[name]
	return v, ok
}
