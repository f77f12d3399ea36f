// Package identity extracts user claims from an ID token's payload.
//
// The decoder is a pure parser, not a verifier: no signature, issuer,
// audience or expiry check is performed. Trust in the resulting claims rests
// entirely on the token having arrived directly over the authenticated token
// exchange - an ID token from any other source must not be fed through this
// package and believed.
package identity

import (
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/pkg/errors"
)

// knownClaims are the claim names mapped onto typed UserClaims fields; every
// other claim lands in Extra untouched.
var knownClaims = map[string]struct{}{
	"sub":            {},
	"email":          {},
	"email_verified": {},
	"name":           {},
	"given_name":     {},
	"family_name":    {},
	"nickname":       {},
	"picture":        {},
}

// Decode parses the claims out of an ID token without verifying it. A token
// that does not have exactly three dot-separated segments, or whose payload
// cannot be decoded, fails with oauthmodel.ErrMalformedToken.
func Decode(idToken string) (*oauthmodel.UserClaims, error) {
	if len(strings.Split(idToken, ".")) != 3 {
		return nil, errors.Wrap(oauthmodel.ErrMalformedToken, "[Decode] token must have three segments")
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(idToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(oauthmodel.ErrMalformedToken, err.Error())
	}

	mapClaims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.Wrap(oauthmodel.ErrMalformedToken, "[Decode] error extracting claims")
	}

	return claimsFromMap(mapClaims), nil
}

func claimsFromMap(m jwtlib.MapClaims) *oauthmodel.UserClaims {
	claims := &oauthmodel.UserClaims{
		Sub:        stringClaim(m, "sub"),
		Email:      stringClaim(m, "email"),
		Name:       stringClaim(m, "name"),
		GivenName:  stringClaim(m, "given_name"),
		FamilyName: stringClaim(m, "family_name"),
		Nickname:   stringClaim(m, "nickname"),
		Picture:    stringClaim(m, "picture"),
	}
	if v, ok := m["email_verified"].(bool); ok {
		claims.EmailVerified = v
	}

	for name, value := range m {
		if _, known := knownClaims[name]; known {
			continue
		}
		if claims.Extra == nil {
			claims.Extra = make(map[string]interface{})
		}
		claims.Extra[name] = value
	}
	return claims
}

func stringClaim(m jwtlib.MapClaims, name string) string {
	s, _ := m[name].(string)
	return s
}
