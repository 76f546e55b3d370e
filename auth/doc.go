// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides admin token verification and voter identity hashing.

# Admin Tokens

Admins authenticate with an HS256 bearer token issued by the identity
provider and signed with the project's JWT secret:

	token, err := auth.BearerToken(r.Header.Get("Authorization"))
	claims, err := auth.ParseAdminToken(token, secret)

Tokens must carry an expiry and an email claim. The display name comes from
user_metadata.full_name and falls back to the email. Verified claims travel
on the request context:

	ctx = auth.WithClaims(ctx, claims)
	claims, ok := auth.ClaimsFromContext(ctx)

IssueAdminToken signs a token locally for tests and tooling.

# IP Hashing

Voters are identified by a salted hash of their network origin:

	voter := auth.HashIP(ipAddress, salt)

Returns first 8 bytes (16 hex chars) of HMAC-SHA256. Raw addresses are never
written to Redis or the database.
*/
package auth
