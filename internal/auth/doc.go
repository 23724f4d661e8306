// Package auth provides account authentication and the administrative
// entry point.
//
// # Accounts
//
// Gateway validates signup input, hashes passwords with bcrypt and verifies
// login attempts against a store.AccountStore. Every operation returns a
// uniform Result instead of raising through the boundary:
//
//	res := gw.Login(ctx, "ann@x.com", "secret1")
//	if !res.Success {
//	    // res.Err is ErrInvalidCredentials, a *ValidationError, or a wrapped store failure
//	}
//
// Unknown emails and wrong passwords both yield ErrInvalidCredentials. For
// unknown emails a comparison against a dummy hash keeps response time
// independent of whether the account exists.
//
// # Admin Tokens
//
// Maintenance operations require an HS256 JWT carrying role "admin":
//
//	verifier, _ := auth.NewJWTVerifier(secret)
//	token, _ := verifier.Generate("ops", 24*time.Hour)
//	admin, err := verifier.Verify(token)
//
// The verified identity travels in the context via WithAdmin and is read back
// with AdminFromContext for audit trails.
package auth
