// Package session provides paired JWT credential management (issuance,
// verification, rotation, revocation) plus the HTTP surface that carries the
// tokens as cookies.
//
// Session lineage:
//   - Each account holds at most one live refresh token, persisted via Bun.
//     Logging in replaces the stored value, so earlier sessions silently die.
//   - Refreshing verifies the presented token and swaps the stored value in a
//     single conditional update; a token that was already rotated loses and
//     the lineage stays wherever it was.
//   - Logout and password changes drive the lineage to its revoked state;
//     revoked lineages can only be restarted by a fresh login.
//
// Tokens:
//   - Access tokens are short-lived and stateless: signature and expiry are
//     the whole proof. They carry the subject id, handle, email, and display
//     name so handlers rarely need a lookup.
//   - Refresh tokens carry only the subject id and are worthless unless they
//     also match the stored value, which keeps replay windows closed.
//   - The two token kinds are signed with distinct secrets, so one leaked key
//     never mints the other kind.
package session
