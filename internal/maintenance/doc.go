// Package maintenance implements administrative operations over the durable
// store and the local cache: account summaries, account and record deletion,
// full wipes, exports and cache storage accounting.
//
// Every operation keeps the two stores consistent: once an account is deleted
// its data is unreachable through either. Bulk operations are not atomic
// across accounts; a failure partway leaves earlier deletions committed and
// callers should re-query rather than assume all-or-nothing.
//
// The Service performs no authorization of its own. It is reached through an
// authenticated entry point that places the admin identity in the context,
// which is recorded in the audit log.
package maintenance
