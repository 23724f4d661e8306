// Package cache mirrors each account's classification records and the active
// session into a kv.Store.
//
// # Key Layout
//
//	<prefix>:session              active session's public account fields
//	<prefix>:records:<accountId>  that account's records, newest first
//	<prefix>:records              legacy unscoped key, never read
//
// Every key under "<prefix>:" is application-owned.
//
// # Isolation
//
// Records for account A live only under A's key. Each stored envelope and
// each record inside it also carry the owning account id; a load for B
// discards anything that names a different owner. Malformed entries are
// deleted for that one account and reported as empty, never as an error.
//
// # Serialization
//
// Values are JSON envelopes with a version field:
//
//	{"version":1,"accountId":"...","records":[...]}
//
// An unknown version is treated as corruption.
package cache
