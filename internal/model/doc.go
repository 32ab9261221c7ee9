// Package model defines the shared data model for listings, favorites and
// chat messages.
//
// Listing ids are self-describing: an id carrying LocalIDPrefix names a record
// that exists only in the local cache, any other id names a record owned by
// the remote document store. ParseRef turns an id into a Ref so callers can
// switch on the two cases instead of repeating prefix checks.
package model
