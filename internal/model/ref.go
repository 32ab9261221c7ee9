package model

import "strings"

// LocalIDPrefix marks ids of records that have never reached the remote store.
// Remote ids are hex ObjectIDs and can never carry it.
const LocalIDPrefix = "local_"

// IsLocalID reports whether id names a local-only record.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// Ref is a listing id resolved to the store that owns it.
// It is either LocalRef or RemoteRef.
type Ref interface {
	ID() string
	isRef()
}

// LocalRef names a listing held only in the local cache.
type LocalRef struct{ id string }

// RemoteRef names a listing held by the remote store.
type RemoteRef struct{ id string }

func (r LocalRef) ID() string  { return r.id }
func (r RemoteRef) ID() string { return r.id }

func (LocalRef) isRef()  {}
func (RemoteRef) isRef() {}

// ParseRef routes id by prefix alone. It never consults any store.
func ParseRef(id string) Ref {
	if IsLocalID(id) {
		return LocalRef{id: id}
	}
	return RemoteRef{id: id}
}
