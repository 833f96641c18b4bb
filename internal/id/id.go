package id

import "github.com/rs/xid"

// New returns a globally unique, sortable request identifier.
func New() string {
	return xid.New().String()
}
