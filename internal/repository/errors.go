// Package repository holds the MySQL data access layer.  Sentinel errors in
// this file let higher layers such as the services and handlers tell the
// failure cases apart with errors.Is without looking at driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrOrderNotFound is returned when no order matches the lookup.  Handlers
// translate it into an HTTP 404 response.
var ErrOrderNotFound = errors.New("order not found")

// ErrItemNotFound is returned when an order item id does not exist.
var ErrItemNotFound = errors.New("order item not found")

// ErrItemExists is returned when an object key has already been recorded.
var ErrItemExists = errors.New("order item already recorded for this object")

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists and ErrPhoneExists signal a unique key violation on signup.
var (
	ErrEmailExists = errors.New("email already exists")
	ErrPhoneExists = errors.New("phone already exists")
)

const mysqlDuplicateEntry = 1062

// duplicateKey reports whether err is a MySQL duplicate-entry error and, if
// so, the message so callers can work out which unique key was hit.
func duplicateKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return strings.ToLower(me.Message), true
	}
	return "", false
}
