package repository

import (
	"errors"
	"strings"
)

// ErrIndexOutOfRange is returned by list operations addressing a slot
// that does not exist.
var ErrIndexOutOfRange = errors.New("list index out of range")

// NormalizeCustomer reduces a phone-like customer identifier to its
// digits. Identifiers without any digit fall back to the trimmed input so
// test fixtures and synthetic IDs still produce stable keys.
func NormalizeCustomer(id string) string {
	var b strings.Builder
	for _, ch := range id {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	if b.Len() == 0 {
		return strings.TrimSpace(id)
	}
	return b.String()
}

func SessionKey(customer string) string {
	return "order_session:" + NormalizeCustomer(customer)
}

func CartKey(customer string) string {
	return "cart:" + NormalizeCustomer(customer)
}

func SuggestionsKey(customer string) string {
	return "suggestions:" + NormalizeCustomer(customer)
}

func OrderCompletedKey(customer string) string {
	return "order_completed:" + NormalizeCustomer(customer)
}

func LockKey(namespace, customer string) string {
	return "lock:" + namespace + ":" + NormalizeCustomer(customer)
}
