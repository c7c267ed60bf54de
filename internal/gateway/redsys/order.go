package redsys

import (
	"strings"

	"github.com/google/uuid"
)

const orderAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderCode generates an order code in the format SIS accepts: four digits
// followed by eight alphanumeric characters, unique per payment attempt.
func NewOrderCode() string {
	id := uuid.New()

	var b strings.Builder
	b.Grow(12)
	for i := 0; i < 4; i++ {
		b.WriteByte('0' + id[i]%10)
	}
	for i := 4; i < 12; i++ {
		b.WriteByte(orderAlphabet[int(id[i])%len(orderAlphabet)])
	}
	return b.String()
}
