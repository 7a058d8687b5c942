package core

import "github.com/google/uuid"

func newAuditID() string {
	return uuid.NewString()
}
