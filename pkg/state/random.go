package state

import "github.com/google/uuid"

// RandomName generates a short unique name for entities created without an
// explicit name, such as the vault created by CreateVaultState.
func RandomName() string {
	u := uuid.New().String()
	return u[:8]
}
