package domain

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRoles lists every assignable role.
func ValidRoles() []string {
	return []string{RoleUser, RoleAdmin}
}

func IsValidRole(role string) bool {
	for _, r := range ValidRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// ProductCreatorRoles may create catalog products.
func ProductCreatorRoles() []string {
	return []string{RoleUser, RoleAdmin}
}

// CanCreateProducts reports whether role is allowed to add products.
func CanCreateProducts(role string) bool {
	for _, r := range ProductCreatorRoles() {
		if r == role {
			return true
		}
	}
	return false
}
