package services

// Authorize is the ownership gate: it succeeds only when an identity is present
// and equals the owner of the resource being accessed.
func Authorize(identity, owner string) error {
	if identity == "" || identity != owner {
		return ErrUnauthorized
	}
	return nil
}
