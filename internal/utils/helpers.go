package utils

// Ptr returns a pointer to v. Handy for optional message settings.
func Ptr[T any](v T) *T { return &v }
