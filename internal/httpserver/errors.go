package httpserver

const (
	ErrInvalidJSON = "invalid json"
	ErrInvalidID   = "invalid bill id"
	ErrNotFound    = "not found"
	ErrDependency  = "dependency error"
)
