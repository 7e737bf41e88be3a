package controllers

type CustomError struct {
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

var (
	ErrNoActiveSession = &CustomError{"No active session on this table"}
	ErrSessionEnded    = &CustomError{"Session has ended"}
)
