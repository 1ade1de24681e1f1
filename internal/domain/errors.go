package domain

import "errors"

// Domain errors.
var (
	// ErrSessionNotFound is returned when a session cannot be found.
	ErrSessionNotFound = errors.New("session not found")

	// ErrForbidden is returned when the caller does not own the session.
	ErrForbidden = errors.New("not authorized for this session")

	// ErrScriptNotFound is returned when a session has no stored script.
	ErrScriptNotFound = errors.New("script not found for this session")

	// ErrEmptyConversation is returned when extraction is requested with no messages.
	ErrEmptyConversation = errors.New("conversation list cannot be empty")

	// ErrScriptParse is returned when the model reply is not the expected two-field JSON.
	ErrScriptParse = errors.New("malformed script reply")

	// ErrGenerationInFlight is returned when a generation lease is already held.
	ErrGenerationInFlight = errors.New("video generation already in progress")

	// ErrGenerationRequest is returned when the generation job submission fails.
	ErrGenerationRequest = errors.New("generation request failed")

	// ErrStatusCheck is returned when a poll of the generation job fails.
	ErrStatusCheck = errors.New("status check failed")

	// ErrUnexpectedStatus is returned when the job reports a status outside the known set.
	ErrUnexpectedStatus = errors.New("unexpected job status")

	// ErrPollTimeout is returned when the poll attempt budget is exhausted.
	ErrPollTimeout = errors.New("video generation timed out")

	// ErrTransferFailed is returned when the media download fails.
	ErrTransferFailed = errors.New("media transfer failed")

	// ErrUploadFailed is returned when the hosting upload or privacy update fails.
	ErrUploadFailed = errors.New("hosting upload failed")

	// ErrJobNotFound is returned when a job cannot be found.
	ErrJobNotFound = errors.New("job not found")

	// ErrNoJobs is returned when there are no jobs to process.
	ErrNoJobs = errors.New("no jobs available")
)

// SessionError wraps an error with session context.
type SessionError struct {
	SessionID SessionID
	Op        string
	Err       error
}

func (e *SessionError) Error() string {
	if e.SessionID != "" {
		return e.Op + " [" + e.SessionID.String() + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewSessionError creates a new SessionError.
func NewSessionError(sessionID SessionID, op string, err error) *SessionError {
	return &SessionError{
		SessionID: sessionID,
		Op:        op,
		Err:       err,
	}
}
