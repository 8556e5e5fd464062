package registration

import "fmt"

type ErrorReason string

const (
	REASON_FAILED_TO_TRANSLATE_TO_DB_MODEL ErrorReason = "FAILED_TO_TRANSLATE_TO_DB_MODEL"
	REASON_FAILED_TO_WRITE                 ErrorReason = "FAILED_TO_WRITE"
	REASON_FAILED_TO_FETCH                 ErrorReason = "FAILED_TO_FETCH"
	REASON_REGISTRATION_DOES_NOT_EXIST     ErrorReason = "REGISTRATION_DOES_NOT_EXIST"
	REASON_REGISTRATION_ALREADY_EXISTS     ErrorReason = "REGISTRATION_ALREADY_EXISTS"
	REASON_ALREADY_SCANNED                 ErrorReason = "ALREADY_SCANNED"
	REASON_TEAM_SIZE_NOT_ALLOWED           ErrorReason = "TEAM_SIZE_NOT_ALLOWED"
	REASON_FAILED_TO_STORE_SCREENSHOT      ErrorReason = "FAILED_TO_STORE_SCREENSHOT"
	REASON_FAILED_TO_CREATE_TICKET         ErrorReason = "FAILED_TO_CREATE_TICKET"
	REASON_TICKET_DELIVERY_FAILED          ErrorReason = "TICKET_DELIVERY_FAILED"
)

type Error struct {
	Reason  ErrorReason
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s. Cause: %s", e.Reason, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newRegistrationError(reason ErrorReason, message string, cause error) *Error {
	return &Error{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

func NewFailedToWriteError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_WRITE, message, cause)
}

func NewFailedToTranslateToDBModelError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_TRANSLATE_TO_DB_MODEL, message, cause)
}

func NewFailedToFetchError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_FETCH, message, cause)
}

func NewRegistrationAlreadyExistsError(message string, cause error) *Error {
	return newRegistrationError(REASON_REGISTRATION_ALREADY_EXISTS, message, cause)
}

func NewRegistrationDoesNotExistsError(message string, cause error) *Error {
	return newRegistrationError(REASON_REGISTRATION_DOES_NOT_EXIST, message, cause)
}

func NewAlreadyScannedError(message string) *Error {
	return newRegistrationError(REASON_ALREADY_SCANNED, message, nil)
}

// NewTeamSizeNotAllowedError counts the leader, so the message reports the full team size.
func NewTeamSizeNotAllowedError(memberCount, requiredMembers int) *Error {
	return newRegistrationError(REASON_TEAM_SIZE_NOT_ALLOWED, fmt.Sprintf("Team must have exactly %d members", requiredMembers+1), fmt.Errorf("got %d members besides the leader", memberCount))
}

func NewFailedToStoreScreenshotError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_STORE_SCREENSHOT, message, cause)
}

func NewFailedToCreateTicketError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_CREATE_TICKET, message, cause)
}

func NewTicketDeliveryFailedError(message string, cause error) *Error {
	return newRegistrationError(REASON_TICKET_DELIVERY_FAILED, message, cause)
}
