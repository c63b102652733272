package repositories

import (
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrTeamNotFound         = errors.New("team not found")
	ErrChannelNotFound      = errors.New("channel not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrMeetingNotFound      = errors.New("meeting not found")
	ErrMemberNotFound       = errors.New("member not found")

	ErrDuplicateChannelName = errors.New("a channel with this name already exists in the team")
	ErrAlreadyMember        = errors.New("already a member")
	ErrDuplicateUser        = errors.New("username or email already taken")
	ErrStateConflict        = errors.New("entity is not in the expected state")
)

// NewID returns a time-ordered identifier. Ids sort in creation order, which
// cursor pagination relies on.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	// invalidTextRepresentation is raised when a malformed id is cast to uuid.
	invalidTextRepresentation = "22P02"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func isInvalidText(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}
