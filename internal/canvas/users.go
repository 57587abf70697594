package canvas

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUserNotFound is returned when no account login matches an email exactly.
var ErrUserNotFound = errors.New("user not found")

// quotaMessagePrefix is the start of the error message Canvas returns when a
// file upload fails because the user's storage quota is exhausted. It appears
// both on initiation responses and, occasionally, on progress messages.
const quotaMessagePrefix = "file size exceeds quota"

// ResolveUserID retrieves the Canvas user ID for the given login email. The
// user search API returns partial and case-insensitive matches, so the results
// are filtered for an exact login_id match; a match-count of one is not
// sufficient on its own.
func ResolveUserID(ctx context.Context, c Client, loginID string) (int64, error) {
	users, err := c.SearchUsers(ctx, loginID)
	if err != nil {
		return 0, fmt.Errorf("searching users: %w", err)
	}
	for _, u := range users {
		if u.LoginID == loginID {
			return u.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUserNotFound, loginID)
}

// IsQuotaExceededMessage reports whether a Canvas error message indicates the
// user's file quota was exceeded.
func IsQuotaExceededMessage(msg string) bool {
	return strings.HasPrefix(msg, quotaMessagePrefix)
}

// QuotaExceededMessage builds the user-facing message for an upload rejected
// by the quota limit, with the account's quota figures fetched fresh. Falls
// back to a generic message when the quota lookup itself fails.
func QuotaExceededMessage(ctx context.Context, c Client, userID int64) string {
	q, err := c.GetQuota(ctx, userID)
	if err != nil {
		return "File size exceeds quota."
	}
	return fmt.Sprintf("File size exceeds quota. Quota: %d bytes. Quota used: %d bytes.", q.Quota, q.QuotaUsed)
}
