package store

import (
	"fmt"
	"strings"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

const baseNotificationsSelect = `SELECT id, user_id, notification_type, trigger_condition,
	title, message, COALESCE(location_info, ''), status, sent_at, read_at
FROM notification_history`

const countNotificationsSelect = "SELECT COUNT(*) FROM notification_history"

// ToSQL builds the WHERE clause, ORDER BY, LIMIT, and OFFSET for a
// notification history query. It returns two SQL strings (one for the
// data query, one for the count query) and the positional parameters.
func (q *NotificationQuery) ToSQL() (dataSQL, countSQL string, args []any) {
	var conditions []string
	paramIdx := 1

	if q.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", paramIdx))
		args = append(args, q.UserID)
		paramIdx++
	}

	if q.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", paramIdx))
		args = append(args, string(*q.Status))
		paramIdx++
	}

	if q.Type != nil {
		conditions = append(conditions, fmt.Sprintf("notification_type = $%d", paramIdx))
		args = append(args, string(*q.Type))
		paramIdx++
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := max(q.Offset, 0)

	dataSQL = fmt.Sprintf(
		"%s%s ORDER BY sent_at DESC LIMIT %d OFFSET %d",
		baseNotificationsSelect, whereClause, limit, offset,
	)

	countSQL = countNotificationsSelect + whereClause

	return dataSQL, countSQL, args
}
