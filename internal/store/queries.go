package store

// SQL query constants organized by entity.
// All SQL lives here; PostgresStore methods reference these constants.

// User queries.
const (
	userColumns = `u.id, u.nickname, u.latitude, u.longitude, u.active, u.created_at`

	queryCreateUser = `
		INSERT INTO users (nickname, latitude, longitude, active)
		VALUES (@nickname, @latitude, @longitude, @active)
		RETURNING id, created_at`

	queryDeleteUserInterests = `
		DELETE FROM user_interests WHERE user_id = $1`

	queryInsertUserInterest = `
		INSERT INTO user_interests (user_id, category) VALUES ($1, $2)`

	querySetChannelTargets = `
		INSERT INTO user_channels (user_id, device_token, webhook_url, email, phone)
		VALUES (@user_id, @device_token, @webhook_url, @email, @phone)
		ON CONFLICT (user_id) DO UPDATE SET
			device_token = EXCLUDED.device_token,
			webhook_url = EXCLUDED.webhook_url,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone`

	queryListActiveUsers = `
		SELECT ` + userColumns + `
		FROM users u
		WHERE u.active
		ORDER BY u.created_at`

	queryListUsersByInterest = `
		SELECT ` + userColumns + `
		FROM users u
		JOIN user_interests ui ON ui.user_id = u.id
		WHERE u.active AND ui.category = $1
		ORDER BY u.created_at`

	queryGetUser = `
		SELECT ` + userColumns + `
		FROM users u
		WHERE u.id = $1`

	queryListInterestsForUsers = `
		SELECT user_id, category
		FROM user_interests
		WHERE user_id = ANY($1)
		ORDER BY user_id, category`

	queryUpdateUserLocation = `
		UPDATE users SET
			latitude = $2,
			longitude = $3
		WHERE id = $1`

	queryGetChannelTargets = `
		SELECT COALESCE(device_token, ''), COALESCE(webhook_url, ''),
			COALESCE(email, ''), COALESCE(phone, '')
		FROM user_channels
		WHERE user_id = $1`
)

// Notification history queries.
const (
	notificationColumns = `id, user_id, notification_type, trigger_condition,
		title, message, COALESCE(location_info, ''), status, sent_at, read_at`

	querySaveNotification = `
		INSERT INTO notification_history (
			id, user_id, notification_type, trigger_condition,
			title, message, location_info, status, sent_at
		) VALUES (
			@id, @user_id, @notification_type, @trigger_condition,
			@title, @message, @location_info, @status, @sent_at
		)`

	queryGetNotification = `
		SELECT ` + notificationColumns + `
		FROM notification_history
		WHERE id = $1`

	queryUpdateNotificationStatus = `
		UPDATE notification_history SET
			status = $2
		WHERE id = $1 AND status = 'SENT'`

	queryMarkNotificationRead = `
		UPDATE notification_history SET
			status = 'READ',
			read_at = COALESCE(read_at, $2)
		WHERE id = $1 AND status IN ('SENT', 'READ')`

	queryMarkAllRead = `
		UPDATE notification_history SET
			status = 'READ',
			read_at = $2
		WHERE user_id = $1 AND status = 'SENT'`

	queryCountUnread = `
		SELECT count(*)
		FROM notification_history
		WHERE user_id = $1 AND status = 'SENT'`

	queryExpireNotificationsBefore = `
		UPDATE notification_history SET
			status = 'EXPIRED'
		WHERE status = 'SENT' AND sent_at < $1`

	queryNotificationExists = `
		SELECT EXISTS(SELECT 1 FROM notification_history WHERE id = $1)`
)
