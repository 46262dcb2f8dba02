package models

// Participant is a row of the participants table.
type Participant struct {
	Role           string `db:"role"`
	TelegramUserID *int64 `db:"telegram_user_id"`
	DisplayName    string `db:"display_name"`
	AuditFields
}
