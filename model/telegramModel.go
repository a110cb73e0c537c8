// model/telegram.go
package model

// TelegramUserInfo maps one user to one chat; written once on opt-in.
type TelegramUserInfo struct {
	ID     int64 `json:"id"`
	ChatID int64 `json:"chat_id"`
	UserID int64 `json:"user_id"`
}
