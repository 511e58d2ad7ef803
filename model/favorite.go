package model

import "time"

// FavoriteFriend marks a friend as favorite for one user. Existence of the
// row is the boolean; the composite unique index makes the toggle race-safe.
type FavoriteFriend struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_fav_user_friend" json:"user_id"`
	FriendID  int64     `gorm:"not null;uniqueIndex:idx_fav_user_friend" json:"friend_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
