package social

import (
	"context"
	"fmt"

	"github.com/gamehive/server/model"
	"gorm.io/gorm"
)

// ToggleFavorite flips the favorite marker for (userID, friendID). The row's
// existence is the boolean: present → removed, absent → created. Requires an
// accepted relationship. The insert path catches the composite-unique
// violation so two concurrent toggles cannot produce duplicate rows.
func (s *Service) ToggleFavorite(ctx context.Context, userID, friendID int64) (bool, *model.FavoriteFriend, error) {
	if userID == friendID {
		return false, nil, fmt.Errorf("%w: cannot favorite yourself", ErrInvalidArgument)
	}

	accepted, err := s.AreFriends(ctx, userID, friendID)
	if err != nil {
		return false, nil, err
	}
	if !accepted {
		return false, nil, fmt.Errorf("%w: no accepted friendship with user %d", ErrForbidden, friendID)
	}

	var (
		isFavorite bool
		record     *model.FavoriteFriend
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND friend_id = ?", userID, friendID).
			Delete(&model.FavoriteFriend{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			isFavorite = false
			return nil
		}

		fav := model.FavoriteFriend{UserID: userID, FriendID: friendID}
		if err := tx.Create(&fav).Error; err != nil {
			// Concurrent toggle created it first; report the existing row.
			if IsUniqueViolation(err) {
				if err := tx.Where("user_id = ? AND friend_id = ?", userID, friendID).
					First(&fav).Error; err != nil {
					return err
				}
				isFavorite = true
				record = &fav
				return nil
			}
			return err
		}
		isFavorite = true
		record = &fav
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return isFavorite, record, nil
}
