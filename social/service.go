package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/gamehive/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service implements the friend relationship state machine and the
// favorite marker. All invariants are enforced at the storage layer
// (unique pair index, transactional check-then-act), so methods are safe
// to call from any number of request goroutines.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a social Service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// SendFriendRequest creates a pending relationship from requester to
// addressee. An existing pending/accepted/blocked row for the pair fails
// with ErrConflict; a rejected row is recycled back to pending so the pair
// can re-apply after a rejection.
func (s *Service) SendFriendRequest(ctx context.Context, requesterID, addresseeID int64) (*model.Relationship, error) {
	if requesterID == addresseeID {
		return nil, fmt.Errorf("%w: cannot friend yourself", ErrInvalidArgument)
	}
	if requesterID <= 0 || addresseeID <= 0 {
		return nil, fmt.Errorf("%w: invalid user id", ErrInvalidArgument)
	}

	pairKey := model.PairKeyFor(requesterID, addresseeID)
	var rel model.Relationship

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Relationship
		err := tx.Where("pair_key = ?", pairKey).First(&existing).Error
		switch {
		case err == nil:
			if existing.Status != model.RelationRejected {
				return fmt.Errorf("%w: relationship already %s", ErrConflict, existing.Status)
			}
			// Re-application after rejection reuses the row; the unique
			// pair index stays the single constraint for the pair.
			existing.RequesterID = requesterID
			existing.AddresseeID = addresseeID
			existing.Status = model.RelationPending
			existing.BlockerID = nil
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			rel = existing
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			rel = model.Relationship{
				RequesterID: requesterID,
				AddresseeID: addresseeID,
				PairKey:     pairKey,
				Status:      model.RelationPending,
			}
			if err := tx.Create(&rel).Error; err != nil {
				// Loser of a concurrent send for the same pair.
				if IsUniqueViolation(err) {
					return fmt.Errorf("%w: relationship already exists", ErrConflict)
				}
				return err
			}
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("friend request sent",
		zap.Int64("requester_id", requesterID),
		zap.Int64("addressee_id", addresseeID),
		zap.Int64("relationship_id", rel.ID),
	)
	return &rel, nil
}

// AcceptFriendRequest transitions a pending request to accepted. Only the
// addressee may accept. Accepting an already-accepted row is a no-op
// success so client retries are safe.
func (s *Service) AcceptFriendRequest(ctx context.Context, relationshipID, actingUserID int64) (*model.Relationship, error) {
	var rel model.Relationship
	if err := s.db.WithContext(ctx).First(&rel, relationshipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: relationship %d", ErrNotFound, relationshipID)
		}
		return nil, err
	}

	switch rel.Status {
	case model.RelationAccepted:
		if !rel.Involves(actingUserID) {
			return nil, fmt.Errorf("%w: not a party to this relationship", ErrForbidden)
		}
		return &rel, nil
	case model.RelationPending:
		if rel.AddresseeID != actingUserID {
			return nil, fmt.Errorf("%w: only the addressee may accept", ErrForbidden)
		}
	default:
		return nil, fmt.Errorf("%w: no pending request %d", ErrNotFound, relationshipID)
	}

	if err := s.db.WithContext(ctx).Model(&rel).Update("status", model.RelationAccepted).Error; err != nil {
		return nil, err
	}
	rel.Status = model.RelationAccepted

	s.logger.Info("friend request accepted",
		zap.Int64("relationship_id", rel.ID),
		zap.Int64("requester_id", rel.RequesterID),
		zap.Int64("addressee_id", rel.AddresseeID),
	)
	return &rel, nil
}

// RejectFriendRequest transitions a pending request to rejected. Only the
// addressee may reject. The row is retained; a later SendFriendRequest for
// the same pair recycles it.
func (s *Service) RejectFriendRequest(ctx context.Context, relationshipID, actingUserID int64) (*model.Relationship, error) {
	var rel model.Relationship
	if err := s.db.WithContext(ctx).First(&rel, relationshipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: relationship %d", ErrNotFound, relationshipID)
		}
		return nil, err
	}
	if rel.Status != model.RelationPending {
		return nil, fmt.Errorf("%w: no pending request %d", ErrNotFound, relationshipID)
	}
	if rel.AddresseeID != actingUserID {
		return nil, fmt.Errorf("%w: only the addressee may reject", ErrForbidden)
	}

	if err := s.db.WithContext(ctx).Model(&rel).Update("status", model.RelationRejected).Error; err != nil {
		return nil, err
	}
	rel.Status = model.RelationRejected
	return &rel, nil
}

// CancelFriendRequest hard-deletes a pending request. Only the original
// requester may cancel, and only before acceptance.
func (s *Service) CancelFriendRequest(ctx context.Context, relationshipID, actingUserID int64) error {
	var rel model.Relationship
	if err := s.db.WithContext(ctx).First(&rel, relationshipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: relationship %d", ErrNotFound, relationshipID)
		}
		return err
	}
	if rel.Status != model.RelationPending {
		return fmt.Errorf("%w: no pending request %d", ErrNotFound, relationshipID)
	}
	if rel.RequesterID != actingUserID {
		return fmt.Errorf("%w: only the requester may cancel", ErrForbidden)
	}
	return s.db.WithContext(ctx).Delete(&model.Relationship{}, rel.ID).Error
}

// BlockUser puts the pair row into blocked state with the caller recorded
// as blocker, creating the row if the pair had no relationship yet.
// Blocking overwrites pending and accepted; last writer wins between
// concurrent blocks.
func (s *Service) BlockUser(ctx context.Context, blockerID, targetID int64) (*model.Relationship, error) {
	if blockerID == targetID {
		return nil, fmt.Errorf("%w: cannot block yourself", ErrInvalidArgument)
	}

	pairKey := model.PairKeyFor(blockerID, targetID)
	blocked := func(tx *gorm.DB, rel *model.Relationship) error {
		rel.Status = model.RelationBlocked
		rel.BlockerID = &blockerID
		return tx.Save(rel).Error
	}

	var rel model.Relationship
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("pair_key = ?", pairKey).First(&rel).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			rel = model.Relationship{
				RequesterID: blockerID,
				AddresseeID: targetID,
				PairKey:     pairKey,
			}
			if err := blocked(tx, &rel); err != nil {
				// A concurrent writer created the pair row first; block it.
				if IsUniqueViolation(err) {
					if err := tx.Where("pair_key = ?", pairKey).First(&rel).Error; err != nil {
						return err
					}
					return blocked(tx, &rel)
				}
				return err
			}
			return nil
		}
		if err != nil {
			return err
		}
		return blocked(tx, &rel)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user blocked",
		zap.Int64("blocker_id", blockerID),
		zap.Int64("target_id", targetID),
	)
	return &rel, nil
}

// UnblockUser removes a block, returning the pair to no relationship.
// Only the user recorded as blocker may unblock.
func (s *Service) UnblockUser(ctx context.Context, blockerID, targetID int64) error {
	pairKey := model.PairKeyFor(blockerID, targetID)
	var rel model.Relationship
	if err := s.db.WithContext(ctx).Where("pair_key = ?", pairKey).First(&rel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: no relationship with user %d", ErrNotFound, targetID)
		}
		return err
	}
	if rel.Status != model.RelationBlocked {
		return fmt.Errorf("%w: user %d is not blocked", ErrNotFound, targetID)
	}
	if rel.BlockerID == nil || *rel.BlockerID != blockerID {
		return fmt.Errorf("%w: only the blocker may unblock", ErrForbidden)
	}
	return s.db.WithContext(ctx).Delete(&model.Relationship{}, rel.ID).Error
}

// GetRelationship fetches a relationship by id.
func (s *Service) GetRelationship(ctx context.Context, relationshipID int64) (*model.Relationship, error) {
	var rel model.Relationship
	if err := s.db.WithContext(ctx).First(&rel, relationshipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: relationship %d", ErrNotFound, relationshipID)
		}
		return nil, err
	}
	return &rel, nil
}

// relationshipBetween returns the pair row for two users regardless of
// orientation, or gorm.ErrRecordNotFound.
func (s *Service) relationshipBetween(ctx context.Context, a, b int64) (*model.Relationship, error) {
	var rel model.Relationship
	err := s.db.WithContext(ctx).Where("pair_key = ?", model.PairKeyFor(a, b)).First(&rel).Error
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// AreFriends reports whether an accepted relationship exists between the
// two users, in either orientation.
func (s *Service) AreFriends(ctx context.Context, a, b int64) (bool, error) {
	rel, err := s.relationshipBetween(ctx, a, b)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rel.Status == model.RelationAccepted, nil
}

// IsBlockedBy reports whether blocker has blocked userID. The block is
// asymmetric: the reverse direction stays unaffected.
func (s *Service) IsBlockedBy(ctx context.Context, userID, blocker int64) (bool, error) {
	rel, err := s.relationshipBetween(ctx, userID, blocker)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rel.Status == model.RelationBlocked &&
		rel.BlockerID != nil && *rel.BlockerID == blocker, nil
}

// FriendInfo is one entry of a user's friend list.
type FriendInfo struct {
	RelationshipID int64  `json:"relationship_id"`
	FriendID       int64  `json:"friend_id"`
	IsFavorite     bool   `json:"is_favorite"`
	Since          string `json:"since"`
}

// ListFriends returns the accepted relationships of a user (either
// orientation) with their favorite flags.
func (s *Service) ListFriends(ctx context.Context, userID int64) ([]FriendInfo, error) {
	var rels []model.Relationship
	err := s.db.WithContext(ctx).
		Where("status = ? AND (requester_id = ? OR addressee_id = ?)",
			model.RelationAccepted, userID, userID).
		Find(&rels).Error
	if err != nil {
		return nil, err
	}

	var favs []model.FavoriteFriend
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&favs).Error; err != nil {
		return nil, err
	}
	favSet := make(map[int64]bool, len(favs))
	for _, f := range favs {
		favSet[f.FriendID] = true
	}

	result := make([]FriendInfo, len(rels))
	for i, r := range rels {
		friendID := r.CounterpartOf(userID)
		result[i] = FriendInfo{
			RelationshipID: r.ID,
			FriendID:       friendID,
			IsFavorite:     favSet[friendID],
			Since:          r.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}
	return result, nil
}

// ListPendingRequests returns the incoming pending requests for a user.
func (s *Service) ListPendingRequests(ctx context.Context, userID int64) ([]model.Relationship, error) {
	var rels []model.Relationship
	err := s.db.WithContext(ctx).
		Where("addressee_id = ? AND status = ?", userID, model.RelationPending).
		Order("created_at ASC").
		Find(&rels).Error
	return rels, err
}
