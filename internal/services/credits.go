package services

import (
	"errors"

	"indexpilot/internal/models"

	"gorm.io/gorm"
)

// CreditService implements pipeline.CreditLedger. Decrement is a single
// conditional UPDATE so two concurrent invocations can never drive a balance
// negative; the race is settled by the database, not in process.
type CreditService struct {
	db *gorm.DB
}

func NewCreditService(db *gorm.DB) *CreditService {
	return &CreditService{db: db}
}

func (s *CreditService) Balance(userID uint) (int64, error) {
	var user models.User
	if err := s.db.Select("credits").First(&user, userID).Error; err != nil {
		return 0, err
	}
	return user.Credits, nil
}

// Decrement applies `credits = credits - n` only when `credits >= n`.
// Returns false with no change otherwise.
func (s *CreditService) Decrement(userID uint, n int) (bool, error) {
	if n <= 0 {
		return false, errors.New("decrement amount must be positive")
	}
	res := s.db.Model(&models.User{}).
		Where("id = ? AND credits >= ?", userID, n).
		UpdateColumn("credits", gorm.Expr("credits - ?", n))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
