package entity

import (
	"github.com/google/uuid"
)

type Rating struct {
	BaseSimple
	SpotID  uuid.UUID `db:"spot_id"`
	UserID  uuid.UUID `db:"user_id"`
	Rating  int       `db:"rating"` // 1-5
	Comment *string   `db:"comment"`
}
