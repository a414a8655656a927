package db

import (
	"errors"

	"gorm.io/gorm"
)

// IsRecordNotFound reports whether err stems from a lookup that matched no rows.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
