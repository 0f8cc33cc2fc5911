package catalog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrTemplateNotFound = errors.New("template not found")

// Template is the read-only catalog view the licensing core needs.
// Prices are in minor currency units.
type Template struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Title      string    `db:"title" json:"title"`
	Slug       string    `db:"slug" json:"slug"`
	Price      int64     `db:"price" json:"price"`
	SalePrice  *int64    `db:"sale_price" json:"sale_price,omitempty"`
	FileSize   *string   `db:"file_size" json:"file_size,omitempty"`
	CategoryID uuid.UUID `db:"category_id" json:"category_id"`
}

// EffectivePrice is the sale price when one is set, otherwise the list price.
func (t *Template) EffectivePrice() int64 {
	if t.SalePrice != nil {
		return *t.SalePrice
	}
	return t.Price
}

// FormatMinorUnits renders 8999 as "89.99".
func FormatMinorUnits(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}
