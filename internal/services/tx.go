package services

import (
	"gorm.io/gorm"

	"github.com/yungbote/mediaforge-backend/internal/platform/dbctx"
)

// inTx runs fn inside a transaction. When dbc already carries one, fn joins it.
func inTx(db *gorm.DB, dbc dbctx.Context, fn func(dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	return db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: dbc.Ctx, Tx: tx})
	})
}
