package workflow

import (
	"fmt"

	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
)

// AcquireMaintenanceLock takes a MySQL advisory lock so two ledger repairs never run together.
// GET_LOCK is connection-scoped: call it on the *gorm.DB that runs the repair transaction.
// SQLite has a single writer, so the call is a no-op there.
func AcquireMaintenanceLock(tx *gorm.DB, name string) error {
	if !config.IsMySQL(tx) {
		return nil
	}
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", "maintenance:"+name).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire maintenance lock %s", name)
	}
	return nil
}

func ReleaseMaintenanceLock(tx *gorm.DB, name string) {
	if !config.IsMySQL(tx) {
		return
	}
	var ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", "maintenance:"+name).Scan(&ok).Error
}
