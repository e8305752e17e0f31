package store

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

// FlashPage is one flash page stored as a row. Missing rows are erased pages.
type FlashPage struct {
	Index int `gorm:"primaryKey;autoIncrement:false"`
	Data  []byte
}

// SQLFlash keeps flash pages in an SQLite database.
type SQLFlash struct {
	db   *gorm.DB
	size int
}

// OpenSQLFlash opens (creating if needed) the database at path.
func OpenSQLFlash(path string, size int) (*SQLFlash, error) {
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: path}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, err
		}
	}
	if err := db.AutoMigrate(&FlashPage{}); err != nil {
		return nil, err
	}
	return &SQLFlash{db: db, size: size}, nil
}

// ReadAt implements Flash.
func (f *SQLFlash) ReadAt(p []byte, off int64) (int, error) {
	fillErased(p)
	var pages []FlashPage
	if err := f.db.Order("`index`").Find(&pages).Error; err != nil {
		return 0, err
	}
	for _, page := range pages {
		start := int64(page.Index*PageSize) - off
		src := page.Data
		if start < 0 {
			if -start >= int64(len(src)) {
				continue
			}
			src, start = src[-start:], 0
		}
		if start < int64(len(p)) {
			copy(p[start:], src)
		}
	}
	return len(p), nil
}

// Erase implements Flash.
func (f *SQLFlash) Erase() error {
	return f.db.Where("1 = 1").Delete(&FlashPage{}).Error
}

// Write implements Flash. Pages left fully erased are not stored.
func (f *SQLFlash) Write(p []byte) error {
	return f.db.Transaction(func(tx *gorm.DB) error {
		for index := 0; index*PageSize < len(p); index++ {
			end := (index + 1) * PageSize
			if end > len(p) {
				end = len(p)
			}
			chunk := p[index*PageSize : end]
			if isErased(chunk) {
				continue
			}
			page := FlashPage{Index: index, Data: append([]byte(nil), chunk...)}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&page).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Busy implements Flash.
func (f *SQLFlash) Busy() bool {
	return false
}

// Close closes the database.
func (f *SQLFlash) Close() error {
	sqlDB, err := f.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isErased(p []byte) bool {
	for _, b := range p {
		if b != Erased {
			return false
		}
	}
	return true
}
