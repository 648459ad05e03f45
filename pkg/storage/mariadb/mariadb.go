package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/c14220110/telekonsul-backend/config"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
)

const mysqlDuplicateEntry = 1062

// Connect membuka koneksi ke database MariaDB.
// Semua kredensial diambil dari config (file .env atau environment).
func Connect(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsnConfig(cfg).FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("gagal membuka koneksi ke database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("gagal melakukan ping ke database: %w", err)
	}
	return db, nil
}

func dsnConfig(cfg *config.Config) *mysql.Config {
	dsnCfg := mysql.NewConfig()
	dsnCfg.User = cfg.DBUser
	dsnCfg.Passwd = cfg.DBPassword
	dsnCfg.Net = "tcp"
	dsnCfg.Addr = cfg.DBHost + ":" + cfg.DBPort
	dsnCfg.DBName = cfg.DBName
	dsnCfg.ParseTime = true
	dsnCfg.Loc = time.UTC
	dsnCfg.MultiStatements = true
	// RowsAffected menghitung baris yang cocok, bukan yang berubah, supaya
	// UPDATE dengan nilai sama tidak terbaca sebagai ErrNotFound.
	dsnCfg.ClientFoundRows = true
	return dsnCfg
}

// translate memetakan error driver ke sentinel di pkg/storage.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%w: %s", storage.ErrDuplicate, myErr.Message)
	}
	return err
}

// inClause menghasilkan "?,?,?" dan argumen untuk query IN.
func inClause(ids []int64) (string, []interface{}) {
	placeholders := make([]byte, 0, len(ids)*2)
	args := make([]interface{}, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, id)
	}
	return string(placeholders), args
}
