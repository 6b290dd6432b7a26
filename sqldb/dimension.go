package sqldb

import (
	"database/sql"
	"strings"

	"github.com/hklemm/dimdocs/core"
)

func cleanName(name string) string {
	return strings.TrimSpace(name)
}

type dimension struct {
	id   int
	name string
}

func (d *dimension) ID() int {
	return d.id
}

func (d *dimension) Name() string {
	return d.name
}

type DimensionDB struct {
	*sql.DB
	get       *sql.Stmt
	getByName *sql.Stmt
	getAll    *sql.Stmt
	insert    *sql.Stmt
}

func NewDimensionDB(db *sql.DB) *DimensionDB {

	db.Exec(`
		CREATE TABLE IF NOT EXISTS dimension (
			id INTEGER PRIMARY KEY,
			name varchar(128) NOT NULL,
			UNIQUE(name)
		);`)

	var dimensionDB = &DimensionDB{}
	dimensionDB.DB = db
	dimensionDB.get = mustPrepare(db, "SELECT id, name FROM dimension WHERE id = ? LIMIT 1")
	dimensionDB.getByName = mustPrepare(db, "SELECT id, name FROM dimension WHERE name = ? LIMIT 1")
	dimensionDB.getAll = mustPrepare(db, "SELECT id, name FROM dimension ORDER BY name LIMIT ? OFFSET ?")
	dimensionDB.insert = mustPrepare(db, "INSERT INTO dimension (name) VALUES (?)")
	return dimensionDB
}

func (db *DimensionDB) GetDimension(id int) (core.DBDimension, error) {
	var d = &dimension{}
	err := db.get.QueryRow(id).Scan(&d.id, &d.name)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (db *DimensionDB) GetDimensionByName(name string) (core.DBDimension, error) {
	var d = &dimension{}
	err := db.getByName.QueryRow(cleanName(name)).Scan(&d.id, &d.name)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (db *DimensionDB) GetAllDimensions(limit, offset int) ([]core.DBDimension, error) {

	rows, err := db.getAll.Query(limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all = []core.DBDimension{}
	for rows.Next() {
		var d = &dimension{}
		if err = rows.Scan(&d.id, &d.name); err != nil {
			return nil, err
		}
		all = append(all, d)
	}
	return all, rows.Err()
}

func (db *DimensionDB) InsertDimension(name string) error {
	name = cleanName(name)
	if name == "" {
		return core.Errorf(core.KindValidation, "dimension name can't be blank")
	}
	_, err := db.insert.Exec(name)
	return err
}

func (db *DimensionDB) IsNotFound(err error) bool {
	return err == sql.ErrNoRows
}
