// Package database owns the local SQLite file that backs the key/value store.
//
// The schema is a single settings table; catalog collections, the session
// and the encrypted credential are all values in it:
//
//	db, err := database.NewDatabase("./bookcatalog.db")
//	repo := settings.NewRepository(db.DB)
//	store := localstore.New(repo, encryptor, logger)
package database
