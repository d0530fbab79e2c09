package httpapi

import (
	"database/sql"
	"net/http"
)

func NewMux(db *sql.DB, status FetchStatusProvider) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, status)
	return mux
}
