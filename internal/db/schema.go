package db

import _ "embed"

// Schema creates the tables if they do not exist yet.
//
//go:embed schema.sql
var Schema string
