package repository

import "errors"

// errDuplicateKey mirrors a primary key violation in the memory store
var errDuplicateKey = errors.New("duplicate key value violates unique constraint")
