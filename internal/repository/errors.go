package repository

import "github.com/ignatzorin/studgig-backend/internal/repository/common"

// Ошибки хранилищ, общие для postgres и memory.
var (
	ErrNotFound          = common.ErrNotFound
	ErrAlreadyExists     = common.ErrAlreadyExists
	ErrInsufficientFunds = common.ErrInsufficientFunds
	ErrInvalidState      = common.ErrInvalidState
	ErrUnknownReference  = common.ErrUnknownReference
)
